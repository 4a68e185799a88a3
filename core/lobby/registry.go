package lobby

import "sync"

// Conn is the transport handle the engine pushes events through. Send must be
// non-blocking: it enqueues the event on the connection's outbound queue and
// reports false when the connection is saturated or closed.
type Conn interface {
	Send(evt Event) bool
	Close() error
}

// Registry maps stable user ids to their current live connection. A user id
// has at most one live connection; re-registering replaces the previous
// handle (reconnect). Membership of lobbies is not tracked here; a
// disconnected participant stays a lobby member until an explicit leave.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register binds conn as the live handle for userID and returns the handle it
// replaced, if any, so the caller can close the superseded connection.
func (r *Registry) Register(userID string, conn Conn) (replaced Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.conns[userID]
	r.conns[userID] = conn
	if old == conn {
		return nil
	}
	return old
}

// Unregister removes conn if it is still the current handle for userID.
// A stale handle from a prior connection is a no-op; this prevents a late
// disconnect event from unbinding a fresh reconnection.
func (r *Registry) Unregister(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[userID] == conn {
		delete(r.conns, userID)
	}
}

// Resolve returns the current live connection for userID.
func (r *Registry) Resolve(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// ConnectionsFor resolves the currently-live handles for the given user ids,
// preserving order. Disconnected users are simply skipped.
func (r *Registry) ConnectionsFor(userIDs []string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(userIDs))
	for _, id := range userIDs {
		if conn, ok := r.conns[id]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}
