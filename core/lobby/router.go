package lobby

import (
	"sync"

	"github.com/trezcool/darasa/core"
)

// Emitter receives the events a committed transition produced, in commit
// order. Implementations must not block: delivery is an enqueue, the actual
// network write happens in each connection's own writer.
type Emitter interface {
	// ToUsers delivers evt to the live connections of the given user ids.
	ToUsers(userIDs []string, evt Event)
	// Global delivers evt to every connection subscribed to the lobby-list
	// channel (clients browsing available lobbies).
	Global(evt Event)
}

// Router fans lobby events out to connections. Delivery is best-effort and
// independent per connection: a saturated or dead connection is dropped
// without stalling the others. Per-connection ordering is FIFO because each
// connection drains a single outbound queue.
type Router struct {
	registry *Registry
	logger   core.Logger

	mu       sync.RWMutex
	watchers map[Conn]struct{} // lobby-list channel subscribers
}

var _ Emitter = (*Router)(nil)

func NewRouter(registry *Registry, logger core.Logger) *Router {
	return &Router{
		registry: registry,
		logger:   logger,
		watchers: make(map[Conn]struct{}),
	}
}

// Subscribe adds conn to the lobby-list channel.
func (rt *Router) Subscribe(conn Conn) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.watchers[conn] = struct{}{}
}

// Unsubscribe removes conn from the lobby-list channel.
func (rt *Router) Unsubscribe(conn Conn) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.watchers, conn)
}

func (rt *Router) ToUsers(userIDs []string, evt Event) {
	for _, conn := range rt.registry.ConnectionsFor(userIDs) {
		rt.send(conn, evt)
	}
}

func (rt *Router) Global(evt Event) {
	rt.mu.RLock()
	conns := make([]Conn, 0, len(rt.watchers))
	for conn := range rt.watchers {
		conns = append(conns, conn)
	}
	rt.mu.RUnlock()

	for _, conn := range conns {
		rt.send(conn, evt)
	}
}

// send enqueues evt on conn; a full queue means the client stopped draining,
// so the connection is closed and dropped from the lobby-list channel.
func (rt *Router) send(conn Conn, evt Event) {
	if conn.Send(evt) {
		return
	}
	rt.logger.Warn("lobby: dropping saturated connection", map[string]interface{}{"event": evt.Event})
	rt.Unsubscribe(conn)
	_ = conn.Close()
}
