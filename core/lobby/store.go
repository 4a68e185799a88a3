package lobby

import (
	"sync"

	"github.com/google/uuid"
)

// Store is the authoritative in-memory table of active lobbies. Every
// mutation of a given lobby goes through its entry's mutex, so all
// transitions on one lobby are strictly serialized while operations on
// different lobbies proceed concurrently. Events are handed to the Emitter
// while the entry is still locked, which pins the per-connection delivery
// order to the commit order; the Emitter only enqueues and never blocks.
type Store struct {
	emitter Emitter

	mu      sync.RWMutex
	lobbies map[uuid.UUID]*entry
	order   []uuid.UUID // creation order, for List
}

type entry struct {
	mu      sync.Mutex
	lobby   *Lobby
	removed bool
}

func NewStore(emitter Emitter) *Store {
	return &Store{
		emitter: emitter,
		lobbies: make(map[uuid.UUID]*entry),
	}
}

// Create inserts a new lobby. An open lobby with the same name owned by the
// same instructor is a duplicate.
func (s *Store) Create(l *Lobby) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.lobbies {
		e.mu.Lock()
		dup := !e.removed && e.lobby.OwnerID == l.OwnerID && e.lobby.Name == l.Name && e.lobby.Status == StatusOpen
		e.mu.Unlock()
		if dup {
			return ErrDuplicateName
		}
	}

	s.lobbies[l.ID] = &entry{lobby: l}
	s.order = append(s.order, l.ID)
	return nil
}

// Get returns a copy of the lobby.
func (s *Store) Get(id uuid.UUID) (Lobby, error) {
	e, err := s.entry(id)
	if err != nil {
		return Lobby{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Lobby{}, ErrNotFound
	}
	return e.lobby.Clone(), nil
}

// List returns copies of all lobbies in creation order.
func (s *Store) List() []Lobby {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.order))
	for _, id := range s.order {
		if e, ok := s.lobbies[id]; ok {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	lobbies := make([]Lobby, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			lobbies = append(lobbies, e.lobby.Clone())
		}
		e.mu.Unlock()
	}
	return lobbies
}

// Update runs fn inside the lobby's exclusion region and returns a copy of
// the committed state. fn may emit events; they are enqueued in commit order.
// An error from fn discards nothing; fn must either fully apply a transition
// or leave the lobby untouched.
func (s *Store) Update(id uuid.UUID, fn func(l *Lobby, emit Emitter) error) (Lobby, error) {
	e, err := s.entry(id)
	if err != nil {
		return Lobby{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Lobby{}, ErrNotFound
	}
	if err := fn(e.lobby, s.emitter); err != nil {
		return Lobby{}, err
	}
	return e.lobby.Clone(), nil
}

// Remove drops the lobby from the store. Unreachable afterwards; in-flight
// Updates that already hold the entry lock commit first.
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lobbies[id]
	if !ok {
		return
	}
	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()

	delete(s.lobbies, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store) entry(id uuid.UUID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.lobbies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}
