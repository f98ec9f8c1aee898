package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ToadySP/MountainOfSpirits/internal/core"
	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

type sessionEntry struct {
	Session core.Session
	Cancel  context.CancelFunc
}

// Registry maps session ids to live sessions. It hands out the stable
// integer ids the core keys invite lists and CM rosters by; ids are
// monotonic for the server run and per-connection, so two tabs of the
// same browser are two distinct entries.
type Registry struct {
	mu      sync.RWMutex
	nextID  domain.SessionID
	entries map[domain.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[domain.SessionID]*sessionEntry)}
}

// NextID allocates a fresh session id.
func (r *Registry) NextID() domain.SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// Bind registers a session together with the cancel func tearing down
// its connection's pumps.
func (r *Registry) Bind(s core.Session, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s.ID()] = &sessionEntry{Session: s, Cancel: cancel}
	log.Info().Str("module", "app.registry").Int("sid", int(s.ID())).Msg("bound session")
}

// Lookup finds a session by its id, for invite and CM targets.
func (r *Registry) Lookup(id domain.SessionID) (core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) Unbind(id domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	log.Info().Str("module", "app.registry").Int("sid", int(id)).Msg("unbound session")
}

// Cancel tears down the connection bound to id, if any.
func (r *Registry) Cancel(id domain.SessionID) bool {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	return true
}
