package ws

import (
	"encoding/json"
	"sync"

	"github.com/ToadySP/MountainOfSpirits/internal/core"
	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

// session binds a connected actor to its websocket. It implements
// core.Session; the core owns where it is, the adapter owns the pipe.
type session struct {
	id   domain.SessionID
	conn *Conn

	mu         sync.RWMutex
	name       string
	area       *core.Area
	privileged bool
	hidden     bool
}

func newSession(id domain.SessionID, conn *Conn) *session {
	return &session{id: id, conn: conn, name: "guest"}
}

func (s *session) ID() domain.SessionID { return s.id }

func (s *session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *session) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

func (s *session) Area() *core.Area {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.area
}

func (s *session) SetArea(a *core.Area) {
	s.mu.Lock()
	s.area = a
	s.mu.Unlock()
}

func (s *session) Privileged() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.privileged
}

func (s *session) SetPrivileged(v bool) {
	s.mu.Lock()
	s.privileged = v
	s.mu.Unlock()
}

func (s *session) Hidden() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hidden
}

func (s *session) SetHidden(v bool) {
	s.mu.Lock()
	s.hidden = v
	s.mu.Unlock()
}

// Deliver encodes a core packet as {"type": ..., ...} and queues it.
// A full queue surfaces as an error for the core to swallow.
func (s *session) Deliver(p core.Packet) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return err
	}
	payload["type"] = p.PacketType()
	frame, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.conn.TrySend(frame)
}
