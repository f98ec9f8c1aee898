package core

import "github.com/ToadySP/MountainOfSpirits/internal/domain"

// Session is the core-facing view of a connected actor. The transport
// adapter owns the connection and its lifecycle; the core only moves
// the session between areas and pushes packets at it.
type Session interface {
	ID() domain.SessionID
	Name() string

	// Area is the session's current location, nil before the first
	// successful Enter.
	Area() *Area
	SetArea(*Area)

	// Privileged marks a moderator. Moderators bypass lock, invite and
	// connection gating.
	Privileged() bool

	// Hidden sessions are excluded from player counts.
	Hidden() bool
	SetHidden(bool)

	// Deliver pushes one packet at the session. Best-effort: the core
	// swallows the error and never retries, framing and flushing are
	// the transport's problem.
	Deliver(Packet) error
}

// Packet is one outbound value. The wire encoding is owned by the
// transport; the core only guarantees the ordering of the sequences.
type Packet interface {
	PacketType() string
}

// AreaListUpdate carries the full ordered name list visible to a
// session. Sent whenever the set of rooms in its view changes.
type AreaListUpdate struct {
	Names []string `json:"names"`
}

// PlayerCountUpdate carries one visible-player count per enumerated
// area, -1 for hidden areas.
type PlayerCountUpdate struct {
	Counts []int `json:"counts"`
}

// StatusUpdate carries one status name per enumerated area.
type StatusUpdate struct {
	Statuses []string `json:"statuses"`
}

// CMRosterUpdate carries one CM summary string per enumerated area,
// "FREE" when an area has no owners.
type CMRosterUpdate struct {
	Rosters []string `json:"rosters"`
}

// LockStateUpdate carries one lock-state name per enumerated area.
type LockStateUpdate struct {
	Locks []string `json:"locks"`
}

// Notice is a server-originated text line for the client's chat pane.
type Notice struct {
	Text string `json:"text"`
}

func (AreaListUpdate) PacketType() string    { return "area_list" }
func (PlayerCountUpdate) PacketType() string { return "players" }
func (StatusUpdate) PacketType() string      { return "statuses" }
func (CMRosterUpdate) PacketType() string    { return "cms" }
func (LockStateUpdate) PacketType() string   { return "locks" }
func (Notice) PacketType() string            { return "notice" }
