package core

import (
	"fmt"
	"strings"

	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

// Area is the atomic unit of the room graph: a standalone room, a hub,
// or a sub-area owned by exactly one hub. All fields are guarded by the
// orchestrator's mutation lock; Area itself carries no locking.
type Area struct {
	// ID is stable for the server run and never reused. DisplayPos is
	// the positional label sub-areas are renumbered by; it drives the
	// default name and abbreviation, not identity.
	ID           domain.AreaID
	Name         string
	Abbreviation string
	Background   string

	IsHub      bool
	HubOrdinal int          // registration order among hubs, used by the default naming scheme
	HubType    domain.HubType
	Hub        *Area        // owning hub, nil unless sub-area
	Subareas   []*Area      // ordered, hubs only
	DisplayPos int          // sub-areas only, contiguous from 1
	nextSubPos int          // hubs only

	// Connections are directed edges out of a sub-area. The first edge
	// added seeds the set with {lobby, hub} so connection-scoped
	// enumeration is always well formed. Any edge marks the area
	// restricted.
	Connections []*Area
	Restricted  bool

	Lock           domain.LockState
	Password       string
	LockingAllowed bool

	Status Status
	Hidden bool

	members map[domain.SessionID]Session
	invites map[domain.SessionID]struct{}
	owners  []Session

	Alarm *Countdown
}

// Status is re-exported for brevity at call sites.
type Status = domain.Status

func newArea(id domain.AreaID, name string) *Area {
	return &Area{
		ID:      id,
		Name:    name,
		members: make(map[domain.SessionID]Session),
		invites: make(map[domain.SessionID]struct{}),
		Alarm:   NewCountdown(),
	}
}

func (a *Area) IsSub() bool { return a.Hub != nil }

// AddMember places a session in the area. Entry permission is checked
// separately by CanEnter.
func (a *Area) AddMember(s Session) { a.members[s.ID()] = s }

func (a *Area) RemoveMember(s Session) { delete(a.members, s.ID()) }

func (a *Area) HasMember(s Session) bool {
	_, ok := a.members[s.ID()]
	return ok
}

// Members returns the live membership set. Callers must not mutate the
// area while iterating.
func (a *Area) Members() []Session {
	out := make([]Session, 0, len(a.members))
	for _, s := range a.members {
		out = append(out, s)
	}
	return out
}

func (a *Area) MemberCount() int { return len(a.members) }

// VisibleCount counts members excluding hidden sessions. Hubs count
// their sub-areas' members too when deep is set.
func (a *Area) VisibleCount(deep bool) int {
	n := 0
	for _, s := range a.members {
		if !s.Hidden() {
			n++
		}
	}
	if deep && a.IsHub {
		for _, sub := range a.Subareas {
			n += sub.VisibleCount(false)
		}
	}
	return n
}

func (a *Area) IsOwner(s Session) bool {
	for _, o := range a.owners {
		if o.ID() == s.ID() {
			return true
		}
	}
	return false
}

// AddOwner appends to the CM roster; duplicates are rejected so a
// roster never lists the same actor twice.
func (a *Area) AddOwner(s Session) bool {
	if a.IsOwner(s) {
		return false
	}
	a.owners = append(a.owners, s)
	return true
}

func (a *Area) RemoveOwner(s Session) bool {
	for i, o := range a.owners {
		if o.ID() == s.ID() {
			a.owners = append(a.owners[:i], a.owners[i+1:]...)
			return true
		}
	}
	return false
}

func (a *Area) Owners() []Session { return append([]Session(nil), a.owners...) }

func (a *Area) OwnerCount() int { return len(a.owners) }

// CMSummary renders the roster for ARUP packets: "FREE" with no owners,
// otherwise "[id] name" entries joined by commas.
func (a *Area) CMSummary() string {
	if len(a.owners) == 0 {
		return "FREE"
	}
	parts := make([]string, len(a.owners))
	for i, o := range a.owners {
		parts[i] = fmt.Sprintf("[%d] %s", o.ID(), o.Name())
	}
	return strings.Join(parts, ", ")
}

func (a *Area) Invite(id domain.SessionID) { a.invites[id] = struct{}{} }

func (a *Area) Uninvite(id domain.SessionID) { delete(a.invites, id) }

func (a *Area) Invited(id domain.SessionID) bool {
	_, ok := a.invites[id]
	return ok
}

func (a *Area) InviteCount() int { return len(a.invites) }

// seedInvites grants entry to everyone already present plus the owner
// roster, so locking never strands the people it protects.
func (a *Area) seedInvites() {
	for id := range a.members {
		a.invites[id] = struct{}{}
	}
	for _, o := range a.owners {
		a.invites[o.ID()] = struct{}{}
	}
}

// ResetInvites rebuilds the list from the owner roster, plus current
// members when the area is fully locked so nobody present is stranded.
func (a *Area) ResetInvites(includeMembers bool) {
	a.invites = make(map[domain.SessionID]struct{})
	for _, o := range a.owners {
		a.invites[o.ID()] = struct{}{}
	}
	if includeMembers {
		for id := range a.members {
			a.invites[id] = struct{}{}
		}
	}
}

// SetLocked transitions to LOCKED. Locking an already-locked area is a
// no-op error so the command layer can tell the actor.
func (a *Area) SetLocked() error {
	if a.Lock == domain.LockLocked {
		return domain.ErrAlreadyInState
	}
	a.Lock = domain.LockLocked
	a.seedInvites()
	return nil
}

// SetFree transitions back to FREE, dropping the invite list and the
// password with it.
func (a *Area) SetFree() error {
	if a.Lock == domain.LockFree {
		return domain.ErrInvalidTransition
	}
	a.Lock = domain.LockFree
	a.invites = make(map[domain.SessionID]struct{})
	a.Password = ""
	return nil
}

// SetSpectatable transitions to SPECTATABLE: entry stays open but IC
// interaction is gated by the invite list.
func (a *Area) SetSpectatable() error {
	if a.Lock == domain.LockSpectatable {
		return domain.ErrAlreadyInState
	}
	a.Lock = domain.LockSpectatable
	a.seedInvites()
	return nil
}

// CanEnter decides whether s may move into the area from its current
// location. Owners are silently invited first so a CM can always
// return to a room they locked from the outside.
func (a *Area) CanEnter(s Session, from *Area) error {
	if a.IsOwner(s) && !a.Invited(s.ID()) {
		a.Invite(s.ID())
	}
	if a.Lock == domain.LockLocked && !s.Privileged() && !a.Invited(s.ID()) {
		return &domain.AreaLockedError{HasPassword: a.Password != ""}
	}
	if a.Restricted && !s.Privileged() && !a.IsOwner(s) && !a.connectedFrom(from) {
		return domain.ErrNotConnected
	}
	return nil
}

func (a *Area) connectedFrom(from *Area) bool {
	for _, c := range a.Connections {
		if c == from {
			return true
		}
	}
	return false
}

// CanInteract reports whether s may speak in-character here. In a
// spectatable or locked area only moderators, owners and invitees may.
func (a *Area) CanInteract(s Session) bool {
	if a.Lock == domain.LockFree {
		return true
	}
	return s.Privileged() || a.IsOwner(s) || a.Invited(s.ID())
}

// BroadcastNotice pushes a text line to every member. Delivery errors
// are swallowed per session so one dead connection cannot stall the
// rest.
func (a *Area) BroadcastNotice(text string) {
	for _, s := range a.members {
		_ = s.Deliver(Notice{Text: text})
	}
}
