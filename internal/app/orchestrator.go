package app

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ToadySP/MountainOfSpirits/internal/core"
	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

// Orchestrator is the single entry point for every room-graph
// operation. One mutex serializes all mutations and the ARUP
// broadcasts they trigger, so each packet describes one consistent
// topology snapshot; a mutation can never interleave mid-broadcast.
type Orchestrator struct {
	mu sync.Mutex

	Graph    *core.Graph
	Engine   *core.Engine
	Registry *Registry
	Sink     Audit
}

func NewOrchestrator(g *core.Graph, e *core.Engine, r *Registry, sink Audit) *Orchestrator {
	return &Orchestrator{Graph: g, Engine: e, Registry: r, Sink: sink}
}

// Attach lands a freshly connected session in the lobby and sends it
// the full room list plus all four global ARUP rows directly.
func (o *Orchestrator) Attach(s core.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	lobby := o.Graph.Lobby()
	lobby.AddMember(s)
	s.SetArea(lobby)
	o.Engine.SendView(s)
	o.Engine.Broadcast(lobby, core.KindPlayers)
	emit(o.Sink, "session.attach", s, lobby, "connected")
	log.Info().Str("module", "app.orch").Int("sid", int(s.ID())).Msg("session attached")
}

// Detach removes a disconnected session everywhere: membership, CM
// rosters, and any user-hub sub-area it leaves empty.
func (o *Orchestrator) Detach(s core.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, a := range o.Graph.Areas() {
		o.dropOwnership(s, a)
		for _, sub := range a.Subareas {
			o.dropOwnership(s, sub)
		}
	}
	a := s.Area()
	if a != nil {
		a.RemoveMember(s)
		s.SetArea(nil)
	}
	// Losing an owner can orphan sub-areas the session was not even
	// in, so the reap sweeps every auto-destroy hub.
	for _, hub := range o.Graph.Areas() {
		if !hub.IsHub || !hub.HubType.Spec().AutoDestroy {
			continue
		}
		for _, sub := range append([]*core.Area(nil), hub.Subareas...) {
			o.reapIfEmpty(sub)
		}
	}
	if a == nil {
		return
	}
	o.Engine.Broadcast(a, core.KindPlayers)
	emit(o.Sink, "session.detach", s, a, "disconnected")
}

// dropOwnership strips an owner from one area. Losing the last owner
// of a non-free area unlocks it.
func (o *Orchestrator) dropOwnership(s core.Session, a *core.Area) {
	if !a.RemoveOwner(s) {
		return
	}
	o.Engine.Broadcast(a, core.KindCMs)
	if a.OwnerCount() == 0 && a.Lock != domain.LockFree {
		if err := a.SetFree(); err == nil {
			a.BroadcastNotice("This area is open now.")
			o.Engine.Broadcast(a, core.KindLock)
		}
	}
}

// Enter moves a session into target, enforcing lock, invite and
// restricted-connection gating, then refreshes every affected view.
func (o *Orchestrator) Enter(s core.Session, target *core.Area) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	old := s.Area()
	if old == target {
		return domain.ErrAlreadyInState
	}
	if err := target.CanEnter(s, old); err != nil {
		return err
	}
	if target.Lock == domain.LockSpectatable && !s.Privileged() && !target.Invited(s.ID()) {
		o.notify(s, "This area is spectatable, but not free - you cannot talk in-character unless invited.")
	}
	if old != nil {
		old.RemoveMember(s)
	}
	target.AddMember(s)
	s.SetArea(target)

	// Hiding is a per-hub courtesy; crossing a hub boundary drops it.
	if s.Hidden() && crossesHubBoundary(old, target) {
		s.SetHidden(false)
		o.notify(s, "You are no longer hidden.")
	}

	if old != nil {
		o.reapIfEmpty(old)
		o.Engine.Broadcast(old, core.KindPlayers)
	}
	o.Engine.SendView(s)
	o.Engine.Broadcast(target, core.KindPlayers)
	o.notify(s, fmt.Sprintf("Changed area to %s [%s].", target.Name, target.Status))
	emit(o.Sink, "area.join", s, target, "entered")
	return nil
}

// EnterWithPassword admits a session into a password-locked area when
// the password matches, bypassing the invite list only.
func (o *Orchestrator) EnterWithPassword(s core.Session, target *core.Area, password string) error {
	o.mu.Lock()
	matched := target.Password != "" && target.Password == password
	if matched && !target.Invited(s.ID()) {
		target.Invite(s.ID())
	}
	o.mu.Unlock()
	if !matched {
		return &domain.AreaLockedError{HasPassword: target.Password != ""}
	}
	return o.Enter(s, target)
}

// Chat delivers an in-character line to the session's area, gated by
// the lock state.
func (o *Orchestrator) Chat(s core.Session, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := s.Area()
	if a == nil {
		return domain.ErrNotFound
	}
	if !a.CanInteract(s) {
		return domain.ErrPermissionDenied
	}
	a.BroadcastNotice(fmt.Sprintf("%s: %s", s.Name(), text))
	return nil
}

// RefreshCounts re-broadcasts player counts for an area, for
// mutations that live outside the core (a session hiding itself).
func (o *Orchestrator) RefreshCounts(a *core.Area) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Engine.Broadcast(a, core.KindPlayers)
}

// reapIfEmpty destroys a user-hub sub-area once nobody lives or CMs
// there. Other hub types keep empty sub-areas around.
func (o *Orchestrator) reapIfEmpty(a *core.Area) {
	if !a.IsSub() || !a.Hub.HubType.Spec().AutoDestroy {
		return
	}
	if a.MemberCount() > 0 || a.OwnerCount() > 0 {
		return
	}
	hub := a.Hub
	if _, err := o.Graph.DestroySubArea(a); err != nil {
		return
	}
	o.refreshHub(hub)
	emit(o.Sink, "area.reap", nil, a, "destroyed empty sub-area")
}

// refreshHub re-sends the hub's room list and all four ARUP rows after
// a topology change, and re-aggregates the hub status row.
func (o *Orchestrator) refreshHub(hub *core.Area) {
	core.RecomputeHubStatus(hub)
	o.Engine.BroadcastAreaList(hub)
	o.Engine.Broadcast(hub)
}

func (o *Orchestrator) notify(s core.Session, text string) {
	_ = s.Deliver(core.Notice{Text: text})
}

func crossesHubBoundary(old, next *core.Area) bool {
	hubOf := func(a *core.Area) *core.Area {
		if a == nil {
			return nil
		}
		if a.IsSub() {
			return a.Hub
		}
		if a.IsHub {
			return a
		}
		return nil
	}
	return hubOf(old) != hubOf(next)
}
