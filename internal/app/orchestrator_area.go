package app

import (
	"fmt"
	"time"

	"github.com/ToadySP/MountainOfSpirits/internal/core"
	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

// requireCM gates owner-or-moderator operations.
func requireCM(s core.Session, a *core.Area) error {
	if s.Privileged() || a.IsOwner(s) {
		return nil
	}
	return domain.ErrPermissionDenied
}

// Lock closes the area. A non-empty password arms password entry.
func (o *Orchestrator) Lock(s core.Session, a *core.Area, password string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := requireCM(s, a); err != nil {
		return err
	}
	if !a.LockingAllowed && !s.Privileged() {
		return domain.ErrPermissionDenied
	}
	if err := a.SetLocked(); err != nil {
		return err
	}
	a.Password = password
	a.BroadcastNotice("This area is locked now.")
	o.Engine.Broadcast(a, core.KindLock)
	emit(o.Sink, "area.lock", s, a, "locked")
	return nil
}

// Unlock reopens the area, dropping invite list and password.
func (o *Orchestrator) Unlock(s core.Session, a *core.Area) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := requireCM(s, a); err != nil {
		return err
	}
	if err := a.SetFree(); err != nil {
		return err
	}
	a.BroadcastNotice("This area is open now.")
	o.Engine.Broadcast(a, core.KindLock)
	emit(o.Sink, "area.unlock", s, a, "unlocked")
	return nil
}

// Spectator opens the area for entry but gates in-character speech
// behind the invite list.
func (o *Orchestrator) Spectator(s core.Session, a *core.Area) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := requireCM(s, a); err != nil {
		return err
	}
	if !a.LockingAllowed && !s.Privileged() {
		return domain.ErrPermissionDenied
	}
	if err := a.SetSpectatable(); err != nil {
		return err
	}
	a.BroadcastNotice("This area is spectatable now.")
	o.Engine.Broadcast(a, core.KindLock)
	emit(o.Sink, "area.spectatable", s, a, "made spectatable")
	return nil
}

// SetPassword changes the password of a non-free area.
func (o *Orchestrator) SetPassword(s core.Session, a *core.Area, password string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := requireCM(s, a); err != nil {
		return err
	}
	if a.Lock == domain.LockFree {
		return domain.ErrInvalidTransition
	}
	a.Password = password
	emit(o.Sink, "area.password", s, a, "password changed")
	return nil
}

// Invite grants entry to a locked or spectatable area. It gates entry
// only; revoking later never evicts someone already present.
func (o *Orchestrator) Invite(s core.Session, a *core.Area, target domain.SessionID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := requireCM(s, a); err != nil {
		return err
	}
	if a.Lock == domain.LockFree {
		return domain.ErrInvalidTransition
	}
	a.Invite(target)
	if t, ok := o.Registry.Lookup(target); ok {
		o.notify(t, fmt.Sprintf("You were invited and given access to %s.", a.Name))
	}
	emit(o.Sink, "area.invite", s, a, fmt.Sprintf("invited %d", target))
	return nil
}

func (o *Orchestrator) Uninvite(s core.Session, a *core.Area, target domain.SessionID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := requireCM(s, a); err != nil {
		return err
	}
	if a.Lock == domain.LockFree {
		return domain.ErrInvalidTransition
	}
	if !a.Invited(target) {
		return domain.ErrNotFound
	}
	a.Uninvite(target)
	if t, ok := o.Registry.Lookup(target); ok {
		o.notify(t, "You were removed from the area whitelist.")
	}
	emit(o.Sink, "area.uninvite", s, a, fmt.Sprintf("uninvited %d", target))
	return nil
}

// UninviteAll resets the invite list to owners plus, for a locked
// area, everyone currently inside.
func (o *Orchestrator) UninviteAll(s core.Session, a *core.Area) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := requireCM(s, a); err != nil {
		return err
	}
	if a.Lock == domain.LockFree {
		return domain.ErrInvalidTransition
	}
	a.ResetInvites(a.Lock == domain.LockLocked)
	emit(o.Sink, "area.uninvite_all", s, a, "invite list reset")
	return nil
}

// AddOwner places target on the CM roster. Granting on a hub
// propagates to every current sub-area atomically.
func (o *Orchestrator) AddOwner(s core.Session, a *core.Area, target core.Session) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	// First-come self-promotion is open in an unmanaged area;
	// nominating others takes an existing CM or a moderator.
	if target.ID() != s.ID() || a.OwnerCount() > 0 {
		if err := requireCM(s, a); err != nil {
			return err
		}
	}
	if !a.HasMember(target) && !s.Privileged() {
		return domain.ErrNotFound
	}
	if !a.AddOwner(target) {
		return domain.ErrAlreadyInState
	}
	if a.IsHub {
		for _, sub := range a.Subareas {
			sub.AddOwner(target)
		}
	}
	a.BroadcastNotice(fmt.Sprintf("%s [%d] is CM in this area now.", target.Name(), target.ID()))
	o.Engine.Broadcast(a, core.KindCMs)
	emit(o.Sink, "cm.add", s, a, fmt.Sprintf("added %d", target.ID()))
	return nil
}

// RemoveOwner strips target from the roster. Removing the last owner
// of a non-free area unlocks it; removing from a hub strips every
// sub-area too.
func (o *Orchestrator) RemoveOwner(s core.Session, a *core.Area, target core.Session) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := requireCM(s, a); err != nil {
		return err
	}
	if !a.RemoveOwner(target) {
		return domain.ErrNotFound
	}
	if a.IsHub {
		for _, sub := range a.Subareas {
			sub.RemoveOwner(target)
		}
	}
	a.BroadcastNotice(fmt.Sprintf("%s [%d] is no longer CM in this area.", target.Name(), target.ID()))
	o.Engine.Broadcast(a, core.KindCMs)
	if a.OwnerCount() == 0 && a.Lock != domain.LockFree {
		if err := a.SetFree(); err == nil {
			a.BroadcastNotice("This area is open now.")
			o.Engine.Broadcast(a, core.KindLock)
		}
	}
	emit(o.Sink, "cm.remove", s, a, fmt.Sprintf("removed %d", target.ID()))
	return nil
}

// ChangeStatus sets an area's status. A sub-area change re-aggregates
// the owning hub's displayed status before anything is broadcast.
func (o *Orchestrator) ChangeStatus(s core.Session, a *core.Area, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	status, err := domain.ParseStatus(value)
	if err != nil {
		return err
	}
	a.Status = status
	o.Engine.Broadcast(a, core.KindStatus)
	if a.IsSub() && core.RecomputeHubStatus(a.Hub) {
		o.Engine.Broadcast(a.Hub, core.KindStatus)
	}
	emit(o.Sink, "area.status", s, a, status.String())
	return nil
}

// HubStatus forces one status onto a hub and all its sub-areas.
func (o *Orchestrator) HubStatus(s core.Session, hub *core.Area, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !hub.IsHub {
		return domain.ErrNotFound
	}
	if err := requireCM(s, hub); err != nil {
		return err
	}
	status, err := domain.ParseStatus(value)
	if err != nil {
		return err
	}
	hub.Status = status
	for _, sub := range hub.Subareas {
		sub.Status = status
	}
	o.Engine.Broadcast(hub, core.KindStatus)
	emit(o.Sink, "area.hub_status", s, hub, status.String())
	return nil
}

// CreateSubArea adds one sub-area to the hub the actor occupies.
func (o *Orchestrator) CreateSubArea(s core.Session, name string) (*core.Area, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	hub := hubOf(s.Area())
	if hub == nil {
		return nil, domain.ErrNotFound
	}
	sub, err := o.Graph.CreateSubArea(hub, name, s)
	if err != nil {
		return nil, err
	}
	o.refreshHub(hub)
	emit(o.Sink, "area.create", s, sub, "sub-area created")
	return sub, nil
}

// CreateSubAreas adds n sub-areas at once, refreshing views once.
func (o *Orchestrator) CreateSubAreas(s core.Session, n int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	hub := hubOf(s.Area())
	if hub == nil {
		return domain.ErrNotFound
	}
	if len(hub.Subareas)+n > hub.HubType.Spec().Capacity {
		return domain.ErrCapacityExceeded
	}
	for i := 0; i < n; i++ {
		if _, err := o.Graph.CreateSubArea(hub, "", s); err != nil {
			return err
		}
	}
	o.refreshHub(hub)
	emit(o.Sink, "area.create", s, hub, fmt.Sprintf("created %d sub-areas", n))
	return nil
}

// DestroySubArea tears a sub-area down, rehoming its members into the
// hub with a notice. Remaining siblings are renumbered contiguously.
func (o *Orchestrator) DestroySubArea(s core.Session, sub *core.Area) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !sub.IsSub() {
		return domain.ErrNotFound
	}
	if err := requireCM(s, sub); err != nil {
		if err2 := requireCM(s, sub.Hub); err2 != nil {
			return err
		}
	}
	hub := sub.Hub
	evicted, err := o.Graph.DestroySubArea(sub)
	if err != nil {
		return err
	}
	for _, m := range evicted {
		hub.AddMember(m)
		m.SetArea(hub)
		o.notify(m, fmt.Sprintf("You were moved to %s from %s because it was destroyed.", hub.Name, sub.Name))
		o.Engine.SendView(m)
	}
	o.refreshHub(hub)
	emit(o.Sink, "area.destroy", s, sub, "sub-area destroyed")
	return nil
}

// ClearHub destroys every sub-area of the actor's hub.
func (o *Orchestrator) ClearHub(s core.Session) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	hub := hubOf(s.Area())
	if hub == nil {
		return domain.ErrNotFound
	}
	if err := requireCM(s, hub); err != nil {
		return err
	}
	for _, m := range o.Graph.ClearHub(hub) {
		hub.AddMember(m)
		m.SetArea(hub)
		o.notify(m, fmt.Sprintf("You were moved to %s because the hub was cleared.", hub.Name))
		o.Engine.SendView(m)
	}
	o.refreshHub(hub)
	emit(o.Sink, "area.clear_hub", s, hub, "hub cleared")
	return nil
}

// Connect wires the actor's sub-area to a sibling, one-way or both.
func (o *Orchestrator) Connect(s core.Session, target *core.Area, bidirectional bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := s.Area()
	if a == nil || !a.IsSub() {
		return domain.ErrNotFound
	}
	if err := requireCM(s, a); err != nil {
		return err
	}
	if err := o.Graph.Connect(a, target, bidirectional); err != nil {
		return err
	}
	o.Engine.SendView(s)
	o.Engine.Broadcast(a)
	emit(o.Sink, "area.connect", s, a, fmt.Sprintf("connected to %s", target.Abbreviation))
	return nil
}

// Disconnect removes an edge added by Connect.
func (o *Orchestrator) Disconnect(s core.Session, target *core.Area, bidirectional bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := s.Area()
	if a == nil || !a.IsSub() {
		return domain.ErrNotFound
	}
	if err := requireCM(s, a); err != nil {
		return err
	}
	if err := o.Graph.Disconnect(a, target, bidirectional); err != nil {
		return err
	}
	o.Engine.SendView(s)
	emit(o.Sink, "area.disconnect", s, a, fmt.Sprintf("disconnected from %s", target.Abbreviation))
	return nil
}

// ClearConnections drops all edges and unrestricts the area.
func (o *Orchestrator) ClearConnections(s core.Session) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := s.Area()
	if a == nil || !a.IsSub() {
		return domain.ErrNotFound
	}
	if err := requireCM(s, a); err != nil {
		return err
	}
	o.Graph.ClearConnections(a)
	a.BroadcastNotice(fmt.Sprintf("All %s connections cleared.", a.Name))
	o.Engine.SendView(s)
	emit(o.Sink, "area.clear_connections", s, a, "connections cleared")
	return nil
}

// SetAlarm schedules the area's countdown. Firing announces to
// whoever is in the area at that moment; replacing or clearing the
// alarm cancels the pending announcement.
func (o *Orchestrator) SetAlarm(s core.Session, a *core.Area, d time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := requireCM(s, a); err != nil {
		return err
	}
	a.Alarm.Set(d, func(gen uint64) {
		o.mu.Lock()
		defer o.mu.Unlock()
		// The alarm may have been cleared or the area destroyed while
		// this callback was waiting on the mutex.
		if !a.Alarm.Valid(gen) {
			return
		}
		a.BroadcastNotice(fmt.Sprintf("Alarm: %s have passed!", d))
	})
	emit(o.Sink, "area.alarm", s, a, d.String())
	return nil
}

func (o *Orchestrator) ClearAlarm(s core.Session, a *core.Area) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := requireCM(s, a); err != nil {
		return err
	}
	a.Alarm.Clear()
	return nil
}

func hubOf(a *core.Area) *core.Area {
	switch {
	case a == nil:
		return nil
	case a.IsHub:
		return a
	case a.IsSub():
		return a.Hub
	default:
		return nil
	}
}
