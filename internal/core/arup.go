package core

import (
	"github.com/rs/zerolog/log"
)

// Kind is one ARUP mutation category. Each kind always travels in its
// own packet; kinds are never batched.
type Kind int

const (
	KindPlayers Kind = iota
	KindStatus
	KindCMs
	KindLock
)

var allKinds = []Kind{KindPlayers, KindStatus, KindCMs, KindLock}

// Engine recomputes and fans out ARUP snapshots after graph mutations.
// Mutation functions describe what changed; the engine owns deciding
// who sees it. It runs under the same serialization discipline as the
// graph, so every packet enumerates one topology snapshot.
type Engine struct {
	graph *Graph
}

func NewEngine(g *Graph) *Engine { return &Engine{graph: g} }

// enumerate returns the fixed ARUP ordering for each scope.

func (e *Engine) globalEnum() []*Area { return e.graph.Areas() }

func (e *Engine) hubEnum(hub *Area) []*Area {
	out := make([]*Area, 0, 2+len(hub.Subareas))
	out = append(out, e.graph.Lobby(), hub)
	out = append(out, hub.Subareas...)
	return out
}

func (e *Engine) connEnum(sub *Area) []*Area {
	lobby := e.graph.Lobby()
	out := []*Area{lobby, sub.Hub, sub}
	for _, c := range sub.Connections {
		if c != lobby && c != sub.Hub {
			out = append(out, c)
		}
	}
	return out
}

// snapshot builds one packet for a kind over an enumeration. Global
// player counts aggregate each hub with its sub-areas; the narrower
// scopes list every room on its own row.
func snapshot(kind Kind, areas []*Area, deepCounts bool) Packet {
	switch kind {
	case KindPlayers:
		counts := make([]int, len(areas))
		for i, a := range areas {
			if a.Hidden {
				counts[i] = -1
				continue
			}
			counts[i] = a.VisibleCount(deepCounts)
		}
		return PlayerCountUpdate{Counts: counts}
	case KindStatus:
		statuses := make([]string, len(areas))
		for i, a := range areas {
			statuses[i] = a.Status.String()
		}
		return StatusUpdate{Statuses: statuses}
	case KindCMs:
		rosters := make([]string, len(areas))
		for i, a := range areas {
			rosters[i] = a.CMSummary()
		}
		return CMRosterUpdate{Rosters: rosters}
	default:
		locks := make([]string, len(areas))
		for i, a := range areas {
			locks[i] = a.Lock.String()
		}
		return LockStateUpdate{Locks: locks}
	}
}

// GlobalSnapshot, HubSnapshot and ConnSnapshot expose the three scope
// computations for direct sends and tests. Their lengths are the
// protocol invariant: len(top-level), 2+len(subs), 3+len(edges).

func (e *Engine) GlobalSnapshot(kind Kind) Packet {
	return snapshot(kind, e.globalEnum(), true)
}

func (e *Engine) HubSnapshot(hub *Area, kind Kind) Packet {
	return snapshot(kind, e.hubEnum(hub), false)
}

func (e *Engine) ConnSnapshot(sub *Area, kind Kind) Packet {
	return snapshot(kind, e.connEnum(sub), false)
}

// Broadcast fans out the given kinds for a mutated area, one packet
// per kind per scope:
//
//   - standalone top-level room: global scope to every session;
//   - hub: hub scope to the hub's population, plus global scope
//     (the hub occupies a row in the global list);
//   - sub-area: hub scope; restricted sub-areas get connection scope
//     instead of nothing for their own members, and any restricted
//     sibling whose edge set lists the mutated room is recomputed too;
//   - player counts inside a hub additionally refresh the global list,
//     because the hub's global row aggregates its sub-areas.
func (e *Engine) Broadcast(a *Area, kinds ...Kind) {
	if len(kinds) == 0 {
		kinds = allKinds
	}
	for _, kind := range kinds {
		e.broadcastKind(a, kind)
	}
}

func (e *Engine) broadcastKind(a *Area, kind Kind) {
	switch {
	case a.IsHub || a.IsSub():
		hub := a
		if a.IsSub() {
			hub = a.Hub
		}
		e.fanOut(e.HubSnapshot(hub, kind), e.hubPopulation(hub))
		if a.IsSub() && a.Restricted {
			e.fanOut(e.ConnSnapshot(a, kind), a.Members())
		}
		if a.IsSub() {
			for _, sibling := range hub.Subareas {
				if sibling != a && sibling.Restricted && sibling.hasConnection(a) {
					e.fanOut(e.ConnSnapshot(sibling, kind), sibling.Members())
				}
			}
		}
		if a.IsHub || kind == KindPlayers {
			e.fanOut(e.GlobalSnapshot(kind), e.everyone())
		}
	default:
		e.fanOut(e.GlobalSnapshot(kind), e.everyone())
	}
}

// SendView refreshes a single session with the area list and ARUP rows
// for whatever scope its current location selects. Used when a session
// first lands somewhere new instead of re-broadcasting to the world.
func (e *Engine) SendView(s Session) {
	a := s.Area()
	if a == nil {
		return
	}
	var areas []*Area
	switch {
	case a.IsSub() && a.Restricted && !a.Hub.IsOwner(s):
		areas = e.connEnum(a)
	case a.IsSub() || a.IsHub:
		hub := a
		if a.IsSub() {
			hub = a.Hub
		}
		areas = e.hubEnum(hub)
	default:
		areas = e.globalEnum()
	}
	deep := !a.IsSub() && !a.IsHub
	names := make([]string, len(areas))
	for i, area := range areas {
		names[i] = area.Name
	}
	e.deliver(s, AreaListUpdate{Names: names})
	for _, kind := range allKinds {
		e.deliver(s, snapshot(kind, areas, deep))
	}
}

// BroadcastAreaList pushes the refreshed room-name list after a
// topology change inside a hub to everyone whose view enumerates it.
func (e *Engine) BroadcastAreaList(hub *Area) {
	areas := e.hubEnum(hub)
	names := make([]string, len(areas))
	for i, a := range areas {
		names[i] = a.Name
	}
	e.fanOut(AreaListUpdate{Names: names}, e.hubPopulation(hub))
}

func (e *Engine) hubPopulation(hub *Area) []Session {
	out := hub.Members()
	for _, sub := range hub.Subareas {
		out = append(out, sub.Members()...)
	}
	return out
}

func (e *Engine) everyone() []Session {
	var out []Session
	for _, a := range e.graph.Areas() {
		out = append(out, a.Members()...)
		for _, sub := range a.Subareas {
			out = append(out, sub.Members()...)
		}
	}
	return out
}

func (e *Engine) fanOut(p Packet, sessions []Session) {
	for _, s := range sessions {
		e.deliver(s, p)
	}
}

// deliver is best-effort: a failing session is logged and skipped so
// the rest of the broadcast still goes out.
func (e *Engine) deliver(s Session, p Packet) {
	if err := s.Deliver(p); err != nil {
		log.Debug().Str("module", "core.arup").
			Int("sid", int(s.ID())).Str("packet", p.PacketType()).
			Err(err).Msg("dropped packet")
	}
}
