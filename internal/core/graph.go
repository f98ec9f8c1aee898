package core

import (
	"fmt"
	"strings"

	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

// AreaSeed is one room descriptor from the topology file. Validation
// happens at the config boundary; the graph only assembles.
type AreaSeed struct {
	Name           string
	Background     string
	Abbreviation   string
	LockingAllowed bool
	Hidden         bool
	IsHub          bool
	HubType        domain.HubType
}

// Graph owns every Area for the server run: the flat registry of
// top-level rooms in registration order, each hub's sub-area tree, and
// the connection edges between sub-areas. It is the sole owner of Area
// values; hub and sub back-references are non-owning.
//
// The graph carries no locking of its own. All mutations are
// serialized by the orchestrator so that every ARUP packet enumerates
// one consistent topology snapshot.
type Graph struct {
	areas  []*Area
	nextID domain.AreaID
}

// NewGraph builds the top-level registry from the startup descriptors.
// The first descriptor becomes the lobby. A malformed topology is the
// one fatal condition in the server, so this is strict.
func NewGraph(seeds []AreaSeed) (*Graph, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("topology: no areas defined")
	}
	g := &Graph{}
	hubs := 0
	seen := make(map[string]struct{})
	for _, seed := range seeds {
		if seed.Name == "" {
			return nil, fmt.Errorf("topology: area %d has no name", g.nextID)
		}
		a := newArea(g.nextID, seed.Name)
		g.nextID++
		a.Background = seed.Background
		a.LockingAllowed = seed.LockingAllowed
		a.Hidden = seed.Hidden
		a.Abbreviation = seed.Abbreviation
		if a.Abbreviation == "" {
			a.Abbreviation = Abbreviate(seed.Name)
		}
		if _, dup := seen[strings.ToLower(a.Abbreviation)]; dup {
			return nil, fmt.Errorf("topology: duplicate abbreviation %q", a.Abbreviation)
		}
		seen[strings.ToLower(a.Abbreviation)] = struct{}{}
		if seed.IsHub {
			a.IsHub = true
			a.HubType = seed.HubType
			a.HubOrdinal = hubs
			a.nextSubPos = 1
			hubs++
		}
		g.areas = append(g.areas, a)
	}
	return g, nil
}

// Lobby is the default area every client lands in and the first entry
// of every ARUP enumeration.
func (g *Graph) Lobby() *Area { return g.areas[0] }

// Areas returns the top-level registry in registration order.
func (g *Graph) Areas() []*Area { return g.areas }

// FindByName resolves an area by exact case-insensitive name. When the
// requester is inside a hub (or one of its sub-areas), that hub's
// sub-areas are searched too, so short names resolve contextually.
func (g *Graph) FindByName(name string, requester Session) (*Area, error) {
	var ctx *Area
	if requester != nil && requester.Area() != nil {
		ctx = requester.Area()
		if ctx.IsSub() {
			ctx = ctx.Hub
		}
	}
	for _, a := range g.areas {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
		if a.IsHub && a == ctx {
			for _, sub := range a.Subareas {
				if strings.EqualFold(sub.Name, name) {
					return sub, nil
				}
			}
		}
	}
	return nil, domain.ErrNotFound
}

// FindByAbbreviation resolves top-level areas and every sub-area.
func (g *Graph) FindByAbbreviation(abbr string) (*Area, error) {
	for _, a := range g.areas {
		if strings.EqualFold(a.Abbreviation, abbr) {
			return a, nil
		}
		for _, sub := range a.Subareas {
			if strings.EqualFold(sub.Abbreviation, abbr) {
				return sub, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// FindByID resolves any area, sub-areas included, by its stable id.
func (g *Graph) FindByID(id domain.AreaID) (*Area, error) {
	for _, a := range g.areas {
		if a.ID == id {
			return a, nil
		}
		for _, sub := range a.Subareas {
			if sub.ID == id {
				return sub, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// Abbreviate derives a short label for a top-level room name.
func Abbreviate(name string) string {
	lower := strings.ToLower(name)
	fields := strings.Fields(name)
	switch {
	case strings.HasPrefix(lower, "courtroom") && len(fields) > 1:
		return "CR" + fields[len(fields)-1]
	case strings.HasPrefix(lower, "area") && len(fields) > 1:
		return "A" + fields[len(fields)-1]
	case len(fields) > 1:
		var b strings.Builder
		for _, f := range fields {
			b.WriteString(strings.ToUpper(f[:1]))
		}
		return b.String()
	case len(name) > 3:
		return strings.ToUpper(name[:3])
	default:
		return strings.ToUpper(name)
	}
}

// CreateSubArea appends a new sub-area to the hub. The creator, when
// given, receives ownership according to the hub type's grant rule.
// Background and status are copied from the hub at creation time only.
func (g *Graph) CreateSubArea(hub *Area, name string, creator Session) (*Area, error) {
	if !hub.IsHub {
		return nil, domain.ErrNotFound
	}
	spec := hub.HubType.Spec()
	if len(hub.Subareas) >= spec.Capacity {
		return nil, domain.ErrCapacityExceeded
	}
	pos := hub.nextSubPos
	hub.nextSubPos++
	if name == "" {
		name = hub.HubType.DefaultSubName(pos)
	}
	sub := newArea(g.nextID, name)
	g.nextID++
	sub.Hub = hub
	sub.DisplayPos = pos
	sub.Abbreviation = hub.HubType.SubAbbreviation(hub.HubOrdinal, pos)
	sub.Background = hub.Background
	sub.Status = hub.Status
	sub.LockingAllowed = true
	if creator != nil && spec.GrantCreator {
		sub.AddOwner(creator)
	} else {
		for _, o := range hub.Owners() {
			sub.AddOwner(o)
		}
	}
	hub.Subareas = append(hub.Subareas, sub)
	return sub, nil
}

// DestroySubArea removes a sub-area from its hub and renumbers the
// remaining siblings contiguously from 1. Stable ids survive the
// renumbering; default-scheme names and abbreviations follow the new
// positions. Members still present are returned so the caller can move
// and notify them.
func (g *Graph) DestroySubArea(sub *Area) ([]Session, error) {
	hub := sub.Hub
	if hub == nil {
		return nil, domain.ErrNotFound
	}
	evicted := sub.Members()
	for _, s := range evicted {
		sub.RemoveOwner(s)
		sub.RemoveMember(s)
	}
	sub.Alarm.Clear()
	idx := -1
	for i, s := range hub.Subareas {
		if s == sub {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.ErrNotFound
	}
	hub.Subareas = append(hub.Subareas[:idx], hub.Subareas[idx+1:]...)

	// Drop dangling edges into the destroyed area.
	for _, sibling := range hub.Subareas {
		sibling.dropConnection(sub)
	}

	hub.nextSubPos = 1
	for _, s := range hub.Subareas {
		oldPos := s.DisplayPos
		s.DisplayPos = hub.nextSubPos
		hub.nextSubPos++
		if s.Name == hub.HubType.DefaultSubName(oldPos) {
			s.Name = hub.HubType.DefaultSubName(s.DisplayPos)
		}
		s.Abbreviation = hub.HubType.SubAbbreviation(hub.HubOrdinal, s.DisplayPos)
	}
	return evicted, nil
}

// ClearHub destroys every sub-area of a hub at once, returning all
// sessions that need rehoming.
func (g *Graph) ClearHub(hub *Area) []Session {
	var evicted []Session
	for _, sub := range hub.Subareas {
		for _, s := range sub.Members() {
			sub.RemoveOwner(s)
			sub.RemoveMember(s)
			evicted = append(evicted, s)
		}
		sub.Alarm.Clear()
	}
	hub.Subareas = nil
	hub.nextSubPos = 1
	return evicted
}

// Connect adds a directed edge a→b (and b→a when bidirectional). Both
// endpoints must be sub-areas of the same hub. The first edge on either
// side seeds its set with {lobby, hub} so the connection-scope
// enumeration always opens with them; any edge marks that side
// restricted.
func (g *Graph) Connect(a, b *Area, bidirectional bool) error {
	if a.Hub == nil || b.Hub == nil || a.Hub != b.Hub {
		return domain.ErrNotConnected
	}
	if a == b {
		return fmt.Errorf("cannot connect an area to itself")
	}
	if a.hasConnection(b) {
		return domain.ErrAlreadyInState
	}
	if bidirectional && b.hasConnection(a) {
		return domain.ErrAlreadyInState
	}
	g.addEdge(a, b)
	if bidirectional {
		g.addEdge(b, a)
	}
	return nil
}

func (g *Graph) addEdge(from, to *Area) {
	if len(from.Connections) == 0 {
		from.Connections = append(from.Connections, g.Lobby(), from.Hub)
	}
	from.Connections = append(from.Connections, to)
	from.Restricted = true
}

func (a *Area) hasConnection(to *Area) bool {
	for _, c := range a.Connections {
		if c == to {
			return true
		}
	}
	return false
}

func (a *Area) dropConnection(to *Area) {
	for i, c := range a.Connections {
		if c == to {
			a.Connections = append(a.Connections[:i], a.Connections[i+1:]...)
			return
		}
	}
}

// Disconnect removes the a→b edge (and b→a when bidirectional). The
// implicit lobby and hub entries are not removable; clearing the whole
// set is ClearConnections.
func (g *Graph) Disconnect(a, b *Area, bidirectional bool) error {
	if b == g.Lobby() || b == a.Hub {
		return domain.ErrPermissionDenied
	}
	if !a.hasConnection(b) {
		return domain.ErrNotConnected
	}
	a.dropConnection(b)
	if bidirectional {
		b.dropConnection(a)
	}
	return nil
}

// ClearConnections drops every edge and lifts the restriction.
func (g *Graph) ClearConnections(a *Area) {
	a.Connections = nil
	a.Restricted = false
}
