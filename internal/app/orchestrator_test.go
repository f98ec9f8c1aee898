package app

import (
	"errors"
	"strings"
	"testing"

	"github.com/ToadySP/MountainOfSpirits/internal/core"
	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

type fakeSession struct {
	id      domain.SessionID
	name    string
	area    *core.Area
	priv    bool
	hidden  bool
	notices []string
	packets int
}

func (f *fakeSession) ID() domain.SessionID { return f.id }
func (f *fakeSession) Name() string         { return f.name }
func (f *fakeSession) Area() *core.Area     { return f.area }
func (f *fakeSession) SetArea(a *core.Area) { f.area = a }
func (f *fakeSession) Privileged() bool     { return f.priv }
func (f *fakeSession) Hidden() bool         { return f.hidden }
func (f *fakeSession) SetHidden(h bool)     { f.hidden = h }
func (f *fakeSession) Deliver(p core.Packet) error {
	f.packets++
	if n, ok := p.(core.Notice); ok {
		f.notices = append(f.notices, n.Text)
	}
	return nil
}

func (f *fakeSession) sawNotice(fragment string) bool {
	for _, n := range f.notices {
		if strings.Contains(n, fragment) {
			return true
		}
	}
	return false
}

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	g, err := core.NewGraph([]core.AreaSeed{
		{Name: "Basement", Background: "bg"},
		{Name: "Courtroom 1", Background: "bg", LockingAllowed: true},
		{Name: "Hub 1", Background: "bg", IsHub: true},
		{Name: "Gathering", Background: "bg", IsHub: true, HubType: domain.HubUser},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return NewOrchestrator(g, core.NewEngine(g), NewRegistry(), NewAudit())
}

func attach(t *testing.T, o *Orchestrator, id int, name string) *fakeSession {
	t.Helper()
	s := &fakeSession{id: domain.SessionID(id), name: name}
	o.Attach(s)
	return s
}

func area(t *testing.T, o *Orchestrator, name string) *core.Area {
	t.Helper()
	a, err := o.Graph.FindByName(name, nil)
	if err != nil {
		t.Fatalf("FindByName(%s): %v", name, err)
	}
	return a
}

func TestAttachLandsInLobby(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "guest")
	if s.Area() != o.Graph.Lobby() {
		t.Fatalf("attached session not in lobby")
	}
	if !o.Graph.Lobby().HasMember(s) {
		t.Fatalf("lobby does not list the session")
	}
	if s.packets == 0 {
		t.Fatalf("attach sent no view packets")
	}
}

func TestEnter(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "guest")
	court := area(t, o, "Courtroom 1")

	if err := o.Enter(s, court); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if s.Area() != court || !court.HasMember(s) || o.Graph.Lobby().HasMember(s) {
		t.Fatalf("membership not moved")
	}
	if !s.sawNotice("Changed area to Courtroom 1") {
		t.Fatalf("no join notice, got %v", s.notices)
	}
	if err := o.Enter(s, court); !errors.Is(err, domain.ErrAlreadyInState) {
		t.Fatalf("re-entering current area: got %v, want ErrAlreadyInState", err)
	}
}

func TestEnterLockedAndPassword(t *testing.T) {
	o := newOrchestrator(t)
	cm := attach(t, o, 1, "cm")
	court := area(t, o, "Courtroom 1")
	if err := o.Enter(cm, court); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := o.AddOwner(cm, court, cm); err != nil {
		t.Fatalf("AddOwner: %v", err)
	}
	if err := o.Lock(cm, court, "swordfish"); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	guest := attach(t, o, 2, "guest")
	err := o.Enter(guest, court)
	if hasPassword, ok := domain.IsLocked(err); !ok || !hasPassword {
		t.Fatalf("locked entry: got %v, want AreaLockedError with password", err)
	}
	if err := o.EnterWithPassword(guest, court, "wrong"); err == nil {
		t.Fatalf("wrong password admitted")
	}
	if err := o.EnterWithPassword(guest, court, "swordfish"); err != nil {
		t.Fatalf("EnterWithPassword: %v", err)
	}
	if guest.Area() != court {
		t.Fatalf("guest not moved after password entry")
	}
}

func TestLockPermissions(t *testing.T) {
	o := newOrchestrator(t)
	guest := attach(t, o, 1, "guest")
	court := area(t, o, "Courtroom 1")
	if err := o.Lock(guest, court, ""); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("non-CM lock: got %v, want ErrPermissionDenied", err)
	}

	// The lobby does not allow locking even for its CM, only for mods.
	mod := attach(t, o, 2, "mod")
	mod.priv = true
	if err := o.Lock(mod, o.Graph.Lobby(), ""); err != nil {
		t.Fatalf("moderator lock: %v", err)
	}
}

func TestFirstComeCM(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "claimant")
	court := area(t, o, "Courtroom 1")
	if err := o.Enter(s, court); err != nil {
		t.Fatalf("Enter: %v", err)
	}

	// Self-promotion is open while the area has no owners.
	if err := o.AddOwner(s, court, s); err != nil {
		t.Fatalf("first-come CM: %v", err)
	}
	if !court.IsOwner(s) {
		t.Fatalf("claimant not on roster")
	}

	// A second claimant now needs the existing CM or a moderator.
	other := attach(t, o, 2, "other")
	if err := o.Enter(other, court); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := o.AddOwner(other, court, other); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("second self-promotion: got %v, want ErrPermissionDenied", err)
	}
	if err := o.AddOwner(s, court, other); err != nil {
		t.Fatalf("CM nomination: %v", err)
	}
	if err := o.AddOwner(s, court, other); !errors.Is(err, domain.ErrAlreadyInState) {
		t.Fatalf("duplicate nomination: got %v, want ErrAlreadyInState", err)
	}
}

func TestHubCMPropagatesToSubAreas(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "hubcm")
	hub := area(t, o, "Hub 1")
	if err := o.Enter(s, hub); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	sub, err := o.CreateSubArea(s, "")
	if err != nil {
		t.Fatalf("CreateSubArea: %v", err)
	}
	if err := o.AddOwner(s, hub, s); err != nil {
		t.Fatalf("AddOwner: %v", err)
	}
	if !sub.IsOwner(s) {
		t.Fatalf("hub CM grant did not propagate to sub-area")
	}
	if err := o.RemoveOwner(s, hub, s); err != nil {
		t.Fatalf("RemoveOwner: %v", err)
	}
	if sub.IsOwner(s) {
		t.Fatalf("hub CM removal did not strip the sub-area")
	}
}

func TestRemovingLastOwnerUnlocks(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "cm")
	court := area(t, o, "Courtroom 1")
	if err := o.Enter(s, court); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := o.AddOwner(s, court, s); err != nil {
		t.Fatalf("AddOwner: %v", err)
	}
	if err := o.Lock(s, court, ""); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := o.RemoveOwner(s, court, s); err != nil {
		t.Fatalf("RemoveOwner: %v", err)
	}
	if court.Lock != domain.LockFree {
		t.Fatalf("area still %v after last owner left", court.Lock)
	}
}

func TestDetachStripsOwnershipEverywhere(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "cm")
	court := area(t, o, "Courtroom 1")
	if err := o.Enter(s, court); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := o.AddOwner(s, court, s); err != nil {
		t.Fatalf("AddOwner: %v", err)
	}
	if err := o.Lock(s, court, ""); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	o.Detach(s)
	if court.HasMember(s) || court.IsOwner(s) {
		t.Fatalf("detach left the session behind")
	}
	if court.Lock != domain.LockFree {
		t.Fatalf("orphaned area still locked")
	}
	if s.Area() != nil {
		t.Fatalf("detached session still has an area")
	}
}

func TestDetachReapsOrphanedUserHubSubArea(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "host")
	gathering := area(t, o, "Gathering")
	if err := o.Enter(s, gathering); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	sub, err := o.CreateSubArea(s, "")
	if err != nil {
		t.Fatalf("CreateSubArea: %v", err)
	}
	if err := o.Enter(s, sub); err != nil {
		t.Fatalf("Enter(sub): %v", err)
	}
	// Walking back leaves the room empty but owned, so it survives.
	if err := o.Enter(s, gathering); err != nil {
		t.Fatalf("Enter(back): %v", err)
	}
	if len(gathering.Subareas) != 1 {
		t.Fatalf("owned sub-area reaped while its creator was online")
	}

	// Disconnecting strips the creator's ownership; the room is now
	// empty and ownerless and must go with it.
	o.Detach(s)
	if len(gathering.Subareas) != 0 {
		t.Fatalf("empty, ownerless sub-area survived disconnect: %d sub-areas", len(gathering.Subareas))
	}
}

func TestUserHubAutoDestroy(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "visitor")
	gathering := area(t, o, "Gathering")
	if err := o.Enter(s, gathering); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	sub, err := o.CreateSubArea(s, "")
	if err != nil {
		t.Fatalf("CreateSubArea: %v", err)
	}
	// User hubs grant the creator; strip that so the room is orphaned.
	sub.RemoveOwner(s)
	if err := o.Enter(s, sub); err != nil {
		t.Fatalf("Enter(sub): %v", err)
	}
	if err := o.Enter(s, gathering); err != nil {
		t.Fatalf("Enter(back): %v", err)
	}
	if len(gathering.Subareas) != 0 {
		t.Fatalf("empty user-hub sub-area survived")
	}
}

func TestHiddenResetsAcrossHubBoundary(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "sneak")
	hub := area(t, o, "Hub 1")
	if err := o.Enter(s, hub); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	s.SetHidden(true)

	sub, err := o.CreateSubArea(s, "")
	if err != nil {
		t.Fatalf("CreateSubArea: %v", err)
	}
	// Moving within the hub keeps the session hidden.
	if err := o.Enter(s, sub); err != nil {
		t.Fatalf("Enter(sub): %v", err)
	}
	if !s.Hidden() {
		t.Fatalf("hiding dropped inside the hub")
	}
	// Leaving the hub drops it.
	if err := o.Enter(s, o.Graph.Lobby()); err != nil {
		t.Fatalf("Enter(lobby): %v", err)
	}
	if s.Hidden() {
		t.Fatalf("hiding survived a hub boundary")
	}
	if !s.sawNotice("no longer hidden") {
		t.Fatalf("no unhide notice, got %v", s.notices)
	}
}

func TestSubAreaStatusReaggregatesHub(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "cm")
	hub := area(t, o, "Hub 1")
	if err := o.Enter(s, hub); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	sub, err := o.CreateSubArea(s, "")
	if err != nil {
		t.Fatalf("CreateSubArea: %v", err)
	}
	if err := o.ChangeStatus(s, sub, "lfp"); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if hub.Status != domain.StatusLookingForPlayers {
		t.Fatalf("hub status = %v, want LOOKING-FOR-PLAYERS", hub.Status)
	}
	if err := o.ChangeStatus(s, sub, "palace"); err == nil {
		t.Fatalf("invalid status accepted")
	}
}

func TestCreateSubAreasBatchCapacity(t *testing.T) {
	o := newOrchestrator(t)
	s := attach(t, o, 1, "builder")
	hub := area(t, o, "Gathering")
	if err := o.Enter(s, hub); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := o.CreateSubAreas(s, domain.HubUser.Spec().Capacity+1); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("over-capacity batch: got %v, want ErrCapacityExceeded", err)
	}
	if err := o.CreateSubAreas(s, 3); err != nil {
		t.Fatalf("CreateSubAreas: %v", err)
	}
	if len(hub.Subareas) != 3 {
		t.Fatalf("len(Subareas) = %d, want 3", len(hub.Subareas))
	}
}

func TestDestroySubAreaRehomesMembers(t *testing.T) {
	o := newOrchestrator(t)
	cm := attach(t, o, 1, "cm")
	hub := area(t, o, "Hub 1")
	if err := o.Enter(cm, hub); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := o.AddOwner(cm, hub, cm); err != nil {
		t.Fatalf("AddOwner: %v", err)
	}
	sub, err := o.CreateSubArea(cm, "Hideout")
	if err != nil {
		t.Fatalf("CreateSubArea: %v", err)
	}

	guest := attach(t, o, 2, "guest")
	if err := o.Enter(guest, hub); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := o.Enter(guest, sub); err != nil {
		t.Fatalf("Enter(sub): %v", err)
	}

	if err := o.DestroySubArea(cm, sub); err != nil {
		t.Fatalf("DestroySubArea: %v", err)
	}
	if guest.Area() != hub || !hub.HasMember(guest) {
		t.Fatalf("evicted guest not rehomed in hub")
	}
	if !guest.sawNotice("because it was destroyed") {
		t.Fatalf("no eviction notice, got %v", guest.notices)
	}
}

func TestChatGatedBySpectatable(t *testing.T) {
	o := newOrchestrator(t)
	cm := attach(t, o, 1, "cm")
	court := area(t, o, "Courtroom 1")
	if err := o.Enter(cm, court); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := o.AddOwner(cm, court, cm); err != nil {
		t.Fatalf("AddOwner: %v", err)
	}
	if err := o.Spectator(cm, court); err != nil {
		t.Fatalf("Spectator: %v", err)
	}

	guest := attach(t, o, 2, "guest")
	if err := o.Enter(guest, court); err != nil {
		t.Fatalf("spectatable entry: %v", err)
	}
	if !guest.sawNotice("spectatable") {
		t.Fatalf("no spectator warning, got %v", guest.notices)
	}
	if err := o.Chat(guest, "objection!"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("uninvited chat: got %v, want ErrPermissionDenied", err)
	}
	if err := o.Invite(cm, court, guest.ID()); err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if err := o.Chat(guest, "objection!"); err != nil {
		t.Fatalf("invited chat: %v", err)
	}
	if !cm.sawNotice("guest: objection!") {
		t.Fatalf("chat line not delivered, got %v", cm.notices)
	}
}

func TestConnections(t *testing.T) {
	o := newOrchestrator(t)
	cm := attach(t, o, 1, "cm")
	hub := area(t, o, "Hub 1")
	if err := o.Enter(cm, hub); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := o.AddOwner(cm, hub, cm); err != nil {
		t.Fatalf("AddOwner: %v", err)
	}
	sub1, err := o.CreateSubArea(cm, "")
	if err != nil {
		t.Fatalf("CreateSubArea: %v", err)
	}
	sub2, err := o.CreateSubArea(cm, "")
	if err != nil {
		t.Fatalf("CreateSubArea: %v", err)
	}
	sub3, err := o.CreateSubArea(cm, "")
	if err != nil {
		t.Fatalf("CreateSubArea: %v", err)
	}

	if err := o.Enter(cm, sub1); err != nil {
		t.Fatalf("Enter(sub1): %v", err)
	}
	if err := o.Connect(cm, sub2, false); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !sub1.Restricted {
		t.Fatalf("connected area not restricted")
	}
	if sub2.Restricted {
		t.Fatalf("one-way edge restricted the target side")
	}

	// A plain guest may reach the restricted room only along its edge
	// set: the implicit lobby and hub entries plus the explicit edges.
	guest := attach(t, o, 2, "guest")
	if err := o.Enter(guest, hub); err != nil {
		t.Fatalf("Enter(hub): %v", err)
	}
	if err := o.Enter(guest, sub3); err != nil {
		t.Fatalf("Enter(sub3): %v", err)
	}
	if err := o.Enter(guest, sub1); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("off-edge entry: got %v, want ErrNotConnected", err)
	}
	if err := o.Enter(guest, hub); err != nil {
		t.Fatalf("Enter(back to hub): %v", err)
	}
	if err := o.Enter(guest, sub1); err != nil {
		t.Fatalf("entry along the implicit hub edge: %v", err)
	}

	if err := o.ClearConnections(cm); err != nil {
		t.Fatalf("ClearConnections: %v", err)
	}
	if sub1.Restricted {
		t.Fatalf("restriction survived ClearConnections")
	}
}
