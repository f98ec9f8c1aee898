package app

import "testing"

func TestRegistryKeysBySessionID(t *testing.T) {
	r := NewRegistry()
	first := &fakeSession{id: r.NextID(), name: "tab1"}
	second := &fakeSession{id: r.NextID(), name: "tab2"}
	r.Bind(first, nil)
	r.Bind(second, nil)

	// Two tabs of one browser are two sessions; the first closing must
	// not take the second's entry with it.
	r.Unbind(first.ID())
	if _, ok := r.Lookup(first.ID()); ok {
		t.Fatalf("unbound session still resolvable")
	}
	got, ok := r.Lookup(second.ID())
	if !ok || got != second {
		t.Fatalf("live session lost after sibling unbind")
	}
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry()
	s := &fakeSession{id: r.NextID()}
	cancelled := false
	r.Bind(s, func() { cancelled = true })
	if !r.Cancel(s.ID()) {
		t.Fatalf("Cancel found no entry")
	}
	if !cancelled {
		t.Fatalf("stored cancel func not invoked")
	}
	if r.Cancel(999) {
		t.Fatalf("Cancel of an unknown id reported success")
	}
}
