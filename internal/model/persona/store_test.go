package persona

import "testing"

func TestResolveByIDAndName(t *testing.T) {
	store := NewMemoryStore(Seed())

	p, ok := Resolve(store, "pete-holmes")
	if !ok || p.Name != "Pete Holmes" {
		t.Fatalf("expected Pete Holmes by id, got %+v ok=%v", p, ok)
	}

	p, ok = Resolve(store, "  socrates ")
	if !ok || p.ID != "socrates" {
		t.Fatalf("expected socrates by id, got %+v ok=%v", p, ok)
	}

	p, ok = Resolve(store, "brene brown")
	if !ok || p.ID != "brene-brown" {
		t.Fatalf("expected brene-brown by name, got %+v ok=%v", p, ok)
	}

	if _, ok := Resolve(store, "Plato"); ok {
		t.Fatal("expected unknown persona to be unresolved")
	}
}

func TestComediansFromSeed(t *testing.T) {
	store := NewMemoryStore(Seed())
	got := Comedians(store)
	if len(got) != 2 || got[0] != "Duncan Trussell" || got[1] != "Pete Holmes" {
		t.Fatalf("unexpected comedians: %v", got)
	}
}

func TestListKind(t *testing.T) {
	store := NewMemoryStore(Seed())
	if n := len(store.ListKind(KindPhilosopher)); n != 9 {
		t.Fatalf("expected 9 philosophers, got %d", n)
	}
	for _, p := range store.ListKind(KindCompanion) {
		if p.SystemPrompt == "" {
			t.Fatalf("companion %s has no system prompt", p.ID)
		}
	}
}

func TestRejectionMessageFallback(t *testing.T) {
	if (Persona{}).RejectionMessage() == "" {
		t.Fatal("expected default rejection message")
	}
	if got := (Persona{Rejection: "nope"}).RejectionMessage(); got != "nope" {
		t.Fatalf("unexpected rejection message %q", got)
	}
}
