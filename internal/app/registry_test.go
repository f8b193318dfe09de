package app

import (
	"context"
	"testing"

	"github.com/akarpov/lanhub/internal/core"
	"github.com/akarpov/lanhub/internal/domain"
)

func TestRegistryBindGetUnbind(t *testing.T) {
	r := NewRegistry()
	sess := core.NewParticipantSession(&fakeConn{})
	r.Bind("x", domain.DefaultRoom, sess, nil)

	if _, ok := r.Get("x"); !ok {
		t.Fatal("expected bound session")
	}
	if got := len(r.MembersOf(domain.DefaultRoom)); got != 1 {
		t.Fatalf("expected 1 member, got %d", got)
	}

	if !r.Unbind("x", sess) {
		t.Fatal("expected unbind to remove the binding")
	}
	if _, ok := r.Get("x"); ok {
		t.Fatal("expected session gone after unbind")
	}
	if got := len(r.MembersOf(domain.DefaultRoom)); got != 0 {
		t.Fatalf("expected empty room, got %d", got)
	}
}

func TestRegistryStaleUnbindKeepsRebinding(t *testing.T) {
	r := NewRegistry()
	first := core.NewParticipantSession(&fakeConn{})
	second := core.NewParticipantSession(&fakeConn{})

	// A reconnect rebinds the sid before the old connection's teardown runs.
	r.Bind("x", domain.DefaultRoom, first, nil)
	r.Bind("x", domain.DefaultRoom, second, nil)

	if r.Unbind("x", first) {
		t.Fatal("stale unbind must not report removal")
	}
	got, ok := r.Get("x")
	if !ok {
		t.Fatal("live rebinding was evicted by a stale unbind")
	}
	if got != second {
		t.Fatal("expected the rebound session to survive")
	}

	if !r.Unbind("x", second) {
		t.Fatal("owning connection must be able to unbind")
	}
	if _, ok := r.Get("x"); ok {
		t.Fatal("expected session gone")
	}
}

func TestRegistryCancelFiresSessionContext(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	r.Bind("x", domain.DefaultRoom, core.NewParticipantSession(&fakeConn{}), cancel)

	if !r.Cancel("x") {
		t.Fatal("expected cancel to find the session")
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected session context canceled")
	}
	if r.Cancel("ghost") {
		t.Fatal("expected cancel miss for unknown sid")
	}
}
