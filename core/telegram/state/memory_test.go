package state

import (
	"testing"
	"time"
)

type testDraft struct {
	SectionID int64
	Name      string
}

func TestMemoryManagerSetGet(t *testing.T) {
	m := NewMemoryManager(time.Hour)

	if got := m.GetState(42); got != StateIdle {
		t.Fatalf("fresh user state = %q, want idle", got)
	}
	if m.InProgress(42) {
		t.Fatal("fresh user should not be in progress")
	}

	m.Set(42, State("section_name"), &testDraft{Name: "Raids"})
	if got := m.GetState(42); got != State("section_name") {
		t.Fatalf("state = %q, want section_name", got)
	}
	if !m.InProgress(42) {
		t.Fatal("user with active state should be in progress")
	}

	draft, ok := DraftOf[*testDraft](m, 42)
	if !ok {
		t.Fatal("expected typed draft")
	}
	if draft.Name != "Raids" {
		t.Fatalf("draft name = %q", draft.Name)
	}

	// Transition keeps the draft.
	m.SetState(42, State("section_rename"))
	if draft, ok = DraftOf[*testDraft](m, 42); !ok || draft.Name != "Raids" {
		t.Fatal("SetState should preserve the draft")
	}

	m.Clear(42)
	if m.InProgress(42) {
		t.Fatal("cleared user should not be in progress")
	}
	if m.Draft(42) != nil {
		t.Fatal("cleared user should have no draft")
	}
}

func TestMemoryManagerDraftTypeMismatch(t *testing.T) {
	m := NewMemoryManager(time.Hour)
	m.Set(7, State("post_title"), "not a struct")

	if _, ok := DraftOf[*testDraft](m, 7); ok {
		t.Fatal("DraftOf should reject a mismatched type")
	}
}

func TestMemoryManagerExpiryBoundary(t *testing.T) {
	const timeout = 3600 * time.Second

	base := time.Unix(1_700_000_000, 0)
	now := base
	m := NewMemoryManagerWithClock(timeout, func() time.Time { return now })

	m.Set(1, State("post_title"), &testDraft{})

	now = base.Add(timeout - time.Second)
	if m.Get(1) == nil {
		t.Fatal("session should be live at T+timeout-1")
	}

	// The successful access above slid the window.
	now = now.Add(timeout - time.Second)
	if m.Get(1) == nil {
		t.Fatal("sliding expiration should refresh on access")
	}

	now = now.Add(timeout + time.Second)
	if m.Get(1) != nil {
		t.Fatal("session should be gone at T+timeout+1")
	}
	if m.Len() != 0 {
		t.Fatalf("expired session should be evicted, len = %d", m.Len())
	}
}

func TestMemoryManagerExpiredStateIsIdle(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	now := base
	m := NewMemoryManagerWithClock(10*time.Second, func() time.Time { return now })

	m.Set(5, State("subsection_name"), &testDraft{SectionID: 3})
	now = base.Add(11 * time.Second)

	if got := m.GetState(5); got != StateIdle {
		t.Fatalf("expired session state = %q, want idle", got)
	}
	if m.InProgress(5) {
		t.Fatal("expired session should not be in progress")
	}
}
