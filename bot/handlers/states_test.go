package handlers

import (
	"testing"
	"time"

	"clanbase/bot/storage"
	"clanbase/core/telegram/state"
)

func TestFirstInputState(t *testing.T) {
	cases := []struct {
		kind storage.ContentType
		want state.State
	}{
		{storage.ContentText, StatePostText},
		{storage.ContentImage, StatePostImage},
		{storage.ContentLink, StatePostLinkURL},
		{storage.ContentMixed, StatePostImage},
	}
	for _, tc := range cases {
		if got := firstInputState(tc.kind); got != tc.want {
			t.Errorf("firstInputState(%s) = %s, want %s", tc.kind, got, tc.want)
		}
	}
	if got := firstInputState(storage.ContentType("bogus")); got != state.StateIdle {
		t.Errorf("unknown type should lead nowhere, got %s", got)
	}
}

func TestAfterImageState(t *testing.T) {
	// A plain image post is complete after the photo arrives.
	next, done := afterImageState(storage.ContentImage)
	if !done || next != state.StateIdle {
		t.Fatalf("image: next=%s done=%v", next, done)
	}
	// A mixed post still needs its link.
	next, done = afterImageState(storage.ContentMixed)
	if done || next != StatePostLinkURL {
		t.Fatalf("mixed: next=%s done=%v", next, done)
	}
}

func TestPostDraftSurvivesPipeline(t *testing.T) {
	m := state.NewMemoryManager(time.Hour)
	const user int64 = 42

	m.Set(user, StatePostTitle, PostDraft{SubsectionID: 7})

	draft, ok := state.DraftOf[PostDraft](m, user)
	if !ok {
		t.Fatal("draft lost after Set")
	}
	draft.Title = "Boss tactics"
	draft.ContentType = storage.ContentMixed
	m.Set(user, firstInputState(draft.ContentType), draft)

	if got := m.GetState(user); got != StatePostImage {
		t.Fatalf("state = %s", got)
	}

	draft, _ = state.DraftOf[PostDraft](m, user)
	draft.ImageFileID = "AgAD"
	next, done := afterImageState(draft.ContentType)
	if done {
		t.Fatal("mixed draft finished before the link step")
	}
	m.Set(user, next, draft)

	draft, _ = state.DraftOf[PostDraft](m, user)
	if draft.SubsectionID != 7 || draft.Title != "Boss tactics" || draft.ImageFileID != "AgAD" {
		t.Fatalf("draft dropped fields: %+v", draft)
	}
}
