package handlers

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"
	_ "modernc.org/sqlite"

	"clanbase/bot/nav"
	"clanbase/bot/storage"
	"clanbase/core/telegram/state"
)

const testSchema = `
CREATE TABLE sections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    created_by INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE subsections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    section_id INTEGER NOT NULL REFERENCES sections (id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    description TEXT,
    created_by INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subsection_id INTEGER NOT NULL REFERENCES subsections (id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL DEFAULT 0,
    user_name TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL,
    content_type TEXT NOT NULL DEFAULT 'text',
    content_text TEXT,
    image_file_id TEXT,
    link_url TEXT,
    link_title TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// fakeContext implements the handful of tele.Context methods the
// handlers touch and records what was rendered last.
type fakeContext struct {
	tele.Context

	user *tele.User
	cb   *tele.Callback
	text string
	kv   map[string]interface{}

	lastText   string
	lastMarkup *tele.ReplyMarkup
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{
		user: &tele.User{ID: userID},
		kv:   make(map[string]interface{}),
	}
}

func (f *fakeContext) withCallback(unique, payload string) *fakeContext {
	data := unique
	if payload != "" {
		data = unique + "|" + payload
	}
	f.cb = &tele.Callback{Unique: unique, Data: data}
	return f
}

func (f *fakeContext) withText(text string) *fakeContext {
	f.text = text
	return f
}

func (f *fakeContext) Sender() *tele.User { return f.user }

func (f *fakeContext) Chat() *tele.Chat { return nil }

func (f *fakeContext) Callback() *tele.Callback { return f.cb }

func (f *fakeContext) Update() tele.Update { return tele.Update{} }

func (f *fakeContext) Text() string { return f.text }

func (f *fakeContext) Message() *tele.Message { return nil }

func (f *fakeContext) Get(key string) interface{}    { return f.kv[key] }
func (f *fakeContext) Set(key string, v interface{}) { f.kv[key] = v }

func (f *fakeContext) record(what interface{}, opts []interface{}) {
	if s, ok := what.(string); ok {
		f.lastText = s
	}
	f.lastMarkup = nil
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok && so != nil {
			f.lastMarkup = so.ReplyMarkup
		}
	}
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.record(what, opts)
	return nil
}

func (f *fakeContext) EditOrSend(what interface{}, opts ...interface{}) error {
	f.record(what, opts)
	return nil
}

func (f *fakeContext) markupUniques() []string {
	if f.lastMarkup == nil {
		return nil
	}
	var out []string
	for _, row := range f.lastMarkup.InlineKeyboard {
		for _, btn := range row {
			out = append(out, btn.Unique)
		}
	}
	return out
}

func (f *fakeContext) markupHas(unique string) bool {
	for _, u := range f.markupUniques() {
		if u == unique {
			return true
		}
	}
	return false
}

func newTestHandlers(t *testing.T) (*Handlers, *storage.Store, state.Manager, *sqlx.DB) {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.MustExec("PRAGMA foreign_keys = ON")
	db.MustExec(testSchema)
	t.Cleanup(func() { _ = db.Close() })

	store := storage.NewStore(db)
	sessions := state.NewMemoryManager(time.Hour)
	h := New(store, nav.NewEngine(store), sessions, nil)
	return h, store, sessions, db
}

func seedSectionTree(t *testing.T, store *storage.Store, posts int) (sectionID, subsectionID int64) {
	t.Helper()
	ctx := context.Background()

	sec, err := store.CreateSection(ctx, "Guides", "", 1)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := store.CreateSubsection(ctx, sec.ID, "Bosses", "", 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < posts; i++ {
		if _, err := store.CreatePost(ctx, storage.NewPost{
			SubsectionID: sub.ID,
			Title:        "p",
			ContentType:  storage.ContentText,
			ContentText:  "body",
		}); err != nil {
			t.Fatal(err)
		}
	}
	return sec.ID, sub.ID
}

func itoa64(id int64) string { return strconv.FormatInt(id, 10) }

func TestSectionDeletePopulatedAsksConfirmation(t *testing.T) {
	h, store, sessions, _ := newTestHandlers(t)
	secID, subID := seedSectionTree(t, store, 2)
	sessions.Set(10, state.StateIdle, nil)

	c := newFakeContext(10).withCallback(nav.ActionSectionDelete, itoa64(secID))
	if err := h.SectionDelete(c); err != nil {
		t.Fatalf("first tap: %v", err)
	}

	// No mutation: section, subsection and posts are all still there.
	ctx := context.Background()
	if _, err := store.GetSection(ctx, secID); err != nil {
		t.Fatalf("section deleted without confirmation: %v", err)
	}
	if n, _ := store.CountPosts(ctx, subID); n != 2 {
		t.Fatalf("posts mutated without confirmation: %d", n)
	}
	if !c.markupHas(nav.ActionSectionDeleteYes) {
		t.Fatalf("confirmation button missing, markup: %v", c.markupUniques())
	}
}

func TestSectionDeleteConfirmedMutates(t *testing.T) {
	h, store, sessions, _ := newTestHandlers(t)
	secID, subID := seedSectionTree(t, store, 2)
	sessions.Set(10, state.StateIdle, nil)

	c := newFakeContext(10).withCallback(nav.ActionSectionDeleteYes, itoa64(secID))
	if err := h.SectionDeleteConfirmed(c); err != nil {
		t.Fatalf("confirmed delete: %v", err)
	}

	ctx := context.Background()
	if _, err := store.GetSection(ctx, secID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("section survives confirmation: %v", err)
	}
	if _, err := store.GetSubsection(ctx, subID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("subsection survives confirmation: %v", err)
	}
}

func TestSectionDeleteEmptyImmediate(t *testing.T) {
	h, store, sessions, _ := newTestHandlers(t)
	ctx := context.Background()
	sec, err := store.CreateSection(ctx, "Empty", "", 1)
	if err != nil {
		t.Fatal(err)
	}
	sessions.Set(10, state.StateIdle, nil)

	c := newFakeContext(10).withCallback(nav.ActionSectionDelete, itoa64(sec.ID))
	if err := h.SectionDelete(c); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetSection(ctx, sec.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("empty section should delete on first tap: %v", err)
	}
}

func TestSubsectionDeleteEmptyImmediate(t *testing.T) {
	h, store, sessions, _ := newTestHandlers(t)
	secID, subID := seedSectionTree(t, store, 0)
	sessions.Set(10, state.StateIdle, nil)

	c := newFakeContext(10).withCallback(nav.ActionSubsectionDelete, itoa64(subID))
	if err := h.SubsectionDelete(c); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := store.GetSubsection(ctx, subID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("empty subsection should delete immediately: %v", err)
	}
	if _, err := store.GetSection(ctx, secID); err != nil {
		t.Fatalf("parent section must survive: %v", err)
	}
	if c.markupHas(nav.ActionSubsectionDelYes) {
		t.Fatal("no confirmation step expected for an empty subsection")
	}
}

func TestSubsectionDeleteWithPostsAsksConfirmation(t *testing.T) {
	h, store, sessions, _ := newTestHandlers(t)
	_, subID := seedSectionTree(t, store, 1)
	sessions.Set(10, state.StateIdle, nil)

	c := newFakeContext(10).withCallback(nav.ActionSubsectionDelete, itoa64(subID))
	if err := h.SubsectionDelete(c); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := store.GetSubsection(ctx, subID); err != nil {
		t.Fatalf("subsection deleted without confirmation: %v", err)
	}
	if !c.markupHas(nav.ActionSubsectionDelYes) {
		t.Fatalf("confirmation button missing, markup: %v", c.markupUniques())
	}

	confirm := newFakeContext(10).withCallback(nav.ActionSubsectionDelYes, itoa64(subID))
	if err := h.SubsectionDeleteConfirmed(confirm); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetSubsection(ctx, subID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("subsection survives confirmation: %v", err)
	}
}

func TestGuardRequiresLiveSession(t *testing.T) {
	h, _, sessions, _ := newTestHandlers(t)

	called := false
	guarded := h.guard(func(tele.Context) error {
		called = true
		return nil
	})

	c := newFakeContext(99).withCallback(nav.ActionSections, "")
	if err := guarded(c); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("handler ran without a live session")
	}
	if c.lastText != msgSessionExpired {
		t.Fatalf("notice = %q, want expired-session prompt", c.lastText)
	}

	sessions.Set(99, state.StateIdle, nil)
	c = newFakeContext(99).withCallback(nav.ActionSections, "")
	if err := guarded(c); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("handler should run with a live session")
	}
}

func TestFinishPostKeepsDraftOnStorageError(t *testing.T) {
	h, _, sessions, db := newTestHandlers(t)
	_, subID := seedSectionTree(t, h.store, 0)

	draft := PostDraft{
		SubsectionID: subID,
		Title:        "Boss Guide",
		ContentType:  storage.ContentText,
	}
	sessions.Set(10, StatePostText, draft)

	// Simulate a transient storage failure.
	_ = db.Close()

	c := newFakeContext(10).withText("Use fire damage")
	if err := h.onPostText(c); err == nil {
		t.Fatal("expected a storage error")
	}

	if got := sessions.GetState(10); got != StatePostText {
		t.Fatalf("state after failure = %s, want the input step kept", got)
	}
	kept, ok := state.DraftOf[PostDraft](sessions, 10)
	if !ok || kept.Title != "Boss Guide" {
		t.Fatalf("draft discarded on failure: %+v", kept)
	}
}

func TestFinishPostClearsSessionOnSuccess(t *testing.T) {
	h, store, sessions, _ := newTestHandlers(t)
	_, subID := seedSectionTree(t, store, 0)

	sessions.Set(10, StatePostText, PostDraft{
		SubsectionID: subID,
		Title:        "Boss Guide",
		ContentType:  storage.ContentText,
	})

	c := newFakeContext(10).withText("Use fire damage")
	if err := h.onPostText(c); err != nil {
		t.Fatal(err)
	}

	if got := sessions.GetState(10); got != state.StateIdle {
		t.Fatalf("state after success = %s, want idle", got)
	}
	posts, err := store.ListPosts(context.Background(), subID)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || posts[0].Title != "Boss Guide" {
		t.Fatalf("stored posts: %+v", posts)
	}
}
