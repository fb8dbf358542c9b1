package nav

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"clanbase/bot/storage"
	"clanbase/core/telegram/keyboard"
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

func setupEngine(t *testing.T) (*Engine, *storage.Store) {
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
	return NewEngine(store), store
}

func buttonUniques(rows [][]keyboard.InlineBtn) []string {
	var out []string
	for _, row := range rows {
		for _, btn := range row {
			out = append(out, btn.Unique)
		}
	}
	return out
}

func hasUnique(rows [][]keyboard.InlineBtn, unique string) bool {
	for _, u := range buttonUniques(rows) {
		if u == unique {
			return true
		}
	}
	return false
}

func seedPosts(t *testing.T, store *storage.Store, n int) (sectionID, subsectionID int64) {
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
	for i := 0; i < n; i++ {
		if _, err := store.CreatePost(ctx, storage.NewPost{
			SubsectionID: sub.ID,
			UserName:     "author",
			Title:        "post",
			ContentType:  storage.ContentText,
			ContentText:  "body",
		}); err != nil {
			t.Fatal(err)
		}
	}
	return sec.ID, sub.ID
}

func TestMainMenuEditorActions(t *testing.T) {
	e, _ := setupEngine(t)

	viewer := e.MainMenu(false)
	if hasUnique(viewer.Rows, ActionSectionCreate) {
		t.Fatal("viewer menu exposes create action")
	}
	editor := e.MainMenu(true)
	if !hasUnique(editor.Rows, ActionSectionCreate) {
		t.Fatal("editor menu misses create action")
	}
}

func TestSectionListCounts(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	seedPosts(t, store, 3)

	view, err := e.SectionList(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	var label string
	for _, row := range view.Rows {
		if row[0].Unique == ActionSection {
			label = row[0].Text
		}
	}
	if !strings.Contains(label, "1 подразд.") || !strings.Contains(label, "3 записей") {
		t.Fatalf("label = %q", label)
	}
}

func TestSubsectionListEmptyInvitesCreation(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	sec, err := store.CreateSection(ctx, "Empty", "", 1)
	if err != nil {
		t.Fatal(err)
	}
	view, err := e.SubsectionList(ctx, sec.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(view.Text, "Создайте первый") {
		t.Fatalf("text = %q", view.Text)
	}
	if !hasUnique(view.Rows, ActionSubsectionCreate) {
		t.Fatal("missing create button for editor")
	}
}

func TestSubsectionListUnknownSection(t *testing.T) {
	e, _ := setupEngine(t)

	_, err := e.SubsectionList(context.Background(), 404, false)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestPostPageButtonsFirstPage(t *testing.T) {
	e, store := setupEngine(t)
	_, subID := seedPosts(t, store, 3)

	view, err := e.PostPage(context.Background(), subID, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	nav := view.Rows[0]
	for _, btn := range nav {
		if btn.Text == "◀️" {
			t.Fatal("first page must not have a previous button")
		}
	}
	var hasNext bool
	for _, btn := range nav {
		if btn.Text == "▶️" && btn.Data == pageData(subID, 1) {
			hasNext = true
		}
	}
	if !hasNext {
		t.Fatalf("first page misses next button: %+v", nav)
	}
}

func TestPostPageButtonsLastPage(t *testing.T) {
	e, store := setupEngine(t)
	_, subID := seedPosts(t, store, 3)

	view, err := e.PostPage(context.Background(), subID, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	nav := view.Rows[0]
	var hasPrev, hasNext bool
	for _, btn := range nav {
		switch btn.Text {
		case "◀️":
			hasPrev = btn.Data == pageData(subID, 1)
		case "▶️":
			hasNext = true
		}
	}
	if !hasPrev {
		t.Fatalf("last page misses previous button: %+v", nav)
	}
	if hasNext {
		t.Fatal("last page must not have a next button")
	}
}

func TestPostPageMiddleHasBoth(t *testing.T) {
	e, store := setupEngine(t)
	_, subID := seedPosts(t, store, 3)

	view, err := e.PostPage(context.Background(), subID, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	var prev, next bool
	for _, btn := range view.Rows[0] {
		switch btn.Text {
		case "◀️":
			prev = true
		case "▶️":
			next = true
		}
	}
	if !prev || !next {
		t.Fatalf("middle page buttons: prev=%v next=%v", prev, next)
	}
}

func TestPostPageOutOfRange(t *testing.T) {
	e, store := setupEngine(t)
	_, subID := seedPosts(t, store, 2)

	for _, idx := range []int{-1, 2, 100} {
		if _, err := e.PostPage(context.Background(), subID, idx, false); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("index %d: err = %v, want ErrNotFound", idx, err)
		}
	}
}

func TestPostPageEmptySubsection(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "S", "", 1)
	sub, _ := store.CreateSubsection(ctx, sec.ID, "Sub", "", 1)

	view, err := e.PostPage(ctx, sub.ID, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(view.Text, "Записей пока нет") {
		t.Fatalf("text = %q", view.Text)
	}
	if !hasUnique(view.Rows, ActionPostCreate) {
		t.Fatal("editor should see the add-post button")
	}
}

func TestPostPagePhotoAndLink(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "S", "", 1)
	sub, _ := store.CreateSubsection(ctx, sec.ID, "Sub", "", 1)
	if _, err := store.CreatePost(ctx, storage.NewPost{
		SubsectionID: sub.ID,
		Title:        "Combo",
		ContentType:  storage.ContentMixed,
		ImageFileID:  "AgAD-file",
		LinkURL:      "wiki.example.com/combo",
		LinkTitle:    "Full write-up",
	}); err != nil {
		t.Fatal(err)
	}

	view, err := e.PostPage(ctx, sub.ID, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if view.Photo != "AgAD-file" {
		t.Fatalf("photo = %q", view.Photo)
	}
	if !strings.Contains(view.Text, "https://wiki.example.com/combo") {
		t.Fatalf("link missing from text: %q", view.Text)
	}
}
