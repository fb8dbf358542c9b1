package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
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

// setupStore opens an isolated in-memory SQLite database.
func setupStore(t *testing.T) *Store {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	// One connection: in-memory databases are per-connection.
	db.SetMaxOpenConns(1)
	db.MustExec("PRAGMA foreign_keys = ON")
	db.MustExec(testSchema)
	t.Cleanup(func() { _ = db.Close() })

	return NewStore(db)
}

func TestCreateSection(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sec, err := store.CreateSection(ctx, "Raids", "", 100)
	if err != nil {
		t.Fatalf("create section: %v", err)
	}
	if sec.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if sec.Name != "Raids" || sec.CreatedBy != 100 {
		t.Fatalf("unexpected section: %+v", sec)
	}
	if sec.Description != nil {
		t.Fatalf("empty description should be stored as NULL, got %q", *sec.Description)
	}

	list, err := store.ListSections(ctx)
	if err != nil {
		t.Fatalf("list sections: %v", err)
	}
	if len(list) != 1 || list[0].ID != sec.ID {
		t.Fatalf("unexpected listing: %+v", list)
	}
}

func TestSectionIDsAscend(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		if _, err := store.CreateSection(ctx, name, "", 1); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	list, err := store.ListSections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(list); i++ {
		if list[i].ID <= list[i-1].ID {
			t.Fatalf("ids not ascending: %+v", list)
		}
	}
}

func TestGetSectionNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetSection(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateSubsectionRequiresParent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.CreateSubsection(ctx, 42, "Ghost", "", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	sec, err := store.CreateSection(ctx, "Guides", "", 1)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := store.CreateSubsection(ctx, sec.ID, "Bosses", "", 1)
	if err != nil {
		t.Fatalf("create subsection: %v", err)
	}
	if sub.SectionID != sec.ID {
		t.Fatalf("subsection parent = %d, want %d", sub.SectionID, sec.ID)
	}
}

func TestListSubsectionsUnknownParentIsEmpty(t *testing.T) {
	store := setupStore(t)

	list, err := store.ListSubsections(context.Background(), 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
}

func TestCreateTextPost(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "Guides", "", 1)
	sub, _ := store.CreateSubsection(ctx, sec.ID, "Bosses", "", 1)

	post, err := store.CreatePost(ctx, NewPost{
		SubsectionID: sub.ID,
		UserID:       7,
		UserName:     "kadeshka",
		Title:        "Boss Guide",
		ContentType:  ContentText,
		ContentText:  "Use fire damage",
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.Title != "Boss Guide" || post.ContentType != ContentText {
		t.Fatalf("unexpected post: %+v", post)
	}
	if post.ContentText == nil || *post.ContentText != "Use fire damage" {
		t.Fatalf("unexpected body: %+v", post.ContentText)
	}
	if post.ImageFileID != nil || post.LinkURL != nil {
		t.Fatalf("text post should have no image or link: %+v", post)
	}
}

func TestCreatePostNormalizesLink(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "Builds", "", 1)
	sub, _ := store.CreateSubsection(ctx, sec.ID, "Mage", "", 1)

	post, err := store.CreatePost(ctx, NewPost{
		SubsectionID: sub.ID,
		Title:        "Build planner",
		ContentType:  ContentLink,
		LinkURL:      "example.com/build",
		LinkTitle:    "Planner",
	})
	if err != nil {
		t.Fatal(err)
	}
	if post.LinkURL == nil || *post.LinkURL != "https://example.com/build" {
		t.Fatalf("link = %v, want https:// prefix", post.LinkURL)
	}
}

func TestCreatePostRejectsBadContentType(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "S", "", 1)
	sub, _ := store.CreateSubsection(ctx, sec.ID, "Sub", "", 1)

	_, err := store.CreatePost(ctx, NewPost{
		SubsectionID: sub.ID,
		Title:        "x",
		ContentType:  ContentType("video"),
	})
	if err == nil {
		t.Fatal("expected error for invalid content type")
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "S", "", 1)
	sub, _ := store.CreateSubsection(ctx, sec.ID, "Sub", "", 1)

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		if _, err := store.CreatePost(ctx, NewPost{
			SubsectionID: sub.ID,
			Title:        title,
			ContentType:  ContentText,
			ContentText:  "body",
		}); err != nil {
			t.Fatal(err)
		}
	}

	posts, err := store.ListPosts(ctx, sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 3 {
		t.Fatalf("len = %d", len(posts))
	}
	// Same-timestamp rows fall back to descending id.
	if posts[0].Title != "third" || posts[2].Title != "first" {
		t.Fatalf("unexpected order: %s, %s, %s", posts[0].Title, posts[1].Title, posts[2].Title)
	}
}

func TestCounts(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "S", "", 1)
	subA, _ := store.CreateSubsection(ctx, sec.ID, "A", "", 1)
	subB, _ := store.CreateSubsection(ctx, sec.ID, "B", "", 1)

	for i := 0; i < 2; i++ {
		if _, err := store.CreatePost(ctx, NewPost{SubsectionID: subA.ID, Title: "p", ContentType: ContentText}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.CreatePost(ctx, NewPost{SubsectionID: subB.ID, Title: "p", ContentType: ContentText}); err != nil {
		t.Fatal(err)
	}

	counts, err := store.SectionCounts(ctx, sec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Subsections != 2 || counts.Posts != 3 {
		t.Fatalf("counts = %+v", counts)
	}

	n, err := store.CountPosts(ctx, subA.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("subsection posts = %d", n)
	}
}

func TestDeleteSectionCascades(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "S", "", 1)
	sub, _ := store.CreateSubsection(ctx, sec.ID, "Sub", "", 1)
	for i := 0; i < 2; i++ {
		if _, err := store.CreatePost(ctx, NewPost{SubsectionID: sub.ID, Title: "p", ContentType: ContentText}); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DeleteSection(ctx, sec.ID); err != nil {
		t.Fatalf("delete section: %v", err)
	}

	if _, err := store.GetSection(ctx, sec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("section survives: %v", err)
	}
	if _, err := store.GetSubsection(ctx, sub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("subsection survives: %v", err)
	}
	posts, err := store.ListPosts(ctx, sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 0 {
		t.Fatalf("posts survive: %+v", posts)
	}
}

func TestDeleteSubsectionCascades(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "S", "", 1)
	sub, _ := store.CreateSubsection(ctx, sec.ID, "Sub", "", 1)
	if _, err := store.CreatePost(ctx, NewPost{SubsectionID: sub.ID, Title: "p", ContentType: ContentText}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteSubsection(ctx, sub.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetSection(ctx, sec.ID); err != nil {
		t.Fatalf("parent section should survive: %v", err)
	}
	posts, _ := store.ListPosts(ctx, sub.ID)
	if len(posts) != 0 {
		t.Fatalf("posts survive: %+v", posts)
	}
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.DeleteSection(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete section: %v", err)
	}
	if err := store.DeleteSubsection(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete subsection: %v", err)
	}
	if err := store.DeletePost(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete post: %v", err)
	}
}

func TestUpdateNames(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "Old", "", 1)
	if err := store.UpdateSectionName(ctx, sec.ID, "New"); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetSection(ctx, sec.ID)
	if got.Name != "New" {
		t.Fatalf("name = %q", got.Name)
	}

	if err := store.UpdateSectionName(ctx, 999, "X"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
}

func TestUpdatePost(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sec, _ := store.CreateSection(ctx, "S", "", 1)
	sub, _ := store.CreateSubsection(ctx, sec.ID, "Sub", "", 1)
	post, err := store.CreatePost(ctx, NewPost{
		SubsectionID: sub.ID,
		Title:        "draft",
		ContentType:  ContentText,
		ContentText:  "old body",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.UpdatePost(ctx, post.ID, "final", "new body"); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "final" || got.ContentText == nil || *got.ContentText != "new body" {
		t.Fatalf("post after update: %+v", got)
	}

	if err := store.UpdatePost(ctx, 999, "x", "y"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing post: %v", err)
	}
}

func TestSeedDefaultSections(t *testing.T) {
	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	db.MustExec(testSchema)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err := SeedDefaultSections(ctx, db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := NewStore(db)
	list, err := store.ListSections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("seeded %d sections", len(list))
	}

	// Idempotent on a populated database.
	if err := SeedDefaultSections(ctx, db); err != nil {
		t.Fatal(err)
	}
	list, _ = store.ListSections(ctx)
	if len(list) != 3 {
		t.Fatalf("re-seed changed count to %d", len(list))
	}
}

func TestPlaceholdersRebindPerDriver(t *testing.T) {
	// Store queries are written with ? and rebound per driver: kept
	// as-is on sqlite, rewritten to $N for lib/pq.
	lite := sqlx.NewDb(nil, "sqlite")
	if got := lite.Rebind("SELECT * FROM sections WHERE id = ?"); got != "SELECT * FROM sections WHERE id = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
	pg := sqlx.NewDb(nil, "postgres")
	want := "UPDATE posts SET title = $1, content_text = $2 WHERE id = $3"
	if got := pg.Rebind("UPDATE posts SET title = ?, content_text = ? WHERE id = ?"); got != want {
		t.Fatalf("postgres rebind = %q, want %q", got, want)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"example.com", "https://example.com"},
		{"https://example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"  example.com  ", "https://example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeURL(tc.in); got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	// Idempotence: normalizing twice changes nothing.
	once := NormalizeURL("clan.example.com/wiki")
	if twice := NormalizeURL(once); twice != once {
		t.Errorf("not idempotent: %q -> %q", once, twice)
	}
}
