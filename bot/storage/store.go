package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"clanbase/core/logger"
	"log/slog"
)

func init() {
	// modernc.org/sqlite registers as "sqlite", which sqlx does not
	// know; teach it so Rebind keeps ? placeholders on sqlite and
	// rewrites them to $N on postgres.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// ErrNotFound is returned when a section, subsection, or post id does
// not exist (e.g. deleted by another actor mid-flow).
var ErrNotFound = errors.New("storage: not found")

// Store provides durable CRUD for the content hierarchy.
// It owns a pooled connection; cascading deletes run in a single
// transaction so a crash cannot orphan child rows. Queries are written
// with ? placeholders and rebound per driver, and inserts return the
// assigned id via RETURNING, so the store runs on both sqlite and
// postgres.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ListSections returns all sections ordered by ascending id.
func (s *Store) ListSections(ctx context.Context) ([]Section, error) {
	var out []Section
	if err := s.db.SelectContext(ctx, &out, "SELECT * FROM sections ORDER BY id ASC"); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return out, nil
}

// GetSection returns a section by id or ErrNotFound.
func (s *Store) GetSection(ctx context.Context, id int64) (*Section, error) {
	var sec Section
	err := s.db.GetContext(ctx, &sec, s.db.Rebind("SELECT * FROM sections WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get section %d: %w", id, err)
	}
	return &sec, nil
}

// CreateSection appends a new section and returns it with the assigned id.
func (s *Store) CreateSection(ctx context.Context, name, description string, creator int64) (*Section, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		s.db.Rebind("INSERT INTO sections (name, description, created_by) VALUES (?, ?, ?) RETURNING id"),
		name, nullable(description), creator,
	)
	if err != nil {
		return nil, fmt.Errorf("create section: %w", err)
	}
	logger.Info(ctx, "service.content", "content.section.create",
		slog.Int64("section_id", id),
		slog.Int64("user_id", creator),
	)
	return s.GetSection(ctx, id)
}

// UpdateSectionName overwrites the section name in place.
func (s *Store) UpdateSectionName(ctx context.Context, id int64, name string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE sections SET name = ? WHERE id = ?"), name, id)
	if err != nil {
		return fmt.Errorf("update section %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSection removes a section with all its subsections and posts
// in one transaction.
func (s *Store) DeleteSection(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete section %d: begin: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		tx.Rebind("DELETE FROM posts WHERE subsection_id IN (SELECT id FROM subsections WHERE section_id = ?)"), id,
	); err != nil {
		return fmt.Errorf("delete section %d posts: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM subsections WHERE section_id = ?"), id); err != nil {
		return fmt.Errorf("delete section %d subsections: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM sections WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete section %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete section %d: commit: %w", id, err)
	}
	logger.Info(ctx, "service.content", "content.section.delete",
		slog.Int64("section_id", id),
	)
	return nil
}

// ListSubsections returns the children of a section ordered by
// ascending id. An unknown section yields an empty list.
func (s *Store) ListSubsections(ctx context.Context, sectionID int64) ([]Subsection, error) {
	var out []Subsection
	if err := s.db.SelectContext(ctx, &out,
		s.db.Rebind("SELECT * FROM subsections WHERE section_id = ? ORDER BY id ASC"), sectionID,
	); err != nil {
		return nil, fmt.Errorf("list subsections of %d: %w", sectionID, err)
	}
	return out, nil
}

// GetSubsection returns a subsection by id or ErrNotFound.
func (s *Store) GetSubsection(ctx context.Context, id int64) (*Subsection, error) {
	var sub Subsection
	err := s.db.GetContext(ctx, &sub, s.db.Rebind("SELECT * FROM subsections WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subsection %d: %w", id, err)
	}
	return &sub, nil
}

// CreateSubsection appends a child to the given section.
// The parent must exist.
func (s *Store) CreateSubsection(ctx context.Context, sectionID int64, name, description string, creator int64) (*Subsection, error) {
	if _, err := s.GetSection(ctx, sectionID); err != nil {
		return nil, err
	}
	var id int64
	err := s.db.GetContext(ctx, &id,
		s.db.Rebind("INSERT INTO subsections (section_id, name, description, created_by) VALUES (?, ?, ?, ?) RETURNING id"),
		sectionID, name, nullable(description), creator,
	)
	if err != nil {
		return nil, fmt.Errorf("create subsection: %w", err)
	}
	logger.Info(ctx, "service.content", "content.subsection.create",
		slog.Int64("section_id", sectionID),
		slog.Int64("subsection_id", id),
		slog.Int64("user_id", creator),
	)
	return s.GetSubsection(ctx, id)
}

// UpdateSubsectionName overwrites the subsection name in place.
func (s *Store) UpdateSubsectionName(ctx context.Context, id int64, name string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE subsections SET name = ? WHERE id = ?"), name, id)
	if err != nil {
		return fmt.Errorf("update subsection %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSubsection removes a subsection with all its posts in one transaction.
func (s *Store) DeleteSubsection(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete subsection %d: begin: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM posts WHERE subsection_id = ?"), id); err != nil {
		return fmt.Errorf("delete subsection %d posts: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM subsections WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete subsection %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete subsection %d: commit: %w", id, err)
	}
	logger.Info(ctx, "service.content", "content.subsection.delete",
		slog.Int64("subsection_id", id),
	)
	return nil
}

// ListPosts returns the posts of a subsection, most recent first.
func (s *Store) ListPosts(ctx context.Context, subsectionID int64) ([]Post, error) {
	var out []Post
	if err := s.db.SelectContext(ctx, &out,
		s.db.Rebind("SELECT * FROM posts WHERE subsection_id = ? ORDER BY created_at DESC, id DESC"), subsectionID,
	); err != nil {
		return nil, fmt.Errorf("list posts of %d: %w", subsectionID, err)
	}
	return out, nil
}

// GetPost returns a post by id or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	var p Post
	err := s.db.GetContext(ctx, &p, s.db.Rebind("SELECT * FROM posts WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &p, nil
}

// NewPost carries the fields of a post about to be stored.
type NewPost struct {
	SubsectionID int64
	UserID       int64
	UserName     string
	Title        string
	ContentType  ContentType
	ContentText  string
	ImageFileID  string
	LinkURL      string
	LinkTitle    string
}

// CreatePost appends a post. The parent subsection must exist; a link
// URL is normalized before storage.
func (s *Store) CreatePost(ctx context.Context, np NewPost) (*Post, error) {
	if !np.ContentType.Valid() {
		return nil, fmt.Errorf("create post: invalid content type %q", np.ContentType)
	}
	if _, err := s.GetSubsection(ctx, np.SubsectionID); err != nil {
		return nil, err
	}
	var id int64
	err := s.db.GetContext(ctx, &id,
		s.db.Rebind(`INSERT INTO posts (subsection_id, user_id, user_name, title, content_type, content_text, image_file_id, link_url, link_title)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		np.SubsectionID, np.UserID, np.UserName, np.Title, np.ContentType,
		nullable(np.ContentText), nullable(np.ImageFileID),
		nullable(NormalizeURL(np.LinkURL)), nullable(np.LinkTitle),
	)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	logger.Info(ctx, "service.content", "content.post.create",
		slog.Int64("subsection_id", np.SubsectionID),
		slog.Int64("post_id", id),
		slog.Int64("user_id", np.UserID),
		slog.String("content_type", string(np.ContentType)),
	)
	return s.GetPost(ctx, id)
}

// UpdatePost overwrites the title and body text of a post.
func (s *Store) UpdatePost(ctx context.Context, id int64, title, contentText string) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE posts SET title = ?, content_text = ? WHERE id = ?"),
		title, nullable(contentText), id,
	)
	if err != nil {
		return fmt.Errorf("update post %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost removes a single post.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM posts WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountSubsections reports the number of children of a section.
func (s *Store) CountSubsections(ctx context.Context, sectionID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n,
		s.db.Rebind("SELECT COUNT(*) FROM subsections WHERE section_id = ?"), sectionID,
	); err != nil {
		return 0, fmt.Errorf("count subsections of %d: %w", sectionID, err)
	}
	return n, nil
}

// CountPosts reports the number of posts in a subsection.
func (s *Store) CountPosts(ctx context.Context, subsectionID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n,
		s.db.Rebind("SELECT COUNT(*) FROM posts WHERE subsection_id = ?"), subsectionID,
	); err != nil {
		return 0, fmt.Errorf("count posts of %d: %w", subsectionID, err)
	}
	return n, nil
}

// CountSectionPosts reports the number of posts under a whole section.
func (s *Store) CountSectionPosts(ctx context.Context, sectionID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n,
		s.db.Rebind(`SELECT COUNT(*) FROM posts p
		 JOIN subsections sub ON sub.id = p.subsection_id
		 WHERE sub.section_id = ?`), sectionID,
	); err != nil {
		return 0, fmt.Errorf("count section %d posts: %w", sectionID, err)
	}
	return n, nil
}

// SectionCounts returns display annotations for a section listing.
func (s *Store) SectionCounts(ctx context.Context, sectionID int64) (SectionCounts, error) {
	subs, err := s.CountSubsections(ctx, sectionID)
	if err != nil {
		return SectionCounts{}, err
	}
	posts, err := s.CountSectionPosts(ctx, sectionID)
	if err != nil {
		return SectionCounts{}, err
	}
	return SectionCounts{Subsections: subs, Posts: posts}, nil
}

// NormalizeURL prepends https:// to URLs lacking a scheme.
// Already-prefixed URLs pass through unchanged, so the operation is
// idempotent. Empty input stays empty.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return u
	}
	return "https://" + u
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
