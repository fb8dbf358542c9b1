package storage

import "time"

// ContentType declares which optional fields of a Post are populated.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentLink  ContentType = "link"
	// ContentMixed carries both an image and a link.
	ContentMixed ContentType = "mixed"
)

// Valid reports whether the content type is one of the known values.
func (t ContentType) Valid() bool {
	switch t {
	case ContentText, ContentImage, ContentLink, ContentMixed:
		return true
	}
	return false
}

// Section is a top-level content category.
type Section struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	CreatedBy   int64     `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

// Subsection is a category nested under exactly one Section for its lifetime.
type Subsection struct {
	ID          int64     `db:"id"`
	SectionID   int64     `db:"section_id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	CreatedBy   int64     `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

// Post is a leaf content item belonging to a Subsection.
// UserName is a denormalized snapshot of the author's display name at
// creation time.
type Post struct {
	ID           int64       `db:"id"`
	SubsectionID int64       `db:"subsection_id"`
	UserID       int64       `db:"user_id"`
	UserName     string      `db:"user_name"`
	Title        string      `db:"title"`
	ContentType  ContentType `db:"content_type"`
	ContentText  *string     `db:"content_text"`
	ImageFileID  *string     `db:"image_file_id"`
	LinkURL      *string     `db:"link_url"`
	LinkTitle    *string     `db:"link_title"`
	CreatedAt    time.Time   `db:"created_at"`
}

// SectionCounts annotates a section listing for display.
type SectionCounts struct {
	Subsections int
	Posts       int
}
