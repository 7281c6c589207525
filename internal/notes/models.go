package notes

import (
	"errors"
	"time"
)

// DefaultTitle is given to notes created without a title.
const DefaultTitle = "Untitled Note"

var ErrNotFound = errors.New("note not found")

type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewNote is the create payload. Nil fields take their defaults.
type NewNote struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// NotePatch is the update payload. Nil fields are left unchanged.
type NotePatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// apply merges the provided fields of p over n.
func (p NotePatch) apply(n Note) Note {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	return n
}

func (in NewNote) note() Note {
	n := Note{Title: DefaultTitle}
	if in.Title != nil && *in.Title != "" {
		n.Title = *in.Title
	}
	if in.Content != nil {
		n.Content = *in.Content
	}
	return n
}

// String returns a pointer to s, for building NewNote and NotePatch literals.
func String(s string) *string {
	return &s
}
