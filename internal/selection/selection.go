// Package selection tracks which note is open and keeps that choice valid
// as notes are listed, created and deleted.
package selection

import (
	"sync"

	"example.com/notepad/internal/notes"
	"example.com/notepad/internal/stringsx"
)

// Controller picks the first note only until the user has made a choice.
// A selection cleared by a delete stays cleared.
type Controller struct {
	mu       sync.Mutex
	id       int64
	selected bool
	settled  bool
}

func New() *Controller {
	return &Controller{}
}

// Selected returns the open note id, or false when nothing is open.
func (c *Controller) Selected() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.selected
}

// Select opens id. The id is not checked against any list.
func (c *Controller) Select(id int64) {
	c.mu.Lock()
	c.id, c.selected, c.settled = id, true, true
	c.mu.Unlock()
}

// clearLocked selects nothing; later calls to Sync do not pick a note again.
func (c *Controller) clearLocked() {
	c.id, c.selected, c.settled = 0, false, true
}

// Sync selects the first note of list on the initial load, when nothing has
// been selected or cleared yet. It reports whether the selection changed.
func (c *Controller) Sync(list []notes.Note) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settled || len(list) == 0 {
		return false
	}
	c.id, c.selected, c.settled = list[0].ID, true, true
	return true
}

// Created opens a newly created note regardless of any filter.
func (c *Controller) Created(id int64) {
	c.Select(id)
}

// Deleted moves the selection off id, if it was selected, to the first
// remaining note of visible (the filtered list as displayed), or to nothing.
// It reports whether the selection changed.
func (c *Controller) Deleted(id int64, visible []notes.Note) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selected || c.id != id {
		return false
	}
	for _, n := range visible {
		if n.ID != id {
			c.id = n.ID
			return true
		}
	}
	c.clearLocked()
	return true
}

// Resolve finds the selected note in list.
func (c *Controller) Resolve(list []notes.Note) (notes.Note, bool) {
	id, ok := c.Selected()
	if !ok {
		return notes.Note{}, false
	}
	for _, n := range list {
		if n.ID == id {
			return n, true
		}
	}
	return notes.Note{}, false
}

// Filter keeps the notes whose title or content contains query, ignoring
// case. A blank query keeps everything.
func Filter(list []notes.Note, query string) []notes.Note {
	if stringsx.IsEmpty(query) {
		return list
	}
	out := make([]notes.Note, 0, len(list))
	for _, n := range list {
		if stringsx.ContainsFold(n.Title, query) || stringsx.ContainsFold(n.Content, query) {
			out = append(out, n)
		}
	}
	return out
}
