package selection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/notepad/internal/notes"
)

// ordered most recently updated first
var (
	a = notes.Note{ID: 1, Title: "Alpha", Content: "groceries"}
	b = notes.Note{ID: 2, Title: "Beta", Content: "Meeting notes"}
	c = notes.Note{ID: 3, Title: "Gamma", Content: "alpha release"}
)

func TestController_Sync(t *testing.T) {
	s := New()
	require.False(t, s.Sync(nil))
	_, ok := s.Selected()
	require.False(t, ok)

	require.True(t, s.Sync([]notes.Note{a, b}))
	id, ok := s.Selected()
	require.True(t, ok)
	require.Equal(t, a.ID, id)

	// an existing selection is kept
	s.Select(b.ID)
	require.False(t, s.Sync([]notes.Note{a, b}))
	id, _ = s.Selected()
	require.Equal(t, b.ID, id)
}

func TestController_SyncAfterDeleteClears(t *testing.T) {
	s := New()
	require.True(t, s.Sync([]notes.Note{a, b, c}))
	s.Select(b.ID)

	// b was the only visible note; the list still holds a and c
	require.True(t, s.Deleted(b.ID, []notes.Note{b}))
	require.False(t, s.Sync([]notes.Note{a, c}))
	_, ok := s.Selected()
	require.False(t, ok)

	s.Created(4)
	id, ok := s.Selected()
	require.True(t, ok)
	require.Equal(t, int64(4), id)
}


func TestController_Deleted(t *testing.T) {
	tests := []struct {
		name     string
		selected int64
		deleted  int64
		visible  []notes.Note
		wantID   int64
		wantOK   bool
		changed  bool
	}{
		{"selected middle picks newest", b.ID, b.ID, []notes.Note{a, b, c}, a.ID, true, true},
		{"selected first picks next", a.ID, a.ID, []notes.Note{a, b, c}, b.ID, true, true},
		{"respects filter", b.ID, b.ID, []notes.Note{b, c}, c.ID, true, true},
		{"last visible clears", b.ID, b.ID, []notes.Note{b}, 0, false, true},
		{"empty view clears", b.ID, b.ID, nil, 0, false, true},
		{"other note keeps selection", a.ID, c.ID, []notes.Note{a, b, c}, a.ID, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Select(tt.selected)
			require.Equal(t, tt.changed, s.Deleted(tt.deleted, tt.visible))
			id, ok := s.Selected()
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantID, id)
		})
	}
}

func TestController_Created(t *testing.T) {
	s := New()
	s.Select(a.ID)
	s.Created(42)
	id, ok := s.Selected()
	require.True(t, ok)
	require.Equal(t, int64(42), id)
}

func TestController_Resolve(t *testing.T) {
	s := New()
	_, ok := s.Resolve([]notes.Note{a})
	require.False(t, ok)

	s.Select(99)
	_, ok = s.Resolve([]notes.Note{a, b})
	require.False(t, ok, "unknown id resolves to no note")

	s.Select(b.ID)
	n, ok := s.Resolve([]notes.Note{a, b})
	require.True(t, ok)
	require.Equal(t, "Beta", n.Title)
}

func TestFilter(t *testing.T) {
	all := []notes.Note{a, b, c}

	require.Equal(t, all, Filter(all, ""))
	require.Equal(t, all, Filter(all, "   "))
	require.Equal(t, []notes.Note{a, c}, Filter(all, "ALPHA"))
	require.Equal(t, []notes.Note{b}, Filter(all, "meeting"))
	require.Empty(t, Filter(all, "zzz"))
}
