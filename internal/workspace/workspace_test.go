package workspace

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"example.com/notepad/internal/autosave"
	"example.com/notepad/internal/client"
	"example.com/notepad/internal/events"
	"example.com/notepad/internal/notes"
	"example.com/notepad/internal/service"
)

type noticeLog struct {
	mu  sync.Mutex
	got []Notice
}

func (l *noticeLog) add(n Notice) {
	l.mu.Lock()
	l.got = append(l.got, n)
	l.mu.Unlock()
}

func (l *noticeLog) all() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notice(nil), l.got...)
}

func seed(t *testing.T, store notes.Store, titles ...string) []notes.Note {
	t.Helper()
	out := make([]notes.Note, 0, len(titles))
	for _, title := range titles {
		n, err := store.Create(context.Background(), notes.NewNote{Title: notes.String(title)})
		require.NoError(t, err)
		out = append(out, n)
	}
	return out
}

func newWorkspace(t *testing.T, store notes.Store, opts ...Option) (*Workspace, *noticeLog) {
	t.Helper()
	log := &noticeLog{}
	opts = append([]Option{WithQuiet(20 * time.Millisecond), WithNoticeFunc(log.add)}, opts...)
	w := New(store, opts...)
	t.Cleanup(w.Close)
	return w, log
}

func TestWorkspace_RefreshOpensNewest(t *testing.T) {
	store := notes.NewMemoryStore()
	seeded := seed(t, store, "apple", "banana", "cherry")
	w, _ := newWorkspace(t, store)

	require.NoError(t, w.Refresh(context.Background()))
	require.Len(t, w.Visible(), 3)

	cur, ok := w.Current()
	require.True(t, ok)
	require.Equal(t, seeded[2].ID, cur.ID)
	title, _ := w.Draft()
	require.Equal(t, "cherry", title)
}

func TestWorkspace_NewIgnoresFilter(t *testing.T) {
	store := notes.NewMemoryStore()
	seed(t, store, "apple")
	w, _ := newWorkspace(t, store)
	ctx := context.Background()
	require.NoError(t, w.Refresh(ctx))

	w.Search("zzz")
	n, err := w.New(ctx)
	require.NoError(t, err)
	require.Equal(t, notes.DefaultTitle, n.Title)
	require.Empty(t, w.Visible())

	cur, ok := w.Current()
	require.True(t, ok)
	require.Equal(t, n.ID, cur.ID)
}

func TestWorkspace_DeleteMovesSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("first remaining visible note", func(t *testing.T) {
		store := notes.NewMemoryStore()
		s := seed(t, store, "apple", "banana", "cherry")
		w, log := newWorkspace(t, store)
		require.NoError(t, w.Refresh(ctx))

		w.Open(s[1].ID)
		require.NoError(t, w.Delete(ctx, s[1].ID))

		cur, ok := w.Current()
		require.True(t, ok)
		require.Equal(t, s[2].ID, cur.ID)
		require.Len(t, w.Visible(), 2)
		require.Equal(t, []Notice{{Title: "Success", Message: "Note deleted successfully"}}, log.all())
	})

	t.Run("nothing left under filter", func(t *testing.T) {
		store := notes.NewMemoryStore()
		s := seed(t, store, "apple", "banana", "cherry")
		w, _ := newWorkspace(t, store)
		require.NoError(t, w.Refresh(ctx))

		w.Search("an")
		w.Open(s[1].ID)
		require.NoError(t, w.Delete(ctx, s[1].ID))

		_, ok := w.Current()
		require.False(t, ok)
	})

	t.Run("other note keeps editor", func(t *testing.T) {
		store := notes.NewMemoryStore()
		s := seed(t, store, "apple", "banana")
		w, _ := newWorkspace(t, store)
		require.NoError(t, w.Refresh(ctx))

		require.NoError(t, w.Delete(ctx, s[0].ID))
		cur, ok := w.Current()
		require.True(t, ok)
		require.Equal(t, s[1].ID, cur.ID)
	})
}

type failingStore struct {
	notes.Store
}

func (failingStore) Create(context.Context, notes.NewNote) (notes.Note, error) {
	return notes.Note{}, errors.New("connection refused")
}

func (failingStore) Delete(context.Context, int64) (bool, error) {
	return false, errors.New("connection refused")
}

func TestWorkspace_FailureNotices(t *testing.T) {
	ctx := context.Background()
	w, log := newWorkspace(t, failingStore{Store: notes.NewMemoryStore()})

	_, err := w.New(ctx)
	require.Error(t, err)
	require.Error(t, w.Delete(ctx, 1))

	require.Equal(t, []Notice{
		{Title: "Error", Message: "Failed to create new note", Err: true},
		{Title: "Error", Message: "Failed to delete note", Err: true},
	}, log.all())
}

func TestWorkspace_DeleteMissing(t *testing.T) {
	w, log := newWorkspace(t, notes.NewMemoryStore())
	err := w.Delete(context.Background(), 7)
	require.ErrorIs(t, err, notes.ErrNotFound)
	require.Len(t, log.all(), 1)
	require.True(t, log.all()[0].Err)
}

func TestWorkspace_TypingAutoSaves(t *testing.T) {
	store := notes.NewMemoryStore()
	s := seed(t, store, "apple")
	var statuses []autosave.Status
	var mu sync.Mutex
	w, _ := newWorkspace(t, store, WithStatusFunc(func(st autosave.Status) {
		mu.Lock()
		statuses = append(statuses, st)
		mu.Unlock()
	}))
	ctx := context.Background()
	require.NoError(t, w.Refresh(ctx))

	w.TypeTitle("apple pie")
	require.Eventually(t, func() bool {
		n, err := store.Get(ctx, s[0].ID)
		return err == nil && n.Title == "apple pie"
	}, time.Second, 5*time.Millisecond)

	w.TypeContent("flour, butter")
	require.Eventually(t, func() bool {
		n, err := store.Get(ctx, s[0].ID)
		return err == nil && n.Title == "apple pie" && n.Content == "flour, butter"
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return w.Status() == autosave.Saved }, time.Second, 5*time.Millisecond)

	mu.Lock()
	require.NotEmpty(t, statuses)
	require.Equal(t, autosave.Saving, statuses[0])
	mu.Unlock()
}

func TestWorkspace_OpenUnknown(t *testing.T) {
	store := notes.NewMemoryStore()
	seed(t, store, "apple")
	w, _ := newWorkspace(t, store)
	require.NoError(t, w.Refresh(context.Background()))

	w.Open(404)
	_, ok := w.Current()
	require.False(t, ok)
}

func TestWorkspace_WatchRequiresListener(t *testing.T) {
	w, _ := newWorkspace(t, notes.NewMemoryStore())
	require.Error(t, w.Watch(context.Background()))
}

func TestWorkspace_WatchAppliesRemoteChanges(t *testing.T) {
	hub := events.NewHub(nil)
	r := chi.NewRouter()
	r.Use(events.Origin)
	r.Get("/ws", events.Handler(hub))
	r.Mount("/", notes.NewHandlers(service.New(notes.NewMemoryStore(), hub), nil).Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	other := client.New(srv.URL)
	first, err := other.Create(ctx, notes.NewNote{Title: notes.String("shared")})
	require.NoError(t, err)

	w, _ := newWorkspace(t, client.New(srv.URL))
	require.NoError(t, w.Refresh(ctx))
	go func() { _ = w.Watch(ctx) }()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = other.Update(ctx, first.ID, notes.NotePatch{Content: notes.String("edited elsewhere")})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, content := w.Draft()
		return content == "edited elsewhere"
	}, 2*time.Second, 10*time.Millisecond)

	_, err = other.Create(ctx, notes.NewNote{Title: notes.String("second")})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(w.Visible()) == 2 }, 2*time.Second, 10*time.Millisecond)

	removed, err := other.Delete(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, removed)
	require.Eventually(t, func() bool {
		cur, ok := w.Current()
		return ok && cur.Title == "second"
	}, 2*time.Second, 10*time.Millisecond)
}
