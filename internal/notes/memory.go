package notes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps notes in process memory. Ids come from a counter that
// starts at 1 and is never reset, so deleted ids are not handed out again.
type MemoryStore struct {
	mu     sync.RWMutex
	notes  map[int64]Note
	nextID int64
	now    func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now as the source of createdAt/updatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		notes:  make(map[int64]Note),
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every note, most recently updated first.
func (s *MemoryStore) List(_ context.Context) ([]Note, error) {
	s.mu.RLock()
	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}
	s.mu.RUnlock()

	sortByUpdated(out)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return Note{}, ErrNotFound
	}
	return n, nil
}

func (s *MemoryStore) Create(_ context.Context, in NewNote) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := in.note()
	n.ID = s.nextID
	s.nextID++
	n.CreatedAt = s.now().UTC()
	n.UpdatedAt = n.CreatedAt

	s.notes[n.ID] = n
	return n, nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, p NotePatch) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notes[id]
	if !ok {
		return Note{}, ErrNotFound
	}

	n := p.apply(existing)
	n.UpdatedAt = s.now().UTC()
	if n.UpdatedAt.Before(n.CreatedAt) {
		n.UpdatedAt = n.CreatedAt
	}

	s.notes[id] = n
	return n, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return false, nil
	}
	delete(s.notes, id)
	return true, nil
}

// sortByUpdated orders by updatedAt descending, then id descending.
func sortByUpdated(ns []Note) {
	sort.Slice(ns, func(i, j int) bool {
		if !ns[i].UpdatedAt.Equal(ns[j].UpdatedAt) {
			return ns[i].UpdatedAt.After(ns[j].UpdatedAt)
		}
		return ns[i].ID > ns[j].ID
	})
}
