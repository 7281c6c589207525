package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	noteKey  = "notes.%d"
	listKey  = "notes.list"
	genKey   = "notes.gen"
	cacheOps = 2 * time.Second
)

// errStale aborts a cache fill that raced with a write.
var errStale = errors.New("cache generation changed")

// CachedStore puts a Redis read-through cache in front of another Store.
// Writes bump a generation counter and drop the keys they touch; a read
// only fills the cache if the generation is unchanged since it started.
// Cache failures are logged and the call falls through to the wrapped store.
type CachedStore struct {
	next  Store
	cache *redis.Client
	ttl   time.Duration
	log   *zap.SugaredLogger
}

func NewCachedStore(next Store, cache *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *CachedStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CachedStore{next: next, cache: cache, ttl: ttl, log: log}
}

func (s *CachedStore) List(ctx context.Context) ([]Note, error) {
	var cached []Note
	if s.load(ctx, listKey, &cached) {
		return cached, nil
	}

	gen, ok := s.generation(ctx)
	items, err := s.next.List(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		s.fill(ctx, listKey, gen, items)
	}
	return items, nil
}

func (s *CachedStore) Get(ctx context.Context, id int64) (Note, error) {
	key := fmt.Sprintf(noteKey, id)

	var cached Note
	if s.load(ctx, key, &cached) {
		return cached, nil
	}

	gen, ok := s.generation(ctx)
	n, err := s.next.Get(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if ok {
		s.fill(ctx, key, gen, n)
	}
	return n, nil
}

func (s *CachedStore) Create(ctx context.Context, in NewNote) (Note, error) {
	n, err := s.next.Create(ctx, in)
	if err != nil {
		return Note{}, err
	}
	s.invalidate(ctx, listKey)
	return n, nil
}

func (s *CachedStore) Update(ctx context.Context, id int64, p NotePatch) (Note, error) {
	n, err := s.next.Update(ctx, id, p)
	if err != nil {
		return Note{}, err
	}
	s.invalidate(ctx, fmt.Sprintf(noteKey, id), listKey)
	return n, nil
}

func (s *CachedStore) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := s.next.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.invalidate(ctx, fmt.Sprintf(noteKey, id), listKey)
	}
	return removed, nil
}

func (s *CachedStore) load(ctx context.Context, key string, v any) bool {
	ctx, cancel := context.WithTimeout(ctx, cacheOps)
	defer cancel()

	data, err := s.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		s.log.Errorw("cache get", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Errorw("cache decode", "key", key, "error", err)
		return false
	}
	return true
}

// generation reads the write counter. false means the cache is unreachable
// and the read must not fill it.
func (s *CachedStore) generation(ctx context.Context) (int64, bool) {
	ctx, cancel := context.WithTimeout(ctx, cacheOps)
	defer cancel()

	gen, err := s.cache.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		s.log.Errorw("cache generation", "error", err)
		return 0, false
	}
	return gen, true
}

// fill stores v under key if no write has happened since gen was read.
func (s *CachedStore) fill(ctx context.Context, key string, gen int64, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Errorw("cache encode", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, cacheOps)
	defer cancel()

	err = s.cache.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		s.log.Debugw("cache fill skipped", "key", key)
	default:
		s.log.Errorw("cache set", "key", key, "error", err)
	}
}

// invalidate bumps the generation before dropping keys, so a read that
// started earlier cannot put them back.
func (s *CachedStore) invalidate(ctx context.Context, keys ...string) {
	ctx, cancel := context.WithTimeout(ctx, cacheOps)
	defer cancel()

	_, err := s.cache.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		s.log.Errorw("cache invalidate", "keys", keys, "error", err)
	}
}
