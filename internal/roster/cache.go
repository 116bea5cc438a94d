package roster

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Entry is a whole-collection snapshot and the time it was fetched.
type Entry[T any] struct {
	Items       []T       `json:"items"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

// IsExpired reports whether the snapshot is older than ttl at now.
func (e Entry[T]) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.RefreshedAt) >= ttl
}

// Cache stores one roster snapshot. Entries are replaced whole, never patched.
//
// Every Invalidate advances a generation counter. A reader captures the
// generation before fetching from the store and passes it to Set, which
// stores nothing if an invalidation happened in between; a snapshot taken
// before a write can then never outlive that write.
type Cache[T any] interface {
	Get(ctx context.Context) (Entry[T], bool, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, e Entry[T], gen int64) (bool, error)
	Invalidate(ctx context.Context) error
}

// MemoryCache is a process-local Cache.
type MemoryCache[T any] struct {
	mu    sync.RWMutex
	entry *Entry[T]
	gen   int64
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{}
}

func (c *MemoryCache[T]) Get(_ context.Context) (Entry[T], bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return Entry[T]{}, false, nil
	}
	return Entry[T]{Items: append([]T(nil), c.entry.Items...), RefreshedAt: c.entry.RefreshedAt}, true, nil
}

func (c *MemoryCache[T]) Generation(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen, nil
}

func (c *MemoryCache[T]) Set(_ context.Context, e Entry[T], gen int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false, nil
	}
	e.Items = append([]T(nil), e.Items...)
	c.entry = &e
	return true, nil
}

func (c *MemoryCache[T]) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
	c.gen++
	return nil
}

// RedisCache shares a snapshot between API replicas. Keys carry no Redis
// expiry: freshness is judged from RefreshedAt so an expired snapshot can
// still be served when the store is down. The generation lives under
// key+":gen" and is compared inside WATCH/MULTI, so replicas agree on it.
type RedisCache[T any] struct {
	client *redis.Client
	key    string
	genKey string
}

// NewRedisCache creates a cache stored under key.
func NewRedisCache[T any](client *redis.Client, key string) *RedisCache[T] {
	return &RedisCache[T]{client: client, key: key, genKey: key + ":gen"}
}

func (c *RedisCache[T]) Get(ctx context.Context) (Entry[T], bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return Entry[T]{}, false, nil
	}
	if err != nil {
		return Entry[T]{}, false, errors.Wrap(err, "redis cache get")
	}
	var e Entry[T]
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry[T]{}, false, errors.Wrap(err, "redis cache decode")
	}
	return e, true, nil
}

func (c *RedisCache[T]) Generation(ctx context.Context) (int64, error) {
	return readGeneration(ctx, c.client, c.genKey)
}

func (c *RedisCache[T]) Set(ctx context.Context, e Entry[T], gen int64) (bool, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return false, errors.Wrap(err, "redis cache encode")
	}
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, c.genKey)
		if err != nil || cur != gen {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.key, raw, 0)
			return nil
		})
		stored = err == nil
		return err
	}, c.genKey)
	if err == redis.TxFailedErr {
		// genKey moved between WATCH and EXEC
		return false, nil
	}
	return stored, errors.Wrap(err, "redis cache set")
}

func (c *RedisCache[T]) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, c.key)
		p.Incr(ctx, c.genKey)
		return nil
	})
	return errors.Wrap(err, "redis cache invalidate")
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, r getter, key string) (int64, error) {
	gen, err := r.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, errors.Wrap(err, "redis cache generation")
}
