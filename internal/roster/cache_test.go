package roster

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryIsExpired(t *testing.T) {
	at := time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC)
	e := Entry[Student]{RefreshedAt: at}
	assert.False(t, e.IsExpired(at.Add(29*time.Minute), 30*time.Minute))
	assert.True(t, e.IsExpired(at.Add(30*time.Minute), 30*time.Minute))
	assert.True(t, e.IsExpired(at.Add(31*time.Minute), 30*time.Minute))
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[Student]()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	items := []Student{seedStudent("s1", "Aisyah", "15012")}
	stored, err := c.Set(ctx, Entry[Student]{Items: items, RefreshedAt: time.Now()}, 0)
	require.NoError(t, err)
	require.True(t, stored)
	items[0].Name = "mutated"

	e, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Aisyah", e.Items[0].Name)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	c := NewRedisCache[Teacher](client, "roster:teachers")

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC)
	want := Entry[Teacher]{Items: []Teacher{{ID: "t1", Name: "Ustadz Hasan", Gender: Male}}, RefreshedAt: at}
	stored, err := c.Set(ctx, want, 0)
	require.NoError(t, err)
	require.True(t, stored)
	assert.True(t, mr.Exists("roster:teachers"))
	assert.Equal(t, time.Duration(0), mr.TTL("roster:teachers"), "snapshot must not expire in redis")

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Items, got.Items)
	assert.True(t, want.RefreshedAt.Equal(got.RefreshedAt))

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists("roster:teachers"))
	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen)
}

func TestCacheSetSkipsAfterInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	caches := map[string]Cache[Student]{
		"memory": NewMemoryCache[Student](),
		"redis":  NewRedisCache[Student](client, "roster:students"),
	}
	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			gen, err := c.Generation(ctx)
			require.NoError(t, err)

			require.NoError(t, c.Invalidate(ctx))
			stored, err := c.Set(ctx, Entry[Student]{Items: []Student{seedStudent("s1", "Aisyah", "15012")}}, gen)
			require.NoError(t, err)
			assert.False(t, stored)
			_, ok, err := c.Get(ctx)
			require.NoError(t, err)
			assert.False(t, ok, "snapshot from before the invalidation must not be cached")

			gen, err = c.Generation(ctx)
			require.NoError(t, err)
			stored, err = c.Set(ctx, Entry[Student]{Items: []Student{seedStudent("s1", "Aisyah", "15012")}}, gen)
			require.NoError(t, err)
			assert.True(t, stored)
		})
	}
}

func TestRedisCacheUnavailableFallsBackToStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewMemoryRepository()
	_, err := repo.CreateStudent(context.Background(), seedStudent("s1", "Aisyah", "15012"))
	require.NoError(t, err)

	svc := NewService(repo, repo, NewRedisCache[Student](client, "roster:students"), NewMemoryCache[Teacher](), nil, Options{})
	mr.Close()

	got, err := svc.GetStudents(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
