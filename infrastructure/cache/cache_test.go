package cache

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudecole/go-bulletin/internal/domain"
	"github.com/cloudecole/go-bulletin/internal/ports"
)

func sampleReport() domain.Report {
	return domain.Report{
		ID:            "r-1",
		ClassID:       "c1",
		Curriculum:    domain.Primary,
		TotalStudents: 2,
		Palmares: domain.Palmares{
			Group: domain.GroupAnnual,
			Students: []domain.RankedStudent{
				{Student: domain.Student{ID: "a"}, Rank: 1, Percentage: 72, Mention: domain.MentionVeryGood},
			},
			Stats: domain.PalmaresStats{Total: 2, Unranked: 1},
		},
		GeneratedAt: time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC),
	}
}

// storeContract exercises the ports.CacheStore behaviour shared by every
// store.
func storeContract(t *testing.T, store ports.CacheStore) {
	ctx := context.Background()
	key := "report:" + uuid.NewString()

	t.Run("miss", func(t *testing.T) {
		var got domain.Report
		found, err := store.Get(ctx, key, &got)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("round trip", func(t *testing.T) {
		want := sampleReport()
		require.NoError(t, store.Set(ctx, key, want, time.Minute))

		var got domain.Report
		found, err := store.Get(ctx, key, &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, want, got)
	})

	t.Run("corrupted value", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key+":text", "not a report", 0))

		var got domain.Report
		found, err := store.Get(ctx, key+":text", &got)
		assert.False(t, found)
		assert.ErrorIs(t, err, ports.ErrCacheCorrupted)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))
		require.NoError(t, store.Delete(ctx, key), "deleting twice is fine")

		var got domain.Report
		found, err := store.Get(ctx, key, &got)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		tests := []struct {
			name  string
			key   string
			value any
			ttl   time.Duration
			want  error
		}{
			{name: "empty key", key: "", value: 1, want: ErrKeyEmpty},
			{name: "nil value", key: "k", value: nil, want: ErrNilValue},
			{name: "negative ttl", key: "k", value: 1, ttl: -time.Second, want: ErrInvalidTTL},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := store.Set(ctx, tt.key, tt.value, tt.ttl)
				assert.ErrorIs(t, err, tt.want)

				var cerr *ports.CacheError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, "Set", cerr.Operation)
			})
		}
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key+":1", 1, 0))
		require.NoError(t, store.Set(ctx, key+":2", 2, 0))
		require.NoError(t, store.Clear(ctx))

		var v int
		found, err := store.Get(ctx, key+":1", &v)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

// TestMemoryStore runs the store contract on MemoryStore.
func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

// TestMemoryStore_Expiration verifies lazy expiry with a fake clock.
func TestMemoryStore_Expiration(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "short", 1, time.Minute))
	require.NoError(t, store.Set(ctx, "forever", 2, 0))

	var v int
	found, err := store.Get(ctx, "short", &v)
	require.NoError(t, err)
	assert.True(t, found)

	now = now.Add(time.Minute)

	found, err = store.Get(ctx, "short", &v)
	require.NoError(t, err)
	assert.False(t, found, "expires at the deadline")
	assert.Equal(t, 1, store.Len(), "expired entry is dropped on read")

	found, err = store.Get(ctx, "forever", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, v)
}

// TestMemoryStore_Concurrent reads and writes from many goroutines.
func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []string{"a", "b", "c"}[i%3]
			assert.NoError(t, store.Set(ctx, key, i, time.Minute))
			var v int
			_, err := store.Get(ctx, key, &v)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, store.Len())
}

// TestRedisStore_Unavailable verifies that transport failures are
// reported as retryable cache errors.
func TestRedisStore_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStoreWithClient(client, "test:")
	ctx := context.Background()

	var got domain.Report
	found, err := store.Get(ctx, "k", &got)
	assert.False(t, found)
	assert.ErrorIs(t, err, ports.ErrServiceUnavailable)

	err = store.Set(ctx, "k", sampleReport(), time.Minute)
	assert.ErrorIs(t, err, ports.ErrServiceUnavailable)

	var cerr *ports.CacheError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "k", cerr.Key)

	assert.ErrorIs(t, store.Delete(ctx, ""), ErrKeyEmpty)
	assert.Error(t, NewRedisStoreWithClient(client, "").Clear(ctx), "clearing without prefix is refused")

	t.Run("connect", func(t *testing.T) {
		cfg := DefaultRedisConfig()
		cfg.Addr = "127.0.0.1:1"
		cfg.MaxRetries = -1
		cfg.DialTimeout = 200 * time.Millisecond

		_, err := NewRedisStore(ctx, cfg)
		assert.ErrorIs(t, err, ports.ErrServiceUnavailable)
	})
}

// TestRedisStore runs the store contract against a real Redis when
// BULLETIN_TEST_REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("BULLETIN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BULLETIN_TEST_REDIS_ADDR not set")
	}

	cfg := DefaultRedisConfig()
	cfg.Addr = addr
	cfg.Prefix = "bulletin-test:" + uuid.NewString() + ":"

	store, err := NewRedisStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Clear(context.Background())
		_ = store.Close()
	})

	storeContract(t, store)
}
