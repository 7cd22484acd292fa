package usage_test

import (
	"testing"
	"time"

	"github.com/outreachly/costgate/internal/domain/usage"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_PutGet(t *testing.T) {
	cache := usage.NewMemoryCache(time.Minute)
	key := usage.CacheKey{ClientID: "acme", Day: "2026-08-25", Month: "2026-08"}

	_, ok := cache.Get(key)
	require.False(t, ok)

	snap := usage.Snapshot{DailyTokens: 100, MonthlyTokens: 500}
	cache.Put(key, snap)

	got, ok := cache.Get(key)
	require.True(t, ok)
	require.Equal(t, snap, got)
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	cache := usage.NewMemoryCache(10 * time.Millisecond)
	key := usage.CacheKey{ClientID: "acme", Day: "2026-08-25", Month: "2026-08"}
	cache.Put(key, usage.Snapshot{DailyTokens: 1})

	_, ok := cache.Get(key)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = cache.Get(key)
	require.False(t, ok)
}

func TestMemoryCache_InvalidateClient(t *testing.T) {
	cache := usage.NewMemoryCache(time.Minute)
	acmeToday := usage.CacheKey{ClientID: "acme", Day: "2026-08-25", Month: "2026-08"}
	acmeYesterday := usage.CacheKey{ClientID: "acme", Day: "2026-08-24", Month: "2026-08"}
	globex := usage.CacheKey{ClientID: "globex", Day: "2026-08-25", Month: "2026-08"}

	cache.Put(acmeToday, usage.Snapshot{DailyTokens: 1})
	cache.Put(acmeYesterday, usage.Snapshot{DailyTokens: 2})
	cache.Put(globex, usage.Snapshot{DailyTokens: 3})

	cache.InvalidateClient("acme")

	_, ok := cache.Get(acmeToday)
	require.False(t, ok)
	_, ok = cache.Get(acmeYesterday)
	require.False(t, ok)

	got, ok := cache.Get(globex)
	require.True(t, ok)
	require.EqualValues(t, 3, got.DailyTokens)
}

func TestMemoryCache_LastWriterWins(t *testing.T) {
	cache := usage.NewMemoryCache(time.Minute)
	key := usage.CacheKey{ClientID: "acme", Day: "2026-08-25", Month: "2026-08"}

	cache.Put(key, usage.Snapshot{DailyTokens: 1})
	cache.Put(key, usage.Snapshot{DailyTokens: 2})

	got, ok := cache.Get(key)
	require.True(t, ok)
	require.EqualValues(t, 2, got.DailyTokens)
}
