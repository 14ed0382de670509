package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type memoryCacheRepo struct {
	items   map[string][]byte
	ttls    map[string]time.Duration
	failGet error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if m.failGet != nil {
		return m.failGet
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	removed := 0
	prefix := pattern
	if n := len(prefix); n > 0 && prefix[n-1] == '*' {
		prefix = prefix[:n-1]
	}
	for key := range m.items {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(m.items, key)
			removed++
		}
	}
	return removed, nil
}

func TestCacheServiceRoundTripAndMetrics(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out map[string]int
	hit, err := svc.Get(ctx, "dashboard:2024-03-10", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "dashboard:2024-03-10", map[string]int{"students": 12}, 0))
	assert.Equal(t, time.Minute, repo.ttls["dashboard:2024-03-10"])

	hit, err = svc.Get(ctx, "dashboard:2024-03-10", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 12, out["students"])

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.001)

	require.NoError(t, svc.Invalidate(ctx, "dashboard:*"))
	assert.Empty(t, repo.items)
}

func TestCacheServiceDisabledAndFailures(t *testing.T) {
	repo := newMemoryCacheRepo()
	disabled := NewCacheService(repo, nil, 0, nil, false)
	ctx := context.Background()

	assert.False(t, disabled.Enabled())
	require.NoError(t, disabled.Set(ctx, "k", 1, 0))
	assert.Empty(t, repo.items)
	hit, err := disabled.Get(ctx, "k", new(int))
	assert.NoError(t, err)
	assert.False(t, hit)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())

	repo.failGet = errors.New("connection refused")
	enabled := NewCacheService(repo, nil, 0, nil, true)
	hit, err = enabled.Get(ctx, "k", new(int))
	assert.Error(t, err)
	assert.False(t, hit)
}
