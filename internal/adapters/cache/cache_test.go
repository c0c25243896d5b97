package cache

import (
	"context"
	"database/sql"
	"delivery-route-engine/internal/adapters/repositories"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/ports"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newSqliteCache(t *testing.T) *SqliteGeocodeCache {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repositories.InitSchema(context.Background(), db))
	return NewSqliteGeocodeCache(db)
}

func newRedisCache(t *testing.T) (*RedisGeocodeCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisGeocodeCache(client, time.Hour), mr
}

// exerciseCache checks the behavior every GeocodeCache shares.
func exerciseCache(t *testing.T, c ports.GeocodeCache) {
	ctx := context.Background()

	empty, err := c.GetMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, c.PutMany(ctx, map[string]domain.Coordinates{
		"1 Main St,  Mesa": {Lat: 33.41, Lon: -111.83},
		"2 Elm St":         {Lat: 33.30, Lon: -111.84},
	}))

	got, err := c.GetMany(ctx, []string{" 1 Main St, Mesa", "2 Elm St", "2 Elm St", "unknown", ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Coordinates{
		"1 Main St, Mesa": {Lat: 33.41, Lon: -111.83},
		"2 Elm St":        {Lat: 33.30, Lon: -111.84},
	}, got)

	require.NoError(t, c.PutMany(ctx, map[string]domain.Coordinates{"2 Elm St": {Lat: 1, Lon: 2}}))
	got, err = c.GetMany(ctx, []string{"2 Elm St"})
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lat: 1, Lon: 2}, got["2 Elm St"])

	assert.Error(t, c.PutMany(ctx, map[string]domain.Coordinates{"  ": {Lat: 1, Lon: 1}}))
}

func TestSqliteGeocodeCache(t *testing.T) {
	exerciseCache(t, newSqliteCache(t))
}

func TestRedisGeocodeCache(t *testing.T) {
	c, _ := newRedisCache(t)
	exerciseCache(t, c)
}

func TestRedisGeocodeCacheExpires(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutMany(ctx, map[string]domain.Coordinates{"a": {Lat: 1, Lon: 1}}))
	assert.Equal(t, time.Hour, mr.TTL("geocode:a"))

	mr.FastForward(2 * time.Hour)
	got, err := c.GetMany(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisGeocodeCacheSkipsCorruptEntries(t *testing.T) {
	c, mr := newRedisCache(t)
	require.NoError(t, mr.Set("geocode:a", "not json"))

	got, err := c.GetMany(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

type countingGeocoder struct {
	coords map[string]domain.Coordinates
	err    error
	calls  int
}

func (g *countingGeocoder) Resolve(_ context.Context, address string) (*domain.Coordinates, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	c, ok := g.coords[address]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type brokenCache struct{}

func (brokenCache) GetMany(context.Context, []string) (map[string]domain.Coordinates, error) {
	return nil, errors.New("cache down")
}

func (brokenCache) PutMany(context.Context, map[string]domain.Coordinates) error {
	return errors.New("cache down")
}

func TestCachingGeocoder(t *testing.T) {
	next := &countingGeocoder{coords: map[string]domain.Coordinates{"1 Main St": {Lat: 1, Lon: 2}}}
	g, err := NewCachingGeocoder(next, newSqliteCache(t), nil)
	require.NoError(t, err)
	ctx := context.Background()

	c, err := g.Resolve(ctx, "1  Main St")
	require.NoError(t, err)
	require.NotNil(t, c)

	c, err = g.Resolve(ctx, "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, &domain.Coordinates{Lat: 1, Lon: 2}, c)
	assert.Equal(t, 1, next.calls, "second lookup is served from cache")

	c, err = g.Resolve(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, c)
	_, _ = g.Resolve(ctx, "unknown")
	assert.Equal(t, 3, next.calls, "misses are not cached")
}

func TestCachingGeocoderBypassesBrokenCache(t *testing.T) {
	next := &countingGeocoder{coords: map[string]domain.Coordinates{"a": {Lat: 1, Lon: 1}}}
	g, err := NewCachingGeocoder(next, brokenCache{}, nil)
	require.NoError(t, err)

	c, err := g.Resolve(context.Background(), "a")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCachingGeocoderPropagatesLookupErrors(t *testing.T) {
	next := &countingGeocoder{err: errors.New("boom")}
	g, err := NewCachingGeocoder(next, nil, nil)
	require.NoError(t, err)

	_, err = g.Resolve(context.Background(), "a")
	assert.Error(t, err)

	_, err = NewCachingGeocoder(nil, nil, nil)
	assert.Error(t, err)
}
