package cache

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/metrics"
	"delivery-route-engine/internal/ports"
	"errors"
	"log"
)

// CachingGeocoder consults a GeocodeCache before calling the wrapped Geocoder
// and stores fresh results. Cache failures are logged and bypassed.
// Unresolved addresses are not cached.
type CachingGeocoder struct {
	Next    ports.Geocoder
	Cache   ports.GeocodeCache
	Metrics *metrics.Metrics
}

func NewCachingGeocoder(next ports.Geocoder, cache ports.GeocodeCache, m *metrics.Metrics) (*CachingGeocoder, error) {
	if next == nil {
		return nil, errors.New("new caching geocoder: geocoder must be non-nil")
	}
	return &CachingGeocoder{Next: next, Cache: cache, Metrics: m}, nil
}

func (g *CachingGeocoder) Resolve(ctx context.Context, address string) (*domain.Coordinates, error) {
	key := normalizeKey(address)
	if key == "" {
		return nil, nil
	}

	if g.Cache != nil {
		hits, err := g.Cache.GetMany(ctx, []string{key})
		if err != nil {
			log.Printf("geocode cache read failed: address=%q err=%v", key, err)
		} else if c, ok := hits[key]; ok {
			g.Metrics.RecordGeocode("cache_hit")
			return &c, nil
		}
	}

	c, err := g.Next.Resolve(ctx, key)
	if err != nil || c == nil {
		return c, err
	}

	if g.Cache != nil {
		if err := g.Cache.PutMany(ctx, map[string]domain.Coordinates{key: *c}); err != nil {
			log.Printf("geocode cache write failed: address=%q err=%v", key, err)
		}
	}
	return c, nil
}
