package services

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/metrics"
	"delivery-route-engine/internal/platform/obs"
	"delivery-route-engine/internal/ports"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultGeocodeBatchSize  = 5
	DefaultGeocodeBatchDelay = 200 * time.Millisecond
)

// GeocodeBatcher fills in missing stop coordinates through a Geocoder.
//
// Lookups run concurrently inside a batch and batches are separated by
// Delay. The delay is backpressure against the geocoder's rate limit and
// is never skipped: a zero or negative Delay means DefaultGeocodeBatchDelay.
type GeocodeBatcher struct {
	Geocoder  ports.Geocoder
	BatchSize int
	Delay     time.Duration
	Metrics   *metrics.Metrics

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewGeocodeBatcher(geocoder ports.Geocoder, batchSize int, delay time.Duration) *GeocodeBatcher {
	if batchSize <= 0 {
		batchSize = DefaultGeocodeBatchSize
	}
	if delay <= 0 {
		delay = DefaultGeocodeBatchDelay
	}
	return &GeocodeBatcher{
		Geocoder:  geocoder,
		BatchSize: batchSize,
		Delay:     delay,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fill returns a same-length copy of stops with coordinates filled in where
// the geocoder could resolve the address. Unresolved stops keep nil
// coordinates. The only error is context cancellation.
func (b *GeocodeBatcher) Fill(ctx context.Context, stops []domain.Stop) (_ []domain.Stop, err error) {
	defer obs.Time(ctx, "geocode.batcher.Fill")(&err)

	out := make([]domain.Stop, len(stops))
	copy(out, stops)

	if b == nil || b.Geocoder == nil {
		return out, nil
	}

	pending := make([]int, 0, len(out))
	for i, s := range out {
		if !s.HasCoords() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	size := b.BatchSize
	if size <= 0 {
		size = DefaultGeocodeBatchSize
	}
	delay := b.Delay
	if delay <= 0 {
		delay = DefaultGeocodeBatchDelay
	}
	sleep := b.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	resolved := 0
	for start := 0; start < len(pending); start += size {
		if start > 0 {
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		end := min(start+size, len(pending))
		batch := pending[start:end]
		results := make([]*domain.Coordinates, len(batch))

		// Lookup failures are absorbed, so the group never cancels early.
		var g errgroup.Group
		for j, idx := range batch {
			g.Go(func() error {
				addr := out[idx].Address
				c, err := b.Geocoder.Resolve(ctx, addr)
				if err != nil {
					log.Printf("geocode failed: stop_id=%s address=%q err=%v", out[idx].ID, addr, err)
					b.Metrics.RecordGeocode("failed")
					return nil
				}
				if c == nil || !c.Valid() {
					log.Printf("geocode unresolved: stop_id=%s address=%q", out[idx].ID, addr)
					b.Metrics.RecordGeocode("unresolved")
					return nil
				}
				b.Metrics.RecordGeocode("resolved")
				results[j] = c
				return nil
			})
		}
		_ = g.Wait()

		for j, idx := range batch {
			if results[j] != nil {
				out[idx] = out[idx].WithCoords(*results[j])
				resolved++
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	log.Printf("geocode batches done: pending=%d resolved=%d batch_size=%d", len(pending), resolved, size)
	return out, nil
}
