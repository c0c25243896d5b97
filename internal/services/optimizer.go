package services

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/obs"
	"delivery-route-engine/internal/ports"
	"errors"
	"fmt"
	"log"
	"math"
	"time"
)

// OptimizePath asks the external optimizer to reorder a delivery path.
//
// The first stop is sent as origin, the last as destination and the rest
// as intermediate waypoints. The call is a best-effort enhancement: it is
// skipped when the optimizer is not configured, when fewer than two stops
// are given or when any stop lacks coordinates, and every failure is
// logged and reported as "no result" so the caller can fall back.
func OptimizePath(
	ctx context.Context,
	optimizer ports.RouteOptimizer,
	stops []domain.Stop,
	timeout time.Duration,
) (*Estimate, bool) {
	if optimizer == nil || len(stops) < 2 {
		return nil, false
	}
	for _, s := range stops {
		if !s.HasCoords() {
			return nil, false
		}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	est, err := optimizePath(ctx, optimizer, stops)
	if err != nil {
		log.Printf("optimizer unavailable, using heuristic estimate: stops=%d err=%v", len(stops), err)
		return nil, false
	}
	return est, true
}

var errNoOptimizerResult = errors.New("optimizer returned no result")

func optimizePath(ctx context.Context, optimizer ports.RouteOptimizer, stops []domain.Stop) (_ *Estimate, err error) {
	defer obs.Time(ctx, "optimizer.OptimizePath")(&err)

	origin := *stops[0].Coords
	destination := *stops[len(stops)-1].Coords
	middle := stops[1 : len(stops)-1]

	intermediates := make([]domain.Coordinates, 0, len(middle))
	for _, s := range middle {
		intermediates = append(intermediates, *s.Coords)
	}

	res, err := optimizer.Optimize(ctx, origin, destination, intermediates)
	if err != nil {
		return nil, fmt.Errorf("optimize path: %w", err)
	}
	if res == nil {
		return nil, errNoOptimizerResult
	}

	ordered, err := applyWaypointOrder(stops, res.OrderedIndices)
	if err != nil {
		return nil, fmt.Errorf("optimize path: %w", err)
	}

	km := roundTenth(float64(res.DistanceMeters) / 1000)
	minutes := int(math.Round(float64(res.DurationSeconds) / 60))

	return &Estimate{
		Deliveries:      ordered,
		DistanceKm:      &km,
		DurationMinutes: &minutes,
		Source:          EstimateSourceOptimizer,
	}, nil
}

// applyWaypointOrder reorders the intermediate stops while keeping both ends fixed.
// An empty index list keeps the received order.
func applyWaypointOrder(stops []domain.Stop, indices []int) ([]domain.Stop, error) {
	middle := stops[1 : len(stops)-1]
	ordered := make([]domain.Stop, 0, len(stops))
	ordered = append(ordered, stops[0])

	if len(indices) == 0 {
		ordered = append(ordered, middle...)
		ordered = append(ordered, stops[len(stops)-1])
		return ordered, nil
	}

	if len(indices) != len(middle) {
		return nil, fmt.Errorf("waypoint order has %d indices for %d intermediates", len(indices), len(middle))
	}

	seen := make([]bool, len(middle))
	for _, idx := range indices {
		if idx < 0 || idx >= len(middle) || seen[idx] {
			return nil, fmt.Errorf("waypoint order %v is not a permutation", indices)
		}
		seen[idx] = true
		ordered = append(ordered, middle[idx])
	}

	ordered = append(ordered, stops[len(stops)-1])
	return ordered, nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
