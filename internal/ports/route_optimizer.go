package ports

import (
	"context"
	"delivery-route-engine/internal/domain"
)

// Result of a waypoint-order optimization.
// OrderedIndices is a permutation of the intermediate waypoint indices.
type OptimizedPath struct {
	OrderedIndices  []int
	DistanceMeters  int
	DurationSeconds int
}

// Contract for a third-party service that reorders intermediate waypoints
// between a fixed origin and destination along the road network.
type RouteOptimizer interface {
	// Optimize returns nil when the service has no usable result.
	Optimize(
		ctx context.Context,
		origin domain.Coordinates,
		destination domain.Coordinates,
		intermediates []domain.Coordinates,
	) (*OptimizedPath, error)
}
