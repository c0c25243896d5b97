package ports

import (
	"context"
	"delivery-route-engine/internal/domain"
)

// Port: a boundary for reading and writing Route aggregates.
// GetRoute and DeleteRoute return an error wrapping domain.ErrNotFound for unknown ids.
type RouteRepository interface {
	GetRoute(ctx context.Context, id string) (*domain.Route, error)
	ListRoutes(ctx context.Context, key domain.SchedulingKey) ([]*domain.Route, error)
	// SaveRoute inserts or fully replaces a route and its stop list.
	SaveRoute(ctx context.Context, route *domain.Route) error
	DeleteRoute(ctx context.Context, id string) error
}

// Optional extension of RouteRepository that writes several routes atomically.
type RouteBatchSaver interface {
	RouteRepository
	SaveRoutes(ctx context.Context, routes []*domain.Route) error
}

// Port: a boundary for retrieving confirmed stops for a scheduling unit.
type StopRepository interface {
	ListConfirmedStops(ctx context.Context, key domain.SchedulingKey) ([]domain.Stop, error)
	// UpdateCoordinates persists coordinates resolved by geocoding.
	UpdateCoordinates(ctx context.Context, coords map[string]domain.Coordinates) error
}
