package ports

import (
	"context"
	"delivery-route-engine/internal/domain"
)

// Contract for resolving a postal address to coordinates.
type Geocoder interface {
	// Resolve returns nil coordinates (and a nil error) when the address is unknown.
	Resolve(ctx context.Context, address string) (*domain.Coordinates, error)
}

// Persistent address -> coordinates cache used in front of a Geocoder.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
