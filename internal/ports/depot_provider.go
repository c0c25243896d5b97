package ports

import (
	"context"
	"delivery-route-engine/internal/domain"
)

// Supplies the depot that bounds every generated route.
type DepotProvider interface {
	Depot(ctx context.Context) (domain.Depot, error)
}

// Configured work location, if any. A nil depot means none is configured.
type WorkLocationSource interface {
	WorkLocation(ctx context.Context) (*domain.Depot, error)
}
