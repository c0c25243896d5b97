package services

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/ports"
	"math"
	"time"
)

const (
	EstimateSourceOptimizer   = "optimizer"
	EstimateSourceHaversine   = "haversine"
	EstimateSourceServiceTime = "service_time"
)

const (
	averageSpeedKmh            = 40.0
	serviceMinutesPerStop      = 5
	fallbackMinutesPerDelivery = 15
)

// Estimate is the uniform result of every estimation strategy: the delivery
// order to use plus optional distance and duration totals.
type Estimate struct {
	Deliveries      []domain.Stop
	DistanceKm      *float64
	DurationMinutes *int
	Source          string
}

// Estimator is one strategy in the degradation chain.
// It returns false when it cannot produce a result for the given stops.
type Estimator interface {
	Estimate(ctx context.Context, deliveries []domain.Stop, depot domain.Depot) (*Estimate, bool)
}

// EstimatorChain tries each strategy in order and returns the first result.
// It always answers: when every strategy declines, the service-time
// fallback is used.
type EstimatorChain []Estimator

func (c EstimatorChain) Estimate(ctx context.Context, deliveries []domain.Stop, depot domain.Depot) *Estimate {
	for _, e := range c {
		if est, ok := e.Estimate(ctx, deliveries, depot); ok {
			return est
		}
	}
	est, _ := ServiceTimeEstimator{}.Estimate(ctx, deliveries, depot)
	return est
}

// NewEstimatorChain builds optimizer -> haversine -> service time.
// A nil optimizer leaves the first strategy out.
func NewEstimatorChain(optimizer ports.RouteOptimizer, timeout time.Duration) EstimatorChain {
	chain := EstimatorChain{}
	if optimizer != nil {
		chain = append(chain, OptimizerEstimator{Optimizer: optimizer, Timeout: timeout})
	}
	return append(chain, HaversineEstimator{}, ServiceTimeEstimator{})
}

// MetricsOnlyChain never reorders stops; it backs refreshes after user edits.
func MetricsOnlyChain() EstimatorChain {
	return EstimatorChain{HaversineEstimator{}, ServiceTimeEstimator{}}
}

// OptimizerEstimator delegates to the external optimizer. Its totals cover
// the delivery path only and are used verbatim because they reflect road
// travel.
type OptimizerEstimator struct {
	Optimizer ports.RouteOptimizer
	Timeout   time.Duration
}

func (e OptimizerEstimator) Estimate(ctx context.Context, deliveries []domain.Stop, _ domain.Depot) (*Estimate, bool) {
	return OptimizePath(ctx, e.Optimizer, deliveries, e.Timeout)
}

// HaversineEstimator sums great-circle legs depot -> deliveries -> depot and
// converts them to minutes at a fixed average speed plus per-stop service time.
type HaversineEstimator struct{}

func (HaversineEstimator) Estimate(_ context.Context, deliveries []domain.Stop, depot domain.Depot) (*Estimate, bool) {
	if !depot.Coords.Valid() {
		return nil, false
	}

	points := make([]domain.Coordinates, 0, len(deliveries)+2)
	points = append(points, depot.Coords)
	for _, s := range deliveries {
		if !s.HasCoords() {
			return nil, false
		}
		points = append(points, *s.Coords)
	}
	points = append(points, depot.Coords)

	km := roundTenth(PathDistance(points) / 1000)
	minutes := int(math.Round(km/averageSpeedKmh*60)) + serviceMinutesPerStop*len(deliveries)

	return &Estimate{
		Deliveries:      deliveries,
		DistanceKm:      &km,
		DurationMinutes: &minutes,
		Source:          EstimateSourceHaversine,
	}, true
}

// ServiceTimeEstimator is the last resort when coordinates are missing:
// distance stays unknown and time is a flat allowance per delivery.
type ServiceTimeEstimator struct{}

func (ServiceTimeEstimator) Estimate(_ context.Context, deliveries []domain.Stop, _ domain.Depot) (*Estimate, bool) {
	minutes := fallbackMinutesPerDelivery * len(deliveries)
	return &Estimate{
		Deliveries:      deliveries,
		DurationMinutes: &minutes,
		Source:          EstimateSourceServiceTime,
	}, true
}
