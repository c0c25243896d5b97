package services

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/metrics"
	"delivery-route-engine/internal/platform/obs"
	"delivery-route-engine/internal/ports"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

// maxParallelClusters bounds concurrent per-cluster estimation (optimizer calls).
const maxParallelClusters = 4

// Grouping is a caller-chosen set of stops that becomes one manual route.
type Grouping struct {
	Stops []domain.Stop
	Key   domain.SchedulingKey
}

// RouteEngine turns confirmed stops into draft routes.
//
// Pipeline: geocode batcher -> geo clusterer -> nearest-neighbor orderer ->
// estimator chain (optimizer, haversine, service time) -> assembler.
type RouteEngine struct {
	Batcher    *GeocodeBatcher
	Estimators EstimatorChain
	Depots     ports.DepotProvider
	Routes     ports.RouteRepository
	Stops      ports.StopRepository
	Assembler  *Assembler
	Metrics    *metrics.Metrics
}

func NewRouteEngine(
	batcher *GeocodeBatcher,
	estimators EstimatorChain,
	depots ports.DepotProvider,
	routes ports.RouteRepository,
	stops ports.StopRepository,
	assembler *Assembler,
) (*RouteEngine, error) {
	if depots == nil {
		return nil, errors.New("new route engine: depot provider must be non-nil")
	}
	if routes == nil {
		return nil, errors.New("new route engine: route repository must be non-nil")
	}
	if assembler == nil {
		assembler = NewAssembler("")
	}
	if len(estimators) == 0 {
		estimators = MetricsOnlyChain()
	}

	return &RouteEngine{
		Batcher:    batcher,
		Estimators: estimators,
		Depots:     depots,
		Routes:     routes,
		Stops:      stops,
		Assembler:  assembler,
	}, nil
}

// GenerateRoutes partitions stops across driverCount drivers and persists one
// draft route per non-empty group.
//
// Stops that cannot be geocoded are excluded from clustering and spread
// with the contiguous chunk fallback over min(driverCount, len(stops))
// groups, the first of which extend the clusters; routes holding them
// carry no distance. When no stop has coordinates the whole set is
// chunked in input order.
func (e *RouteEngine) GenerateRoutes(
	ctx context.Context,
	stops []domain.Stop,
	driverCount int,
	key domain.SchedulingKey,
) (_ []*domain.Route, err error) {
	defer obs.Time(ctx, "engine.GenerateRoutes")(&err)

	if driverCount <= 0 {
		return nil, fmt.Errorf("generate routes: driver count must be positive, got %d: %w", driverCount, domain.ErrInvalidInput)
	}
	if len(stops) == 0 {
		return nil, fmt.Errorf("generate routes: no stops to route: %w", domain.ErrInvalidInput)
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("generate routes: %w", err)
	}
	if err := validateStopIDs(make(map[string]struct{}, len(stops)), stops); err != nil {
		return nil, fmt.Errorf("generate routes: %w", err)
	}
	key = key.Normalize()

	depot, err := e.Depots.Depot(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate routes: resolve depot: %w", err)
	}

	filled, err := e.geocode(ctx, stops)
	if err != nil {
		return nil, fmt.Errorf("generate routes: %w", err)
	}

	groups, err := partition(filled, driverCount)
	if err != nil {
		return nil, fmt.Errorf("generate routes: %w", err)
	}

	routes := e.assembleAll(ctx, groups, depot, key, e.Estimators)

	if err := e.saveAll(ctx, routes); err != nil {
		return nil, fmt.Errorf("generate routes: %w", err)
	}
	e.record("auto", routes)

	log.Printf("routes generated: day=%s date=%s stops=%d drivers=%d routes=%d",
		key.DayOfWeek, key.Date, len(stops), driverCount, len(routes))
	return routes, nil
}

// GenerateForKey loads the confirmed stops of a scheduling unit and generates routes for them.
func (e *RouteEngine) GenerateForKey(ctx context.Context, key domain.SchedulingKey, driverCount int) ([]*domain.Route, error) {
	if e.Stops == nil {
		return nil, errors.New("generate for key: stop repository is not configured")
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("generate for key: %w", err)
	}

	stops, err := e.Stops.ListConfirmedStops(ctx, key.Normalize())
	if err != nil {
		return nil, fmt.Errorf("generate for key: list confirmed stops: %w", err)
	}

	return e.GenerateRoutes(ctx, stops, driverCount, key)
}

// CreateManualRoutes builds one route per grouping in the caller's order.
// Clustering and ordering are bypassed; depot wrapping and distance/time
// estimation still apply.
func (e *RouteEngine) CreateManualRoutes(ctx context.Context, groupings []Grouping) (_ []*domain.Route, err error) {
	defer obs.Time(ctx, "engine.CreateManualRoutes")(&err)

	if len(groupings) == 0 {
		return nil, fmt.Errorf("create manual routes: no groupings given: %w", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{})
	for i, g := range groupings {
		if len(g.Stops) == 0 {
			return nil, fmt.Errorf("create manual routes: grouping #%d has no stops: %w", i+1, domain.ErrInvalidInput)
		}
		if err := g.Key.Validate(); err != nil {
			return nil, fmt.Errorf("create manual routes: grouping #%d: %w", i+1, err)
		}
		if err := validateStopIDs(seen, g.Stops); err != nil {
			return nil, fmt.Errorf("create manual routes: grouping #%d: %w", i+1, err)
		}
	}

	depot, err := e.Depots.Depot(ctx)
	if err != nil {
		return nil, fmt.Errorf("create manual routes: resolve depot: %w", err)
	}

	routes := make([]*domain.Route, 0, len(groupings))
	for _, g := range groupings {
		filled, err := e.geocode(ctx, g.Stops)
		if err != nil {
			return nil, fmt.Errorf("create manual routes: %w", err)
		}

		est := MetricsOnlyChain().Estimate(ctx, filled, depot)
		routes = append(routes, e.Assembler.Assemble(est, depot, g.Key.Normalize()))
	}

	if err := e.saveAll(ctx, routes); err != nil {
		return nil, fmt.Errorf("create manual routes: %w", err)
	}
	e.record("manual", routes)

	return routes, nil
}

func (e *RouteEngine) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	return e.Routes.GetRoute(ctx, id)
}

func (e *RouteEngine) ListRoutes(ctx context.Context, key domain.SchedulingKey) ([]*domain.Route, error) {
	return e.Routes.ListRoutes(ctx, key.Normalize())
}

// DeleteRoute removes a route in any lifecycle state.
func (e *RouteEngine) DeleteRoute(ctx context.Context, id string) error {
	if err := e.Routes.DeleteRoute(ctx, id); err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	log.Printf("route deleted: route_id=%s", id)
	return nil
}

// validateStopIDs requires every id to be non-empty, unused in seen and
// distinct from the depot ids. Route edits address stops by id only.
func validateStopIDs(seen map[string]struct{}, stops []domain.Stop) error {
	for i, s := range stops {
		switch s.ID {
		case "":
			return fmt.Errorf("stop #%d has no id: %w", i+1, domain.ErrInvalidInput)
		case domain.DepotStartID, domain.DepotEndID:
			return fmt.Errorf("stop id %q is reserved for the depot: %w", s.ID, domain.ErrInvalidInput)
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("stop id %q listed twice: %w", s.ID, domain.ErrInvalidInput)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// geocode fills missing coordinates and writes newly resolved ones back to
// the stop store. Write-back failures are logged only.
func (e *RouteEngine) geocode(ctx context.Context, stops []domain.Stop) ([]domain.Stop, error) {
	filled, err := e.Batcher.Fill(ctx, stops)
	if err != nil {
		return nil, fmt.Errorf("geocode stops: %w", err)
	}

	if e.Stops == nil {
		return filled, nil
	}

	resolved := make(map[string]domain.Coordinates)
	for i, s := range filled {
		if s.HasCoords() && !stops[i].HasCoords() && s.ID != "" {
			resolved[s.ID] = *s.Coords
		}
	}
	if len(resolved) > 0 {
		if err := e.Stops.UpdateCoordinates(ctx, resolved); err != nil {
			log.Printf("stop coordinate write-back failed: count=%d err=%v", len(resolved), err)
		}
	}

	return filled, nil
}

// partition splits stops into ordered per-driver groups.
func partition(stops []domain.Stop, k int) ([][]domain.Stop, error) {
	located := make([]domain.Stop, 0, len(stops))
	blind := make([]domain.Stop, 0)
	for _, s := range stops {
		if s.HasCoords() {
			located = append(located, s)
		} else {
			blind = append(blind, s)
		}
	}

	if len(located) == 0 {
		return ChunkStops(blind, k), nil
	}

	clusters, err := Cluster(located, k)
	if err != nil {
		return nil, fmt.Errorf("partition stops: %w", err)
	}

	groups := make([][]domain.Stop, len(clusters))
	for i, c := range clusters {
		groups[i] = NearestNeighborOrder(c)
	}

	// Unlocated stops may open groups of their own so that every driver
	// gets a route when there are enough stops.
	target := max(len(groups), min(k, len(stops)))
	for i, chunk := range ChunkStops(blind, target) {
		if i < len(groups) {
			groups[i] = append(groups[i], chunk...)
		} else {
			groups = append(groups, chunk)
		}
	}

	return groups, nil
}

// assembleAll estimates every group concurrently, then assembles them in group order.
func (e *RouteEngine) assembleAll(
	ctx context.Context,
	groups [][]domain.Stop,
	depot domain.Depot,
	key domain.SchedulingKey,
	chain EstimatorChain,
) []*domain.Route {
	estimates := make([]*Estimate, len(groups))

	var g errgroup.Group
	g.SetLimit(maxParallelClusters)
	for i, group := range groups {
		g.Go(func() error {
			estimates[i] = chain.Estimate(ctx, group, depot)
			return nil
		})
	}
	_ = g.Wait()

	routes := make([]*domain.Route, len(estimates))
	for i, est := range estimates {
		routes[i] = e.Assembler.Assemble(est, depot, key)
	}
	return routes
}

func (e *RouteEngine) saveAll(ctx context.Context, routes []*domain.Route) error {
	if bs, ok := e.Routes.(ports.RouteBatchSaver); ok {
		if err := bs.SaveRoutes(ctx, routes); err != nil {
			return fmt.Errorf("save routes: %w", err)
		}
		return nil
	}

	for _, r := range routes {
		if err := e.Routes.SaveRoute(ctx, r); err != nil {
			return fmt.Errorf("save route %s: %w", r.ID, err)
		}
	}
	return nil
}

func (e *RouteEngine) record(mode string, routes []*domain.Route) {
	e.Metrics.RecordRoutes(mode, len(routes))
	for _, r := range routes {
		e.Metrics.RecordEstimate(r.MetricsSource)
	}
}
