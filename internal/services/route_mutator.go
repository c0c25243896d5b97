package services

import (
	"context"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/platform/obs"
	"delivery-route-engine/internal/ports"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sort"
	"sync"
	"time"
)

const routeLockStripes = 64

// RouteMutator applies user edits to persisted routes.
//
// Edits are read-modify-write against the repository. Concurrent edits to
// the same route are serialized inside this process only.
type RouteMutator struct {
	Routes    ports.RouteRepository
	Assembler *Assembler
	Metrics   EstimatorChain
	Now       func() time.Time

	locks [routeLockStripes]sync.Mutex
}

func NewRouteMutator(routes ports.RouteRepository, assembler *Assembler) (*RouteMutator, error) {
	if routes == nil {
		return nil, errors.New("new route mutator: route repository must be non-nil")
	}
	if assembler == nil {
		assembler = NewAssembler("")
	}
	return &RouteMutator{
		Routes:    routes,
		Assembler: assembler,
		Metrics:   MetricsOnlyChain(),
		Now:       time.Now,
	}, nil
}

// lock acquires the stripes of every given route id in ascending stripe
// order and returns the matching unlock.
func (m *RouteMutator) lock(ids ...string) func() {
	stripes := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		h := fnv.New32a()
		_, _ = h.Write([]byte(id))
		s := int(h.Sum32() % routeLockStripes)
		if !seen[s] {
			seen[s] = true
			stripes = append(stripes, s)
		}
	}
	sort.Ints(stripes)

	for _, s := range stripes {
		m.locks[s].Lock()
	}
	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			m.locks[stripes[i]].Unlock()
		}
	}
}

func (m *RouteMutator) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now().UTC()
}

// ReorderStops replaces the visiting order of a route.
//
// newOrder is matched to the route by stop id and must be a permutation of
// the route's stops, with the depot start first and the depot end last. A
// list of only the deliveries is also accepted and keeps the depot at both
// ends. Only the order is taken from newOrder; stop data comes from the
// stored route. Totals are left as they were; call RefreshMetrics to
// recompute them.
func (m *RouteMutator) ReorderStops(ctx context.Context, routeID string, newOrder []domain.RouteStop) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "mutator.ReorderStops")(&err)

	unlock := m.lock(routeID)
	defer unlock()

	route, err := m.Routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("reorder stops: %w", err)
	}

	ids := make([]string, len(newOrder))
	for i, s := range newOrder {
		ids[i] = s.ID
	}

	reordered, err := permuteStops(route, ids)
	if err != nil {
		return nil, fmt.Errorf("reorder stops: route %s: %w", routeID, err)
	}

	route.Stops = reordered
	route.Renumber()
	route.NavigationURL = m.Assembler.NavigationURL(route.Stops)
	route.UpdatedAt = m.now()

	if err := m.Routes.SaveRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("reorder stops: %w", err)
	}

	log.Printf("route reordered: route_id=%s stops=%d", routeID, len(route.Stops))
	return route, nil
}

func permuteStops(route *domain.Route, ids []string) ([]domain.RouteStop, error) {
	byID := make(map[string]domain.RouteStop, len(route.Stops))
	for _, s := range route.Stops {
		byID[s.ID] = s
	}

	bounded := route.DepotBounded()
	deliveriesOnly := bounded && len(ids) == len(route.Stops)-2

	if len(ids) != len(route.Stops) && !deliveriesOnly {
		return nil, fmt.Errorf("new order has %d stops, route has %d: %w", len(ids), len(route.Stops), domain.ErrInvalidInput)
	}

	out := make([]domain.RouteStop, 0, len(route.Stops))
	if deliveriesOnly {
		out = append(out, route.Stops[0])
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("stop %q is not on the route: %w", id, domain.ErrInvalidInput)
		}
		if seen[id] {
			return nil, fmt.Errorf("stop %q listed twice: %w", id, domain.ErrInvalidInput)
		}
		if deliveriesOnly && s.IsDepot() {
			return nil, fmt.Errorf("depot stop %q cannot be reordered: %w", id, domain.ErrInvalidInput)
		}
		seen[id] = true
		out = append(out, s)
	}

	if deliveriesOnly {
		out = append(out, route.Stops[len(route.Stops)-1])
	}

	if bounded {
		n := len(out)
		if out[0].Kind != domain.StopKindDepotStart || out[n-1].Kind != domain.StopKindDepotEnd {
			return nil, fmt.Errorf("depot stops must stay first and last: %w", domain.ErrInvalidInput)
		}
	}

	return out, nil
}

// MoveStop moves a delivery stop from one route to another, or to a new
// position on the same route when both ids match.
//
// newSequence is the 1-based target position. On a depot-bounded route it
// is clamped inside the depot stops, so a position past the end lands
// just before the depot end. Totals of every touched route are recomputed.
// For a same-route move from and to are the same route.
// Both routes are written atomically when the repository supports batch
// saves; otherwise the source is written first.
func (m *RouteMutator) MoveStop(
	ctx context.Context,
	stopID, fromRouteID, toRouteID string,
	newSequence int,
) (from, to *domain.Route, err error) {
	defer obs.Time(ctx, "mutator.MoveStop")(&err)

	if newSequence < 1 {
		return nil, nil, fmt.Errorf("move stop: sequence must be >= 1, got %d: %w", newSequence, domain.ErrInvalidInput)
	}

	unlock := m.lock(fromRouteID, toRouteID)
	defer unlock()

	from, err = m.Routes.GetRoute(ctx, fromRouteID)
	if err != nil {
		return nil, nil, fmt.Errorf("move stop: %w", err)
	}

	idx := from.IndexOf(stopID)
	if idx < 0 {
		return nil, nil, fmt.Errorf("move stop: stop %s on route %s: %w", stopID, fromRouteID, domain.ErrNotFound)
	}
	moved := from.Stops[idx]
	if moved.IsDepot() {
		return nil, nil, fmt.Errorf("move stop: depot stop %s cannot be moved: %w", stopID, domain.ErrInvalidInput)
	}

	to = from
	if toRouteID != fromRouteID {
		to, err = m.Routes.GetRoute(ctx, toRouteID)
		if err != nil {
			return nil, nil, fmt.Errorf("move stop: %w", err)
		}
	}

	from.Stops = append(from.Stops[:idx:idx], from.Stops[idx+1:]...)
	to.Stops = insertStop(to.Stops, moved, insertPosition(to, newSequence))

	touched := []*domain.Route{from}
	if to != from {
		touched = append(touched, to)
	}
	now := m.now()
	for _, r := range touched {
		r.Renumber()
		m.refresh(ctx, r)
		r.UpdatedAt = now
	}

	if err := m.saveTouched(ctx, touched); err != nil {
		return nil, nil, fmt.Errorf("move stop: %w", err)
	}

	log.Printf("stop moved: stop_id=%s from=%s to=%s sequence=%d",
		stopID, fromRouteID, toRouteID, newSequence)
	return from, to, nil
}

// insertPosition maps a 1-based sequence to a slice index on the target route.
func insertPosition(route *domain.Route, newSequence int) int {
	pos := min(newSequence-1, len(route.Stops))
	if route.DepotBounded() {
		pos = max(1, min(pos, len(route.Stops)-1))
	}
	return pos
}

func insertStop(stops []domain.RouteStop, s domain.RouteStop, pos int) []domain.RouteStop {
	out := make([]domain.RouteStop, 0, len(stops)+1)
	out = append(out, stops[:pos]...)
	out = append(out, s)
	return append(out, stops[pos:]...)
}

func (m *RouteMutator) saveTouched(ctx context.Context, routes []*domain.Route) error {
	if len(routes) == 1 {
		return m.Routes.SaveRoute(ctx, routes[0])
	}

	if bs, ok := m.Routes.(ports.RouteBatchSaver); ok {
		return bs.SaveRoutes(ctx, routes)
	}

	if err := m.Routes.SaveRoute(ctx, routes[0]); err != nil {
		return fmt.Errorf("save source route %s: %w", routes[0].ID, err)
	}
	if err := m.Routes.SaveRoute(ctx, routes[1]); err != nil {
		log.Printf("move left routes inconsistent: source=%s target=%s err=%v", routes[0].ID, routes[1].ID, err)
		return fmt.Errorf("save target route %s: %w", routes[1].ID, err)
	}
	return nil
}

// RefreshMetrics recomputes distance, time and the navigation link for the
// route's current order.
func (m *RouteMutator) RefreshMetrics(ctx context.Context, routeID string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "mutator.RefreshMetrics")(&err)

	unlock := m.lock(routeID)
	defer unlock()

	route, err := m.Routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("refresh metrics: %w", err)
	}

	m.refresh(ctx, route)
	route.UpdatedAt = m.now()

	if err := m.Routes.SaveRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("refresh metrics: %w", err)
	}
	return route, nil
}

// refresh recomputes totals using the route's own depot stops, so a changed
// depot configuration does not alter existing routes.
func (m *RouteMutator) refresh(ctx context.Context, route *domain.Route) {
	chain := m.Metrics
	if len(chain) == 0 {
		chain = MetricsOnlyChain()
	}

	// Distance needs every stop located; otherwise only service time applies.
	var depot domain.Depot
	if route.DepotBounded() && route.AllStopsHaveCoords() {
		depot = domain.Depot{Address: route.Stops[0].Address, Coords: *route.Stops[0].Coords}
	} else {
		chain = EstimatorChain{ServiceTimeEstimator{}}
	}

	ApplyEstimate(route, chain.Estimate(ctx, route.Deliveries(), depot))
	route.NavigationURL = m.Assembler.NavigationURL(route.Stops)
}
