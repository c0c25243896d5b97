package services

import (
	"context"
	"delivery-route-engine/internal/domain"
	"errors"
	"fmt"
	"sort"
	"sync"
)

type staticDepot struct {
	depot domain.Depot
	err   error
}

func (s staticDepot) Depot(context.Context) (domain.Depot, error) {
	return s.depot, s.err
}

// memRoutes stores clones so callers never share state with the store.
type memRoutes struct {
	mu      sync.Mutex
	routes  map[string]*domain.Route
	saves   []string
	failing map[string]bool
}

func newMemRoutes() *memRoutes {
	return &memRoutes{routes: map[string]*domain.Route{}, failing: map[string]bool{}}
}

func (m *memRoutes) GetRoute(_ context.Context, id string) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	return r.Clone(), nil
}

func (m *memRoutes) ListRoutes(_ context.Context, key domain.SchedulingKey) ([]*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Route{}
	for _, r := range m.routes {
		if r.SchedulingKey == key {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRoutes) SaveRoute(_ context.Context, r *domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[r.ID] {
		return errors.New("disk full")
	}
	m.saves = append(m.saves, r.ID)
	m.routes[r.ID] = r.Clone()
	return nil
}

func (m *memRoutes) DeleteRoute(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[id]; !ok {
		return fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	delete(m.routes, id)
	return nil
}

// memBatchRoutes adds atomic multi-route writes.
type memBatchRoutes struct {
	*memRoutes
	batches int
}

func (m *memBatchRoutes) SaveRoutes(ctx context.Context, routes []*domain.Route) error {
	m.mu.Lock()
	for _, r := range routes {
		if m.failing[r.ID] {
			m.mu.Unlock()
			return errors.New("disk full")
		}
	}
	m.batches++
	m.mu.Unlock()

	for _, r := range routes {
		if err := m.SaveRoute(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

type memStops struct {
	mu      sync.Mutex
	stops   []domain.Stop
	updated map[string]domain.Coordinates
}

func (m *memStops) ListConfirmedStops(context.Context, domain.SchedulingKey) ([]domain.Stop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Stop(nil), m.stops...), nil
}

func (m *memStops) UpdateCoordinates(_ context.Context, coords map[string]domain.Coordinates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updated == nil {
		m.updated = map[string]domain.Coordinates{}
	}
	for id, c := range coords {
		m.updated[id] = c
	}
	return nil
}
