package services

import (
	"context"
	"delivery-route-engine/internal/domain"
	"fmt"
	"log"
)

// AssignDriver binds a driver to a draft or assigned route.
func (m *RouteMutator) AssignDriver(ctx context.Context, routeID, driverID string) (*domain.Route, error) {
	return m.transition(ctx, routeID, "assign driver", func(r *domain.Route) error {
		return r.AssignDriver(driverID)
	})
}

// UnassignDriver returns an assigned route to draft.
func (m *RouteMutator) UnassignDriver(ctx context.Context, routeID string) (*domain.Route, error) {
	return m.transition(ctx, routeID, "unassign driver", (*domain.Route).UnassignDriver)
}

func (m *RouteMutator) Publish(ctx context.Context, routeID string) (*domain.Route, error) {
	return m.transition(ctx, routeID, "publish", (*domain.Route).Publish)
}

func (m *RouteMutator) Unpublish(ctx context.Context, routeID string) (*domain.Route, error) {
	return m.transition(ctx, routeID, "unpublish", (*domain.Route).Unpublish)
}

func (m *RouteMutator) transition(ctx context.Context, routeID, op string, apply func(*domain.Route) error) (*domain.Route, error) {
	unlock := m.lock(routeID)
	defer unlock()

	route, err := m.Routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	from := route.Status
	if err := apply(route); err != nil {
		return nil, err
	}
	route.UpdatedAt = m.now()

	if err := m.Routes.SaveRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Printf("route status changed: route_id=%s from=%s to=%s", routeID, from, route.Status)
	return route, nil
}
