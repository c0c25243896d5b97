package domain

import (
	"fmt"
	"time"
)

type StopKind string

const (
	StopKindDelivery   StopKind = "delivery"
	StopKindDepotStart StopKind = "depot_start"
	StopKindDepotEnd   StopKind = "depot_end"
)

const (
	DepotStartID = "depot-start"
	DepotEndID   = "depot-end"
)

// Represents a single stop in a delivery route.
// A RouteStop is a copy of a Stop taken when the route was generated,
// annotated with its 1-based position in the visiting order.
type RouteStop struct {
	Stop
	Kind     StopKind
	Sequence int
}

func (rs RouteStop) IsDepot() bool {
	return rs.Kind == StopKindDepotStart || rs.Kind == StopKindDepotEnd
}

type RouteStatus string

const (
	RouteStatusDraft     RouteStatus = "draft"
	RouteStatusAssigned  RouteStatus = "assigned"
	RouteStatusPublished RouteStatus = "published"
)

// ParseRouteStatus maps a stored status string back to a RouteStatus.
func ParseRouteStatus(s string) (RouteStatus, error) {
	switch RouteStatus(s) {
	case RouteStatusDraft, RouteStatusAssigned, RouteStatusPublished:
		return RouteStatus(s), nil
	}
	return "", fmt.Errorf("parse route status %q: %w", s, ErrInvalidInput)
}

// Represents the planned delivery route for a single driver.
// Stops are always bounded by the depot: the first stop is the depot start,
// the last is the depot end, and sequence values run 1..len(Stops).
// TotalDistanceKm is nil whenever any stop lacks coordinates.
type Route struct {
	ID               string
	SchedulingKey    SchedulingKey
	Status           RouteStatus
	DriverID         *string
	Stops            []RouteStop
	StopCount        int
	TotalDistanceKm  *float64
	EstimatedMinutes *int
	MetricsSource    string
	NavigationURL    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Renumber rewrites every sequence to the contiguous range 1..N in slice order.
func (r *Route) Renumber() {
	for i := range r.Stops {
		r.Stops[i].Sequence = i + 1
	}
	r.StopCount = len(r.Stops)
}

// IndexOf returns the slice index of the stop with the given id, or -1.
func (r *Route) IndexOf(stopID string) int {
	for i, s := range r.Stops {
		if s.ID == stopID {
			return i
		}
	}
	return -1
}

// DeliveryCount returns the number of non-depot stops.
func (r *Route) DeliveryCount() int {
	n := 0
	for _, s := range r.Stops {
		if !s.IsDepot() {
			n++
		}
	}
	return n
}

// Deliveries returns the non-depot stops in sequence order.
func (r *Route) Deliveries() []Stop {
	out := make([]Stop, 0, len(r.Stops))
	for _, s := range r.Stops {
		if !s.IsDepot() {
			out = append(out, s.Stop)
		}
	}
	return out
}

func (r *Route) AllStopsHaveCoords() bool {
	for _, s := range r.Stops {
		if !s.HasCoords() {
			return false
		}
	}
	return true
}

// DepotBounded reports whether the route starts at the depot start and ends at the depot end.
func (r *Route) DepotBounded() bool {
	n := len(r.Stops)
	return n >= 2 && r.Stops[0].Kind == StopKindDepotStart && r.Stops[n-1].Kind == StopKindDepotEnd
}

// Clone returns a deep copy so callers can mutate stops without aliasing.
func (r *Route) Clone() *Route {
	if r == nil {
		return nil
	}

	c := *r
	c.Stops = make([]RouteStop, len(r.Stops))
	for i, s := range r.Stops {
		if s.Coords != nil {
			coords := *s.Coords
			s.Coords = &coords
		}
		c.Stops[i] = s
	}
	if r.DriverID != nil {
		id := *r.DriverID
		c.DriverID = &id
	}
	if r.TotalDistanceKm != nil {
		d := *r.TotalDistanceKm
		c.TotalDistanceKm = &d
	}
	if r.EstimatedMinutes != nil {
		m := *r.EstimatedMinutes
		c.EstimatedMinutes = &m
	}
	return &c
}

// AssignDriver binds a driver. Allowed from draft, or from assigned to rebind.
func (r *Route) AssignDriver(driverID string) error {
	if driverID == "" {
		return fmt.Errorf("assign driver: driver id must be non-empty: %w", ErrInvalidInput)
	}
	if r.Status != RouteStatusDraft && r.Status != RouteStatusAssigned {
		return fmt.Errorf("assign driver: route %s is %s: %w", r.ID, r.Status, ErrInvalidTransition)
	}
	r.DriverID = &driverID
	r.Status = RouteStatusAssigned
	return nil
}

func (r *Route) UnassignDriver() error {
	if r.Status != RouteStatusAssigned {
		return fmt.Errorf("unassign driver: route %s is %s: %w", r.ID, r.Status, ErrInvalidTransition)
	}
	r.DriverID = nil
	r.Status = RouteStatusDraft
	return nil
}

func (r *Route) Publish() error {
	if r.Status != RouteStatusAssigned {
		return fmt.Errorf("publish: route %s is %s: %w", r.ID, r.Status, ErrInvalidTransition)
	}
	r.Status = RouteStatusPublished
	return nil
}

func (r *Route) Unpublish() error {
	if r.Status != RouteStatusPublished {
		return fmt.Errorf("unpublish: route %s is %s: %w", r.ID, r.Status, ErrInvalidTransition)
	}
	r.Status = RouteStatusAssigned
	return nil
}
