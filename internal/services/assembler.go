package services

import (
	"delivery-route-engine/internal/domain"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultNavigationBaseURL = "https://www.google.com/maps/dir/"

// Assembler wraps ordered deliveries with the depot and finalizes a draft Route.
type Assembler struct {
	NavigationBaseURL string
	Now               func() time.Time
	NewID             func() string
}

func NewAssembler(navigationBaseURL string) *Assembler {
	if strings.TrimSpace(navigationBaseURL) == "" {
		navigationBaseURL = DefaultNavigationBaseURL
	}
	return &Assembler{
		NavigationBaseURL: navigationBaseURL,
		Now:               time.Now,
		NewID:             uuid.NewString,
	}
}

// Assemble prepends the depot start, appends the depot end, renumbers the
// sequence to 1..N+2 and copies the estimate totals. The estimate's
// delivery order is authoritative.
func (a *Assembler) Assemble(est *Estimate, depot domain.Depot, key domain.SchedulingKey) *domain.Route {
	stops := make([]domain.RouteStop, 0, len(est.Deliveries)+2)
	stops = append(stops, depot.StartStop())
	for _, s := range est.Deliveries {
		stops = append(stops, domain.RouteStop{Stop: s, Kind: domain.StopKindDelivery})
	}
	stops = append(stops, depot.EndStop())

	now := a.Now().UTC()
	route := &domain.Route{
		ID:               a.NewID(),
		SchedulingKey:    key,
		Status:           domain.RouteStatusDraft,
		Stops:            stops,
		TotalDistanceKm:  est.DistanceKm,
		EstimatedMinutes: est.DurationMinutes,
		MetricsSource:    est.Source,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	route.Renumber()
	route.NavigationURL = a.NavigationURL(route.Stops)

	return route
}

// NavigationURL concatenates stop addresses in sequence order into a directions link.
func (a *Assembler) NavigationURL(stops []domain.RouteStop) string {
	base := a.NavigationBaseURL
	if base == "" {
		base = DefaultNavigationBaseURL
	}

	parts := make([]string, 0, len(stops))
	for _, s := range stops {
		addr := strings.Join(strings.Fields(s.Address), " ")
		if addr == "" {
			continue
		}
		parts = append(parts, url.PathEscape(addr))
	}

	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}

// ApplyEstimate copies totals from an estimate onto an existing route without reordering it.
func ApplyEstimate(route *domain.Route, est *Estimate) {
	route.TotalDistanceKm = est.DistanceKm
	route.EstimatedMinutes = est.DurationMinutes
	route.MetricsSource = est.Source
}
