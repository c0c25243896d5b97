package domain

import (
	"errors"
	"testing"
)

func testRoute() *Route {
	depot := Depot{Address: "HUB", Coords: Coordinates{Lat: 33.48, Lon: -112.09}}
	a := Coordinates{Lat: 33.5, Lon: -112.0}

	r := &Route{
		ID:     "r1",
		Status: RouteStatusDraft,
		Stops: []RouteStop{
			depot.StartStop(),
			{Stop: Stop{ID: "s1", Address: "A", Coords: &a}, Kind: StopKindDelivery},
			{Stop: Stop{ID: "s2", Address: "B"}, Kind: StopKindDelivery},
			depot.EndStop(),
		},
	}
	r.Renumber()
	return r
}

func TestRouteRenumber(t *testing.T) {
	r := testRoute()
	r.Stops[0], r.Stops[1] = r.Stops[1], r.Stops[0]
	r.Renumber()

	for i, s := range r.Stops {
		if s.Sequence != i+1 {
			t.Fatalf("stop %s sequence = %d, want %d", s.ID, s.Sequence, i+1)
		}
	}
	if r.StopCount != 4 {
		t.Fatalf("stop count = %d, want 4", r.StopCount)
	}
}

func TestRouteHelpers(t *testing.T) {
	r := testRoute()

	if !r.DepotBounded() {
		t.Fatalf("expected route to be depot bounded")
	}
	if got := r.DeliveryCount(); got != 2 {
		t.Fatalf("delivery count = %d, want 2", got)
	}
	if got := r.IndexOf("s2"); got != 2 {
		t.Fatalf("IndexOf(s2) = %d, want 2", got)
	}
	if got := r.IndexOf("missing"); got != -1 {
		t.Fatalf("IndexOf(missing) = %d, want -1", got)
	}
	if r.AllStopsHaveCoords() {
		t.Fatalf("s2 has no coordinates, AllStopsHaveCoords should be false")
	}
}

func TestRouteCloneDoesNotAlias(t *testing.T) {
	r := testRoute()
	km := 12.5
	r.TotalDistanceKm = &km

	c := r.Clone()
	c.Stops[1].Coords.Lat = 0
	*c.TotalDistanceKm = 99

	if r.Stops[1].Coords.Lat != 33.5 {
		t.Errorf("clone shares coordinates with original")
	}
	if *r.TotalDistanceKm != 12.5 {
		t.Errorf("clone shares distance with original")
	}
}

func TestRouteLifecycle(t *testing.T) {
	r := testRoute()

	if err := r.Publish(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("publish from draft: err = %v, want ErrInvalidTransition", err)
	}
	if err := r.AssignDriver("d1"); err != nil {
		t.Fatalf("assign: unexpected error: %v", err)
	}
	if r.Status != RouteStatusAssigned || r.DriverID == nil || *r.DriverID != "d1" {
		t.Fatalf("after assign: status=%s driver=%v", r.Status, r.DriverID)
	}
	if err := r.Publish(); err != nil {
		t.Fatalf("publish: unexpected error: %v", err)
	}
	if err := r.AssignDriver("d2"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("assign while published: err = %v, want ErrInvalidTransition", err)
	}
	if err := r.Unpublish(); err != nil {
		t.Fatalf("unpublish: unexpected error: %v", err)
	}
	if r.Status != RouteStatusAssigned {
		t.Fatalf("after unpublish: status = %s, want assigned", r.Status)
	}
	if err := r.UnassignDriver(); err != nil {
		t.Fatalf("unassign: unexpected error: %v", err)
	}
	if r.Status != RouteStatusDraft || r.DriverID != nil {
		t.Fatalf("after unassign: status=%s driver=%v", r.Status, r.DriverID)
	}
	if err := r.AssignDriver(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("assign empty driver: err = %v, want ErrInvalidInput", err)
	}
}

func TestSchedulingKeyValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     SchedulingKey
		wantErr bool
	}{
		{"day only", SchedulingKey{DayOfWeek: "Monday"}, false},
		{"date only", SchedulingKey{Date: "2026-01-05"}, false},
		{"both", SchedulingKey{DayOfWeek: "monday", Date: "2026-01-05"}, false},
		{"empty", SchedulingKey{}, true},
		{"bad day", SchedulingKey{DayOfWeek: "someday"}, true},
		{"bad date", SchedulingKey{Date: "05/01/2026"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCoordinatesValid(t *testing.T) {
	if !(Coordinates{Lat: 45, Lon: 90}).Valid() {
		t.Errorf("expected valid coordinates")
	}
	if (Coordinates{Lat: 91, Lon: 0}).Valid() {
		t.Errorf("latitude 91 should be invalid")
	}
	var zero float64
	if (Coordinates{Lat: zero / zero, Lon: 0}).Valid() {
		t.Errorf("NaN latitude should be invalid")
	}
}
