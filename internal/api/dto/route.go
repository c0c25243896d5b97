package dto

import "time"

type StopRequest struct {
	ID           string   `json:"id"`
	Address      string   `json:"address"`
	CustomerName string   `json:"customer_name"`
	ServiceType  string   `json:"service_type"`
	Notes        string   `json:"notes"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
}

// GenerateRoutesRequest plans routes for a scheduling unit. When Stops is
// empty, the confirmed stops stored for the unit are used.
type GenerateRoutesRequest struct {
	DayOfWeek   string        `json:"day_of_week"`
	Date        string        `json:"date"`
	DriverCount int           `json:"driver_count"`
	Stops       []StopRequest `json:"stops"`
}

type ManualRouteRequest struct {
	DayOfWeek string        `json:"day_of_week"`
	Date      string        `json:"date"`
	Stops     []StopRequest `json:"stops"`
}

type ManualRoutesRequest struct {
	Routes []ManualRouteRequest `json:"routes"`
}

type ReorderStopsRequest struct {
	StopIDs []string `json:"stop_ids"`
}

type MoveStopRequest struct {
	ToRouteID string `json:"to_route_id"`
	Sequence  int    `json:"sequence"`
}

type AssignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

type RouteStopResponse struct {
	ID           string   `json:"id"`
	Kind         string   `json:"kind"`
	Sequence     int      `json:"sequence"`
	Address      string   `json:"address"`
	CustomerName string   `json:"customer_name"`
	ServiceType  string   `json:"service_type,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
}

type RouteResponse struct {
	ID               string              `json:"id"`
	DayOfWeek        string              `json:"day_of_week,omitempty"`
	Date             string              `json:"date,omitempty"`
	Status           string              `json:"status"`
	DriverID         *string             `json:"driver_id"`
	StopCount        int                 `json:"stop_count"`
	TotalDistanceKm  *float64            `json:"total_distance_km"`
	EstimatedMinutes *int                `json:"estimated_minutes"`
	MetricsSource    string              `json:"metrics_source"`
	NavigationURL    string              `json:"navigation_url"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Stops            []RouteStopResponse `json:"stops"`
}

type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
}

type MoveStopResponse struct {
	From RouteResponse `json:"from"`
	To   RouteResponse `json:"to"`
}
