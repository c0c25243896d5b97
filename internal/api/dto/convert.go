package dto

import "delivery-route-engine/internal/domain"

func (s StopRequest) ToDomain() domain.Stop {
	stop := domain.Stop{
		ID:           s.ID,
		Address:      s.Address,
		CustomerName: s.CustomerName,
		ServiceType:  s.ServiceType,
		Notes:        s.Notes,
	}
	if s.Lat != nil && s.Lon != nil {
		stop.Coords = &domain.Coordinates{Lat: *s.Lat, Lon: *s.Lon}
	}
	return stop
}

func StopsToDomain(in []StopRequest) []domain.Stop {
	out := make([]domain.Stop, 0, len(in))
	for _, s := range in {
		out = append(out, s.ToDomain())
	}
	return out
}

func NewRouteResponse(r *domain.Route) RouteResponse {
	res := RouteResponse{
		ID:               r.ID,
		DayOfWeek:        r.SchedulingKey.DayOfWeek,
		Date:             r.SchedulingKey.Date,
		Status:           string(r.Status),
		DriverID:         r.DriverID,
		StopCount:        r.StopCount,
		TotalDistanceKm:  r.TotalDistanceKm,
		EstimatedMinutes: r.EstimatedMinutes,
		MetricsSource:    r.MetricsSource,
		NavigationURL:    r.NavigationURL,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Stops:            make([]RouteStopResponse, 0, len(r.Stops)),
	}
	for _, s := range r.Stops {
		rs := RouteStopResponse{
			ID:           s.ID,
			Kind:         string(s.Kind),
			Sequence:     s.Sequence,
			Address:      s.Address,
			CustomerName: s.CustomerName,
			ServiceType:  s.ServiceType,
			Notes:        s.Notes,
		}
		if s.Coords != nil {
			lat, lon := s.Coords.Lat, s.Coords.Lon
			rs.Lat, rs.Lon = &lat, &lon
		}
		res.Stops = append(res.Stops, rs)
	}
	return res
}

func NewListRoutesResponse(routes []*domain.Route) ListRoutesResponse {
	res := ListRoutesResponse{Routes: make([]RouteResponse, 0, len(routes))}
	for _, r := range routes {
		res.Routes = append(res.Routes, NewRouteResponse(r))
	}
	return res
}
