package handlers

import (
	"context"
	"delivery-route-engine/internal/api/dto"
	"delivery-route-engine/internal/domain"
	"delivery-route-engine/internal/services"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type RoutePlanner interface {
	GenerateRoutes(ctx context.Context, stops []domain.Stop, driverCount int, key domain.SchedulingKey) ([]*domain.Route, error)
	GenerateForKey(ctx context.Context, key domain.SchedulingKey, driverCount int) ([]*domain.Route, error)
	CreateManualRoutes(ctx context.Context, groupings []services.Grouping) ([]*domain.Route, error)
	GetRoute(ctx context.Context, id string) (*domain.Route, error)
	ListRoutes(ctx context.Context, key domain.SchedulingKey) ([]*domain.Route, error)
	DeleteRoute(ctx context.Context, id string) error
}

type RouteEditor interface {
	ReorderStops(ctx context.Context, routeID string, newOrder []domain.RouteStop) (*domain.Route, error)
	MoveStop(ctx context.Context, stopID, fromRouteID, toRouteID string, newSequence int) (*domain.Route, *domain.Route, error)
	RefreshMetrics(ctx context.Context, routeID string) (*domain.Route, error)
	AssignDriver(ctx context.Context, routeID, driverID string) (*domain.Route, error)
	UnassignDriver(ctx context.Context, routeID string) (*domain.Route, error)
	Publish(ctx context.Context, routeID string) (*domain.Route, error)
	Unpublish(ctx context.Context, routeID string) (*domain.Route, error)
}

// RouteHandler serves route generation, editing and lifecycle endpoints.
type RouteHandler struct {
	Planner RoutePlanner
	Editor  RouteEditor
}

func (h *RouteHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateRoutesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	key := domain.SchedulingKey{DayOfWeek: req.DayOfWeek, Date: req.Date}

	var (
		routes []*domain.Route
		err    error
	)
	if len(req.Stops) == 0 {
		routes, err = h.Planner.GenerateForKey(r.Context(), key, req.DriverCount)
	} else {
		routes, err = h.Planner.GenerateRoutes(r.Context(), dto.StopsToDomain(req.Stops), req.DriverCount, key)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.NewListRoutesResponse(routes))
}

func (h *RouteHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req dto.ManualRoutesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	groupings := make([]services.Grouping, 0, len(req.Routes))
	for _, g := range req.Routes {
		groupings = append(groupings, services.Grouping{
			Stops: dto.StopsToDomain(g.Stops),
			Key:   domain.SchedulingKey{DayOfWeek: g.DayOfWeek, Date: g.Date},
		})
	}

	routes, err := h.Planner.CreateManualRoutes(r.Context(), groupings)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.NewListRoutesResponse(routes))
}

// List filters by ?day_of_week= and/or ?date=; at least one is required.
func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := domain.SchedulingKey{DayOfWeek: q.Get("day_of_week"), Date: q.Get("date")}
	if err := key.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	routes, err := h.Planner.ListRoutes(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewListRoutesResponse(routes))
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	route, err := h.Planner.GetRoute(r.Context(), chi.URLParam(r, "routeID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewRouteResponse(route))
}

func (h *RouteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Planner.DeleteRoute(r.Context(), chi.URLParam(r, "routeID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RouteHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req dto.ReorderStopsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order := make([]domain.RouteStop, 0, len(req.StopIDs))
	for _, id := range req.StopIDs {
		order = append(order, domain.RouteStop{Stop: domain.Stop{ID: id}})
	}

	route, err := h.Editor.ReorderStops(r.Context(), chi.URLParam(r, "routeID"), order)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewRouteResponse(route))
}

// Move relocates a stop. An empty to_route_id keeps the stop on its route.
func (h *RouteHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveStopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	fromID := chi.URLParam(r, "routeID")
	toID := req.ToRouteID
	if toID == "" {
		toID = fromID
	}

	from, to, err := h.Editor.MoveStop(r.Context(), chi.URLParam(r, "stopID"), fromID, toID, req.Sequence)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.MoveStopResponse{
		From: dto.NewRouteResponse(from),
		To:   dto.NewRouteResponse(to),
	})
}

func (h *RouteHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.respondRoute(w, r, h.Editor.RefreshMetrics)
}

func (h *RouteHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req dto.AssignDriverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.respondRoute(w, r, func(ctx context.Context, id string) (*domain.Route, error) {
		return h.Editor.AssignDriver(ctx, id, req.DriverID)
	})
}

func (h *RouteHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	h.respondRoute(w, r, h.Editor.UnassignDriver)
}

func (h *RouteHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.respondRoute(w, r, h.Editor.Publish)
}

func (h *RouteHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.respondRoute(w, r, h.Editor.Unpublish)
}

func (h *RouteHandler) respondRoute(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, routeID string) (*domain.Route, error),
) {
	route, err := op(r.Context(), chi.URLParam(r, "routeID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewRouteResponse(route))
}
