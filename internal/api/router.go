package api

import (
	"delivery-route-engine/internal/api/handlers"
	"delivery-route-engine/internal/platform/metrics"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(planner handlers.RoutePlanner, editor handlers.RouteEditor, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(loggingMiddleware(m), requestIDMiddleware)

	routes := &handlers.RouteHandler{Planner: planner, Editor: editor}

	r.Get("/health", handlers.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/routes", func(r chi.Router) {
		r.Get("/", routes.List)
		r.Post("/generate", routes.Generate)
		r.Post("/manual", routes.CreateManual)

		r.Route("/{routeID}", func(r chi.Router) {
			r.Get("/", routes.Get)
			r.Delete("/", routes.Delete)
			r.Put("/stops", routes.Reorder)
			r.Post("/stops/{stopID}/move", routes.Move)
			r.Post("/refresh", routes.Refresh)
			r.Post("/assign", routes.Assign)
			r.Post("/unassign", routes.Unassign)
			r.Post("/publish", routes.Publish)
			r.Post("/unpublish", routes.Unpublish)
		})
	})

	return r
}
