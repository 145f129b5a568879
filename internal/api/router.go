package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"checkpoint-route-service/internal/api/handlers"
	"checkpoint-route-service/internal/platform/logger"
	"checkpoint-route-service/internal/platform/metrics"
)

// RouterDeps carries what the HTTP layer needs. Gatherer defaults to the
// Prometheus default registry.
type RouterDeps struct {
	Service  handlers.RoutingService
	Log      *logger.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	routes := &handlers.RouteHandler{Service: deps.Service, Log: log}
	sequences := &handlers.SequenceHandler{Service: deps.Service, Log: log}
	inspections := &handlers.InspectionHandler{Service: deps.Service, Log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(log, deps.Metrics))

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/shipments/{shipmentID}", func(r chi.Router) {
		r.Get("/route", routes.Get)
		r.Post("/inspections", inspections.Create)

		r.Route("/directions/{directionID}/sequence", func(r chi.Router) {
			r.Get("/", sequences.Get)
			r.Put("/", sequences.Put)
			r.Get("/can-modify", sequences.CanModify)
		})
	})

	return r
}
