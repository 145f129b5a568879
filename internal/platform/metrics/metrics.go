package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the routing service.
// All methods are safe on a nil receiver.
type Metrics struct {
	RouteResolutions    *prometheus.CounterVec
	RouteLatency        prometheus.Histogram
	SequenceProposals   *prometheus.CounterVec
	InspectionsRecorded *prometheus.CounterVec
	HTTPLatency         *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RouteResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_route_resolutions_total",
			Help: "Resolved shipment routes by the policy that produced them",
		}, []string{"source"}), // sequence, computed, fallback_intermediate, fallback_endpoints

		RouteLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkpoint_route_resolve_duration_seconds",
			Help:    "Duration of route resolution including adapter reads",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		SequenceProposals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_sequence_proposals_total",
			Help: "Sequence change proposals by outcome",
		}, []string{"outcome"}), // accepted, rejected

		InspectionsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_inspections_recorded_total",
			Help: "Inspections appended to the ledger by stage and irregularity",
		}, []string{"stage", "irregular"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkpoint_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) IncrementRouteResolution(source string) {
	if m != nil {
		m.RouteResolutions.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) ObserveRouteLatency(d time.Duration) {
	if m != nil {
		m.RouteLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementProposal(outcome string) {
	if m != nil {
		m.SequenceProposals.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementInspection(stage string, irregular bool) {
	if m == nil {
		return
	}
	flag := "false"
	if irregular {
		flag = "true"
	}
	m.InspectionsRecorded.WithLabelValues(stage, flag).Inc()
}

func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(route, method, status).Observe(d.Seconds())
	}
}
