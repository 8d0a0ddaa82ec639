package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DomainMetrics exposes business counters on a Prometheus registry.
// A nil *DomainMetrics is valid and records nothing.
type DomainMetrics struct {
	recommendationsCreated   prometheus.Counter
	recommendationRejections *prometheus.CounterVec
	statusTransitions        *prometheus.CounterVec
	identityResolutions      *prometheus.CounterVec
	attachmentsStored        prometheus.Counter
}

func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	m := &DomainMetrics{
		recommendationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "endorsement_recommendations_created_total",
			Help: "Recommendations accepted as pending",
		}),
		recommendationRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "endorsement_recommendation_rejections_total",
			Help: "Recommendation submissions refused by validation, by reason",
		}, []string{"reason"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "endorsement_recommendation_transitions_total",
			Help: "Moderation attempts by target status and outcome",
		}, []string{"status", "outcome"}),
		identityResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "endorsement_identity_resolutions_total",
			Help: "OAuth callbacks by resolution outcome",
		}, []string{"outcome"}),
		attachmentsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "endorsement_attachments_stored_total",
			Help: "Supporting documents stored",
		}),
	}
	reg.MustRegister(
		m.recommendationsCreated,
		m.recommendationRejections,
		m.statusTransitions,
		m.identityResolutions,
		m.attachmentsStored,
	)
	return m
}

// NewPrometheusRegistry returns a registry carrying the Go runtime and process collectors.
func NewPrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func PrometheusHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *DomainMetrics) RecommendationCreated() {
	if m == nil {
		return
	}
	m.recommendationsCreated.Inc()
}

func (m *DomainMetrics) RecommendationRejected(reason string) {
	if m == nil {
		return
	}
	m.recommendationRejections.WithLabelValues(reason).Inc()
}

func (m *DomainMetrics) StatusTransition(status, outcome string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status, outcome).Inc()
}

func (m *DomainMetrics) IdentityResolved(outcome string) {
	if m == nil {
		return
	}
	m.identityResolutions.WithLabelValues(outcome).Inc()
}

func (m *DomainMetrics) AttachmentStored() {
	if m == nil {
		return
	}
	m.attachmentsStored.Inc()
}
