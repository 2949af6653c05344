package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Redemption outcomes.
const (
	OutcomeValid    = "valid"
	OutcomeRejected = "rejected"
)

// Metrics records service counters on a prometheus registerer. A nil
// *Metrics is a valid no-op recorder.
type Metrics struct {
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	linksIssued    prometheus.Counter
	redemptions    *prometheus.CounterVec
	productsSynced *prometheus.CounterVec
}

// NewMetrics registers the service metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		linksIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "product_links_issued_total",
			Help: "Product view links issued.",
		}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "product_link_redemptions_total",
			Help: "Product view link redemptions by outcome.",
		}, []string{"outcome"}),
		productsSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "products_synced_total",
			Help: "Products pulled from the CRM by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.latency, m.errors, m.linksIssued, m.redemptions, m.productsSynced)
	}
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(normalizeLabel(route), method, code).Inc()
}

// RecordLinkIssued counts a minted view link.
func (m *Metrics) RecordLinkIssued() {
	if m == nil {
		return
	}
	m.linksIssued.Inc()
}

// RecordRedemption counts a redemption attempt by outcome.
func (m *Metrics) RecordRedemption(outcome string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(outcome).Inc()
}

// RecordSync counts products created and updated by a CRM sync.
func (m *Metrics) RecordSync(created, updated int) {
	if m == nil {
		return
	}
	m.productsSynced.WithLabelValues("created").Add(float64(created))
	m.productsSynced.WithLabelValues("updated").Add(float64(updated))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
