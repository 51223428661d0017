package handlers

import (
	"github.com/prometheus/client_golang/prometheus"

	"porthole/pkg/monitoring"
)

// Metrics holds the gateway's delivery counters. A nil *Metrics is
// valid and records nothing, which keeps handler tests free of global
// prometheus registry state.
type Metrics struct {
	heuristicRejections *prometheus.CounterVec
	rateLimitRejections *prometheus.CounterVec
	tokenFailures       *prometheus.CounterVec
	authFailures        prometheus.Counter
	fallbackRedirects   prometheus.Counter
	bytesStreamed       prometheus.Counter
	rangeRequests       *prometheus.CounterVec
	placeholdersServed  prometheus.Counter
	reportsForwarded    *prometheus.CounterVec
}

// NewMetrics registers the delivery counters on the collector's registry.
func NewMetrics(collector *monitoring.MetricsCollector) *Metrics {
	return &Metrics{
		heuristicRejections: collector.NewCounter(
			"heuristic_rejections_total",
			"Requests rejected by abuse heuristics",
			[]string{"check"},
		),
		rateLimitRejections: collector.NewCounter(
			"rate_limit_rejections_total",
			"Requests rejected by rate limiting",
			[]string{"route"},
		),
		tokenFailures: collector.NewCounter(
			"token_failures_total",
			"Access token validation failures",
			[]string{"reason"},
		),
		authFailures: collector.NewCounter(
			"auth_failures_total",
			"Requests with no usable session or token",
			nil,
		).WithLabelValues(),
		fallbackRedirects: collector.NewCounter(
			"origin_fallback_redirects_total",
			"Requests redirected to the origin server",
			nil,
		).WithLabelValues(),
		bytesStreamed: collector.NewCounter(
			"media_bytes_streamed_total",
			"Media payload bytes written to clients",
			nil,
		).WithLabelValues(),
		rangeRequests: collector.NewCounter(
			"range_requests_total",
			"Range header outcomes",
			[]string{"kind"},
		),
		placeholdersServed: collector.NewCounter(
			"thumbnail_placeholders_total",
			"Thumbnail requests answered with a generated placeholder",
			nil,
		).WithLabelValues(),
		reportsForwarded: collector.NewCounter(
			"abuse_reports_forwarded_total",
			"Abuse report forwarding outcomes",
			[]string{"status"},
		),
	}
}

func (m *Metrics) HeuristicRejected(check string) {
	if m == nil {
		return
	}
	m.heuristicRejections.WithLabelValues(check).Inc()
}

func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimitRejections.WithLabelValues(route).Inc()
}

func (m *Metrics) TokenFailed(reason string) {
	if m == nil {
		return
	}
	m.tokenFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) AuthFailed() {
	if m == nil {
		return
	}
	m.authFailures.Inc()
}

func (m *Metrics) FallbackRedirect() {
	if m == nil {
		return
	}
	m.fallbackRedirects.Inc()
}

func (m *Metrics) BytesStreamed(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesStreamed.Add(float64(n))
}

func (m *Metrics) RangeRequest(kind string) {
	if m == nil {
		return
	}
	m.rangeRequests.WithLabelValues(kind).Inc()
}

func (m *Metrics) PlaceholderServed() {
	if m == nil {
		return
	}
	m.placeholdersServed.Inc()
}

func (m *Metrics) ReportForwarded(status string) {
	if m == nil {
		return
	}
	m.reportsForwarded.WithLabelValues(status).Inc()
}
