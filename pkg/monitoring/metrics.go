package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// streamDurationBuckets extends the default buckets into the minutes
// range: a single media response can legitimately stream for as long as
// the video runs, and the default 10s ceiling would fold every playback
// into one bucket.
var streamDurationBuckets = []float64{
	.005, .025, .1, .5, 1, 2.5, 10, 30, 60, 300, 600,
}

// responseSizeBuckets spans thumbnail-sized payloads up to multi-GB
// streams.
var responseSizeBuckets = prometheus.ExponentialBuckets(1024, 8, 8)

// MetricsCollector owns the gateway's Prometheus instrumentation:
// per-route HTTP metrics plus a namespace for the delivery counters the
// handlers register.
type MetricsCollector struct {
	serviceName string

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseBytes   *prometheus.HistogramVec
	activeRequests      prometheus.Gauge
	serviceInfo         *prometheus.GaugeVec

	customMetrics map[string]prometheus.Collector
}

// NewMetricsCollector registers the standard HTTP metrics under the
// service's name (hyphens become underscores for Prometheus).
func NewMetricsCollector(serviceName, version, commit string) *MetricsCollector {
	name := strings.ReplaceAll(serviceName, "-", "_")

	mc := &MetricsCollector{
		serviceName:   name,
		customMetrics: make(map[string]prometheus.Collector),
	}

	mc.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	mc.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, including streaming time",
			Buckets: streamDurationBuckets,
		},
		[]string{"method", "endpoint"},
	)

	mc.httpResponseBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name + "_http_response_bytes",
			Help:    "HTTP response body size in bytes",
			Buckets: responseSizeBuckets,
		},
		[]string{"method", "endpoint"},
	)

	mc.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: name + "_active_requests",
			Help: "Number of requests currently in flight, streams included",
		},
	)

	mc.serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name + "_service_info",
			Help: "Service information",
		},
		[]string{"version", "commit"},
	)

	prometheus.MustRegister(mc.httpRequestsTotal)
	prometheus.MustRegister(mc.httpRequestDuration)
	prometheus.MustRegister(mc.httpResponseBytes)
	prometheus.MustRegister(mc.activeRequests)
	prometheus.MustRegister(mc.serviceInfo)

	mc.serviceInfo.WithLabelValues(version, commit).Set(1)

	return mc
}

// RegisterCustomMetric registers a metric on the default registry and
// remembers it under the given name.
func (mc *MetricsCollector) RegisterCustomMetric(name string, metric prometheus.Collector) {
	mc.customMetrics[name] = metric
	prometheus.MustRegister(metric)
}

// MetricsMiddleware records per-route request counts, durations, and
// response sizes. Durations cover the full streaming time, not just
// time-to-first-byte.
func (mc *MetricsCollector) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		mc.activeRequests.Inc()
		defer mc.activeRequests.Dec()

		c.Next()

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		mc.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		mc.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
		if size := c.Writer.Size(); size > 0 {
			mc.httpResponseBytes.WithLabelValues(method, endpoint).Observe(float64(size))
		}
	}
}

// Handler returns the Prometheus scrape handler.
func (mc *MetricsCollector) Handler() gin.HandlerFunc {
	handler := promhttp.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// NewCounter creates and registers a counter in the service namespace.
func (mc *MetricsCollector) NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_" + name,
			Help: help,
		},
		labels,
	)
	mc.RegisterCustomMetric(name, counter)
	return counter
}

// NewGauge creates and registers a gauge in the service namespace.
func (mc *MetricsCollector) NewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: mc.serviceName + "_" + name,
			Help: help,
		},
		labels,
	)
	mc.RegisterCustomMetric(name, gauge)
	return gauge
}

// NewHistogram creates and registers a histogram in the service
// namespace. Nil buckets fall back to the Prometheus defaults.
func (mc *MetricsCollector) NewHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    mc.serviceName + "_" + name,
			Help:    help,
			Buckets: buckets,
		},
		labels,
	)
	mc.RegisterCustomMetric(name, histogram)
	return histogram
}
