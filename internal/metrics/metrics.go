package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/telhawk-systems/keyhawk/internal/api"
)

// Collector records API client and dashboard server metrics. It implements
// api.Observer.
type Collector struct {
	// API call metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    prometheus.Counter
	RateLimited     prometheus.Counter
	Unauthorized    prometheus.Counter

	// Dashboard metrics
	StatsCache *prometheus.CounterVec
}

// New registers the collector's metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khawk_api_requests_total",
				Help: "Total number of licensing API calls by method and final status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "khawk_api_request_duration_seconds",
				Help:    "Duration of licensing API calls including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "khawk_api_retries_total",
				Help: "Total number of retries after rate-limited responses",
			},
		),
		RateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "khawk_api_rate_limited_total",
				Help: "Total number of calls that failed after exhausting rate-limit retries",
			},
		),
		Unauthorized: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "khawk_api_unauthorized_total",
				Help: "Total number of calls rejected with 401",
			},
		),
		StatsCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "khawk_dashboard_stats_cache_total",
				Help: "Dashboard stats lookups by cache result",
			},
			[]string{"result"},
		),
	}
}

// ObserveCall implements api.Observer.
func (c *Collector) ObserveCall(_ context.Context, info api.CallInfo) {
	status := "error"
	if info.StatusCode != 0 {
		status = strconv.Itoa(info.StatusCode)
	}

	c.RequestsTotal.WithLabelValues(info.Method, status).Inc()
	c.RequestDuration.WithLabelValues(info.Method).Observe(info.Duration.Seconds())
	if n := info.Retries(); n > 0 {
		c.RetriesTotal.Add(float64(n))
	}

	switch info.StatusCode {
	case 429:
		c.RateLimited.Inc()
	case 401:
		c.Unauthorized.Inc()
	}
}

// CacheHit records a dashboard stats cache hit.
func (c *Collector) CacheHit() {
	c.StatsCache.WithLabelValues("hit").Inc()
}

// CacheMiss records a dashboard stats cache miss.
func (c *Collector) CacheMiss() {
	c.StatsCache.WithLabelValues("miss").Inc()
}
