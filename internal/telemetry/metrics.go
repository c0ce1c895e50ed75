// package telemetry exposes prometheus counters for caches, upstream calls, rate limiting, and matching.
//
// A nil *Metrics is valid and records nothing, so components can take one optionally.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "setlistx"

// Metrics holds the registered collectors.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookups       *prometheus.CounterVec
	upstreamRequests   *prometheus.CounterVec
	upstreamRetries    *prometheus.CounterVec
	rateLimitRejection *prometheus.CounterVec
	matchResults       *prometheus.CounterVec
	tokenMints         *prometheus.CounterVec
}

// New creates a private registry with process and Go collectors plus the setlistx counters.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache name and result (hit or miss).",
		}, []string{"cache", "result"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound requests by upstream and HTTP status.",
		}, []string{"upstream", "status"}),
		upstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Retries after an upstream rate-limit response.",
		}, []string{"upstream"}),
		rateLimitRejection: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_rejections_total",
			Help:      "Inbound requests rejected by the fixed-window limiter.",
		}, []string{"route"}),
		matchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_results_total",
			Help:      "Per-entry catalog search outcomes during matching.",
		}, []string{"outcome"}),
		tokenMints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_mints_total",
			Help:      "Developer token mint attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.cacheLookups,
		m.upstreamRequests,
		m.upstreamRetries,
		m.rateLimitRejection,
		m.matchResults,
		m.tokenMints,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CacheLookup records a hit or miss for the named cache.
func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

// UpstreamRequest records one completed outbound request.
func (m *Metrics) UpstreamRequest(upstream string, status int) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(upstream, strconv.Itoa(status)).Inc()
}

// UpstreamRetry records a retry after a 429.
func (m *Metrics) UpstreamRetry(upstream string) {
	if m == nil {
		return
	}
	m.upstreamRetries.WithLabelValues(upstream).Inc()
}

// RateLimited records an inbound rejection.
func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimitRejection.WithLabelValues(route).Inc()
}

// MatchResult records a per-entry matching outcome: matched, unmatched, skipped, or error.
func (m *Metrics) MatchResult(outcome string) {
	if m == nil {
		return
	}
	m.matchResults.WithLabelValues(outcome).Inc()
}

// TokenMint records a mint attempt.
func (m *Metrics) TokenMint(ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.tokenMints.WithLabelValues(result).Inc()
}
