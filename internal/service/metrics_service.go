package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the scheduling core.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	pairsPlaced     prometheus.Counter
	slotsSkipped    *prometheus.CounterVec
	daysPlanned     prometheus.Counter
	swapsExecuted   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_cache_hits_total",
		Help: "Total day-analysis cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_cache_misses_total",
		Help: "Total day-analysis cache misses",
	})

	pairsPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_pairs_placed_total",
		Help: "Total lesson-pairs placed by the generator and day builder",
	})

	slotsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_slots_skipped_total",
		Help: "Total slots skipped during placement, by reason",
	}, []string{"reason"})

	daysPlanned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_days_planned_total",
		Help: "Total day plans built",
	})

	swapsExecuted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_swaps_executed_total",
		Help: "Total executed swaps, by resource",
	}, []string{"resource"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, pairsPlaced, slotsSkipped, daysPlanned, swapsExecuted, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		pairsPlaced:     pairsPlaced,
		slotsSkipped:    slotsSkipped,
		daysPlanned:     daysPlanned,
		swapsExecuted:   swapsExecuted,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup counts a day-analysis cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordPairsPlaced counts placed lesson-pairs.
func (m *MetricsService) RecordPairsPlaced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pairsPlaced.Add(float64(n))
}

// RecordSlotSkipped counts one skipped slot with its reason label.
func (m *MetricsService) RecordSlotSkipped(reason string) {
	if m == nil {
		return
	}
	m.slotsSkipped.WithLabelValues(reason).Inc()
}

// RecordDayPlanned counts one built day plan.
func (m *MetricsService) RecordDayPlanned() {
	if m == nil {
		return
	}
	m.daysPlanned.Inc()
}

// RecordSwapExecuted counts one executed swap chain.
func (m *MetricsService) RecordSwapExecuted(resource string) {
	if m == nil {
		return
	}
	m.swapsExecuted.WithLabelValues(resource).Inc()
}
