package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the monitor loop and the status API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cycleDuration   prometheus.Observer
	cycleTotal      *prometheus.CounterVec
	sensorFetch     *prometheus.CounterVec
	sensorCO2       prometheus.Gauge
	statusTotal     *prometheus.CounterVec
	publishTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheHitRatio   prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
	lastCycleUnix  int64
}

// NewMetricsService registers the collectors on a private registry.
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

	cycleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "monitor_cycle_duration_seconds",
		Help:    "Duration of one classification cycle",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	cycleTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_cycles_total",
		Help: "Classification cycles by outcome",
	}, []string{"outcome"})

	sensorFetch := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sensor_fetch_total",
		Help: "CO2 feed fetches by outcome",
	}, []string{"outcome"})

	sensorCO2 := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sensor_co2_ppm",
		Help: "Latest averaged CO2 concentration for the tracked room",
	})

	statusTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "usage_status_total",
		Help: "Published usage verdicts by status",
	}, []string{"status"})

	publishTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "status_publish_total",
		Help: "Status publications by publisher and outcome",
	}, []string{"publisher", "outcome"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cycleDuration, cycleTotal, sensorFetch, sensorCO2,
		statusTotal, publishTotal, cacheHits, cacheMisses, cacheHitRatio, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cycleDuration:   cycleDuration,
		cycleTotal:      cycleTotal,
		sensorFetch:     sensorFetch,
		sensorCO2:       sensorCO2,
		statusTotal:     statusTotal,
		publishTotal:    publishTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		cacheHitRatio:   cacheHitRatio,
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

// Registry exposes the underlying registry, mostly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveCycle records the outcome of one classification cycle.
func (m *MetricsService) ObserveCycle(err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	} else {
		atomic.StoreInt64(&m.lastCycleUnix, time.Now().Unix())
	}
	m.cycleDuration.Observe(duration.Seconds())
	m.cycleTotal.WithLabelValues(outcome).Inc()
}

// LastSuccessfulCycle returns when a cycle last completed, or the zero time.
func (m *MetricsService) LastSuccessfulCycle() time.Time {
	if m == nil {
		return time.Time{}
	}
	unix := atomic.LoadInt64(&m.lastCycleUnix)
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

// ObserveSensor records a feed outcome and the latest average when present.
func (m *MetricsService) ObserveSensor(outcome string, reading models.SensorReading) {
	if m == nil {
		return
	}
	m.sensorFetch.WithLabelValues(outcome).Inc()
	if avg, ok := reading.Value(); ok {
		m.sensorCO2.Set(avg)
	}
}

// ObserveStatus counts a published verdict.
func (m *MetricsService) ObserveStatus(status models.UsageStatus) {
	if m == nil {
		return
	}
	m.statusTotal.WithLabelValues(status.Code()).Inc()
}

// ObservePublish counts a publisher attempt.
func (m *MetricsService) ObservePublish(publisher string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.publishTotal.WithLabelValues(publisher, outcome).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}
