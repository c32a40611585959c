// Package metrics wires the pipeline's counters into Prometheus for HTTP
// scraping, alongside the plain atomics that remain the source of truth
// printed at shutdown (§6.3).
//
// Grounded on pkg/metrics/lux_metrics.go: a namespaced prometheus.Registry,
// one counter/gauge/histogram per signal, exposed via promhttp.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics exposes the pipeline's four stage counters, per-queue
// depth gauges and match latency as Prometheus instruments.
type PipelineMetrics struct {
	namespace string
	registry  *prometheus.Registry
	logger    log.Logger

	ordersGenerated prometheus.Counter
	ordersParsed    prometheus.Counter
	ordersMatched   prometheus.Counter
	tradesLogged    prometheus.Counter
	logDropped      prometheus.Counter

	queueDepth      prometheus.GaugeVec
	matchLatencyNs  prometheus.Histogram
	goroutineCount  prometheus.Gauge
}

// New creates and registers the pipeline's Prometheus instruments under
// namespace (typically "hft").
func New(namespace string, logger log.Logger) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	m := &PipelineMetrics{
		namespace: namespace,
		registry:  registry,
		logger:    logger,

		ordersGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_generated_total",
			Help:      "Total synthetic order requests generated",
		}),
		ordersParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_parsed_total",
			Help:      "Total wire frames successfully parsed",
		}),
		ordersMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_matched_total",
			Help:      "Total order requests processed by the matching engine",
		}),
		tradesLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_logged_total",
			Help:      "Total trade events handed to the trade log sink, including any its Drop policy discarded",
		}),
		logDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_entries_dropped_total",
			Help:      "Total log entries dropped by the Drop overflow policy",
		}),
		queueDepth: *prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current SPSC queue occupancy by stage boundary",
		}, []string{"queue"}),
		matchLatencyNs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_latency_nanoseconds",
			Help:      "Time from request dequeue to trade emission",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000},
		}),
		goroutineCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines_count",
			Help:      "Current number of goroutines",
		}),
	}

	registry.MustRegister(
		m.ordersGenerated,
		m.ordersParsed,
		m.ordersMatched,
		m.tradesLogged,
		m.logDropped,
		&m.queueDepth,
		m.matchLatencyNs,
		m.goroutineCount,
	)

	return m
}

func (m *PipelineMetrics) RecordGenerated() { m.ordersGenerated.Inc() }
func (m *PipelineMetrics) RecordParsed()    { m.ordersParsed.Inc() }
func (m *PipelineMetrics) RecordMatched()   { m.ordersMatched.Inc() }
func (m *PipelineMetrics) RecordLogged()    { m.tradesLogged.Inc() }
func (m *PipelineMetrics) RecordDropped()   { m.logDropped.Inc() }

func (m *PipelineMetrics) RecordMatchLatency(ns float64) { m.matchLatencyNs.Observe(ns) }

// OrdersGeneratedCounter exposes the underlying Prometheus counter for
// tests that assert against it directly via testutil.
func (m *PipelineMetrics) OrdersGeneratedCounter() prometheus.Counter { return m.ordersGenerated }

func (m *PipelineMetrics) SetQueueDepth(queue string, depth float64) {
	m.queueDepth.WithLabelValues(queue).Set(depth)
}

// Serve starts the /metrics HTTP endpoint in a background goroutine.
func (m *PipelineMetrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server failed", "error", err)
		}
	}()

	m.logger.Info("prometheus metrics available", "endpoint", "http://"+addr+"/metrics")
}

// CollectRuntimeStats starts a background goroutine updating the
// goroutine-count gauge every interval, matching pkg/metrics/lux_metrics.go's
// CollectSystemMetrics loop.
func (m *PipelineMetrics) CollectRuntimeStats(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.goroutineCount.Set(float64(runtime.NumGoroutine()))
			}
		}
	}()
}
