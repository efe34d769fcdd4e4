// Package metrics exposes Prometheus collectors for the console, the HTTP
// layer and the activity export path.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"runpay/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "runpay"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	entries      *prometheus.CounterVec
	published    *prometheus.CounterVec
	exported     *prometheus.CounterVec
	rateLimited  prometheus.Counter
	suspicious   prometheus.Counter
	treasury     prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "entries_total",
			Help: "Activity log entries by kind and status.",
		}, []string{"kind", "status"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "export", Name: "published_total",
			Help: "Activity events handed to the broker, by result.",
		}, []string{"result"}),
		exported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "export", Name: "rows_total",
			Help: "Activity rows appended to the report sheet, by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests refused by the rate limiter.",
		}),
		suspicious: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "suspicious_total",
			Help: "Requests flagged by the security detector.",
		}),
		treasury: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "treasury_balance",
			Help: "Current treasury balance in dollars.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.entries, m.published,
		m.exported, m.rateLimited, m.suspicious, m.treasury,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RegisterDB exports connection pool stats for db.
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

func (m *Metrics) ObserveRequest(method string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveEntry counts e and tracks the treasury balance after it.
func (m *Metrics) ObserveEntry(e core.LogEntry, treasury float64) {
	m.entries.WithLabelValues(string(e.Kind), string(e.Status)).Inc()
	m.treasury.Set(treasury)
}

func (m *Metrics) ObservePublish(err error) {
	m.published.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveExport(rows int, err error) {
	m.exported.WithLabelValues(result(err)).Add(float64(rows))
}

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

func (m *Metrics) Suspicious() { m.suspicious.Inc() }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
