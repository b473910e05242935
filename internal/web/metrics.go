package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/txrecover/internal/core"
)

// Metrics holds the server's Prometheus collectors. Each Server owns its
// registry so tests can build several servers in one process.
type Metrics struct {
	registry     *prometheus.Registry
	analyses     *prometheus.CounterVec
	rows         prometheus.Counter
	transactions prometheus.Counter
	rejections   prometheus.Counter
	duration     prometheus.Histogram
}

// NewMetrics registers the collectors. limiter feeds the active/available gauges.
func NewMetrics(limiter *core.AnalysisLimiter) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txrecover",
			Name:      "analyses_total",
			Help:      "Analyses by outcome (ok, rejected, busy, error).",
		}, []string{"outcome"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txrecover",
			Name:      "rows_total",
			Help:      "Export rows read.",
		}),
		transactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txrecover",
			Name:      "transactions_total",
			Help:      "Transactions recovered.",
		}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txrecover",
			Name:      "rejections_total",
			Help:      "Groups or rows that could not be recovered.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txrecover",
			Name:      "analysis_duration_seconds",
			Help:      "Time to parse one export.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	reg.MustRegister(m.analyses, m.rows, m.transactions, m.rejections, m.duration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "txrecover",
			Name:      "analyses_active",
			Help:      "Analyses currently holding a limiter slot.",
		}, func() float64 { return float64(limiter.ActiveCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "txrecover",
			Name:      "analyses_available",
			Help:      "Free limiter slots.",
		}, func() float64 { return float64(limiter.Available()) }),
	)
	return m
}

// ObserveAnalysis records a successful analysis.
func (m *Metrics) ObserveAnalysis(result *core.ParseResult) {
	m.analyses.WithLabelValues("ok").Inc()
	m.rows.Add(float64(result.Rows))
	m.transactions.Add(float64(len(result.Transactions)))
	m.rejections.Add(float64(result.Rejected))
	m.duration.Observe(result.Duration.Seconds())
}

// ObserveFailure records an analysis that produced no report.
func (m *Metrics) ObserveFailure(outcome string) {
	m.analyses.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
