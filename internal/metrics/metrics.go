// Package metrics exposes the bot's counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/crumbot/internal/resilience"
)

// Metrics holds every collector the loops report into. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	clicks        *prometheus.CounterVec
	purchases     *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	readFailures   *prometheus.CounterVec
	tooltipReads  *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	snapshotAge   prometheus.Gauge
	cookies       prometheus.Gauge
	rate          prometheus.Gauge
	cbState       *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crumbot_clicks_total",
			Help: "Clicks issued by target kind (main, bonus, building, upgrade).",
		}, []string{"kind"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crumbot_purchases_total",
			Help: "Purchases clicked by item name.",
		}, []string{"name"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crumbot_decisions_total",
			Help: "Buy decisions by source (upgrade, tooltip, catalog, stall, none, stale).",
		}, []string{"source"}),
		readFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crumbot_read_failures_total",
			Help: "Failed state reads by step.",
		}, []string{"step"}),
		tooltipReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crumbot_tooltip_reads_total",
			Help: "Tooltip hover reads by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crumbot_cycle_duration_seconds",
			Help:    "Loop iteration durations by loop.",
			Buckets: prometheus.DefBuckets,
		}, []string{"loop"}),
		snapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crumbot_snapshot_age_seconds",
			Help: "Age of the published game snapshot.",
		}),
		cookies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crumbot_cookies",
			Help: "Last observed cookie balance.",
		}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crumbot_cookies_per_second",
			Help: "Last observed production rate.",
		}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crumbot_cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
	}

	m.reg.MustRegister(
		m.clicks,
		m.purchases,
		m.decisions,
		m.readFailures,
		m.tooltipReads,
		m.cycleDuration,
		m.snapshotAge,
		m.cookies,
		m.rate,
		m.cbState,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Click(kind string)       { m.clicks.WithLabelValues(kind).Inc() }
func (m *Metrics) Purchase(name string)    { m.purchases.WithLabelValues(name).Inc() }
func (m *Metrics) Decision(source string)  { m.decisions.WithLabelValues(source).Inc() }
func (m *Metrics) ReadFailure(step string) { m.readFailures.WithLabelValues(step).Inc() }
func (m *Metrics) TooltipRead(ok bool)     { m.tooltipReads.WithLabelValues(outcome(ok)).Inc() }

// ObserveCycle records one loop iteration's duration.
func (m *Metrics) ObserveCycle(loop string, d time.Duration) {
	m.cycleDuration.WithLabelValues(loop).Observe(d.Seconds())
}

// WatchOCRCache exports the hash-skip hit total read from hits on scrape.
func (m *Metrics) WatchOCRCache(hits func() int) {
	m.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "crumbot_ocr_cache_hits_total",
		Help: "OCR calls skipped because the region hash was unchanged.",
	}, func() float64 { return float64(hits()) }))
}

// Snapshot records the balance, rate and age of the latest snapshot.
func (m *Metrics) Snapshot(cookies, rate, ageSeconds float64) {
	m.cookies.Set(cookies)
	m.rate.Set(rate)
	m.snapshotAge.Set(ageSeconds)
}

// BreakerHook returns a state-change hook suitable for resilience.Breaker.
func (m *Metrics) BreakerHook() func(name string, from, to resilience.State) {
	return func(name string, _, to resilience.State) {
		m.cbState.WithLabelValues(name).Set(float64(to))
	}
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "unreadable"
}
