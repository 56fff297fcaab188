package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dkp_bot/internal/domain/service/reconcile"
)

const metricsNamespace = "dkp"

const (
	passStatusOK     = "ok"
	passStatusFailed = "failed"
	passStatusBusy   = "busy"
)

type Metrics struct {
	passes       *prometheus.CounterVec
	passDuration prometheus.Histogram
	transitions  *prometheus.CounterVec
	dealErrors   *prometheus.CounterVec
	lastSuccess  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sync_passes_total",
			Help:      "Sync passes by tenant and status.",
		}, []string{"tenant", "status"}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "sync_pass_duration_seconds",
			Help:      "Duration of a whole sync pass.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "deal_transitions_total",
			Help:      "Deals classified by a pass.",
		}, []string{"tenant", "transition"}),
		dealErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "deal_errors_total",
			Help:      "Deals skipped by a pass because of an error.",
		}, []string{"tenant"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sync_last_success_timestamp_seconds",
			Help:      "Time of the last pass without tenant failures.",
		}),
	}
}

func (m *Metrics) observe(report reconcile.Report) {
	if m == nil {
		return
	}

	for _, res := range report.Results {
		m.passes.WithLabelValues(res.Tenant, passStatusOK).Inc()
		m.dealErrors.WithLabelValues(res.Tenant).Add(float64(len(res.Errors)))

		for transition, n := range res.Counts() {
			m.transitions.WithLabelValues(res.Tenant, string(transition)).Add(float64(n))
		}
	}

	for _, f := range report.Failures {
		m.passes.WithLabelValues(f.Tenant, passStatusFailed).Inc()
	}

	m.passDuration.Observe(report.Duration.Seconds())

	if len(report.Failures) == 0 {
		m.lastSuccess.Set(float64(report.StartedAt.Add(report.Duration).Unix()))
	}
}

func (m *Metrics) busy() {
	if m == nil {
		return
	}
	m.passes.WithLabelValues("", passStatusBusy).Inc()
}
