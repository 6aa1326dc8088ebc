package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments for the verify flow.
type Metrics struct {
	VerifyTotal        *prometheus.CounterVec
	CreditGrantsTotal  *prometheus.CounterVec
	OutboxGrantsTotal  *prometheus.CounterVec
	OutboxPendingGauge prometheus.Gauge
}

// Verify outcomes. Kept as a closed set so dashboards can enumerate them.
const (
	OutcomeActivated     = "activated"
	OutcomeAlreadyExists = "already_exists"
	OutcomeNotPaid       = "not_paid"
	OutcomeError         = "error"
)

func New() *Metrics {
	return &Metrics{
		VerifyTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "entitle_verify_total",
			Help: "Checkout verification requests by outcome.",
		}, []string{"outcome"}),
		CreditGrantsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "entitle_credit_grants_total",
			Help: "Synchronous credit grant attempts by result.",
		}, []string{"result"}),
		OutboxGrantsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "entitle_outbox_grants_total",
			Help: "Outbox credit grant retries by result.",
		}, []string{"result"}),
		OutboxPendingGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "entitle_outbox_pending",
			Help: "Credit grants currently waiting in the outbox.",
		}),
	}
}

func (m *Metrics) IncVerify(outcome string) {
	if m == nil {
		return
	}
	m.VerifyTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncCreditGrant(result string) {
	if m == nil {
		return
	}
	m.CreditGrantsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncOutboxGrant(result string) {
	if m == nil {
		return
	}
	m.OutboxGrantsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetOutboxPending(n int64) {
	if m == nil {
		return
	}
	m.OutboxPendingGauge.Set(float64(n))
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
