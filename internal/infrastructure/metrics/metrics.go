package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SettlementMetrics holds the collectors for rule evaluation, execution and FX quoting.
// All Record* methods are safe on a nil receiver.
type SettlementMetrics struct {
	// Evaluation
	EvaluationsTotal    *prometheus.CounterVec
	RulesTriggeredTotal *prometheus.CounterVec

	// Executions
	ExecutionTransitionsTotal *prometheus.CounterVec
	ExecutionAmountTotal      *prometheus.CounterVec
	DispatchDuration          *prometheus.HistogramVec

	// FX
	QuotesTotal      *prometheus.CounterVec
	QuoteLocksTotal  *prometheus.CounterVec
	RateRefreshTotal *prometheus.CounterVec
	QuoteFeeTotal    *prometheus.CounterVec

	// Errors
	ErrorsTotal *prometheus.CounterVec
}

// NewSettlementMetrics registers collectors on reg; nil means the default registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &SettlementMetrics{
		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_evaluations_total",
				Help: "Trigger evaluations by outcome",
			},
			[]string{"tenant_id", "outcome"},
		),
		RulesTriggeredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_rules_triggered_total",
				Help: "Rules selected by the trigger evaluator",
			},
			[]string{"tenant_id", "trigger_type"},
		),
		ExecutionTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_execution_transitions_total",
				Help: "Execution status transitions",
			},
			[]string{"tenant_id", "rail", "status"},
		),
		ExecutionAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_execution_amount_total",
				Help: "Settled amount of completed executions",
			},
			[]string{"tenant_id", "rail", "currency"},
		),
		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "settlement_dispatch_duration_seconds",
				Help:    "Time spent in the settlement rail dispatch call",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms, 100ms, 200ms...
			},
			[]string{"rail", "success"},
		),
		QuotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_quotes_total",
				Help: "FX quotes issued per corridor",
			},
			[]string{"corridor", "provider"},
		),
		QuoteLocksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_quote_locks_total",
				Help: "FX quote lock attempts by outcome",
			},
			[]string{"corridor", "outcome"},
		),
		RateRefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_rate_refresh_total",
				Help: "Live rate refreshes by outcome",
			},
			[]string{"provider", "outcome"},
		),
		QuoteFeeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_quote_fee_total",
				Help: "Quoted fees in source currency",
			},
			[]string{"corridor", "currency"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_errors_total",
				Help: "Errors by component and error code",
			},
			[]string{"component", "code"},
		),
	}
}

func (m *SettlementMetrics) RecordEvaluation(tenantID string, triggered bool, triggerTypes []string) {
	if m == nil {
		return
	}
	outcome := "no_match"
	if triggered {
		outcome = "triggered"
	}
	m.EvaluationsTotal.WithLabelValues(tenantID, outcome).Inc()
	for _, t := range triggerTypes {
		m.RulesTriggeredTotal.WithLabelValues(tenantID, t).Inc()
	}
}

func (m *SettlementMetrics) RecordTransition(tenantID, rail, status string) {
	if m == nil {
		return
	}
	m.ExecutionTransitionsTotal.WithLabelValues(tenantID, rail, status).Inc()
}

func (m *SettlementMetrics) RecordSettledAmount(tenantID, rail, currency string, amount float64) {
	if m == nil {
		return
	}
	m.ExecutionAmountTotal.WithLabelValues(tenantID, rail, currency).Add(amount)
}

func (m *SettlementMetrics) RecordDispatchDuration(rail string, durationSeconds float64, success bool) {
	if m == nil {
		return
	}
	successStr := "false"
	if success {
		successStr = "true"
	}
	m.DispatchDuration.WithLabelValues(rail, successStr).Observe(durationSeconds)
}

func (m *SettlementMetrics) RecordQuote(corridor, provider, sourceCurrency string, fee float64) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues(corridor, provider).Inc()
	m.QuoteFeeTotal.WithLabelValues(corridor, sourceCurrency).Add(fee)
}

func (m *SettlementMetrics) RecordLock(corridor, outcome string) {
	if m == nil {
		return
	}
	m.QuoteLocksTotal.WithLabelValues(corridor, outcome).Inc()
}

func (m *SettlementMetrics) RecordRateRefresh(provider string, ok bool) {
	if m == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	m.RateRefreshTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *SettlementMetrics) RecordError(component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
