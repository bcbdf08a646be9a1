package enrich

import "github.com/prometheus/client_golang/prometheus"

// ClassifierHooks receives classifier-level observations. Kept as plain
// funcs so the classifier stays decoupled from Prometheus.
type ClassifierHooks struct {
	OnLLMCall  func(outcome string, duration float64)
	OnFallback func(intent string)
}

// ServiceHooks receives pipeline-level observations.
type ServiceHooks struct {
	OnEnriched   func(intent, severity string, duration float64, escalated bool)
	OnAlert      func(decision string)
	OnFeedback   func(action string)
	OnStoreRetry func(op string)
}

// Metrics holds Prometheus metrics for the enrichment subsystem.
type Metrics struct {
	EnrichmentsTotal *prometheus.CounterVec
	EnrichDuration   prometheus.Histogram
	EscalationsTotal prometheus.Counter
	LLMCallsTotal    *prometheus.CounterVec
	LLMDuration      prometheus.Histogram
	FallbacksTotal   *prometheus.CounterVec
	AlertsTotal      *prometheus.CounterVec
	FeedbackTotal    *prometheus.CounterVec
	StoreRetriesTotal *prometheus.CounterVec
}

// NewMetrics registers and returns enrichment metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EnrichmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskwatch_enrichments_total",
			Help: "Total enrichment runs by resulting intent and severity.",
		}, []string{"intent", "severity"}),
		EnrichDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "deskwatch_enrich_duration_seconds",
			Help:    "Duration of enrichment runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}),
		EscalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deskwatch_escalations_total",
			Help: "Total volume-based severity escalations.",
		}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskwatch_llm_calls_total",
			Help: "Total classification calls by outcome.",
		}, []string{"outcome"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "deskwatch_llm_call_duration_seconds",
			Help:    "Duration of individual classification calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. ~32s
		}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskwatch_classifier_fallbacks_total",
			Help: "Total rule-only classification fallbacks by chosen intent.",
		}, []string{"intent"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskwatch_alerts_total",
			Help: "Total alert gate decisions.",
		}, []string{"decision"}),
		FeedbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskwatch_feedback_total",
			Help: "Total feedback submissions by action.",
		}, []string{"action"}),
		StoreRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deskwatch_store_retries_total",
			Help: "Total retried store operations by operation name.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		m.EnrichmentsTotal,
		m.EnrichDuration,
		m.EscalationsTotal,
		m.LLMCallsTotal,
		m.LLMDuration,
		m.FallbacksTotal,
		m.AlertsTotal,
		m.FeedbackTotal,
		m.StoreRetriesTotal,
	)

	return m
}

// ClassifierHooks returns hooks that feed the classifier metrics.
func (m *Metrics) ClassifierHooks() ClassifierHooks {
	return ClassifierHooks{
		OnLLMCall: func(outcome string, duration float64) {
			m.LLMCallsTotal.WithLabelValues(outcome).Inc()
			m.LLMDuration.Observe(duration)
		},
		OnFallback: func(intent string) {
			m.FallbacksTotal.WithLabelValues(intent).Inc()
		},
	}
}

// ServiceHooks returns hooks that feed the pipeline metrics.
func (m *Metrics) ServiceHooks() ServiceHooks {
	return ServiceHooks{
		OnEnriched: func(intent, severity string, duration float64, escalated bool) {
			m.EnrichmentsTotal.WithLabelValues(intent, severity).Inc()
			m.EnrichDuration.Observe(duration)
			if escalated {
				m.EscalationsTotal.Inc()
			}
		},
		OnAlert: func(decision string) {
			m.AlertsTotal.WithLabelValues(decision).Inc()
		},
		OnFeedback: func(action string) {
			m.FeedbackTotal.WithLabelValues(action).Inc()
		},
		OnStoreRetry: func(op string) {
			m.StoreRetriesTotal.WithLabelValues(op).Inc()
		},
	}
}
