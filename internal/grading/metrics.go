package grading

import (
	"time"

	"code-sprint/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// LanguageResolver maps a learner-supplied language name to its canonical id.
type LanguageResolver interface {
	Canonical(name string) (string, error)
}

// Metrics records verdicts and sandbox latency. A nil *Metrics is a no-op.
type Metrics struct {
	languages   LanguageResolver
	gradings    *prometheus.CounterVec
	sandboxTime *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg. Language labels are limited to
// the ids languages knows; anything else is counted as "unsupported".
func NewMetrics(reg prometheus.Registerer, languages LanguageResolver) *Metrics {
	m := &Metrics{
		languages: languages,
		gradings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesprint_gradings_total",
			Help: "Graded submissions by verdict and failure reason.",
		}, []string{"verdict", "reason"}),
		sandboxTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codesprint_sandbox_call_seconds",
			Help:    "Duration of sandbox executions.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"language", "result"}),
	}
	reg.MustRegister(m.gradings, m.sandboxTime)
	return m
}

func (m *Metrics) observeOutcome(o models.GradingOutcome) {
	if m == nil {
		return
	}
	reason := string(o.Reason)
	if reason == "" {
		reason = "none"
	}
	m.gradings.WithLabelValues(string(o.Verdict), reason).Inc()
}

func (m *Metrics) observeCall(language, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.sandboxTime.WithLabelValues(m.languageLabel(language), result).Observe(d.Seconds())
}

// languageLabel keeps raw learner input out of label values.
func (m *Metrics) languageLabel(language string) string {
	if m.languages == nil {
		return "unknown"
	}
	id, err := m.languages.Canonical(language)
	if err != nil {
		return "unsupported"
	}
	return id
}
