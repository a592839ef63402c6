package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the issuance wizard.
type Metrics struct {
	SessionsStarted prometheus.Counter

	// Forward transitions by the step that was left
	StepAdvances *prometheus.CounterVec

	// Blocked transitions by step
	ValidationFailures *prometheus.CounterVec

	PhotoBytesUploaded prometheus.Counter
	PhotoBytesSaved    prometheus.Counter

	PoliciesIssued   prometheus.Counter
	IssuanceFailures prometheus.Counter

	// Time from session creation to policy issuance
	IssuanceDuration prometheus.Histogram
}

// New creates a Metrics instance registered with the default registry.
// Call it once per process.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policydesk_issuance_sessions_started_total",
			Help: "Total issuance sessions created",
		}),
		StepAdvances: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "policydesk_issuance_step_advances_total",
			Help: "Total wizard forward transitions by step left",
		}, []string{"step"}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "policydesk_issuance_validation_failures_total",
			Help: "Total forward transitions blocked by validation, by step",
		}, []string{"step"}),
		PhotoBytesUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policydesk_issuance_photo_bytes_uploaded_total",
			Help: "Total photo bytes stored after downsizing",
		}),
		PhotoBytesSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policydesk_issuance_photo_bytes_saved_total",
			Help: "Total photo bytes removed by downsizing before upload",
		}),
		PoliciesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policydesk_issuance_policies_issued_total",
			Help: "Total policies issued",
		}),
		IssuanceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "policydesk_issuance_failures_total",
			Help: "Total failed policy issuance attempts",
		}),
		IssuanceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "policydesk_issuance_duration_seconds",
			Help:    "Time from session start to policy issuance",
			Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600, 7200},
		}),
	}
}

func (m *Metrics) IncrementSessionsStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

func (m *Metrics) IncrementStepAdvance(step string) {
	if m != nil {
		m.StepAdvances.WithLabelValues(step).Inc()
	}
}

func (m *Metrics) IncrementValidationFailure(step string) {
	if m != nil {
		m.ValidationFailures.WithLabelValues(step).Inc()
	}
}

// ObservePhotoUpload records stored bytes and what downsizing saved.
func (m *Metrics) ObservePhotoUpload(stored, saved int) {
	if m != nil {
		m.PhotoBytesUploaded.Add(float64(stored))
		if saved > 0 {
			m.PhotoBytesSaved.Add(float64(saved))
		}
	}
}

func (m *Metrics) IncrementPoliciesIssued() {
	if m != nil {
		m.PoliciesIssued.Inc()
	}
}

func (m *Metrics) IncrementIssuanceFailures() {
	if m != nil {
		m.IssuanceFailures.Inc()
	}
}

func (m *Metrics) ObserveIssuanceDuration(d time.Duration) {
	if m != nil {
		m.IssuanceDuration.Observe(d.Seconds())
	}
}
