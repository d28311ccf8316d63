package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the assessment lifecycle module.
// Counters track transitions; histograms cover the candidate-facing hot paths.
type Metrics struct {
	InvitationsOpened    prometheus.Counter
	InvitationsExpired   prometheus.Counter
	AssessmentsStarted   prometheus.Counter
	AssessmentsCompleted prometheus.Counter
	ResponsesRecorded    prometheus.Counter
	SurveysSubmitted     prometheus.Counter

	OpenDuration           prometheus.Histogram
	StartDuration          prometheus.Histogram
	RecordResponseDuration prometheus.Histogram
	CompleteDuration       prometheus.Histogram
}

// New creates a Metrics instance with all lifecycle metrics registered.
func New() *Metrics {
	buckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	return &Metrics{
		InvitationsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talentgate_invitations_opened_total",
			Help: "Total number of invitation links opened for the first time",
		}),
		InvitationsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talentgate_invitations_expired_total",
			Help: "Total number of invitations reconciled to EXPIRED on access",
		}),
		AssessmentsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talentgate_assessments_started_total",
			Help: "Total number of assessments created",
		}),
		AssessmentsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talentgate_assessments_completed_total",
			Help: "Total number of assessments completed",
		}),
		ResponsesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talentgate_responses_recorded_total",
			Help: "Total number of item responses upserted",
		}),
		SurveysSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talentgate_surveys_submitted_total",
			Help: "Total number of post-assessment surveys accepted",
		}),
		OpenDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "talentgate_open_duration_seconds",
			Help:    "Duration of Open operations (candidate link hot path)",
			Buckets: buckets,
		}),
		StartDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "talentgate_start_duration_seconds",
			Help:    "Duration of Start operations",
			Buckets: buckets,
		}),
		RecordResponseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "talentgate_record_response_duration_seconds",
			Help:    "Duration of RecordResponse operations",
			Buckets: buckets,
		}),
		CompleteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "talentgate_complete_duration_seconds",
			Help:    "Duration of Complete operations",
			Buckets: buckets,
		}),
	}
}

// ObserveOpen records the duration of an Open operation.
func (m *Metrics) ObserveOpen(start time.Time) {
	m.OpenDuration.Observe(time.Since(start).Seconds())
}

// ObserveStart records the duration of a Start operation.
func (m *Metrics) ObserveStart(start time.Time) {
	m.StartDuration.Observe(time.Since(start).Seconds())
}

// ObserveRecordResponse records the duration of a RecordResponse operation.
func (m *Metrics) ObserveRecordResponse(start time.Time) {
	m.RecordResponseDuration.Observe(time.Since(start).Seconds())
}

// ObserveComplete records the duration of a Complete operation.
func (m *Metrics) ObserveComplete(start time.Time) {
	m.CompleteDuration.Observe(time.Since(start).Seconds())
}
