package observability

import (
	"context"
	"time"

	"github.com/hylla/ctrain/internal/app"
	"github.com/hylla/ctrain/internal/domain"
	"github.com/hylla/ctrain/internal/submission"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for submission metrics.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

var (
	submissionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctrain",
		Name:      "submission_total",
		Help:      "Number of submission deliveries, labeled by sink and outcome.",
	}, []string{"sink", "outcome"})

	submissionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ctrain",
		Name:      "submission_duration_seconds",
		Help:      "Time spent delivering a submission package to a sink.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"sink"})

	submissionFiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctrain",
		Name:      "submission_files_total",
		Help:      "Number of attachment files delivered, labeled by sink.",
	}, []string{"sink"})

	formCreditsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ctrain",
		Subsystem: "form",
		Name:      "total_credits",
		Help:      "Credits currently logged on the form.",
	})

	formGoalGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ctrain",
		Subsystem: "form",
		Name:      "goal_credits",
		Help:      "Credit goal for the form's qualification.",
	})
)

func init() {
	prometheus.MustRegister(submissionCounter, submissionDuration, submissionFiles, formCreditsGauge, formGoalGauge)
}

// RecordProgress updates the form gauges. It matches app.ServiceConfig.OnChange.
func RecordProgress(p domain.Progress) {
	formCreditsGauge.Set(p.Total)
	formGoalGauge.Set(p.Goal)
}

// RecordSubmission counts one delivery attempt.
func RecordSubmission(sink string, elapsed time.Duration, files int, err error) {
	outcome := OutcomeDelivered
	if err != nil {
		outcome = OutcomeFailed
	}
	submissionCounter.WithLabelValues(sink, outcome).Inc()
	submissionDuration.WithLabelValues(sink).Observe(elapsed.Seconds())
	if err == nil {
		submissionFiles.WithLabelValues(sink).Add(float64(files))
	}
}

// instrumentedSink records metrics around another sink.
type instrumentedSink struct {
	next app.Sink
	now  func() time.Time
}

// Instrument wraps a sink so every delivery is counted and timed.
func Instrument(sink app.Sink) app.Sink {
	return &instrumentedSink{next: sink, now: time.Now}
}

// Name returns the wrapped sink name.
func (s *instrumentedSink) Name() string {
	return s.next.Name()
}

// Deliver delegates and records the outcome.
func (s *instrumentedSink) Deliver(ctx context.Context, pkg submission.Package) (submission.Receipt, error) {
	start := s.now()
	receipt, err := s.next.Deliver(ctx, pkg)
	RecordSubmission(s.next.Name(), s.now().Sub(start), len(pkg.Files), err)
	return receipt, err
}
