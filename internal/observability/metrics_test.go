package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/hylla/ctrain/internal/domain"
	"github.com/hylla/ctrain/internal/submission"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type stubSink struct {
	name string
	err  error
}

func (s stubSink) Name() string {
	return s.name
}

func (s stubSink) Deliver(_ context.Context, pkg submission.Package) (submission.Receipt, error) {
	if s.err != nil {
		return submission.Receipt{}, s.err
	}
	return submission.Receipt{Sink: s.name, Location: pkg.Root}, nil
}

func TestInstrumentCountsOutcomes(t *testing.T) {
	ok := Instrument(stubSink{name: "metrics-ok"})
	bad := Instrument(stubSink{name: "metrics-bad", err: errors.New("boom")})
	pkg := submission.Package{Root: "r", Files: []submission.File{{Path: "a"}, {Path: "b"}}}

	require.Equal(t, "metrics-ok", ok.Name())
	receipt, err := ok.Deliver(context.Background(), pkg)
	require.NoError(t, err)
	require.Equal(t, "r", receipt.Location)

	_, err = bad.Deliver(context.Background(), pkg)
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(submissionCounter.WithLabelValues("metrics-ok", OutcomeDelivered)))
	require.Equal(t, 1.0, testutil.ToFloat64(submissionCounter.WithLabelValues("metrics-bad", OutcomeFailed)))
	require.Equal(t, 0.0, testutil.ToFloat64(submissionCounter.WithLabelValues("metrics-bad", OutcomeDelivered)))
	require.Equal(t, 2.0, testutil.ToFloat64(submissionFiles.WithLabelValues("metrics-ok")))
	require.Equal(t, 0.0, testutil.ToFloat64(submissionFiles.WithLabelValues("metrics-bad")))
}

func TestRecordProgressSetsGauges(t *testing.T) {
	RecordProgress(domain.NewProgress(35, 60))
	require.Equal(t, 35.0, testutil.ToFloat64(formCreditsGauge))
	require.Equal(t, 60.0, testutil.ToFloat64(formGoalGauge))
}
