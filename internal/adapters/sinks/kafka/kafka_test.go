package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hylla/ctrain/internal/domain"
	"github.com/hylla/ctrain/internal/submission"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func buildPackage(t *testing.T) submission.Package {
	t.Helper()
	records := []domain.ActivityRecord{
		{
			ID:           "r1",
			ActivityName: "Facility Representative Delta Qualification",
			Credits:      80,
			Attachments:  []domain.Attachment{{Name: "delta.pdf", Data: []byte("big-blob")}},
		},
	}
	pkg, err := submission.Build(submission.Header{Name: "Jane Doe", Period: "2020-2025", Goal: 80}, records, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	return pkg
}

func TestDeliverPublishesKeyedEvent(t *testing.T) {
	w := &recordingWriter{}
	sink := newWithWriter(w, "training.submissions")
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return now }

	receipt, err := sink.Deliver(context.Background(), buildPackage(t))
	require.NoError(t, err)
	require.Equal(t, "training.submissions/jane_doe", receipt.Location)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	require.Equal(t, "jane_doe", string(msg.Key))
	require.Equal(t, now, msg.Time)
	require.NotContains(t, string(msg.Value), "big-blob")

	var event Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	require.Equal(t, EventType, event.Type)
	require.True(t, event.Complete)
	require.Equal(t, 80.0, event.TotalCredits)
	require.Equal(t, []string{"certificates/1_delta.pdf"}, event.FilePaths)
	require.Len(t, event.Rows, 1)

	require.NoError(t, sink.Close())
	require.True(t, w.closed)
}

func TestDeliverWrapsWriterError(t *testing.T) {
	sink := newWithWriter(&recordingWriter{err: errors.New("leader not available")}, "t")
	_, err := sink.Deliver(context.Background(), buildPackage(t))
	require.ErrorContains(t, err, "leader not available")
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Topic: "t"})
	require.Error(t, err)
	_, err = New(Config{Brokers: []string{" "}, Topic: "t"})
	require.Error(t, err)
	_, err = New(Config{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)

	sink, err := New(Config{Brokers: []string{"localhost:9092"}, Topic: "training"})
	require.NoError(t, err)
	require.Equal(t, SinkName, sink.Name())
	require.NoError(t, sink.Close())
}
