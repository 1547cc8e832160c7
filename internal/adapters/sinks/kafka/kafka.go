// Package kafka publishes submission events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/ctrain/internal/submission"
	kafkago "github.com/segmentio/kafka-go"
)

// SinkName is the registered name of the Kafka sink.
const SinkName = "kafka"

// EventType tags published submission events.
const EventType = "training_submission.created"

// Config holds broker coordinates.
type Config struct {
	Brokers []string
	Topic   string
}

// messageWriter is the subset of kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(context.Context, ...kafkago.Message) error
	Close() error
}

// Event is the JSON value of one published message. Attachment bytes are not included.
type Event struct {
	Type          string           `json:"type"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	Name          string           `json:"name"`
	Period        string           `json:"period"`
	Qualification string           `json:"qualification"`
	Goal          float64          `json:"goal"`
	TotalCredits  float64          `json:"total_credits"`
	Complete      bool             `json:"complete"`
	Folder        string           `json:"folder"`
	Rows          []submission.Row `json:"rows"`
	FilePaths     []string         `json:"file_paths"`
}

// Sink writes one message per submission, keyed by the sanitized submitter name.
type Sink struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// New builds a synchronous writer with full acknowledgement.
func New(cfg Config) (*Sink, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	topic := strings.TrimSpace(cfg.Topic)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafkago.RequireAll,
		Compression:  kafkago.Snappy,
		Async:        false,
	}
	return newWithWriter(writer, topic), nil
}

// newWithWriter wires an explicit writer.
func newWithWriter(w messageWriter, topic string) *Sink {
	return &Sink{writer: w, topic: topic, now: time.Now}
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return SinkName
}

// Deliver publishes the submission event.
func (s *Sink) Deliver(ctx context.Context, pkg submission.Package) (submission.Receipt, error) {
	now := s.now().UTC()
	value, err := json.Marshal(NewEvent(pkg, now))
	if err != nil {
		return submission.Receipt{}, fmt.Errorf("encode submission event: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(pkg.SafeName),
		Value: value,
		Time:  now,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte(EventType)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return submission.Receipt{}, fmt.Errorf("publish submission event: %w", err)
	}
	return submission.Receipt{
		Sink:        SinkName,
		Location:    s.topic + "/" + pkg.SafeName,
		Files:       1,
		DeliveredAt: now,
	}, nil
}

// Close releases the writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}

// NewEvent converts a package into its published event.
func NewEvent(pkg submission.Package, at time.Time) Event {
	paths := make([]string, 0, len(pkg.Files))
	for _, f := range pkg.Files {
		paths = append(paths, f.Path)
	}
	return Event{
		Type:          EventType,
		SubmittedAt:   at,
		Name:          pkg.Header.Name,
		Period:        pkg.Header.Period,
		Qualification: pkg.Header.Qualification,
		Goal:          pkg.Header.Goal,
		TotalCredits:  pkg.TotalCredits,
		Complete:      pkg.Complete,
		Folder:        pkg.Root,
		Rows:          pkg.Rows,
		FilePaths:     paths,
	}
}
