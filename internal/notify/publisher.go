// Package notify announces finished pipeline runs on Kafka.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	// EventTypeHeader is the message header carrying the event type.
	EventTypeHeader = "event_type"

	// RunCompletedType is the event type of RunCompleted messages.
	RunCompletedType = "run_completed"

	writeTimeout = 10 * time.Second
)

var (
	// ErrNoBrokers is returned when a Kafka publisher is built without brokers.
	ErrNoBrokers = errors.New("no kafka brokers configured")

	// ErrNoTopic is returned when a Kafka publisher is built without a topic.
	ErrNoTopic = errors.New("no kafka topic configured")

	// ErrPublishFailed wraps delivery failures.
	ErrPublishFailed = errors.New("failed to publish run event")
)

type (
	// RunCompleted reports the outcome of one pipeline stage.
	//nolint:tagliatelle // snake_case matches the warehouse column naming
	RunCompleted struct {
		RunID      uuid.UUID        `json:"run_id"`
		Stage      string           `json:"stage"`
		RowCounts  map[string]int64 `json:"row_counts"`
		FinishedAt time.Time        `json:"finished_at"`
	}

	// Publisher delivers run events.
	Publisher interface {
		Publish(ctx context.Context, event RunCompleted) error
		Close() error
	}

	// KafkaPublisher writes run events to a Kafka topic, keyed by run id.
	KafkaPublisher struct {
		writer *kafka.Writer
		logger *slog.Logger
	}

	// NopPublisher discards events. Used when no brokers are configured.
	NopPublisher struct{}
)

// NewRunCompleted returns an event with a fresh run id, finished now.
func NewRunCompleted(stage string, rowCounts map[string]int64) RunCompleted {
	return RunCompleted{
		RunID:      uuid.New(),
		Stage:      stage,
		RowCounts:  rowCounts,
		FinishedAt: time.Now().UTC(),
	}
}

// New returns a KafkaPublisher when brokers are set, and a NopPublisher otherwise.
func New(brokers []string, topic string, logger *slog.Logger) (Publisher, error) {
	if len(brokers) == 0 {
		return NopPublisher{}, nil
	}

	return NewKafkaPublisher(brokers, topic, logger)
}

// NewKafkaPublisher returns a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	if topic == "" {
		return nil, ErrNoTopic
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			WriteTimeout:           writeTimeout,
		},
		logger: logger,
	}, nil
}

// Publish writes event synchronously and returns once the brokers acknowledged it.
func (p *KafkaPublisher) Publish(ctx context.Context, event RunCompleted) error {
	msg, err := message(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	p.logger.Info("Published run event",
		slog.String("run_id", event.RunID.String()),
		slog.String("stage", event.Stage),
		slog.String("topic", p.writer.Topic),
	)

	return nil
}

// Close flushes pending writes and closes connections.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, RunCompleted) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

func message(event RunCompleted) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return kafka.Message{
		Key:   []byte(event.RunID.String()),
		Value: value,
		Time:  event.FinishedAt,
		Headers: []kafka.Header{
			{Key: EventTypeHeader, Value: []byte(RunCompletedType)},
		},
	}, nil
}
