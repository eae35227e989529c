package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

const (
	HeaderMessageID = "message-id"
	HeaderEventType = "event-type"

	EventTypeTrackingUpdated = "tracking.updated"
)

// Config holds broker settings shared by the writer and readers.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(list string) []string {
	var out []string
	for _, b := range strings.Split(list, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// MessageWriter is the subset of *kafka.Writer the notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter returns a synchronous writer. Messages with the same key always
// land on the same partition, which keeps per-code ordering.
func NewWriter(cfg Config) *kafka.Writer {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}
}

// Notifier implements ports.Notifier by publishing the record to Kafka.
type Notifier struct {
	w     MessageWriter
	topic string
	newID func() string
	log   zerolog.Logger
}

func NewNotifier(w MessageWriter, topic string, log zerolog.Logger) *Notifier {
	return &Notifier{w: w, topic: topic, newID: uuid.NewString, log: log}
}

// Publish sends one tracking.updated message keyed by the tracking code.
func (n *Notifier) Publish(ctx context.Context, rec *domain.TrackingRecord) error {
	msg, err := NewMessage(rec, n.newID())
	if err != nil {
		return err
	}
	if err := n.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", rec.TrackingCode, err)
	}

	n.log.Debug().
		Str("topic", n.topic).
		Str("tracking_code", rec.TrackingCode).
		Str("message_id", headerValue(msg, HeaderMessageID)).
		Msg("tracking update published")
	return nil
}

// Close flushes and closes the underlying writer.
func (n *Notifier) Close() error {
	return n.w.Close()
}

// NewMessage builds the outbound message for rec.
func NewMessage(rec *domain.TrackingRecord, messageID string) (kafka.Message, error) {
	value, err := json.Marshal(rec)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode tracking %s: %w", rec.TrackingCode, err)
	}
	return kafka.Message{
		Key:   []byte(rec.TrackingCode),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderMessageID, Value: []byte(messageID)},
			{Key: HeaderEventType, Value: []byte(EventTypeTrackingUpdated)},
		},
	}, nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
