package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const retryBackoff = 5 * time.Second

// MessageReader is the subset of *kafka.Reader the consumer loop needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one message. A returned error is logged and the message
// is still committed.
type Handler func(ctx context.Context, msg kafka.Message) error

// NewReader returns a consumer group reader on cfg.Topic.
func NewReader(cfg Config, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        groupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})
}

// Consumer drives a MessageReader until its context is cancelled.
type Consumer struct {
	r       MessageReader
	handle  Handler
	backoff time.Duration
	log     zerolog.Logger
}

func NewConsumer(r MessageReader, handle Handler, log zerolog.Logger) *Consumer {
	return &Consumer{r: r, handle: handle, backoff: retryBackoff, log: log}
}

// Run blocks until ctx is done. Read errors are retried after a backoff.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Msg("kafka fetch failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			c.log.Error().
				Err(err).
				Str("key", string(msg.Key)).
				Int64("offset", msg.Offset).
				Msg("message handler failed")
		}

		if err := c.r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

// Close releases the reader.
func (c *Consumer) Close() error {
	return c.r.Close()
}

// LogHandler logs every tracking update it receives.
func LogHandler(log zerolog.Logger) Handler {
	return func(_ context.Context, msg kafka.Message) error {
		log.Info().
			Str("key", string(msg.Key)).
			Str("event_type", headerValue(msg, HeaderEventType)).
			Str("message_id", headerValue(msg, HeaderMessageID)).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			RawJSON("value", msg.Value).
			Msg("tracking event received")
		return nil
	}
}

// Pinger checks that at least one broker accepts connections.
type Pinger struct {
	brokers []string
	dialer  *kafka.Dialer
}

func NewPinger(brokers []string) *Pinger {
	return &Pinger{brokers: brokers, dialer: &kafka.Dialer{Timeout: 3 * time.Second}}
}

func (p *Pinger) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	var errs []error
	for _, b := range p.brokers {
		conn, err := p.dialer.DialContext(ctx, "tcp", b)
		if err == nil {
			return conn.Close()
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("kafka: %w", errors.Join(errs...))
}
