package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubReader serves queued results then blocks until the context ends.
type stubReader struct {
	mu        sync.Mutex
	results   []fetchResult
	committed []kafka.Message
	commitErr error
}

type fetchResult struct {
	msg kafka.Message
	err error
}

func (r *stubReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.results) > 0 {
		next := r.results[0]
		r.results = r.results[1:]
		r.mu.Unlock()
		return next.msg, next.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *stubReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *stubReader) Close() error { return nil }

func (r *stubReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := &stubReader{results: []fetchResult{
		{msg: kafka.Message{Key: []byte("A"), Offset: 1}},
		{err: errors.New("transient")},
		{msg: kafka.Message{Key: []byte("B"), Offset: 2}},
	}}

	var mu sync.Mutex
	var seen []string
	handle := func(_ context.Context, msg kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(msg.Key))
		if string(msg.Key) == "A" {
			return errors.New("handler failed")
		}
		return nil
	}

	c := NewConsumer(r, handle, zerolog.Nop())
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return r.commits() == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestConsumer_CommitFailureStops(t *testing.T) {
	boom := errors.New("commit failed")
	r := &stubReader{
		results:   []fetchResult{{msg: kafka.Message{Key: []byte("A")}}},
		commitErr: boom,
	}
	c := NewConsumer(r, func(context.Context, kafka.Message) error { return nil }, zerolog.Nop())

	err := c.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestLogHandler(t *testing.T) {
	msg, err := NewMessage(deliveredRecord(), "msg-1")
	require.NoError(t, err)
	assert.NoError(t, LogHandler(zerolog.Nop())(context.Background(), msg))
}

func TestPinger_NoBrokers(t *testing.T) {
	err := NewPinger(nil).Ping(context.Background())
	require.Error(t, err)
}
