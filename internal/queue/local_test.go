package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestLocalQueueRoundTrip(t *testing.T) {
	q := NewLocalQueue(8, testLogger())
	message := domain.JobMessage{
		JobID:       "job-1",
		Type:        domain.JobTypeSignalRefresh,
		CompanyID:   "co-1",
		Payload:     json.RawMessage(`{"limit":3}`),
		RequestedAt: time.Now().UTC(),
	}

	if err := q.Enqueue(context.Background(), message); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if q.Depth() != 1 {
		t.Fatalf("expected depth 1, got %d", q.Depth())
	}

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan domain.JobMessage, 1)
	go q.Consume(ctx, func(_ context.Context, got domain.JobMessage) error {
		received <- got
		return nil
	})

	select {
	case got := <-received:
		if got.JobID != "job-1" || got.Type != domain.JobTypeSignalRefresh {
			t.Fatalf("unexpected message: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message was not delivered")
	}
	cancel()

	if q.Depth() != 0 {
		t.Fatalf("expected drained queue, got depth %d", q.Depth())
	}
}

func TestLocalQueueConsumesPastHandlerErrors(t *testing.T) {
	q := NewLocalQueue(8, testLogger())
	for i := 0; i < 2; i++ {
		message := domain.JobMessage{JobID: fmt.Sprintf("job-%d", i)}
		if err := q.Enqueue(context.Background(), message); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := make(chan string, 2)
	go q.Consume(ctx, func(_ context.Context, got domain.JobMessage) error {
		seen <- got.JobID
		return fmt.Errorf("handler failure")
	})

	for i := 0; i < 2; i++ {
		select {
		case <-seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("handler error stopped consumption after %d messages", i)
		}
	}
}

func TestLocalQueueConsumeReturnsOnCancel(t *testing.T) {
	q := NewLocalQueue(8, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, func(context.Context, domain.JobMessage) error { return nil })
	}()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("consume did not return after cancel")
	}
}
