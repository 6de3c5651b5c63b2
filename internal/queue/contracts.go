package queue

import (
	"context"

	"github.com/signalhq/signal-backend/internal/domain"
)

// Producer sends async jobs to a queue backend.
type Producer interface {
	Enqueue(ctx context.Context, message domain.JobMessage) error
}

// Consumer receives async jobs and executes the handler exactly once per
// message. A handler error is final: the job's terminal state carries the
// failure, so the queue never redelivers.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, domain.JobMessage) error) error
}
