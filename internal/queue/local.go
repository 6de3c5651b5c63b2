package queue

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
)

// LocalQueue is a channel-backed fallback used when Redis is not configured.
type LocalQueue struct {
	ch     chan domain.JobMessage
	logger *logrus.Entry
}

func NewLocalQueue(bufferSize int, logger *logrus.Entry) *LocalQueue {
	if bufferSize <= 0 {
		bufferSize = 512
	}
	return &LocalQueue{
		ch:     make(chan domain.JobMessage, bufferSize),
		logger: logger,
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, message domain.JobMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- message:
		return nil
	}
}

func (q *LocalQueue) Consume(ctx context.Context, handler func(context.Context, domain.JobMessage) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message := <-q.ch:
			if err := handler(ctx, message); err != nil && q.logger != nil {
				q.logger.WithFields(logrus.Fields{
					"job_id": message.JobID,
					"type":   string(message.Type),
				}).WithError(err).Warn("job handler returned error")
			}
		}
	}
}

// Depth reports the number of buffered messages, used by health checks.
func (q *LocalQueue) Depth() int {
	return len(q.ch)
}
