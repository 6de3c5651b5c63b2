package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signalhq/signal-backend/internal/domain"
)

type StreamsConfig struct {
	Addr      string
	Password  string
	DB        int
	Stream    string
	DLQStream string
	Group     string
	Consumer  string
}

// StreamsQueue implements Producer+Consumer backed by Redis Streams. Every
// message is delivered to the handler at most once from this consumer's point
// of view: handler errors are acked, not redelivered, because the job record
// already holds the failure. Only unparseable entries go to the DLQ stream.
type StreamsQueue struct {
	client    *redis.Client
	stream    string
	dlqStream string
	group     string
	consumer  string
}

func NewStreamsQueue(ctx context.Context, cfg StreamsConfig) (*StreamsQueue, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.Stream == "" {
		cfg.Stream = "signal_jobs"
	}
	if cfg.DLQStream == "" {
		cfg.DLQStream = "signal_jobs_dlq"
	}
	if cfg.Group == "" {
		cfg.Group = "signal_workers"
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "api-1"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	q := &StreamsQueue{
		client:    client,
		stream:    cfg.Stream,
		dlqStream: cfg.DLQStream,
		group:     cfg.Group,
		consumer:  cfg.Consumer,
	}
	if err := q.ensureGroup(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return q, nil
}

func (q *StreamsQueue) Close() error {
	return q.client.Close()
}

func (q *StreamsQueue) Enqueue(ctx context.Context, message domain.JobMessage) error {
	_, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{
			"job_id":       message.JobID,
			"type":         string(message.Type),
			"company_id":   message.CompanyID,
			"payload":      string(message.Payload),
			"requested_at": message.RequestedAt.Format(time.RFC3339Nano),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue to stream: %w", err)
	}
	return nil
}

func (q *StreamsQueue) Consume(ctx context.Context, handler func(context.Context, domain.JobMessage) error) error {
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("xreadgroup: %w", err)
		}

		for _, stream := range streams {
			for _, item := range stream.Messages {
				message, parseErr := parseStreamMessage(item)
				if parseErr != nil {
					_ = q.sendToDLQ(ctx, item, parseErr.Error())
					_ = q.ackAndDelete(ctx, item.ID)
					continue
				}

				_ = handler(ctx, message)
				_ = q.ackAndDelete(ctx, item.ID)
			}
		}
	}
}

func (q *StreamsQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return fmt.Errorf("ensure stream group: %w", err)
}

func (q *StreamsQueue) ackAndDelete(ctx context.Context, streamID string) error {
	if err := q.client.XAck(ctx, q.stream, q.group, streamID).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	if err := q.client.XDel(ctx, q.stream, streamID).Err(); err != nil {
		return fmt.Errorf("xdel: %w", err)
	}
	return nil
}

func (q *StreamsQueue) sendToDLQ(ctx context.Context, item redis.XMessage, errorMessage string) error {
	values := map[string]any{
		"stream_id": item.ID,
		"error":     errorMessage,
		"moved_at":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	for key, value := range item.Values {
		values["orig_"+key] = value
	}
	if _, err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.dlqStream, Values: values}).Result(); err != nil {
		return fmt.Errorf("send to dlq: %w", err)
	}
	return nil
}

func parseStreamMessage(item redis.XMessage) (domain.JobMessage, error) {
	getString := func(key string) (string, error) {
		value, ok := item.Values[key]
		if !ok {
			return "", fmt.Errorf("missing field %s", key)
		}
		switch casted := value.(type) {
		case string:
			return casted, nil
		case []byte:
			return string(casted), nil
		default:
			return fmt.Sprintf("%v", casted), nil
		}
	}

	jobID, err := getString("job_id")
	if err != nil {
		return domain.JobMessage{}, err
	}
	typeValue, err := getString("type")
	if err != nil {
		return domain.JobMessage{}, err
	}
	companyID, err := getString("company_id")
	if err != nil {
		return domain.JobMessage{}, err
	}
	payloadString, err := getString("payload")
	if err != nil {
		return domain.JobMessage{}, err
	}
	requestedAtString, err := getString("requested_at")
	if err != nil {
		return domain.JobMessage{}, err
	}
	requestedAt, err := time.Parse(time.RFC3339Nano, requestedAtString)
	if err != nil {
		return domain.JobMessage{}, fmt.Errorf("invalid requested_at: %w", err)
	}

	return domain.JobMessage{
		JobID:       jobID,
		Type:        domain.JobType(typeValue),
		CompanyID:   companyID,
		Payload:     []byte(payloadString),
		RequestedAt: requestedAt,
	}, nil
}
