package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/repository"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// captureProducer records enqueued messages and can simulate a broken queue.
type captureProducer struct {
	messages []domain.JobMessage
	fail     bool
}

func (p *captureProducer) Enqueue(_ context.Context, message domain.JobMessage) error {
	if p.fail {
		return fmt.Errorf("queue unavailable")
	}
	p.messages = append(p.messages, message)
	return nil
}

func TestSubmitCreatesQueuedJobAndEnqueues(t *testing.T) {
	jobs := repository.NewMemoryJobsRepository()
	producer := &captureProducer{}
	service := NewService(jobs, producer, nil, testLogger())

	payload := json.RawMessage(`{"limit":5}`)
	job, err := service.Submit(context.Background(), domain.JobTypeSignalRefresh, "co-1", payload)
	if err != nil {
		t.Fatalf("expected submit to succeed: %v", err)
	}
	if job.Status != domain.JobStatusQueued {
		t.Fatalf("expected queued status, got %s", job.Status)
	}
	if job.ID == "" {
		t.Fatalf("expected a generated job id")
	}

	stored, err := jobs.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("expected job record: %v", err)
	}
	if stored.Status != domain.JobStatusQueued {
		t.Fatalf("expected stored job queued, got %s", stored.Status)
	}

	if len(producer.messages) != 1 {
		t.Fatalf("expected one enqueued message, got %d", len(producer.messages))
	}
	message := producer.messages[0]
	if message.JobID != job.ID || message.Type != domain.JobTypeSignalRefresh || message.CompanyID != "co-1" {
		t.Fatalf("unexpected message: %+v", message)
	}
}

func TestSubmitValidationFailureCreatesNothing(t *testing.T) {
	jobs := repository.NewMemoryJobsRepository()
	producer := &captureProducer{}
	service := NewService(jobs, producer, nil, testLogger())

	_, err := service.Submit(context.Background(), domain.JobType("sentiment_analysis"), "co-1", nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, total, listErr := jobs.ListJobs(context.Background(), repository.JobListFilter{})
	if listErr != nil || total != 0 {
		t.Fatalf("expected no job record after rejection, got total=%d err=%v", total, listErr)
	}
	if len(producer.messages) != 0 {
		t.Fatalf("expected nothing enqueued, got %d", len(producer.messages))
	}
}

func TestSubmitMarksJobFailedWhenEnqueueFails(t *testing.T) {
	jobs := repository.NewMemoryJobsRepository()
	service := NewService(jobs, &captureProducer{fail: true}, nil, testLogger())

	_, err := service.Submit(context.Background(), domain.JobTypeSignalRefresh, "co-1", nil)
	if err == nil {
		t.Fatalf("expected enqueue failure to surface")
	}

	stored, total, listErr := jobs.ListJobs(context.Background(), repository.JobListFilter{})
	if listErr != nil || total != 1 {
		t.Fatalf("expected the failed job to remain on record, got total=%d err=%v", total, listErr)
	}
	if stored[0].Status != domain.JobStatusFailed || stored[0].ErrorMessage == "" {
		t.Fatalf("expected failed job with error detail, got %+v", stored[0])
	}
}

func TestGetReturnsNotFoundForUnknownJob(t *testing.T) {
	service := NewService(repository.NewMemoryJobsRepository(), &captureProducer{}, nil, testLogger())
	if _, err := service.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
