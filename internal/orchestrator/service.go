package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/metrics"
	"github.com/signalhq/signal-backend/internal/pipeline"
	"github.com/signalhq/signal-backend/internal/queue"
	"github.com/signalhq/signal-backend/internal/repository"
)

// Service is the submission and polling surface of the job system. Submit
// validates synchronously, persists a queued job and enqueues it; everything
// after that happens on the worker pool.
type Service struct {
	jobs      repository.JobsRepository
	producer  queue.Producer
	collector *metrics.Collector
	logger    *logrus.Entry
}

func NewService(
	jobs repository.JobsRepository,
	producer queue.Producer,
	collector *metrics.Collector,
	logger *logrus.Entry,
) *Service {
	return &Service{jobs: jobs, producer: producer, collector: collector, logger: logger}
}

// Submit validates the payload, creates the job record in queued state and
// hands it to the queue. A validation failure never creates a job.
func (s *Service) Submit(
	ctx context.Context,
	jobType domain.JobType,
	companyID string,
	payload json.RawMessage,
) (*domain.Job, error) {
	if err := pipeline.ValidatePayload(jobType, companyID, payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		CompanyID: companyID,
		Payload:   payload,
		Status:    domain.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	message := domain.JobMessage{
		JobID:       job.ID,
		Type:        job.Type,
		CompanyID:   job.CompanyID,
		Payload:     job.Payload,
		RequestedAt: now,
	}
	if err := s.producer.Enqueue(ctx, message); err != nil {
		job.Status = domain.JobStatusFailed
		job.ErrorMessage = fmt.Sprintf("enqueue failed: %v", err)
		job.UpdatedAt = time.Now().UTC()
		_ = s.jobs.UpdateJob(ctx, job)
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	if s.collector != nil {
		s.collector.JobsSubmitted.WithLabelValues(string(jobType)).Inc()
	}
	s.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"type":       string(job.Type),
		"company_id": job.CompanyID,
	}).Info("job submitted")

	return job, nil
}

// Get is a pure read of the job record; it never mutates state.
func (s *Service) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// List returns jobs matching the filter plus the unpaged total.
func (s *Service) List(ctx context.Context, filter repository.JobListFilter) ([]*domain.Job, int, error) {
	return s.jobs.ListJobs(ctx, filter)
}
