package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/signalhq/signal-backend/internal/ai"
	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/feedback"
	"github.com/signalhq/signal-backend/internal/pipeline"
	"github.com/signalhq/signal-backend/internal/repository"
)

// failingGenerator stands in for the adapter in paths that must not reach it,
// and fails loudly in paths that do.
type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, ai.GenerateRequest) (ai.GenerateResult, error) {
	return ai.GenerateResult{}, fmt.Errorf("adapter unavailable")
}

func (failingGenerator) Available() bool { return false }

// blockingSignalSource hangs until the job context is cancelled.
type blockingSignalSource struct{}

func (blockingSignalSource) Fetch(ctx context.Context, _ []string) ([]*domain.TrendSignal, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type workerHarness struct {
	worker  *Worker
	jobs    *repository.MemoryJobsRepository
	records *repository.MemoryRecordsRepository
}

func newWorkerHarness(t *testing.T, source pipeline.SignalSource, budget time.Duration) *workerHarness {
	t.Helper()
	logger := testLogger()
	jobs := repository.NewMemoryJobsRepository()
	records := repository.NewMemoryRecordsRepository()
	params := repository.NewMemoryParamsRepository()

	if source == nil {
		source = pipeline.NewSeedSignalSource(pipeline.DefaultSeedSignals())
	}
	coordinator := pipeline.NewCoordinator(
		records,
		pipeline.NewSignalStage(records, params, source, logger),
		pipeline.NewCampaignStage(records, params, failingGenerator{}, logger),
		pipeline.NewStrategyStage(records, params, failingGenerator{}, logger),
		pipeline.NewPieceStage(records, failingGenerator{}, nil, nil, logger),
		feedback.NewEngine(records, params, feedback.EngineConfig{}, nil, logger),
		logger,
	)

	if err := records.CreateCompany(context.Background(), &domain.CompanyProfile{
		ID:             "co-1",
		Name:           "Acme Analytics",
		Industry:       "b2b saas",
		TargetAudience: "sales teams",
	}); err != nil {
		t.Fatalf("seed company: %v", err)
	}

	timeout := func(domain.JobType) time.Duration { return budget }
	worker := NewWorker(nil, jobs, coordinator, timeout, 2, nil, logger)
	return &workerHarness{worker: worker, jobs: jobs, records: records}
}

func (h *workerHarness) queueJob(t *testing.T, jobType domain.JobType, payload string) *domain.Job {
	t.Helper()
	now := time.Now().UTC()
	job := &domain.Job{
		ID:        "job-" + string(jobType),
		Type:      jobType,
		CompanyID: "co-1",
		Payload:   json.RawMessage(payload),
		Status:    domain.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.jobs.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func (h *workerHarness) message(job *domain.Job) domain.JobMessage {
	return domain.JobMessage{
		JobID:       job.ID,
		Type:        job.Type,
		CompanyID:   job.CompanyID,
		Payload:     job.Payload,
		RequestedAt: job.CreatedAt,
	}
}

func TestProcessRunsJobToSuccess(t *testing.T) {
	h := newWorkerHarness(t, nil, 10*time.Second)
	job := h.queueJob(t, domain.JobTypeSignalRefresh, `{"limit":3}`)

	if err := h.worker.process(context.Background(), h.message(job)); err != nil {
		t.Fatalf("expected processing to succeed: %v", err)
	}

	stored, err := h.jobs.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if stored.Status != domain.JobStatusSucceeded {
		t.Fatalf("expected succeeded, got %s", stored.Status)
	}
	if len(stored.Result) == 0 {
		t.Fatalf("expected a result payload")
	}
	if stored.ErrorMessage != "" {
		t.Fatalf("succeeded job must carry no error, got %q", stored.ErrorMessage)
	}
}

func TestProcessCapturesStageFailure(t *testing.T) {
	h := newWorkerHarness(t, nil, 10*time.Second)
	job := h.queueJob(t, domain.JobTypeCampaignGenerate, `{}`)

	if err := h.worker.process(context.Background(), h.message(job)); err == nil {
		t.Fatalf("expected the failing adapter to surface")
	}

	stored, err := h.jobs.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if stored.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
	if stored.Result != nil {
		t.Fatalf("failed job must carry no result, got %s", stored.Result)
	}
	if stored.ErrorMessage == "" {
		t.Fatalf("expected error detail on the job record")
	}
}

func TestProcessSkipsDuplicateDelivery(t *testing.T) {
	h := newWorkerHarness(t, nil, 10*time.Second)
	job := h.queueJob(t, domain.JobTypeSignalRefresh, `{}`)

	job.Status = domain.JobStatusSucceeded
	job.Result = json.RawMessage(`{"company_id":"co-1"}`)
	if err := h.jobs.UpdateJob(context.Background(), job); err != nil {
		t.Fatalf("update job: %v", err)
	}

	if err := h.worker.process(context.Background(), h.message(job)); err != nil {
		t.Fatalf("duplicate delivery must ack cleanly: %v", err)
	}

	stored, _ := h.jobs.GetJob(context.Background(), job.ID)
	if stored.Status != domain.JobStatusSucceeded || string(stored.Result) != `{"company_id":"co-1"}` {
		t.Fatalf("duplicate delivery must not touch the record: %+v", stored)
	}
}

func TestProcessEnforcesTimeoutBudget(t *testing.T) {
	h := newWorkerHarness(t, blockingSignalSource{}, 20*time.Millisecond)
	job := h.queueJob(t, domain.JobTypeSignalRefresh, `{}`)

	if err := h.worker.process(context.Background(), h.message(job)); err == nil {
		t.Fatalf("expected the budget to expire")
	}

	stored, _ := h.jobs.GetJob(context.Background(), job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
	if !strings.Contains(stored.ErrorMessage, "exceeded its") {
		t.Fatalf("expected a timeout message, got %q", stored.ErrorMessage)
	}
}

func TestLockForSerializesPerCompanyAndClass(t *testing.T) {
	h := newWorkerHarness(t, nil, time.Second)

	same := h.worker.lockFor("co-1", "signals")
	if h.worker.lockFor("co-1", "signals") != same {
		t.Fatalf("expected one mutex per (company, class)")
	}
	if h.worker.lockFor("co-1", "content") == same {
		t.Fatalf("expected distinct classes to use distinct locks")
	}
	if h.worker.lockFor("co-2", "signals") == same {
		t.Fatalf("expected distinct companies to use distinct locks")
	}
}
