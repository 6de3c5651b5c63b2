package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/signalhq/signal-backend/internal/domain"
)

// ErrNotFound mirrors domain.ErrNotFound so callers can match either.
var ErrNotFound = domain.ErrNotFound

// JobListFilter narrows job listings. Zero-value fields are ignored.
type JobListFilter struct {
	CompanyID string
	Type      domain.JobType
	Status    domain.JobStatus
	Page      int
	PageSize  int
}

// JobsRepository abstracts job persistence and query operations.
type JobsRepository interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	UpdateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter JobListFilter) ([]*domain.Job, int, error)
}

// MemoryJobsRepository stores jobs in memory for local development and tests.
type MemoryJobsRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

func NewMemoryJobsRepository() *MemoryJobsRepository {
	return &MemoryJobsRepository{
		jobs: make(map[string]*domain.Job),
	}
}

func (r *MemoryJobsRepository) CreateJob(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryJobsRepository) UpdateJob(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryJobsRepository) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *MemoryJobsRepository) ListJobs(
	_ context.Context,
	filter JobListFilter,
) ([]*domain.Job, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items := make([]*domain.Job, 0)
	for _, job := range r.jobs {
		if filter.CompanyID != "" && job.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		items = append(items, cloneJob(job))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	total := len(items)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []*domain.Job{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}

func cloneJob(job *domain.Job) *domain.Job {
	if job == nil {
		return nil
	}
	clone := *job
	clone.Payload = append([]byte(nil), job.Payload...)
	clone.Result = append([]byte(nil), job.Result...)
	return &clone
}
