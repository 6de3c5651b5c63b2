package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/domain"
	"github.com/signalhq/signal-backend/internal/metrics"
	"github.com/signalhq/signal-backend/internal/pipeline"
	"github.com/signalhq/signal-backend/internal/queue"
	"github.com/signalhq/signal-backend/internal/repository"
)

// TimeoutFunc resolves the wall-clock budget for one job type.
type TimeoutFunc func(jobType domain.JobType) time.Duration

// Worker runs the bounded execution pool. Each pool goroutine consumes from
// the queue and executes jobs to a terminal state. Jobs sharing a company and
// a job class are serialized through keyed locks; everything else runs in
// parallel up to the pool size.
type Worker struct {
	consumer    queue.Consumer
	jobs        repository.JobsRepository
	coordinator *pipeline.Coordinator
	timeout     TimeoutFunc
	collector   *metrics.Collector
	logger      *logrus.Entry
	poolSize    int

	mu    sync.Mutex
	locks map[lockKey]*sync.Mutex
}

type lockKey struct {
	companyID string
	class     string
}

func NewWorker(
	consumer queue.Consumer,
	jobs repository.JobsRepository,
	coordinator *pipeline.Coordinator,
	timeout TimeoutFunc,
	poolSize int,
	collector *metrics.Collector,
	logger *logrus.Entry,
) *Worker {
	if poolSize <= 0 {
		poolSize = 4
	}
	return &Worker{
		consumer:    consumer,
		jobs:        jobs,
		coordinator: coordinator,
		timeout:     timeout,
		collector:   collector,
		logger:      logger,
		poolSize:    poolSize,
		locks:       make(map[lockKey]*sync.Mutex),
	}
}

// Start blocks until ctx is cancelled and every pool goroutine has drained.
func (w *Worker) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.poolSize; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.consumeLoop(ctx, slot)
		}(i)
	}
	wg.Wait()
}

func (w *Worker) consumeLoop(ctx context.Context, slot int) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := w.consumer.Consume(ctx, w.process)
		if err == nil || ctx.Err() != nil {
			return
		}
		w.logger.WithError(err).WithField("slot", slot).Error("consume loop error")

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// process executes one job end to end. Errors returned here are final: the
// queue acks regardless, and the job record is the source of truth for the
// outcome.
func (w *Worker) process(ctx context.Context, message domain.JobMessage) error {
	job, err := w.jobs.GetJob(ctx, message.JobID)
	if err != nil {
		w.logger.WithError(err).WithField("job_id", message.JobID).Error("job record missing")
		return err
	}
	// A job that already left the queued state was picked up before; running
	// it again would break the single-attempt guarantee.
	if job.Status != domain.JobStatusQueued {
		w.logger.WithFields(logrus.Fields{
			"job_id": job.ID,
			"status": string(job.Status),
		}).Warn("skipping duplicate delivery")
		return nil
	}

	lock := w.lockFor(job.CompanyID, job.Type.Class())
	lock.Lock()
	defer lock.Unlock()

	job.Status = domain.JobStatusRunning
	job.UpdatedAt = time.Now().UTC()
	if err := w.jobs.UpdateJob(ctx, job); err != nil {
		w.logger.WithError(err).WithField("job_id", job.ID).Error("mark running failed")
		return err
	}

	if w.collector != nil {
		w.collector.JobsInFlight.Inc()
		defer w.collector.JobsInFlight.Dec()
	}

	budget := w.timeout(job.Type)
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	started := time.Now()
	result, execErr := w.coordinator.Execute(runCtx, job, w.progressFunc(job))
	elapsed := time.Since(started)

	if execErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		execErr = &domain.TimeoutError{JobType: job.Type, Budget: budget.String()}
	}

	if execErr != nil {
		job.Status = domain.JobStatusFailed
		job.Result = nil
		job.ErrorMessage = execErr.Error()
	} else {
		job.Status = domain.JobStatusSucceeded
		job.Result = result
		job.ErrorMessage = ""
	}
	job.UpdatedAt = time.Now().UTC()
	if err := w.jobs.UpdateJob(ctx, job); err != nil {
		w.logger.WithError(err).WithField("job_id", job.ID).Error("mark terminal failed")
		return err
	}

	if w.collector != nil {
		w.collector.JobsCompleted.WithLabelValues(string(job.Type), string(job.Status)).Inc()
		w.collector.JobDuration.WithLabelValues(string(job.Type)).Observe(elapsed.Seconds())
	}

	entry := w.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"type":       string(job.Type),
		"company_id": job.CompanyID,
		"status":     string(job.Status),
		"elapsed_ms": elapsed.Milliseconds(),
	})
	if execErr != nil {
		entry.WithField("error", execErr.Error()).Warn("job failed")
		return execErr
	}
	entry.Info("job succeeded")
	return nil
}

// progressFunc persists best-effort step/total updates. Failures are ignored:
// progress is advisory and never blocks execution.
func (w *Worker) progressFunc(job *domain.Job) func(step, total int) {
	return func(step, total int) {
		job.ProgressStep = step
		job.ProgressTotal = total
		job.UpdatedAt = time.Now().UTC()
		_ = w.jobs.UpdateJob(context.Background(), job)
	}
}

func (w *Worker) lockFor(companyID, class string) *sync.Mutex {
	key := lockKey{companyID: companyID, class: class}
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[key] = lock
	}
	return lock
}
