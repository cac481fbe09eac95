// Package worker runs queued jobs in the background.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"patwa/internal/models"
	"patwa/internal/storage"
)

// ProgressFunc reports job progress (0-100) and the current step.
type ProgressFunc func(progress int, step string)

// JobHandler processes a job.
type JobHandler func(ctx context.Context, job *models.ProcessingJob, progress ProgressFunc) error

// FailureHandler is told about a job that failed for good, after its last
// retry.
type FailureHandler func(ctx context.Context, job *models.ProcessingJob, jobErr error)

// CleanupInterval is how often completed jobs past retention are deleted.
const CleanupInterval = time.Hour

// Options configures a Worker.
type Options struct {
	Interval   time.Duration
	MaxRetries int

	// RetentionDays > 0 deletes completed jobs older than that many days.
	RetentionDays int
}

// DefaultOptions polls every second, retries a job three times and keeps
// completed jobs for 30 days.
func DefaultOptions() Options {
	return Options{Interval: time.Second, MaxRetries: 3, RetentionDays: 30}
}

// Worker processes jobs from the queue one at a time.
type Worker struct {
	jobRepo       *storage.JobRepository
	handlers      map[string]JobHandler
	onFailure     map[string]FailureHandler
	interval      time.Duration
	maxRetries    int
	retentionDays int
	log           zerolog.Logger
	stop          chan struct{}
	wg            sync.WaitGroup
	mu            sync.RWMutex
}

// New creates a worker.
func New(jobRepo *storage.JobRepository, opts Options, log zerolog.Logger) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Worker{
		jobRepo:       jobRepo,
		handlers:      make(map[string]JobHandler),
		onFailure:     make(map[string]FailureHandler),
		interval:      opts.Interval,
		maxRetries:    opts.MaxRetries,
		retentionDays: opts.RetentionDays,
		log:           log,
		stop:          make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type.
func (w *Worker) RegisterHandler(jobType string, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// RegisterFailureHandler registers fn to run when a job of jobType has
// exhausted its retries.
func (w *Worker) RegisterFailureHandler(jobType string, fn FailureHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onFailure[jobType] = fn
}

// Start requeues jobs interrupted by a previous run and begins polling.
func (w *Worker) Start(ctx context.Context) {
	if n, err := w.jobRepo.ResetRunning(ctx); err != nil {
		w.log.Error().Err(err).Msg("failed to requeue interrupted jobs")
	} else if n > 0 {
		w.log.Info().Int64("count", n).Msg("requeued interrupted jobs")
	}

	w.wg.Add(1)
	go w.run(ctx)
	w.log.Info().Dur("interval", w.interval).Msg("worker started")
}

// Stop waits for the current job to finish and stops polling.
func (w *Worker) Stop() {
	close(w.stop)
	w.wg.Wait()
	w.log.Info().Msg("worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	cleanup := time.NewTicker(CleanupInterval)
	defer cleanup.Stop()
	w.Cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-cleanup.C:
			w.Cleanup(ctx)
		case <-ticker.C:
			// drain the queue before waiting for the next tick
			for w.ProcessNext(ctx) {
				select {
				case <-ctx.Done():
					return
				case <-w.stop:
					return
				default:
				}
			}
		}
	}
}

// Cleanup deletes completed jobs past the retention period.
func (w *Worker) Cleanup(ctx context.Context) {
	if w.retentionDays <= 0 {
		return
	}
	n, err := w.jobRepo.CleanupCompleted(ctx, w.retentionDays)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to clean up completed jobs")
		return
	}
	if n > 0 {
		w.log.Info().Int64("deleted", n).Int("retention_days", w.retentionDays).Msg("cleaned up completed jobs")
	}
}

// ProcessNext runs the next queued job, if any. It reports whether a job
// was taken from the queue.
func (w *Worker) ProcessNext(ctx context.Context) bool {
	job, err := w.jobRepo.GetNextQueued(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to get next job")
		return false
	}
	if job == nil {
		return false
	}

	log := w.log.With().Str("job_id", job.ID).Str("type", job.Type).Logger()

	w.mu.RLock()
	handler, ok := w.handlers[job.Type]
	w.mu.RUnlock()

	if !ok {
		log.Error().Msg("no handler for job type")
		if err := w.jobRepo.Fail(ctx, job.ID, "no handler registered for job type: "+job.Type); err != nil {
			log.Error().Err(err).Msg("failed to fail job")
			return false
		}
		return true
	}

	if err := w.jobRepo.Start(ctx, job.ID); err != nil {
		log.Error().Err(err).Msg("failed to start job")
		return false
	}
	log.Info().Int("attempt", job.RetryCount+1).Msg("processing job")

	progress := func(p int, step string) {
		if err := w.jobRepo.UpdateProgressWithStep(ctx, job.ID, p, step); err != nil {
			log.Warn().Err(err).Msg("failed to update progress")
		}
	}

	if err := w.runHandler(ctx, handler, job, progress); err != nil {
		log.Warn().Err(err).Msg("job failed")
		w.handleJobFailure(ctx, job, err)
		return true
	}

	if err := w.jobRepo.Complete(ctx, job.ID); err != nil {
		log.Error().Err(err).Msg("failed to complete job")
		return true
	}
	log.Info().Msg("job completed")
	return true
}

func (w *Worker) runHandler(ctx context.Context, handler JobHandler, job *models.ProcessingJob, progress ProgressFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, job, progress)
}

func (w *Worker) handleJobFailure(ctx context.Context, job *models.ProcessingJob, jobErr error) {
	ctx = context.WithoutCancel(ctx)
	if job.RetryCount < w.maxRetries {
		if err := w.jobRepo.Retry(ctx, job.ID, jobErr.Error()); err != nil {
			w.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to retry job")
			return
		}
		w.log.Info().Str("job_id", job.ID).Msgf("job queued for retry (attempt %d/%d)", job.RetryCount+1, w.maxRetries)
		return
	}
	if err := w.jobRepo.Fail(ctx, job.ID, jobErr.Error()); err != nil {
		w.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to fail job")
		return
	}

	w.mu.RLock()
	fn := w.onFailure[job.Type]
	w.mu.RUnlock()
	if fn != nil {
		fn(ctx, job, jobErr)
	}
}
