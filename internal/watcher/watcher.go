package watcher

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/centsible/sync-worker/internal/aggregator"
	"github.com/centsible/sync-worker/internal/config"
	"github.com/centsible/sync-worker/internal/models"
	"github.com/centsible/sync-worker/internal/service"
)

const (
	claimBatchSize = 10

	// invalidJobReason is recorded on jobs missing required producer fields.
	// Structural defects never retry.
	invalidJobReason = "invalid job: missing required fields"
)

// JobQueue is the sync-job lifecycle the watcher drives.
type JobQueue interface {
	GetQueuedJobs(ctx context.Context, limit int) ([]models.SyncJob, error)
	Claim(ctx context.Context, jobID string) (*models.SyncJob, error)
	MarkDone(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	ReapStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// JobProcessor executes a claimed job.
type JobProcessor interface {
	ProcessSyncJob(ctx context.Context, job *models.SyncJob) error
}

type Watcher struct {
	cfg       *config.Config
	queue     JobQueue
	processor JobProcessor
}

func New(cfg *config.Config, queue JobQueue, processor JobProcessor) *Watcher {
	return &Watcher{
		cfg:       cfg,
		queue:     queue,
		processor: processor,
	}
}

// Start begins watching for queued sync jobs
func (w *Watcher) Start(ctx context.Context) error {
	log.Println("Starting watcher for sync jobs...")

	// Process any queued jobs from previous runs
	if err := w.processQueuedJobs(ctx); err != nil {
		log.Printf("Warning: failed to process queued jobs on startup: %v", err)
	}

	ticker := time.NewTicker(time.Duration(w.cfg.PollInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Watcher shutting down...")
			return ctx.Err()
		case <-ticker.C:
			if err := w.processQueuedJobs(ctx); err != nil {
				log.Printf("Error processing jobs: %v", err)
			}
		}
	}
}

func (w *Watcher) processQueuedJobs(ctx context.Context) error {
	staleAfter := time.Duration(w.cfg.StaleJobMinutes) * time.Minute
	if reaped, err := w.queue.ReapStale(ctx, staleAfter); err != nil {
		log.Printf("Error reaping stale jobs: %v", err)
	} else if reaped > 0 {
		log.Printf("Failed %d stale processing job(s)", reaped)
	}

	jobs, err := w.queue.GetQueuedJobs(ctx, claimBatchSize)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Found %d sync job(s) to process", len(jobs))

	for i := range jobs {
		w.runJob(ctx, &jobs[i])
	}
	return nil
}

// runJob validates, claims and executes one candidate job. A nil claim
// means another worker won the race or the job is no longer available.
func (w *Watcher) runJob(ctx context.Context, candidate *models.SyncJob) {
	if !candidate.Valid() {
		log.Printf("Job %s rejected: missing required fields", candidate.ID)
		if err := w.queue.MarkFailed(ctx, candidate.ID, invalidJobReason); err != nil {
			log.Printf("Warning: failed to fail invalid job %s: %v", candidate.ID, err)
		}
		return
	}

	job, err := w.queue.Claim(ctx, candidate.ID)
	if err != nil {
		log.Printf("Failed to claim job %s: %v", candidate.ID, err)
		return
	}
	if job == nil {
		return
	}

	if err := w.processor.ProcessSyncJob(ctx, job); err != nil {
		log.Printf("Sync job %s failed: %v", job.ID, err)
		if markErr := w.queue.MarkFailed(ctx, job.ID, failureReason(err)); markErr != nil {
			log.Printf("Warning: failed to record failure for job %s: %v", job.ID, markErr)
		}
		return
	}

	if err := w.queue.MarkDone(ctx, job.ID); err != nil {
		log.Printf("Warning: failed to mark job %s done: %v", job.ID, err)
		return
	}
	log.Printf("Sync job %s completed", job.ID)
}

// failureReason prefixes last_error so producers can tell retryable
// failures from permanent ones.
func failureReason(err error) string {
	switch {
	case errors.Is(err, service.ErrPollTimeout):
		return "poll timeout: " + err.Error()
	case aggregator.Retryable(err):
		return "transient: " + err.Error()
	default:
		return err.Error()
	}
}
