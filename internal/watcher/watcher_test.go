package watcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/centsible/sync-worker/internal/aggregator"
	"github.com/centsible/sync-worker/internal/config"
	"github.com/centsible/sync-worker/internal/models"
	"github.com/centsible/sync-worker/internal/service"
)

type mockJobQueue struct {
	queued     []models.SyncJob
	claimFunc  func(ctx context.Context, jobID string) (*models.SyncJob, error)
	done       []string
	failed     map[string]string
	reapedFunc func(ctx context.Context, olderThan time.Duration) (int64, error)
}

func newMockJobQueue(queued ...models.SyncJob) *mockJobQueue {
	return &mockJobQueue{queued: queued, failed: make(map[string]string)}
}

func (m *mockJobQueue) GetQueuedJobs(ctx context.Context, limit int) ([]models.SyncJob, error) {
	return m.queued, nil
}

func (m *mockJobQueue) Claim(ctx context.Context, jobID string) (*models.SyncJob, error) {
	if m.claimFunc != nil {
		return m.claimFunc(ctx, jobID)
	}
	for i := range m.queued {
		if m.queued[i].ID == jobID {
			job := m.queued[i]
			job.Status = models.JobStatusProcessing
			job.Attempts++
			return &job, nil
		}
	}
	return nil, nil
}

func (m *mockJobQueue) MarkDone(ctx context.Context, jobID string) error {
	m.done = append(m.done, jobID)
	return nil
}

func (m *mockJobQueue) MarkFailed(ctx context.Context, jobID string, reason string) error {
	m.failed[jobID] = reason
	return nil
}

func (m *mockJobQueue) ReapStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if m.reapedFunc != nil {
		return m.reapedFunc(ctx, olderThan)
	}
	return 0, nil
}

type mockProcessor struct {
	processFunc func(ctx context.Context, job *models.SyncJob) error
	processed   []string
}

func (m *mockProcessor) ProcessSyncJob(ctx context.Context, job *models.SyncJob) error {
	m.processed = append(m.processed, job.ID)
	if m.processFunc != nil {
		return m.processFunc(ctx, job)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{PollInterval: 1, StaleJobMinutes: 15}
}

func TestWatcher_RunJob_Success(t *testing.T) {
	queue := newMockJobQueue(models.SyncJob{
		ID: "job-1", Type: models.JobTypeSync, UserID: "u1", ItemID: "it1", SyncJobID: "s1",
		Status: models.JobStatusQueued,
	})
	processor := &mockProcessor{}
	w := New(testConfig(), queue, processor)

	if err := w.processQueuedJobs(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(processor.processed) != 1 || processor.processed[0] != "job-1" {
		t.Errorf("expected job-1 processed, got %v", processor.processed)
	}
	if len(queue.done) != 1 || queue.done[0] != "job-1" {
		t.Errorf("expected job-1 marked done, got %v", queue.done)
	}
}

func TestWatcher_RunJob_InvalidJobFailsWithoutClaim(t *testing.T) {
	queue := newMockJobQueue(models.SyncJob{
		ID: "job-1", Type: models.JobTypeSync, UserID: "u1", Status: models.JobStatusQueued,
	})
	claimed := false
	queue.claimFunc = func(ctx context.Context, jobID string) (*models.SyncJob, error) {
		claimed = true
		return nil, nil
	}
	processor := &mockProcessor{}
	w := New(testConfig(), queue, processor)

	if err := w.processQueuedJobs(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if claimed {
		t.Error("invalid job must be rejected before claim")
	}
	if reason, ok := queue.failed["job-1"]; !ok || reason != invalidJobReason {
		t.Errorf("expected invalid-job failure reason, got %q", reason)
	}
	if len(processor.processed) != 0 {
		t.Errorf("invalid job must not be processed, got %v", processor.processed)
	}
}

func TestWatcher_RunJob_LostClaimSkipsProcessing(t *testing.T) {
	queue := newMockJobQueue(models.SyncJob{
		ID: "job-1", Type: models.JobTypeSync, UserID: "u1", ItemID: "it1", SyncJobID: "s1",
		Status: models.JobStatusQueued,
	})
	queue.claimFunc = func(ctx context.Context, jobID string) (*models.SyncJob, error) {
		return nil, nil // another worker won
	}
	processor := &mockProcessor{}
	w := New(testConfig(), queue, processor)

	if err := w.processQueuedJobs(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(processor.processed) != 0 {
		t.Errorf("lost claim must not process, got %v", processor.processed)
	}
	if len(queue.done) != 0 || len(queue.failed) != 0 {
		t.Error("lost claim must leave the job untouched")
	}
}

func TestWatcher_RunJob_ProcessorErrorMarksFailed(t *testing.T) {
	queue := newMockJobQueue(models.SyncJob{
		ID: "job-1", Type: models.JobTypeSync, UserID: "u1", ItemID: "it1", SyncJobID: "s1",
		Status: models.JobStatusQueued,
	})
	processor := &mockProcessor{
		processFunc: func(ctx context.Context, job *models.SyncJob) error {
			return errors.New("item update failed: INVALID_CREDENTIALS")
		},
	}
	w := New(testConfig(), queue, processor)

	if err := w.processQueuedJobs(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if reason, ok := queue.failed["job-1"]; !ok || reason != "item update failed: INVALID_CREDENTIALS" {
		t.Errorf("expected verbatim failure reason, got %q", reason)
	}
	if len(queue.done) != 0 {
		t.Errorf("failed job must not be marked done, got %v", queue.done)
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "poll timeout gets distinct prefix",
			err:      fmt.Errorf("%w after 480s", service.ErrPollTimeout),
			expected: "poll timeout: item update polling timed out after 480s",
		},
		{
			name:     "server error is transient",
			err:      fmt.Errorf("failed to list accounts: %w", &aggregator.APIError{StatusCode: 503, Body: "unavailable"}),
			expected: "transient: failed to list accounts: aggregator error (status 503): unavailable",
		},
		{
			name:     "client error recorded verbatim",
			err:      fmt.Errorf("failed to list accounts: %w", &aggregator.APIError{StatusCode: 404, Body: "no such item"}),
			expected: "failed to list accounts: aggregator error (status 404): no such item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureReason(tt.err); got != tt.expected {
				t.Errorf("failureReason() = %q, want %q", got, tt.expected)
			}
		})
	}
}
