package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/centsible/sync-worker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SyncJobRepository struct {
	db *gorm.DB
}

func NewSyncJobRepository(db *gorm.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

// Create inserts a producer-side job in queued state. Producers only pick
// the creation fields; status, attempts and timestamps are set here.
func (r *SyncJobRepository) Create(ctx context.Context, job *models.SyncJob) error {
	now := time.Now()
	job.Status = models.JobStatusQueued
	job.Attempts = 0
	job.CreatedAt = now
	job.UpdatedAt = now
	job.ExpiresAt = now.Add(models.SyncJobTTL)

	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create sync job: %w", err)
	}
	return nil
}

// GetQueuedJobs lists claim candidates: queued jobs whose available_at has
// passed (or was never set), oldest first.
func (r *SyncJobRepository) GetQueuedJobs(ctx context.Context, limit int) ([]models.SyncJob, error) {
	var jobs []models.SyncJob
	result := r.db.WithContext(ctx).
		Where("status = ?", models.JobStatusQueued).
		Where("available_at IS NULL OR available_at <= ?", time.Now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query queued jobs: %w", result.Error)
	}
	return jobs, nil
}

// Claim transitions one job from queued to processing inside a single
// row-locking transaction. Of any number of concurrent claims on the same
// row, exactly one commits the transition; the rest observe the processing
// status after the lock releases and return nil. Also nil when the job does
// not exist, is not queued, or is not yet available.
func (r *SyncJobRepository) Claim(ctx context.Context, jobID string) (*models.SyncJob, error) {
	var claimed *models.SyncJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.SyncJob
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&job, "id = ?", jobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read job: %w", err)
		}

		if job.Status != models.JobStatusQueued {
			return nil
		}
		now := time.Now()
		if job.AvailableAt != nil && job.AvailableAt.After(now) {
			return nil
		}

		job.Attempts++
		job.Status = models.JobStatusProcessing
		job.StartedAt = &now
		job.UpdatedAt = now
		job.ExpiresAt = now.Add(models.SyncJobTTL)

		err = tx.Model(&models.SyncJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":     job.Status,
				"attempts":   job.Attempts,
				"started_at": now,
				"updated_at": now,
				"expires_at": job.ExpiresAt,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to claim job: %w", err)
		}

		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkDone records terminal success. Plain update: it only runs after a
// successful claim held by a single worker.
func (r *SyncJobRepository) MarkDone(ctx context.Context, jobID string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":       models.JobStatusDone,
			"completed_at": now,
			"updated_at":   now,
			"expires_at":   now.Add(models.SyncJobTTL),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark job done: %w", result.Error)
	}
	return nil
}

// MarkFailed records terminal failure with the reason kept for operators
// and producer-side retry policies.
func (r *SyncJobRepository) MarkFailed(ctx context.Context, jobID string, reason string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     models.JobStatusFailed,
			"last_error": reason,
			"failed_at":  now,
			"updated_at": now,
			"expires_at": now.Add(models.SyncJobTTL),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark job failed: %w", result.Error)
	}
	return nil
}

// ReapStale fails processing jobs whose worker stopped writing; such jobs
// can never reach a terminal state on their own.
func (r *SyncJobRepository) ReapStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("status = ? AND updated_at < ?", models.JobStatusProcessing, now.Add(-olderThan)).
		Updates(map[string]interface{}{
			"status":     models.JobStatusFailed,
			"last_error": "stale processing job",
			"failed_at":  now,
			"updated_at": now,
			"expires_at": now.Add(models.SyncJobTTL),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reap stale jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
