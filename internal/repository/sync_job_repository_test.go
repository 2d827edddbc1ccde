package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/centsible/sync-worker/internal/database"
	"github.com/centsible/sync-worker/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Integration tests against a real Postgres. Set TEST_DATABASE_URL to run,
// e.g. postgres://localhost:5432/centsible_test?sslmode=disable
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	db, err := database.Connect(dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func newTestJob(t *testing.T, repo *SyncJobRepository) *models.SyncJob {
	t.Helper()
	job := &models.SyncJob{
		ID:        uuid.NewString(),
		Type:      models.JobTypeSync,
		UserID:    "u1",
		ItemID:    "it1",
		SyncJobID: uuid.NewString(),
	}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	return job
}

func TestSyncJobRepository_Create(t *testing.T) {
	repo := NewSyncJobRepository(testDB(t))
	job := newTestJob(t, repo)

	if job.Status != models.JobStatusQueued {
		t.Errorf("expected queued status, got %s", job.Status)
	}
	if job.Attempts != 0 {
		t.Errorf("expected 0 attempts, got %d", job.Attempts)
	}
	if job.ExpiresAt.Before(time.Now().Add(23 * time.Hour)) {
		t.Errorf("expected expires_at about a day out, got %v", job.ExpiresAt)
	}
}

func TestSyncJobRepository_Claim_ExactlyOnce(t *testing.T) {
	repo := NewSyncJobRepository(testDB(t))
	job := newTestJob(t, repo)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*models.SyncJob, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.Claim(context.Background(), job.ID)
		}(i)
	}
	wg.Wait()

	won := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("claim %d returned error: %v", i, errs[i])
		}
		if results[i] != nil {
			won++
			if results[i].Status != models.JobStatusProcessing {
				t.Errorf("claimed job should be processing, got %s", results[i].Status)
			}
			if results[i].Attempts != 1 {
				t.Errorf("expected attempts 1 on first claim, got %d", results[i].Attempts)
			}
		}
	}
	if won != 1 {
		t.Errorf("expected exactly one winning claim, got %d", won)
	}
}

func TestSyncJobRepository_Claim_SkipsFutureAvailableAt(t *testing.T) {
	db := testDB(t)
	repo := NewSyncJobRepository(db)
	job := newTestJob(t, repo)

	future := time.Now().Add(time.Hour)
	if err := db.Model(&models.SyncJob{}).Where("id = ?", job.ID).
		Update("available_at", future).Error; err != nil {
		t.Fatalf("failed to set available_at: %v", err)
	}

	claimed, err := repo.Claim(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if claimed != nil {
		t.Error("job with future available_at must not be claimable")
	}
}

func TestSyncJobRepository_Claim_MissingJob(t *testing.T) {
	repo := NewSyncJobRepository(testDB(t))

	claimed, err := repo.Claim(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("expected no error for missing job, got %v", err)
	}
	if claimed != nil {
		t.Error("missing job must not be claimable")
	}
}

func TestSyncJobRepository_MarkDone(t *testing.T) {
	db := testDB(t)
	repo := NewSyncJobRepository(db)
	job := newTestJob(t, repo)

	if _, err := repo.Claim(context.Background(), job.ID); err != nil {
		t.Fatalf("failed to claim: %v", err)
	}
	if err := repo.MarkDone(context.Background(), job.ID); err != nil {
		t.Fatalf("failed to mark done: %v", err)
	}

	var stored models.SyncJob
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if stored.Status != models.JobStatusDone {
		t.Errorf("expected done, got %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	// terminal jobs are no longer claimable
	claimed, err := repo.Claim(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if claimed != nil {
		t.Error("done job must not be claimable")
	}
}

func TestSyncJobRepository_MarkFailed(t *testing.T) {
	db := testDB(t)
	repo := NewSyncJobRepository(db)
	job := newTestJob(t, repo)

	if _, err := repo.Claim(context.Background(), job.ID); err != nil {
		t.Fatalf("failed to claim: %v", err)
	}
	if err := repo.MarkFailed(context.Background(), job.ID, "transient: aggregator error (status 503): unavailable"); err != nil {
		t.Fatalf("failed to mark failed: %v", err)
	}

	var stored models.SyncJob
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if stored.Status != models.JobStatusFailed {
		t.Errorf("expected failed, got %s", stored.Status)
	}
	if stored.LastError == nil || *stored.LastError != "transient: aggregator error (status 503): unavailable" {
		t.Errorf("expected failure reason stored verbatim, got %v", stored.LastError)
	}
	if stored.FailedAt == nil {
		t.Error("expected failed_at to be set")
	}
}

func TestSyncJobRepository_ReapStale(t *testing.T) {
	db := testDB(t)
	repo := NewSyncJobRepository(db)
	job := newTestJob(t, repo)

	if _, err := repo.Claim(context.Background(), job.ID); err != nil {
		t.Fatalf("failed to claim: %v", err)
	}
	// age the row past the stale threshold
	old := time.Now().Add(-time.Hour)
	if err := db.Model(&models.SyncJob{}).Where("id = ?", job.ID).
		Update("updated_at", old).Error; err != nil {
		t.Fatalf("failed to age job: %v", err)
	}

	reaped, err := repo.ReapStale(context.Background(), 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to reap: %v", err)
	}
	if reaped < 1 {
		t.Errorf("expected at least one reaped job, got %d", reaped)
	}

	var stored models.SyncJob
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if stored.Status != models.JobStatusFailed {
		t.Errorf("expected stale job failed, got %s", stored.Status)
	}
	if stored.LastError == nil || *stored.LastError != "stale processing job" {
		t.Errorf("expected stale reason, got %v", stored.LastError)
	}
}

func TestSyncJobRepository_GetQueuedJobs_OrderAndAvailability(t *testing.T) {
	db := testDB(t)
	repo := NewSyncJobRepository(db)

	first := newTestJob(t, repo)
	time.Sleep(5 * time.Millisecond)
	second := newTestJob(t, repo)
	deferred := newTestJob(t, repo)

	future := time.Now().Add(time.Hour)
	if err := db.Model(&models.SyncJob{}).Where("id = ?", deferred.ID).
		Update("available_at", future).Error; err != nil {
		t.Fatalf("failed to defer job: %v", err)
	}

	jobs, err := repo.GetQueuedJobs(context.Background(), 100)
	if err != nil {
		t.Fatalf("failed to list queued jobs: %v", err)
	}

	var ids []string
	for _, j := range jobs {
		if j.ID == deferred.ID {
			t.Error("deferred job must not be listed")
		}
		if j.ID == first.ID || j.ID == second.ID {
			ids = append(ids, j.ID)
		}
	}
	if len(ids) != 2 || ids[0] != first.ID || ids[1] != second.ID {
		t.Errorf("expected oldest-first [%s %s], got %v", first.ID, second.ID, ids)
	}
}
