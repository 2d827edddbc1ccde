package models

import "time"

type SyncJobType string

const (
	JobTypeSync    SyncJobType = "sync"
	JobTypeTrigger SyncJobType = "trigger"
)

type SyncJobStatus string

const (
	JobStatusQueued     SyncJobStatus = "queued"
	JobStatusProcessing SyncJobStatus = "processing"
	JobStatusDone       SyncJobStatus = "done"
	JobStatusFailed     SyncJobStatus = "failed"
)

// SyncJobTTL is how long a job row outlives its last write. The queue
// refreshes expires_at on every write so stale jobs age out uniformly.
const SyncJobTTL = 24 * time.Hour

// SyncJob is one unit of sync work, created by a producer (webhook or
// manual trigger) and owned by the job queue from claim to terminal state.
// Producers set only the creation fields; status, attempts and timestamps
// belong to the queue.
type SyncJob struct {
	ID                  string        `gorm:"column:id;primaryKey"`
	Type                SyncJobType   `gorm:"column:type"`
	UserID              string        `gorm:"column:user_id;index"`
	ItemID              string        `gorm:"column:item_id;index"`
	SyncJobID           string        `gorm:"column:sync_job_id"`
	CreditTransactionID *string       `gorm:"column:credit_transaction_id"`
	Status              SyncJobStatus `gorm:"column:status;index"`
	Attempts            int           `gorm:"column:attempts"`
	AvailableAt         *time.Time    `gorm:"column:available_at"`
	LastError           *string       `gorm:"column:last_error"`
	CreatedAt           time.Time     `gorm:"column:created_at"`
	UpdatedAt           time.Time     `gorm:"column:updated_at"`
	StartedAt           *time.Time    `gorm:"column:started_at"`
	CompletedAt         *time.Time    `gorm:"column:completed_at"`
	FailedAt            *time.Time    `gorm:"column:failed_at"`
	ExpiresAt           time.Time     `gorm:"column:expires_at"`
}

// TableName specifies the table name for GORM
func (SyncJob) TableName() string {
	return "sync_jobs"
}

// Valid reports whether the producer supplied every required field.
func (j *SyncJob) Valid() bool {
	return j.UserID != "" && j.ItemID != "" && j.SyncJobID != ""
}
