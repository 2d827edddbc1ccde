package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/centsible/sync-worker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Upsert creates or refreshes an account keyed by the aggregator's id, so
// repeated syncs are idempotent.
func (r *AccountRepository) Upsert(ctx context.Context, account *models.Account) error {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "institution", "balance", "currency", "updated_at"}),
	}).Create(account).Error
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// GetByUserID retrieves all accounts for a user
func (r *AccountRepository) GetByUserID(ctx context.Context, userID string) ([]models.Account, error) {
	var accounts []models.Account
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&accounts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", result.Error)
	}
	return accounts, nil
}
