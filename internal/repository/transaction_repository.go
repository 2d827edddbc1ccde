package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/centsible/sync-worker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Upsert creates or refreshes a transaction keyed by the aggregator's id.
// Enrichment and installment tagging run before the write, so the stored
// description is the enriched one.
func (r *TransactionRepository) Upsert(ctx context.Context, tx *models.Transaction) error {
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "amount", "date", "category", "type",
			"installment_number", "total_installments", "is_refund",
			"payment_meta", "updated_at",
		}),
	}).Create(tx).Error
	if err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return nil
}

// GetByAccountID retrieves all transactions for an account
func (r *TransactionRepository) GetByAccountID(ctx context.Context, accountID string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	result := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("date DESC").
		Find(&transactions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", result.Error)
	}
	return transactions, nil
}
