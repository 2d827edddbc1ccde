package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/centsible/sync-worker/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetByUser lists a user's subscriptions. Read-only here; the subscription
// component owns the rows.
func (r *SubscriptionRepository) GetByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&subs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", result.Error)
	}
	return subs, nil
}

type ConfirmationRepository struct {
	db *gorm.DB
}

func NewConfirmationRepository(db *gorm.DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

// Record appends a confirmation to the output stream, ignoring duplicates
// for the same subscription and invoice month so replayed syncs stay
// idempotent.
func (r *ConfirmationRepository) Record(ctx context.Context, c *models.SubscriptionConfirmation) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "invoice_month"}},
		DoNothing: true,
	}).Create(c).Error
	if err != nil {
		return fmt.Errorf("failed to record confirmation: %w", err)
	}
	return nil
}
