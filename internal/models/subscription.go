package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription is a recurring charge the user registered against one of
// their cards. Read-only input to reconciliation; lifecycle is managed by
// the subscription component.
type Subscription struct {
	ID         string          `gorm:"column:id;primaryKey"`
	UserID     string          `gorm:"column:user_id;index"`
	Name       string          `gorm:"column:name"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(14,2)"`
	AccountID  string          `gorm:"column:account_id"`
	ClosingDay int             `gorm:"column:closing_day"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// SubscriptionConfirmation records that a fetched transaction paid a known
// subscription for a given invoice month. Consumed by the subscription
// status component.
type SubscriptionConfirmation struct {
	ID             string    `gorm:"column:id;primaryKey"`
	UserID         string    `gorm:"column:user_id;index"`
	SubscriptionID string    `gorm:"column:subscription_id"`
	InvoiceMonth   string    `gorm:"column:invoice_month"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (SubscriptionConfirmation) TableName() string {
	return "subscription_confirmations"
}
