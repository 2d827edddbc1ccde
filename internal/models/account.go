package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a bank account fetched through the aggregator. The ID is the
// aggregator's account id, so repeated syncs upsert the same row.
type Account struct {
	ID          string          `gorm:"column:id;primaryKey"`
	UserID      string          `gorm:"column:user_id;index"`
	ItemID      string          `gorm:"column:item_id;index"`
	Name        string          `gorm:"column:name"`
	Institution string          `gorm:"column:institution"`
	Balance     decimal.Decimal `gorm:"column:balance;type:numeric(14,2)"`
	Currency    string          `gorm:"column:currency"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (Account) TableName() string {
	return "accounts"
}
