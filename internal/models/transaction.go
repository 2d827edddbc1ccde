package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// JSONB type for GORM to handle PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Value implements driver.Valuer for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}

// Transaction is a bank transaction fetched through the aggregator.
// The description is mutable: enrichment may rewrite it from payment
// metadata. PaymentMeta keeps the aggregator payload verbatim for audit.
type Transaction struct {
	ID                string          `gorm:"column:id;primaryKey"`
	UserID            string          `gorm:"column:user_id;index"`
	AccountID         string          `gorm:"column:account_id;index"`
	Description       string          `gorm:"column:description"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(14,2)"`
	Date              time.Time       `gorm:"column:date;index"`
	Category          *string         `gorm:"column:category"`
	Type              TransactionType `gorm:"column:type"`
	InstallmentNumber *int            `gorm:"column:installment_number"`
	TotalInstallments *int            `gorm:"column:total_installments"`
	IsRefund          bool            `gorm:"column:is_refund"`
	PaymentMeta       JSONB           `gorm:"column:payment_meta;type:jsonb"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// Metadata returns the typed view over the raw payment payload.
func (t *Transaction) Metadata() PaymentMetadata {
	return PaymentMetadataFromRaw(t.PaymentMeta)
}
