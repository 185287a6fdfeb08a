package model

import (
	"time"

	"creditledger/pkg/money"
)

// Payment is an append-only record against a debt. Rows are never updated or
// deleted except through the debt's cascade.
type Payment struct {
	ID         int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo  string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`
	DebtID     int64       `gorm:"index;not null" json:"debt_id"`
	Amount     money.Cents `gorm:"type:decimal(12,2);not null" json:"amount"`
	Note       *string     `gorm:"type:varchar(256)" json:"note"`
	RecordedBy int64       `gorm:"not null" json:"recorded_by"`
	PaidAt     time.Time   `gorm:"index;not null" json:"paid_at"`
}

func (Payment) TableName() string {
	return "payment"
}
