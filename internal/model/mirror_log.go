package model

import (
	"time"
)

const (
	MirrorKindDebt    = "DEBT"
	MirrorKindPayment = "PAYMENT"
)

// MirrorLog records one attempt to mirror a local mutation to the external
// ledger, whether it succeeded or not.
type MirrorLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind      string    `gorm:"type:varchar(20);not null" json:"kind"`
	DebtID    int64     `gorm:"index;not null" json:"debt_id"`
	PaymentID *int64    `gorm:"index" json:"payment_id"`
	TxHash    *string   `gorm:"type:varchar(80)" json:"tx_hash"`
	Success   bool      `gorm:"not null" json:"success"`
	Error     *string   `gorm:"type:text" json:"error"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (MirrorLog) TableName() string {
	return "mirror_log"
}
