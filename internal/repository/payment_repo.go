package repository

import (
	"context"

	"creditledger/internal/model"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(payment).Error
}

// ListByDebt returns the debt's payments, newest first. Pass the locking tx
// to read inside the balance check.
func (r *PaymentRepository) ListByDebt(ctx context.Context, tx *gorm.DB, debtID int64) ([]model.Payment, error) {
	if tx == nil {
		tx = r.db
	}
	var payments []model.Payment
	err := tx.WithContext(ctx).
		Where("debt_id = ?", debtID).
		Order("paid_at DESC").Order("id DESC").
		Find(&payments).Error
	return payments, err
}
