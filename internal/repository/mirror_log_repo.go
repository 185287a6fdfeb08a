package repository

import (
	"context"

	"creditledger/internal/model"

	"gorm.io/gorm"
)

type MirrorLogRepository struct {
	db *gorm.DB
}

func NewMirrorLogRepository(db *gorm.DB) *MirrorLogRepository {
	return &MirrorLogRepository{db: db}
}

func (r *MirrorLogRepository) Create(ctx context.Context, entry *model.MirrorLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *MirrorLogRepository) ListByDebt(ctx context.Context, debtID int64) ([]*model.MirrorLog, error) {
	var entries []*model.MirrorLog
	err := r.db.WithContext(ctx).
		Where("debt_id = ?", debtID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}
