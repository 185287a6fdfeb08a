package repository

import (
	"context"
	"errors"

	"creditledger/internal/model"

	"gorm.io/gorm"
)

var ErrDeviceNotFound = errors.New("notification device not found")

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Create(ctx context.Context, device *model.NotificationDevice) error {
	return r.db.WithContext(ctx).Create(device).Error
}

// LatestForUser returns the most recently registered device of the user.
func (r *DeviceRepository) LatestForUser(ctx context.Context, userID int64) (*model.NotificationDevice, error) {
	var device model.NotificationDevice
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("registered_at DESC").Order("id DESC").
		First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepository) DistinctUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.NotificationDevice{}).
		Distinct().
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
