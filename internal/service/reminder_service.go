package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"creditledger/internal/ledger"
	"creditledger/internal/metrics"
	"creditledger/internal/model"
	"creditledger/internal/repository"

	"gorm.io/gorm"
)

type ReminderService struct {
	userRepo   *repository.UserRepository
	debtRepo   *repository.DebtRepository
	deviceRepo *repository.DeviceRepository
	notifier   Notifier
	now        func() time.Time
}

func NewReminderService(db *gorm.DB, notifier Notifier) *ReminderService {
	return &ReminderService{
		userRepo:   repository.NewUserRepository(db),
		debtRepo:   repository.NewDebtRepository(db),
		deviceRepo: repository.NewDeviceRepository(db),
		notifier:   notifier,
		now:        time.Now,
	}
}

type RegisterDeviceRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	PlayerID string `json:"player_id" binding:"required"`
}

func (s *ReminderService) RegisterDevice(ctx context.Context, req *RegisterDeviceRequest) (*model.NotificationDevice, error) {
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		return nil, ValidationError("player_id is required")
	}
	if _, err := s.userRepo.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ValidationError("user %d does not exist", req.UserID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	device := &model.NotificationDevice{
		UserID:       req.UserID,
		PlayerID:     playerID,
		RegisteredAt: s.now(),
	}
	if err := s.deviceRepo.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("register device: %w", err)
	}
	log.Printf("[ReminderService] device registered: userID=%d, deviceID=%d", device.UserID, device.ID)
	return device, nil
}

// SweepResult counts per-user outcomes of one reminder sweep.
type SweepResult struct {
	Users    int `json:"users"`
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// RunSweep reminds every user with a registered device about their overdue
// debts. A failure for one user is logged and the sweep moves on. The
// context is checked between users.
func (s *ReminderService) RunSweep(ctx context.Context) (*SweepResult, error) {
	userIDs, err := s.deviceRepo.DistinctUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users with devices: %w", err)
	}

	result := &SweepResult{}
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			log.Printf("[ReminderService] sweep interrupted: processed=%d/%d", result.Users, len(userIDs))
			return result, err
		}
		result.Users++

		sent, err := s.remindUser(ctx, userID)
		switch {
		case err != nil:
			result.Failed++
			metrics.Reminders.WithLabelValues(metrics.ResultFailure).Inc()
			log.Printf("[ReminderService] remind user failed: userID=%d, err=%v", userID, err)
		case sent:
			result.Notified++
			metrics.Reminders.WithLabelValues(metrics.ResultSuccess).Inc()
		default:
			result.Skipped++
			metrics.Reminders.WithLabelValues(metrics.ResultSkipped).Inc()
		}
	}

	log.Printf("[ReminderService] sweep done: users=%d, notified=%d, skipped=%d, failed=%d",
		result.Users, result.Notified, result.Skipped, result.Failed)
	return result, nil
}

func (s *ReminderService) remindUser(ctx context.Context, userID int64) (bool, error) {
	now := s.now()
	debts, err := s.debtRepo.ListPastDueWithPayments(ctx, userID, now)
	if err != nil {
		return false, fmt.Errorf("list past due debts: %w", err)
	}

	overdue := 0
	for _, d := range debts {
		if ledger.IsOverdue(d.DueDate, now, ledger.Balance(d.Principal, d.Payments)) {
			overdue++
		}
	}
	if overdue == 0 {
		return false, nil
	}

	device, err := s.deviceRepo.LatestForUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load device: %w", err)
	}

	name := fmt.Sprintf("User %d", userID)
	user, err := s.userRepo.GetByID(ctx, userID)
	if err == nil && user.DisplayName() != "" {
		name = user.DisplayName()
	} else if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("load user: %w", err)
	}

	if err := s.notifier.Send(ctx, device.PlayerID, reminderMessage(name, overdue)); err != nil {
		return false, fmt.Errorf("send reminder: %w", err)
	}
	log.Printf("[ReminderService] reminder sent: userID=%d, overdue=%d", userID, overdue)
	return true, nil
}

func reminderMessage(name string, overdue int) string {
	return fmt.Sprintf("%s, you have %d overdue debts. Don't forget to collect today!", name, overdue)
}
