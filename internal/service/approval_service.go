package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"creditledger/internal/config"
	"creditledger/internal/model"
	"creditledger/internal/repository"

	"gorm.io/gorm"
)

// ApprovalService moves debts through the client approval state machine:
// PENDING -> APPROVED, or PENDING -> rejected (the debt is deleted).
type ApprovalService struct {
	db         *gorm.DB
	debtRepo   *repository.DebtRepository
	outboxRepo *repository.OutboxRepository
	now        func() time.Time
}

func NewApprovalService(db *gorm.DB, cfg *config.Config) *ApprovalService {
	return &ApprovalService{
		db:         db,
		debtRepo:   repository.NewDebtRepository(db),
		outboxRepo: repository.NewOutboxRepository(db, cfg.Kafka.Topic.LedgerEvents),
		now:        time.Now,
	}
}

func (s *ApprovalService) Approve(ctx context.Context, debtID int64) (*model.Debt, error) {
	var debt *model.Debt
	now := s.now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		debt, err = s.lockPending(ctx, tx, debtID, "approved")
		if err != nil {
			return err
		}
		if err := s.debtRepo.UpdateApproval(ctx, tx, debt.ID, debt.ApprovalStatus, model.ApprovalApproved, now); err != nil {
			return s.mapTransitionError(err, debt, "approved")
		}
		debt.ApprovalStatus = model.ApprovalApproved
		debt.ApprovedAt = &now
		return s.outboxRepo.AddEvent(ctx, tx, model.EventDebtApproved, debt.DebtNo, newDebtEvent(debt, now))
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ApprovalService] debt approved: debtID=%d, clientID=%d", debt.ID, debt.ClientID)
	return debt, nil
}

// Reject deletes a pending debt together with its items and payments.
func (s *ApprovalService) Reject(ctx context.Context, debtID int64) error {
	now := s.now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		debt, err := s.lockPending(ctx, tx, debtID, "rejected")
		if err != nil {
			return err
		}
		if err := s.debtRepo.Delete(ctx, tx, debt.ID); err != nil {
			return s.mapTransitionError(err, debt, "rejected")
		}
		debt.ApprovalStatus = model.ApprovalRejected
		return s.outboxRepo.AddEvent(ctx, tx, model.EventDebtRejected, debt.DebtNo, newDebtEvent(debt, now))
	})
	if err != nil {
		return err
	}

	log.Printf("[ApprovalService] debt rejected and removed: debtID=%d", debtID)
	return nil
}

func (s *ApprovalService) lockPending(ctx context.Context, tx *gorm.DB, debtID int64, action string) (*model.Debt, error) {
	debt, err := s.debtRepo.GetByIDForUpdate(ctx, tx, debtID)
	if err != nil {
		if errors.Is(err, repository.ErrDebtNotFound) {
			return nil, NotFoundError("debt %d not found", debtID)
		}
		return nil, fmt.Errorf("load debt: %w", err)
	}
	if !debt.IsPending() {
		return nil, ConflictError("debt %d cannot be %s in state %s", debt.ID, action, debt.ApprovalStatus)
	}
	return debt, nil
}

func (s *ApprovalService) mapTransitionError(err error, debt *model.Debt, action string) error {
	if errors.Is(err, repository.ErrApprovalStateInvalid) {
		return ConflictError("debt %d cannot be %s in state %s", debt.ID, action, debt.ApprovalStatus)
	}
	return fmt.Errorf("update approval: %w", err)
}
