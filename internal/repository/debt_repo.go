package repository

import (
	"context"
	"errors"
	"time"

	"creditledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDebtNotFound         = errors.New("debt not found")
	ErrApprovalStateInvalid = errors.New("approval state does not allow this transition")
	ErrDebtAlreadySettled   = errors.New("debt already settled")
)

type DebtRepository struct {
	db *gorm.DB
}

func NewDebtRepository(db *gorm.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

func (r *DebtRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

// Create inserts the debt together with its line items.
func (r *DebtRepository) Create(ctx context.Context, tx *gorm.DB, debt *model.Debt) error {
	return r.conn(tx).WithContext(ctx).Create(debt).Error
}

func (r *DebtRepository) GetByID(ctx context.Context, id int64) (*model.Debt, error) {
	var debt model.Debt
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&debt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebtNotFound
		}
		return nil, err
	}
	return &debt, nil
}

// GetByIDForUpdate locks the debt row for the rest of tx.
func (r *DebtRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Debt, error) {
	var debt model.Debt
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&debt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebtNotFound
		}
		return nil, err
	}
	return &debt, nil
}

// MarkSettled stamps settled_at unless it is already set.
func (r *DebtRepository) MarkSettled(ctx context.Context, tx *gorm.DB, id int64, at time.Time) error {
	result := r.conn(tx).WithContext(ctx).
		Model(&model.Debt{}).
		Where("id = ? AND settled_at IS NULL", id).
		Update("settled_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDebtAlreadySettled
	}
	return nil
}

func (r *DebtRepository) UpdateMirrorResult(ctx context.Context, id int64, txHash *string, onChain bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Debt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tx_hash":  txHash,
			"on_chain": onChain,
		}).Error
}

// UpdateApproval moves a debt between approval states, guarded on the
// current state so concurrent transitions cannot both win.
func (r *DebtRepository) UpdateApproval(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string, at time.Time) error {
	if !model.CanTransitionApproval(fromStatus, toStatus) {
		return ErrApprovalStateInvalid
	}

	updates := map[string]interface{}{
		"approval_status": toStatus,
	}
	if toStatus == model.ApprovalApproved {
		updates["approved_at"] = at
	}

	result := r.conn(tx).WithContext(ctx).
		Model(&model.Debt{}).
		Where("id = ? AND approval_status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrApprovalStateInvalid
	}
	return nil
}

// Delete hard-deletes a pending debt with its line items and payments.
func (r *DebtRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	db := r.conn(tx).WithContext(ctx)
	if err := db.Where("debt_id = ?", id).Delete(&model.DebtItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("debt_id = ?", id).Delete(&model.Payment{}).Error; err != nil {
		return err
	}
	result := db.Where("id = ? AND approval_status = ?", id, model.ApprovalPending).Delete(&model.Debt{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrApprovalStateInvalid
	}
	return nil
}

// ListWithPaymentsByClient returns the client's debts owned by userID, with
// payments preloaded. userID 0 means any user.
func (r *DebtRepository) ListWithPaymentsByClient(ctx context.Context, clientID, userID int64) ([]*model.Debt, error) {
	var debts []*model.Debt
	query := r.db.WithContext(ctx).
		Preload("Payments").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("client_id = ?", clientID)
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	err := query.Order("created_at DESC").Order("id DESC").Find(&debts).Error
	return debts, err
}

// ListHistory is the client's debt history, excluding debts still waiting
// for the client's approval.
func (r *DebtRepository) ListHistory(ctx context.Context, clientID, userID int64) ([]*model.Debt, error) {
	var debts []*model.Debt
	query := r.db.WithContext(ctx).
		Preload("Payments").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("client_id = ? AND approval_status <> ?", clientID, model.ApprovalPending)
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	err := query.Order("created_at DESC").Order("id DESC").Find(&debts).Error
	return debts, err
}

func (r *DebtRepository) ListPendingApproval(ctx context.Context, clientID int64) ([]*model.Debt, error) {
	var debts []*model.Debt
	err := r.db.WithContext(ctx).
		Preload("Payments").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("client_id = ? AND approval_status = ?", clientID, model.ApprovalPending).
		Order("created_at DESC").Order("id DESC").
		Find(&debts).Error
	return debts, err
}

// ListPastDueWithPayments returns the user's debts whose due date is before
// now. Balance filtering is left to the caller.
func (r *DebtRepository) ListPastDueWithPayments(ctx context.Context, userID int64, now time.Time) ([]*model.Debt, error) {
	var debts []*model.Debt
	err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("user_id = ? AND due_date < ? AND settled_at IS NULL", userID, now).
		Find(&debts).Error
	return debts, err
}
