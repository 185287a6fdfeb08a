package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"creditledger/internal/config"
	"creditledger/internal/ledger"
	"creditledger/internal/metrics"
	"creditledger/internal/model"
	"creditledger/internal/repository"
	"creditledger/pkg/idgen"
	"creditledger/pkg/money"

	"gorm.io/gorm"
)

type DebtService struct {
	db          *gorm.DB
	cfg         *config.Config
	debtRepo    *repository.DebtRepository
	userRepo    *repository.UserRepository
	clientRepo  *repository.ClientRepository
	catalogRepo *repository.CatalogRepository
	paymentRepo *repository.PaymentRepository
	outboxRepo  *repository.OutboxRepository
	mirror      *mirrorRecorder
	now         func() time.Time
}

func NewDebtService(db *gorm.DB, cfg *config.Config, mirror LedgerMirror) *DebtService {
	return &DebtService{
		db:          db,
		cfg:         cfg,
		debtRepo:    repository.NewDebtRepository(db),
		userRepo:    repository.NewUserRepository(db),
		clientRepo:  repository.NewClientRepository(db),
		catalogRepo: repository.NewCatalogRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db, cfg.Kafka.Topic.LedgerEvents),
		mirror:      newMirrorRecorder(db, mirror, cfg.Mirror.Timeout()),
		now:         time.Now,
	}
}

type DebtItemRequest struct {
	ItemID   int64 `json:"item_id" binding:"required"`
	Quantity *int  `json:"quantity"`
}

// CreateDebtRequest carries either line items or a flat amount. When both
// are sent the line items win and Amount is ignored.
type CreateDebtRequest struct {
	UserID   int64             `json:"user_id" binding:"required"`
	ClientID int64             `json:"client_id" binding:"required"`
	DueDate  *time.Time        `json:"due_date"`
	Items    []DebtItemRequest `json:"items"`
	Amount   *money.Cents      `json:"amount"`
}

// DebtView is a debt with its derived position.
type DebtView struct {
	Debt     *model.Debt     `json:"debt"`
	Position ledger.Position `json:"position"`
}

type CreateDebtResult struct {
	DebtView
	Mirror MirrorOutcome `json:"mirror"`
}

func (s *DebtService) CreateDebt(ctx context.Context, req *CreateDebtRequest) (*CreateDebtResult, error) {
	if _, err := s.userRepo.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ValidationError("user %d does not exist", req.UserID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	client, err := s.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return nil, ValidationError("client %d does not exist", req.ClientID)
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	var (
		items     []model.DebtItem
		principal money.Cents
	)
	if len(req.Items) > 0 {
		items, principal, err = s.priceItems(ctx, req.Items)
		if err != nil {
			return nil, err
		}
	} else {
		if req.Amount == nil || !req.Amount.IsPositive() {
			return nil, ValidationError("amount must be greater than zero when no items are given")
		}
		principal = *req.Amount
	}

	now := s.now()
	dueDate := now
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	approval := model.ApprovalNone
	if client.AccountActive {
		approval = model.ApprovalPending
	}

	debt := &model.Debt{
		DebtNo:         idgen.GenerateDebtNo(),
		UserID:         req.UserID,
		ClientID:       client.ID,
		Principal:      principal,
		DueDate:        dueDate,
		ApprovalStatus: approval,
		Items:          items,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.debtRepo.Create(ctx, tx, debt); err != nil {
			return fmt.Errorf("create debt: %w", err)
		}
		if err := s.outboxRepo.AddEvent(ctx, tx, model.EventDebtCreated, debt.DebtNo, newDebtEvent(debt, now)); err != nil {
			return fmt.Errorf("write debt event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DebtsCreated.Inc()
	log.Printf("[DebtService] debt created: debtID=%d, debtNo=%s, userID=%d, clientID=%d, principal=%s, approval=%s",
		debt.ID, debt.DebtNo, debt.UserID, debt.ClientID, debt.Principal, debt.ApprovalStatus)

	outcome := s.mirror.recordDebt(ctx, debt)

	return &CreateDebtResult{
		DebtView: DebtView{Debt: debt, Position: ledger.Evaluate(debt, nil, now)},
		Mirror:   outcome,
	}, nil
}

// priceItems resolves every requested item before anything is written, so a
// single bad id rejects the whole debt.
func (s *DebtService) priceItems(ctx context.Context, reqItems []DebtItemRequest) ([]model.DebtItem, money.Cents, error) {
	ids := make([]int64, 0, len(reqItems))
	for _, it := range reqItems {
		ids = append(ids, it.ItemID)
	}
	catalog, err := s.catalogRepo.GetActiveByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("load catalog items: %w", err)
	}

	items := make([]model.DebtItem, 0, len(reqItems))
	var total money.Cents
	for _, it := range reqItems {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		if qty <= 0 {
			return nil, 0, ValidationError("quantity for item %d must be greater than zero", it.ItemID)
		}
		product, ok := catalog[it.ItemID]
		if !ok {
			return nil, 0, ValidationError("item %d does not exist or is inactive", it.ItemID)
		}
		itemID := product.ID
		line := model.DebtItem{
			ItemID:    &itemID,
			ItemName:  product.Name,
			UnitPrice: product.Price,
			Quantity:  qty,
		}
		subtotal, err := line.Subtotal()
		if err != nil || total > money.MaxAmount-subtotal {
			return nil, 0, ValidationError("debt total for item %d exceeds the maximum amount %s", it.ItemID, money.MaxAmount)
		}
		total += subtotal
		items = append(items, line)
	}
	if !total.IsPositive() {
		return nil, 0, ValidationError("debt total must be greater than zero")
	}
	return items, total, nil
}

func (s *DebtService) GetDebt(ctx context.Context, debtID int64) (*DebtView, error) {
	debt, err := s.debtRepo.GetByID(ctx, debtID)
	if err != nil {
		if errors.Is(err, repository.ErrDebtNotFound) {
			return nil, NotFoundError("debt %d not found", debtID)
		}
		return nil, fmt.Errorf("load debt: %w", err)
	}
	payments, err := s.paymentRepo.ListByDebt(ctx, nil, debtID)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return &DebtView{Debt: debt, Position: ledger.Evaluate(debt, payments, s.now())}, nil
}

// ClientHistory lists a client's debts that count, newest first. Debts
// still waiting for the client's approval are left out.
func (s *DebtService) ClientHistory(ctx context.Context, clientID, userID int64) ([]DebtView, error) {
	debts, err := s.debtRepo.ListHistory(ctx, clientID, userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	return s.views(debts), nil
}

// PendingApproval lists the debts the client still has to accept or reject.
func (s *DebtService) PendingApproval(ctx context.Context, clientID int64) ([]DebtView, error) {
	debts, err := s.debtRepo.ListPendingApproval(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list pending debts: %w", err)
	}
	return s.views(debts), nil
}

func (s *DebtService) views(debts []*model.Debt) []DebtView {
	now := s.now()
	views := make([]DebtView, 0, len(debts))
	for _, d := range debts {
		views = append(views, DebtView{Debt: d, Position: ledger.Evaluate(d, d.Payments, now)})
	}
	return views
}
