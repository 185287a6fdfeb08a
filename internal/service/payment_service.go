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

type PaymentService struct {
	db          *gorm.DB
	cfg         *config.Config
	locker      DebtLocker
	debtRepo    *repository.DebtRepository
	paymentRepo *repository.PaymentRepository
	outboxRepo  *repository.OutboxRepository
	mirror      LedgerMirror
	recorder    *mirrorRecorder
	now         func() time.Time
}

func NewPaymentService(db *gorm.DB, cfg *config.Config, mirror LedgerMirror, locker DebtLocker) *PaymentService {
	return &PaymentService{
		db:          db,
		cfg:         cfg,
		locker:      locker,
		debtRepo:    repository.NewDebtRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db, cfg.Kafka.Topic.LedgerEvents),
		mirror:      mirror,
		recorder:    newMirrorRecorder(db, mirror, cfg.Mirror.Timeout()),
		now:         time.Now,
	}
}

type ApplyPaymentRequest struct {
	Amount     money.Cents `json:"amount" binding:"required"`
	Note       *string     `json:"note" binding:"omitempty,max=256"`
	RecordedBy int64       `json:"recorded_by" binding:"required"`
}

type PaymentResult struct {
	Payment   *model.Payment `json:"payment"`
	DebtID    int64          `json:"debt_id"`
	Principal money.Cents    `json:"principal"`
	TotalPaid money.Cents    `json:"total_paid"`
	Balance   money.Cents    `json:"balance"`
	Settled   bool           `json:"settled"`
	SettledAt *time.Time     `json:"settled_at"`
	Mirror    MirrorOutcome  `json:"mirror"`
}

// ApplyPayment records a payment against a debt. The balance check and the
// insert run under the debt lock and a row lock, so concurrent payments on
// one debt can never jointly exceed its principal.
func (s *PaymentService) ApplyPayment(ctx context.Context, debtID int64, req *ApplyPaymentRequest) (*PaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ValidationError("payment amount must be greater than zero")
	}

	release, err := s.locker.LockDebt(ctx, debtID)
	if err != nil {
		return nil, fmt.Errorf("lock debt %d: %w", debtID, err)
	}

	var (
		debt     *model.Debt
		payment  *model.Payment
		position ledger.Position
		settled  bool
	)
	now := s.now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		debt, err = s.debtRepo.GetByIDForUpdate(ctx, tx, debtID)
		if err != nil {
			if errors.Is(err, repository.ErrDebtNotFound) {
				return NotFoundError("debt %d not found", debtID)
			}
			return fmt.Errorf("load debt: %w", err)
		}

		payments, err := s.paymentRepo.ListByDebt(ctx, tx, debtID)
		if err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		if req.Amount > ledger.Balance(debt.Principal, payments) {
			return ValidationError("payment exceeds balance")
		}

		payment = &model.Payment{
			PaymentNo:  idgen.GeneratePaymentNo(),
			DebtID:     debt.ID,
			Amount:     req.Amount,
			Note:       req.Note,
			RecordedBy: req.RecordedBy,
			PaidAt:     now,
		}
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		payments = append(payments, *payment)
		position = ledger.Evaluate(debt, payments, now)

		if err := s.outboxRepo.AddEvent(ctx, tx, model.EventPaymentApplied, debt.DebtNo, paymentEvent{
			PaymentID:  payment.ID,
			PaymentNo:  payment.PaymentNo,
			DebtID:     debt.ID,
			DebtNo:     debt.DebtNo,
			Amount:     payment.Amount,
			Balance:    position.Balance,
			RecordedBy: payment.RecordedBy,
			OccurredAt: now,
		}); err != nil {
			return fmt.Errorf("write payment event: %w", err)
		}

		if position.Settled && debt.SettledAt == nil {
			if err := s.debtRepo.MarkSettled(ctx, tx, debt.ID, now); err != nil {
				return fmt.Errorf("mark debt settled: %w", err)
			}
			debt.SettledAt = &now
			settled = true
			if err := s.outboxRepo.AddEvent(ctx, tx, model.EventDebtSettled, debt.DebtNo, newDebtEvent(debt, now)); err != nil {
				return fmt.Errorf("write settled event: %w", err)
			}
		}
		return nil
	})
	release()
	if err != nil {
		return nil, err
	}

	metrics.PaymentsApplied.Inc()
	if settled {
		metrics.DebtsSettled.Inc()
	}
	log.Printf("[PaymentService] payment applied: debtID=%d, paymentID=%d, amount=%s, balance=%s, settled=%t",
		debt.ID, payment.ID, payment.Amount, position.Balance, position.Settled)

	outcome := s.recorder.recordPayment(ctx, debt, payment)

	return &PaymentResult{
		Payment:   payment,
		DebtID:    debt.ID,
		Principal: position.Principal,
		TotalPaid: position.TotalPaid,
		Balance:   position.Balance,
		Settled:   position.Settled,
		SettledAt: debt.SettledAt,
		Mirror:    outcome,
	}, nil
}

// ListPayments returns the debt's payments, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, debtID int64) ([]model.Payment, error) {
	if _, err := s.debtRepo.GetByID(ctx, debtID); err != nil {
		if errors.Is(err, repository.ErrDebtNotFound) {
			return nil, NotFoundError("debt %d not found", debtID)
		}
		return nil, fmt.Errorf("load debt: %w", err)
	}
	payments, err := s.paymentRepo.ListByDebt(ctx, nil, debtID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// OnChainComparison puts the local figures next to what the mirror holds.
type OnChainComparison struct {
	DebtID        int64        `json:"debt_id"`
	LocalAmount   money.Cents  `json:"local_amount"`
	LocalBalance  money.Cents  `json:"local_balance"`
	OnChainAmount *money.Cents `json:"on_chain_amount"`
	Error         *string      `json:"error"`
}

// CompareOnChain never fails because of the mirror; its error is reported
// in the result instead.
func (s *PaymentService) CompareOnChain(ctx context.Context, debtID int64) (*OnChainComparison, error) {
	debt, err := s.debtRepo.GetByID(ctx, debtID)
	if err != nil {
		if errors.Is(err, repository.ErrDebtNotFound) {
			return nil, NotFoundError("debt %d not found", debtID)
		}
		return nil, fmt.Errorf("load debt: %w", err)
	}
	payments, err := s.paymentRepo.ListByDebt(ctx, nil, debtID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	result := &OnChainComparison{
		DebtID:       debt.ID,
		LocalAmount:  debt.Principal,
		LocalBalance: ledger.Balance(debt.Principal, payments),
	}

	callCtx, cancel := s.recorder.callContext(ctx)
	defer cancel()
	amount, err := s.mirror.QueryDebtAmount(callCtx, debt.ID)
	metrics.MirrorCalls.WithLabelValues("QUERY", metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("[PaymentService] query mirror failed: debtID=%d, err=%v", debt.ID, err)
		msg := err.Error()
		result.Error = &msg
		return result, nil
	}
	result.OnChainAmount = &amount
	return result, nil
}
