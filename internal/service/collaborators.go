package service

import (
	"context"

	"creditledger/internal/model"
	"creditledger/pkg/money"
)

// LedgerMirror is the external append-only copy of the ledger.
type LedgerMirror interface {
	SubmitDebt(ctx context.Context, debt *model.Debt) (string, error)
	SubmitPayment(ctx context.Context, debt *model.Debt, payment *model.Payment) (string, error)
	QueryDebtAmount(ctx context.Context, debtID int64) (money.Cents, error)
}

// DebtLocker serializes payment application per debt. The returned func
// releases the lock.
type DebtLocker interface {
	LockDebt(ctx context.Context, debtID int64) (func(), error)
}

// Notifier delivers a push message to one device.
type Notifier interface {
	Send(ctx context.Context, playerID, message string) error
}
