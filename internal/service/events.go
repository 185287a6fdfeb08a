package service

import (
	"time"

	"creditledger/internal/model"
	"creditledger/pkg/money"
)

// Ledger event payloads published through the outbox.

type debtEvent struct {
	DebtID         int64       `json:"debt_id"`
	DebtNo         string      `json:"debt_no"`
	UserID         int64       `json:"user_id"`
	ClientID       int64       `json:"client_id"`
	Principal      money.Cents `json:"principal"`
	DueDate        time.Time   `json:"due_date"`
	ApprovalStatus string      `json:"approval_status"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

func newDebtEvent(debt *model.Debt, at time.Time) debtEvent {
	return debtEvent{
		DebtID:         debt.ID,
		DebtNo:         debt.DebtNo,
		UserID:         debt.UserID,
		ClientID:       debt.ClientID,
		Principal:      debt.Principal,
		DueDate:        debt.DueDate,
		ApprovalStatus: debt.ApprovalStatus,
		OccurredAt:     at,
	}
}

type paymentEvent struct {
	PaymentID  int64       `json:"payment_id"`
	PaymentNo  string      `json:"payment_no"`
	DebtID     int64       `json:"debt_id"`
	DebtNo     string      `json:"debt_no"`
	Amount     money.Cents `json:"amount"`
	Balance    money.Cents `json:"balance"`
	RecordedBy int64       `json:"recorded_by"`
	OccurredAt time.Time   `json:"occurred_at"`
}
