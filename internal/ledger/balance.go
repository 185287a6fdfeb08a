// Package ledger derives a debt's position from its principal and payment
// history. Everything here is pure: no I/O, no clock reads.
package ledger

import (
	"time"

	"creditledger/internal/model"
	"creditledger/pkg/money"
)

// Position is the derived state of one debt at a point in time.
type Position struct {
	Principal   money.Cents `json:"principal"`
	TotalPaid   money.Cents `json:"total_paid"`
	Balance     money.Cents `json:"balance"`
	Settled     bool        `json:"settled"`
	Overdue     bool        `json:"overdue"`
	DaysOverdue int         `json:"days_overdue"`
}

func TotalPaid(payments []model.Payment) money.Cents {
	var total money.Cents
	for _, p := range payments {
		total += p.Amount
	}
	return total
}

// Balance is principal minus payments. A negative result means an
// overpayment slipped past validation upstream; it is returned as is.
func Balance(principal money.Cents, payments []model.Payment) money.Cents {
	return principal - TotalPaid(payments)
}

func IsSettled(balance money.Cents) bool {
	return balance <= 0
}

func IsOverdue(dueDate, now time.Time, balance money.Cents) bool {
	return dueDate.Before(now) && balance > 0
}

// DaysOverdue counts whole days past due, 0 when the debt is not overdue.
func DaysOverdue(dueDate, now time.Time, balance money.Cents) int {
	if !IsOverdue(dueDate, now, balance) {
		return 0
	}
	return int(now.Sub(dueDate) / (24 * time.Hour))
}

// Evaluate computes the position of debt given its full payment list.
func Evaluate(debt *model.Debt, payments []model.Payment, now time.Time) Position {
	paid := TotalPaid(payments)
	balance := debt.Principal - paid
	return Position{
		Principal:   debt.Principal,
		TotalPaid:   paid,
		Balance:     balance,
		Settled:     IsSettled(balance),
		Overdue:     IsOverdue(debt.DueDate, now, balance),
		DaysOverdue: DaysOverdue(debt.DueDate, now, balance),
	}
}

// LastPaymentAt returns the latest payment time, or false if there are none.
func LastPaymentAt(payments []model.Payment) (time.Time, bool) {
	var last time.Time
	for _, p := range payments {
		if p.PaidAt.After(last) {
			last = p.PaidAt
		}
	}
	return last, len(payments) > 0
}
