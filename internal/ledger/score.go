package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"creditledger/internal/model"
	"creditledger/pkg/money"
)

const (
	TierExcellent = "Excellent"
	TierGood      = "Good"
	TierFair      = "Fair"
	TierRisky     = "Risky"

	// NoOverdueDays is reported as days since last overdue when nothing is overdue.
	NoOverdueDays = 9999

	coldStartScore   = 95
	recentPaymentWin = 90 * 24 * time.Hour
)

var (
	maxScore          = decimal.NewFromInt(100)
	overduePenaltyCap = decimal.NewFromInt(100)
	unsettledPenalty  = decimal.NewFromInt(2)
)

// DebtHistory is a debt together with all of its payments.
type DebtHistory struct {
	Debt     model.Debt
	Payments []model.Payment
}

// Score summarizes a client's creditworthiness for one user.
type Score struct {
	ClientID             int64       `json:"client_id"`
	TotalDebts           int         `json:"total_debts"`
	SettledDebts         int         `json:"settled_debts"`
	SettledOnTime        int         `json:"settled_on_time"`
	ActiveAmount         money.Cents `json:"active_amount"`
	OverdueAmount        money.Cents `json:"overdue_amount"`
	PaymentsLast90Days   int         `json:"payments_last_90_days"`
	DaysSinceLastOverdue int         `json:"days_since_last_overdue"`
	Score                float64     `json:"score"`
	Tier                 string      `json:"tier"`
}

// ScoreClient aggregates the debt set of one (client, user) pair. With no
// debts it returns the cold start default.
func ScoreClient(clientID int64, debts []DebtHistory, now time.Time) Score {
	s := Score{ClientID: clientID, DaysSinceLastOverdue: NoOverdueDays}
	if len(debts) == 0 {
		s.Score = coldStartScore
		s.Tier = Tier(coldStartScore)
		return s
	}

	s.TotalDebts = len(debts)
	var latestOverdueDue time.Time
	anyOverdue := false

	for _, h := range debts {
		pos := Evaluate(&h.Debt, h.Payments, now)

		if pos.Settled {
			s.SettledDebts++
			if last, ok := LastPaymentAt(h.Payments); !ok || !last.After(h.Debt.DueDate) {
				s.SettledOnTime++
			}
		}
		if pos.Balance > 0 {
			s.ActiveAmount += pos.Balance
		}
		if pos.Overdue {
			s.OverdueAmount += pos.Balance
			if !anyOverdue || h.Debt.DueDate.After(latestOverdueDue) {
				latestOverdueDue = h.Debt.DueDate
			}
			anyOverdue = true
		}
		for _, p := range h.Payments {
			if !p.PaidAt.Before(now.Add(-recentPaymentWin)) {
				s.PaymentsLast90Days++
			}
		}
	}

	if anyOverdue {
		s.DaysSinceLastOverdue = int(now.Sub(latestOverdueDue) / (24 * time.Hour))
	}

	s.Score = computeScore(s.OverdueAmount, s.TotalDebts-s.SettledDebts)
	s.Tier = Tier(s.Score)
	return s
}

// computeScore is 100 - min(overdue, 100) - 2*unsettled, clamped to [0, 100].
func computeScore(overdue money.Cents, unsettled int) float64 {
	score := maxScore.
		Sub(decimal.Min(overdue.Decimal(), overduePenaltyCap)).
		Sub(unsettledPenalty.Mul(decimal.NewFromInt(int64(unsettled))))

	if score.LessThan(decimal.Zero) {
		score = decimal.Zero
	}
	if score.GreaterThan(maxScore) {
		score = maxScore
	}
	return score.InexactFloat64()
}

func Tier(score float64) string {
	switch {
	case score >= 85:
		return TierExcellent
	case score >= 70:
		return TierGood
	case score >= 50:
		return TierFair
	default:
		return TierRisky
	}
}
