package service

import (
	"context"
	"log"
	"time"

	"creditledger/internal/metrics"
	"creditledger/internal/model"
	"creditledger/internal/repository"

	"gorm.io/gorm"
)

// MirrorOutcome reports what happened to the external copy of a mutation.
// A failed mirror is still a successful request.
type MirrorOutcome struct {
	TxHash  *string `json:"tx_hash"`
	OnChain bool    `json:"on_chain"`
	Error   *string `json:"error_on_chain"`
}

// mirrorRecorder makes one bounded attempt per mutation and writes exactly
// one audit row for it. It must run after the local commit with no locks
// held.
type mirrorRecorder struct {
	mirror    LedgerMirror
	timeout   time.Duration
	debtRepo  *repository.DebtRepository
	auditRepo *repository.MirrorLogRepository
}

func newMirrorRecorder(db *gorm.DB, mirror LedgerMirror, timeout time.Duration) *mirrorRecorder {
	return &mirrorRecorder{
		mirror:    mirror,
		timeout:   timeout,
		debtRepo:  repository.NewDebtRepository(db),
		auditRepo: repository.NewMirrorLogRepository(db),
	}
}

func (m *mirrorRecorder) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

func (m *mirrorRecorder) recordDebt(ctx context.Context, debt *model.Debt) MirrorOutcome {
	callCtx, cancel := m.callContext(ctx)
	txHash, err := m.mirror.SubmitDebt(callCtx, debt)
	cancel()

	outcome := newOutcome(txHash, err)
	metrics.MirrorCalls.WithLabelValues(model.MirrorKindDebt, outcome.result()).Inc()

	// The request may already be gone; the audit trail is written anyway.
	bg := context.WithoutCancel(ctx)
	if err != nil {
		log.Printf("[Mirror] submit debt failed: debtID=%d, err=%v", debt.ID, err)
	} else {
		log.Printf("[Mirror] debt mirrored: debtID=%d, tx=%s", debt.ID, txHash)
	}

	debt.TxHash = outcome.TxHash
	debt.OnChain = outcome.OnChain
	if updateErr := m.debtRepo.UpdateMirrorResult(bg, debt.ID, outcome.TxHash, outcome.OnChain); updateErr != nil {
		log.Printf("[Mirror] store mirror result failed: debtID=%d, err=%v", debt.ID, updateErr)
	}

	m.audit(bg, &model.MirrorLog{
		Kind:    model.MirrorKindDebt,
		DebtID:  debt.ID,
		TxHash:  outcome.TxHash,
		Success: outcome.OnChain,
		Error:   outcome.Error,
	})
	return outcome
}

func (m *mirrorRecorder) recordPayment(ctx context.Context, debt *model.Debt, payment *model.Payment) MirrorOutcome {
	callCtx, cancel := m.callContext(ctx)
	txHash, err := m.mirror.SubmitPayment(callCtx, debt, payment)
	cancel()

	outcome := newOutcome(txHash, err)
	metrics.MirrorCalls.WithLabelValues(model.MirrorKindPayment, outcome.result()).Inc()

	if err != nil {
		log.Printf("[Mirror] submit payment failed: debtID=%d, paymentID=%d, err=%v", debt.ID, payment.ID, err)
	} else {
		log.Printf("[Mirror] payment mirrored: debtID=%d, paymentID=%d, tx=%s", debt.ID, payment.ID, txHash)
	}

	paymentID := payment.ID
	m.audit(context.WithoutCancel(ctx), &model.MirrorLog{
		Kind:      model.MirrorKindPayment,
		DebtID:    debt.ID,
		PaymentID: &paymentID,
		TxHash:    outcome.TxHash,
		Success:   outcome.OnChain,
		Error:     outcome.Error,
	})
	return outcome
}

func (m *mirrorRecorder) audit(ctx context.Context, entry *model.MirrorLog) {
	if err := m.auditRepo.Create(ctx, entry); err != nil {
		log.Printf("[Mirror] write audit entry failed: kind=%s, debtID=%d, err=%v", entry.Kind, entry.DebtID, err)
	}
}

func newOutcome(txHash string, err error) MirrorOutcome {
	if err != nil {
		msg := err.Error()
		return MirrorOutcome{Error: &msg}
	}
	if txHash == "" {
		msg := "mirror returned no transaction reference"
		return MirrorOutcome{Error: &msg}
	}
	return MirrorOutcome{TxHash: &txHash, OnChain: true}
}

func (o MirrorOutcome) result() string {
	if o.OnChain {
		return metrics.ResultSuccess
	}
	return metrics.ResultFailure
}
