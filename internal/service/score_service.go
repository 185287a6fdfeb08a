package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"creditledger/internal/ledger"
	"creditledger/internal/repository"

	"gorm.io/gorm"
)

type ScoreService struct {
	debtRepo   *repository.DebtRepository
	clientRepo *repository.ClientRepository
	now        func() time.Time
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{
		debtRepo:   repository.NewDebtRepository(db),
		clientRepo: repository.NewClientRepository(db),
		now:        time.Now,
	}
}

// ScoreClient rates a client over its debts with userID. userID 0 scores the
// client across every lender instead of matching no debts.
func (s *ScoreService) ScoreClient(ctx context.Context, clientID, userID int64) (*ledger.Score, error) {
	if _, err := s.clientRepo.GetByID(ctx, clientID); err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return nil, NotFoundError("client %d not found", clientID)
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	debts, err := s.debtRepo.ListWithPaymentsByClient(ctx, clientID, userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}

	history := make([]ledger.DebtHistory, 0, len(debts))
	for _, d := range debts {
		history = append(history, ledger.DebtHistory{Debt: *d, Payments: d.Payments})
	}

	score := ledger.ScoreClient(clientID, history, s.now())
	return &score, nil
}
