package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"creditledger/internal/config"
	"creditledger/internal/infrastructure/lock"
	"creditledger/internal/model"
	"creditledger/internal/testutil"
	"creditledger/pkg/money"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errMirrorDown = errors.New("rpc unavailable")

type fakeMirror struct {
	mu         sync.Mutex
	hang       bool
	debtErr    error
	paymentErr error
	queryErr   error
	amount     money.Cents
	debtCalls  int
	payCalls   int
}

func (m *fakeMirror) SubmitDebt(ctx context.Context, debt *model.Debt) (string, error) {
	m.mu.Lock()
	m.debtCalls++
	hang, err := m.hang, m.debtErr
	m.mu.Unlock()

	if hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0xdebt%d", debt.ID), nil
}

func (m *fakeMirror) SubmitPayment(ctx context.Context, debt *model.Debt, payment *model.Payment) (string, error) {
	m.mu.Lock()
	m.payCalls++
	hang, err := m.hang, m.paymentErr
	m.mu.Unlock()

	if hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0xpay%d", payment.ID), nil
}

func (m *fakeMirror) QueryDebtAmount(ctx context.Context, debtID int64) (money.Cents, error) {
	if m.queryErr != nil {
		return 0, m.queryErr
	}
	return m.amount, nil
}

func (m *fakeMirror) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debtCalls, m.payCalls
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka:  config.KafkaConfig{Topic: config.KafkaTopicConfig{LedgerEvents: "ledger-events"}},
		Mirror: config.MirrorConfig{TimeoutSeconds: 1},
	}
}

type env struct {
	db       *gorm.DB
	fixture  *testutil.Fixture
	mirror   *fakeMirror
	debts    *DebtService
	payments *PaymentService
	approval *ApprovalService
}

func newEnv(t *testing.T, accountActive bool) *env {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testConfig()
	mirror := &fakeMirror{}
	return &env{
		db:       db,
		fixture:  testutil.Seed(t, db, accountActive),
		mirror:   mirror,
		debts:    NewDebtService(db, cfg, mirror),
		payments: NewPaymentService(db, cfg, mirror, lock.NewLocalLocker()),
		approval: NewApprovalService(db, cfg),
	}
}

func (e *env) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func amount(s string) *money.Cents {
	c := money.MustParse(s)
	return &c
}

func qty(n int) *int {
	return &n
}
