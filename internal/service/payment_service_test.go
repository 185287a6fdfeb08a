package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"creditledger/internal/model"
	"creditledger/internal/testutil"
	"creditledger/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) newDebt(t *testing.T, principal string) *model.Debt {
	t.Helper()
	res, err := e.debts.CreateDebt(context.Background(), &CreateDebtRequest{
		UserID:   e.fixture.User.ID,
		ClientID: e.fixture.Client.ID,
		Amount:   amount(principal),
	})
	require.NoError(t, err)
	return res.Debt
}

func (e *env) pay(debtID int64, amt string) (*PaymentResult, error) {
	return e.payments.ApplyPayment(context.Background(), debtID, &ApplyPaymentRequest{
		Amount:     money.MustParse(amt),
		RecordedBy: e.fixture.User.ID,
	})
}

func TestFullPaymentSettlesDebt(t *testing.T) {
	e := newEnv(t, false)
	debt := e.newDebt(t, "100.00")

	res, err := e.pay(debt.ID, "100.00")
	require.NoError(t, err)
	assert.Equal(t, money.Cents(0), res.Balance)
	assert.Equal(t, money.FromUnits(100), res.TotalPaid)
	assert.True(t, res.Settled)
	require.NotNil(t, res.SettledAt)
	assert.True(t, res.Mirror.OnChain)

	view, err := e.debts.GetDebt(context.Background(), debt.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Debt.SettledAt)
	assert.True(t, view.Position.Settled)

	assert.EqualValues(t, 1, e.count(t, &model.OutboxMessage{}, "event_type = ?", model.EventDebtSettled))
	assert.EqualValues(t, 1, e.count(t, &model.OutboxMessage{}, "event_type = ?", model.EventPaymentApplied))
	assert.EqualValues(t, 1, e.count(t, &model.MirrorLog{}, "kind = ? AND payment_id = ?", model.MirrorKindPayment, res.Payment.ID))
}

func TestOverpaymentRejectedWithoutSideEffects(t *testing.T) {
	e := newEnv(t, false)
	debt := e.newDebt(t, "100.00")

	_, err := e.pay(debt.ID, "150.00")
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "payment exceeds balance", err.Error())

	view, err := e.debts.GetDebt(context.Background(), debt.ID)
	require.NoError(t, err)
	assert.Equal(t, money.FromUnits(100), view.Position.Balance)
	assert.Zero(t, e.count(t, &model.Payment{}, ""))
	assert.Zero(t, e.count(t, &model.MirrorLog{}, "kind = ?", model.MirrorKindPayment))
}

func TestSettlementStampedOnce(t *testing.T) {
	e := newEnv(t, false)
	debt := e.newDebt(t, "100.00")

	first, err := e.pay(debt.ID, "40.00")
	require.NoError(t, err)
	assert.False(t, first.Settled)
	assert.Nil(t, first.SettledAt)

	second, err := e.pay(debt.ID, "60.00")
	require.NoError(t, err)
	require.True(t, second.Settled)
	settledAt := *second.SettledAt

	_, err = e.pay(debt.ID, "0.01")
	require.ErrorIs(t, err, ErrValidation)

	view, err := e.debts.GetDebt(context.Background(), debt.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Debt.SettledAt)
	assert.WithinDuration(t, settledAt, *view.Debt.SettledAt, time.Second)
	assert.EqualValues(t, 1, e.count(t, &model.OutboxMessage{}, "event_type = ?", model.EventDebtSettled))
}

func TestPaymentValidation(t *testing.T) {
	e := newEnv(t, false)
	debt := e.newDebt(t, "10.00")

	_, err := e.pay(debt.ID, "0")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.pay(debt.ID, "-1.00")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.pay(987654, "1.00")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentSurvivesMirrorFailure(t *testing.T) {
	e := newEnv(t, false)
	debt := e.newDebt(t, "50.00")
	e.mirror.paymentErr = errors.New("nonce too low")

	res, err := e.pay(debt.ID, "20.00")
	require.NoError(t, err)
	assert.False(t, res.Mirror.OnChain)
	require.NotNil(t, res.Mirror.Error)
	assert.Equal(t, money.FromUnits(30), res.Balance)

	assert.EqualValues(t, 1, e.count(t, &model.Payment{}, "debt_id = ?", debt.ID))
	assert.EqualValues(t, 1, e.count(t, &model.MirrorLog{}, "payment_id = ? AND success = ?", res.Payment.ID, false))
}

func TestConcurrentPaymentsNeverOverpay(t *testing.T) {
	e := newEnv(t, false)
	debt := e.newDebt(t, "100.00")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.pay(debt.ID, "30.00")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if errors.Is(err, ErrValidation) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	assert.Equal(t, 7, rejected)

	view, err := e.debts.GetDebt(context.Background(), debt.ID)
	require.NoError(t, err)
	assert.Equal(t, money.FromUnits(90), view.Position.TotalPaid)
	assert.Equal(t, money.FromUnits(10), view.Position.Balance)
}

func TestPaymentsOnPendingDebtAllowed(t *testing.T) {
	e := newEnv(t, true)
	debt := e.newDebt(t, "10.00")
	require.Equal(t, model.ApprovalPending, debt.ApprovalStatus)

	_, err := e.pay(debt.ID, "5.00")
	assert.NoError(t, err)
}

func TestListPaymentsNewestFirst(t *testing.T) {
	e := newEnv(t, false)
	debt := e.newDebt(t, "100.00")
	now := time.Now()
	older := testutil.AddPayment(t, e.db, debt, money.FromUnits(10), now.Add(-2*time.Hour))
	newer := testutil.AddPayment(t, e.db, debt, money.FromUnits(5), now.Add(-time.Hour))

	payments, err := e.payments.ListPayments(context.Background(), debt.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, newer.ID, payments[0].ID)
	assert.Equal(t, older.ID, payments[1].ID)

	_, err = e.payments.ListPayments(context.Background(), 55555)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompareOnChain(t *testing.T) {
	e := newEnv(t, false)
	debt := e.newDebt(t, "80.00")
	_, err := e.pay(debt.ID, "30.00")
	require.NoError(t, err)

	e.mirror.amount = money.FromUnits(80)
	cmp, err := e.payments.CompareOnChain(context.Background(), debt.ID)
	require.NoError(t, err)
	assert.Equal(t, money.FromUnits(80), cmp.LocalAmount)
	assert.Equal(t, money.FromUnits(50), cmp.LocalBalance)
	require.NotNil(t, cmp.OnChainAmount)
	assert.Equal(t, money.FromUnits(80), *cmp.OnChainAmount)
	assert.Nil(t, cmp.Error)

	e.mirror.queryErr = errMirrorDown
	cmp, err = e.payments.CompareOnChain(context.Background(), debt.ID)
	require.NoError(t, err)
	assert.Nil(t, cmp.OnChainAmount)
	require.NotNil(t, cmp.Error)

	_, err = e.payments.CompareOnChain(context.Background(), 4040)
	assert.ErrorIs(t, err, ErrNotFound)
}
