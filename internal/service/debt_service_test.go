package service

import (
	"context"
	"testing"
	"time"

	"creditledger/internal/model"
	"creditledger/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDebtFromItems(t *testing.T) {
	e := newEnv(t, false)
	f := e.fixture
	due := time.Now().Add(7 * 24 * time.Hour)

	res, err := e.debts.CreateDebt(context.Background(), &CreateDebtRequest{
		UserID:   f.User.ID,
		ClientID: f.Client.ID,
		DueDate:  &due,
		Items: []DebtItemRequest{
			{ItemID: f.Items[0].ID, Quantity: qty(2)},
			{ItemID: f.Items[1].ID},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, money.MustParse("5.90"), res.Debt.Principal)
	assert.Equal(t, model.ApprovalNone, res.Debt.ApprovalStatus)
	require.Len(t, res.Debt.Items, 2)
	assert.Equal(t, "Rice 1kg", res.Debt.Items[0].ItemName)
	assert.Equal(t, 2, res.Debt.Items[0].Quantity)
	assert.Equal(t, 1, res.Debt.Items[1].Quantity)
	assert.Equal(t, money.MustParse("5.90"), res.Position.Balance)
	assert.False(t, res.Position.Settled)

	assert.True(t, res.Mirror.OnChain)
	require.NotNil(t, res.Mirror.TxHash)
	assert.Nil(t, res.Mirror.Error)

	stored, err := e.debts.GetDebt(context.Background(), res.Debt.ID)
	require.NoError(t, err)
	assert.True(t, stored.Debt.OnChain)
	assert.Equal(t, *res.Mirror.TxHash, *stored.Debt.TxHash)

	assert.EqualValues(t, 2, e.count(t, &model.DebtItem{}, "debt_id = ?", res.Debt.ID))
	assert.EqualValues(t, 1, e.count(t, &model.MirrorLog{}, "debt_id = ? AND success = ?", res.Debt.ID, true))
	assert.EqualValues(t, 1, e.count(t, &model.OutboxMessage{}, "event_type = ?", model.EventDebtCreated))
}

func TestCreateDebtItemsWinOverAmount(t *testing.T) {
	e := newEnv(t, false)
	f := e.fixture

	res, err := e.debts.CreateDebt(context.Background(), &CreateDebtRequest{
		UserID:   f.User.ID,
		ClientID: f.Client.ID,
		Items:    []DebtItemRequest{{ItemID: f.Items[1].ID}},
		Amount:   amount("999.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("3.40"), res.Debt.Principal)
}

func TestCreateDebtFlatAmountDefaultsDueDate(t *testing.T) {
	e := newEnv(t, false)
	f := e.fixture
	before := time.Now()

	res, err := e.debts.CreateDebt(context.Background(), &CreateDebtRequest{
		UserID:   f.User.ID,
		ClientID: f.Client.ID,
		Amount:   amount("100.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, money.FromUnits(100), res.Debt.Principal)
	assert.Empty(t, res.Debt.Items)
	assert.False(t, res.Debt.DueDate.Before(before))
}

func TestCreateDebtInvalidItemPersistsNothing(t *testing.T) {
	e := newEnv(t, false)
	f := e.fixture

	_, err := e.debts.CreateDebt(context.Background(), &CreateDebtRequest{
		UserID:   f.User.ID,
		ClientID: f.Client.ID,
		Items: []DebtItemRequest{
			{ItemID: f.Items[0].ID},
			{ItemID: 424242},
		},
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "424242")

	assert.Zero(t, e.count(t, &model.Debt{}, ""))
	assert.Zero(t, e.count(t, &model.DebtItem{}, ""))
	assert.Zero(t, e.count(t, &model.MirrorLog{}, ""))
	assert.Zero(t, e.count(t, &model.OutboxMessage{}, ""))
	debtCalls, _ := e.mirror.calls()
	assert.Zero(t, debtCalls)
}

func TestCreateDebtValidation(t *testing.T) {
	e := newEnv(t, false)
	f := e.fixture

	cases := map[string]*CreateDebtRequest{
		"unknown user":     {UserID: 9999, ClientID: f.Client.ID, Amount: amount("1.00")},
		"unknown client":   {UserID: f.User.ID, ClientID: 9999, Amount: amount("1.00")},
		"no amount":        {UserID: f.User.ID, ClientID: f.Client.ID},
		"zero amount":      {UserID: f.User.ID, ClientID: f.Client.ID, Amount: amount("0")},
		"negative amount":  {UserID: f.User.ID, ClientID: f.Client.ID, Amount: amount("-5.00")},
		"inactive item":    {UserID: f.User.ID, ClientID: f.Client.ID, Items: []DebtItemRequest{{ItemID: f.Items[2].ID}}},
		"non-positive qty": {UserID: f.User.ID, ClientID: f.Client.ID, Items: []DebtItemRequest{{ItemID: f.Items[0].ID, Quantity: qty(0)}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.debts.CreateDebt(context.Background(), req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, e.count(t, &model.Debt{}, ""))
}

func TestCreateDebtRejectsOutOfRangeTotals(t *testing.T) {
	e := newEnv(t, false)
	f := e.fixture
	ctx := context.Background()

	expensive := &model.CatalogItem{UserID: f.User.ID, Name: "Tractor", Price: money.MustParse("6000000000.00"), Active: true}
	free := &model.CatalogItem{UserID: f.User.ID, Name: "Sample sachet", Price: 0, Active: true}
	require.NoError(t, e.db.Create(expensive).Error)
	require.NoError(t, e.db.Create(free).Error)

	cases := map[string][]DebtItemRequest{
		"quantity overflows":  {{ItemID: f.Items[0].ID, Quantity: qty(1 << 40)}},
		"total above maximum": {{ItemID: expensive.ID}, {ItemID: expensive.ID}},
		"zero total":          {{ItemID: free.ID, Quantity: qty(3)}},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.debts.CreateDebt(ctx, &CreateDebtRequest{
				UserID:   f.User.ID,
				ClientID: f.Client.ID,
				Items:    items,
			})
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, e.count(t, &model.Debt{}, ""))
}

func TestCreateDebtPendingWhenClientHasAccount(t *testing.T) {
	e := newEnv(t, true)
	f := e.fixture

	res, err := e.debts.CreateDebt(context.Background(), &CreateDebtRequest{
		UserID:   f.User.ID,
		ClientID: f.Client.ID,
		Amount:   amount("20.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalPending, res.Debt.ApprovalStatus)

	history, err := e.debts.ClientHistory(context.Background(), f.Client.ID, f.User.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	pending, err := e.debts.PendingApproval(context.Background(), f.Client.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, res.Debt.ID, pending[0].Debt.ID)
}

func TestCreateDebtSurvivesMirrorFailure(t *testing.T) {
	e := newEnv(t, false)
	e.mirror.debtErr = errMirrorDown
	f := e.fixture

	res, err := e.debts.CreateDebt(context.Background(), &CreateDebtRequest{
		UserID:   f.User.ID,
		ClientID: f.Client.ID,
		Amount:   amount("15.00"),
	})
	require.NoError(t, err)
	assert.False(t, res.Mirror.OnChain)
	assert.Nil(t, res.Mirror.TxHash)
	require.NotNil(t, res.Mirror.Error)
	assert.Contains(t, *res.Mirror.Error, "rpc unavailable")

	assert.EqualValues(t, 1, e.count(t, &model.Debt{}, "id = ?", res.Debt.ID))
	assert.EqualValues(t, 1, e.count(t, &model.MirrorLog{}, "debt_id = ? AND success = ?", res.Debt.ID, false))
}

func TestCreateDebtMirrorTimeoutIsBounded(t *testing.T) {
	e := newEnv(t, false)
	e.mirror.hang = true
	f := e.fixture

	start := time.Now()
	res, err := e.debts.CreateDebt(context.Background(), &CreateDebtRequest{
		UserID:   f.User.ID,
		ClientID: f.Client.ID,
		Amount:   amount("15.00"),
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, res.Mirror.OnChain)
	require.NotNil(t, res.Mirror.Error)
	assert.EqualValues(t, 1, e.count(t, &model.MirrorLog{}, "debt_id = ? AND success = ?", res.Debt.ID, false))
}

func TestGetDebtNotFound(t *testing.T) {
	e := newEnv(t, false)
	_, err := e.debts.GetDebt(context.Background(), 31337)
	assert.ErrorIs(t, err, ErrNotFound)
}
