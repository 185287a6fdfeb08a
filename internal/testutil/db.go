// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"creditledger/internal/infrastructure/database"
	"creditledger/internal/model"
	"creditledger/pkg/money"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int64

// NewDB returns a migrated in-memory SQLite store private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger%d?mode=memory&cache=shared&_foreign_keys=1", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Fixture is a user with one client and a small catalog.
type Fixture struct {
	User   *model.User
	Client *model.Client
	Items  []*model.CatalogItem
}

// Seed inserts a Fixture. accountActive controls whether the client has to
// approve new debts.
func Seed(t *testing.T, db *gorm.DB, accountActive bool) *Fixture {
	t.Helper()
	ctx := context.Background()

	seq := atomic.AddInt64(&dbSeq, 1)
	user := &model.User{
		FirstName: "Ana",
		LastName:  "Torres",
		Email:     fmt.Sprintf("ana%d@example.com", seq),
	}
	require.NoError(t, db.WithContext(ctx).Create(user).Error)

	client := &model.Client{
		UserID:        user.ID,
		NationalID:    "0102030405",
		Name:          "Luis Mera",
		AccountActive: accountActive,
	}
	require.NoError(t, db.WithContext(ctx).Create(client).Error)

	items := []*model.CatalogItem{
		{UserID: user.ID, Name: "Rice 1kg", Price: money.MustParse("1.25"), Stock: 50, Active: true},
		{UserID: user.ID, Name: "Cooking oil", Price: money.MustParse("3.40"), Stock: 20, Active: true},
		{UserID: user.ID, Name: "Discontinued soap", Price: money.MustParse("0.90"), Active: false},
	}
	for _, item := range items {
		require.NoError(t, db.WithContext(ctx).Create(item).Error)
	}
	return &Fixture{User: user, Client: client, Items: items}
}

// AddDebt inserts a debt directly, bypassing the service.
func AddDebt(t *testing.T, db *gorm.DB, f *Fixture, principal money.Cents, due time.Time, status string) *model.Debt {
	t.Helper()
	debt := &model.Debt{
		DebtNo:         fmt.Sprintf("DEU-TEST-%d", atomic.AddInt64(&dbSeq, 1)),
		UserID:         f.User.ID,
		ClientID:       f.Client.ID,
		Principal:      principal,
		DueDate:        due,
		ApprovalStatus: status,
	}
	require.NoError(t, db.Create(debt).Error)
	return debt
}

// AddPayment inserts a payment directly, bypassing the service.
func AddPayment(t *testing.T, db *gorm.DB, debt *model.Debt, amount money.Cents, at time.Time) *model.Payment {
	t.Helper()
	payment := &model.Payment{
		PaymentNo:  fmt.Sprintf("PAG-TEST-%d", atomic.AddInt64(&dbSeq, 1)),
		DebtID:     debt.ID,
		Amount:     amount,
		RecordedBy: debt.UserID,
		PaidAt:     at,
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}
