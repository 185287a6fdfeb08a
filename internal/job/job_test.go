package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"creditledger/internal/config"
	"creditledger/internal/model"
	"creditledger/internal/repository"
	"creditledger/internal/testutil"
	"creditledger/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	fail bool
	keys []string
}

func (p *recordingPublisher) Send(topic, key, eventType, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, key)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka:    config.KafkaConfig{Topic: config.KafkaTopicConfig{LedgerEvents: "ledger-events"}},
		Business: config.BusinessConfig{MaxRetryCount: 2, OutboxIntervalMs: 10},
	}
}

func TestOutboxSenderPublishesAndMarksSent(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := testConfig()
	repo := repository.NewOutboxRepository(db, cfg.Kafka.Topic.LedgerEvents)
	ctx := context.Background()

	require.NoError(t, repo.AddEvent(ctx, nil, model.EventDebtCreated, "DEU1", map[string]int{"debt_id": 1}))
	require.NoError(t, repo.AddEvent(ctx, nil, model.EventPaymentApplied, "PAG1", map[string]int{"debt_id": 1}))

	pub := &recordingPublisher{}
	sender := NewOutboxSender(db, cfg, pub)
	assert.Equal(t, 2, sender.processPendingMessages(ctx))
	assert.Equal(t, []string{"DEU1", "PAG1"}, pub.keys)

	pending, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxSenderParksAfterMaxRetries(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := testConfig()
	repo := repository.NewOutboxRepository(db, cfg.Kafka.Topic.LedgerEvents)
	ctx := context.Background()
	require.NoError(t, repo.AddEvent(ctx, nil, model.EventDebtSettled, "DEU2", struct{}{}))

	sender := NewOutboxSender(db, cfg, &recordingPublisher{fail: true})
	assert.Zero(t, sender.processPendingMessages(ctx))

	pending, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)

	sender.processPendingMessages(ctx)
	pending, err = repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	var msg model.OutboxMessage
	require.NoError(t, db.Where("message_key = ?", "DEU2").First(&msg).Error)
	assert.Equal(t, model.OutboxStatusFailed, msg.Status)
	assert.Equal(t, 2, msg.RetryCount)
}

func TestOutboxSenderStops(t *testing.T) {
	db := testutil.NewDB(t)
	sender := NewOutboxSender(db, testConfig(), &recordingPublisher{})

	done := make(chan struct{})
	go func() {
		sender.Start(context.Background())
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	sender.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sender did not stop")
	}
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Send(context.Context, string, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func TestOverdueReminderJobRunsSweep(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, false)
	testutil.AddDebt(t, db, f, money.FromUnits(10), time.Now().Add(-48*time.Hour), model.ApprovalNone)
	require.NoError(t, db.Create(&model.NotificationDevice{UserID: f.User.ID, PlayerID: "p1", RegisteredAt: time.Now()}).Error)

	notifier := &countingNotifier{}
	j := NewOverdueReminderJob(db, notifier, time.Hour)
	result := j.runOnce(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, notifier.count)
}

func TestOverdueReminderJobHonoursCancellation(t *testing.T) {
	db := testutil.NewDB(t)
	j := NewOverdueReminderJob(db, &countingNotifier{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not exit on cancellation")
	}
}
