package job

import (
	"context"
	"log"
	"time"

	"creditledger/internal/config"
	"creditledger/internal/metrics"
	"creditledger/internal/model"
	"creditledger/internal/repository"

	"gorm.io/gorm"
)

// Publisher ships one ledger event to the broker.
type Publisher interface {
	Send(topic, key, eventType, value string) error
}

// OutboxSender drains pending outbox rows to Kafka. Delivery is at least
// once; consumers dedupe on the message key.
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  Publisher
	maxRetries int
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, cfg *config.Config, publisher Publisher) *OutboxSender {
	interval := cfg.Business.OutboxInterval()
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db, cfg.Kafka.Topic.LedgerEvents),
		publisher:  publisher,
		maxRetries: cfg.Business.MaxRetryCount,
		stopCh:     make(chan struct{}),
		interval:   interval,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Printf("[OutboxSender] started: interval=%v", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] context done, exiting")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] load pending messages failed: %v", err)
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if s.sendMessage(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	err := s.publisher.Send(msg.Topic, msg.MessageKey, msg.EventType, msg.Payload)
	if err == nil {
		metrics.OutboxMessages.WithLabelValues(metrics.ResultSuccess).Inc()
		if updateErr := s.outboxRepo.MarkSent(ctx, msg.ID); updateErr != nil {
			log.Printf("[OutboxSender] mark sent failed: id=%d, err=%v", msg.ID, updateErr)
		}
		return true
	}

	metrics.OutboxMessages.WithLabelValues(metrics.ResultFailure).Inc()
	log.Printf("[OutboxSender] publish failed: id=%d, event=%s, err=%v", msg.ID, msg.EventType, err)

	parked, err := s.outboxRepo.RecordFailure(ctx, msg, s.maxRetries)
	if err != nil {
		log.Printf("[OutboxSender] record failure failed: id=%d, err=%v", msg.ID, err)
	} else if parked {
		log.Printf("[OutboxSender] message parked after %d attempts: id=%d", msg.RetryCount+1, msg.ID)
	}
	return false
}
