package job

import (
	"context"
	"log"
	"time"

	"creditledger/internal/service"

	"gorm.io/gorm"
)

// OverdueReminderJob runs the reminder sweep on a fixed interval. Each
// cycle works on a fresh session so no connection state outlives it.
type OverdueReminderJob struct {
	db       *gorm.DB
	notifier service.Notifier
	stopCh   chan struct{}
	interval time.Duration
}

func NewOverdueReminderJob(db *gorm.DB, notifier service.Notifier, interval time.Duration) *OverdueReminderJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &OverdueReminderJob{
		db:       db,
		notifier: notifier,
		stopCh:   make(chan struct{}),
		interval: interval,
	}
}

func (j *OverdueReminderJob) Start(ctx context.Context) {
	log.Printf("[OverdueReminderJob] started: interval=%v", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OverdueReminderJob] context done, exiting")
			return
		case <-j.stopCh:
			log.Println("[OverdueReminderJob] stopped")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *OverdueReminderJob) Stop() {
	close(j.stopCh)
}

func (j *OverdueReminderJob) runOnce(ctx context.Context) *service.SweepResult {
	session := j.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	svc := service.NewReminderService(session, j.notifier)

	result, err := svc.RunSweep(ctx)
	if err != nil {
		log.Printf("[OverdueReminderJob] sweep failed: %v", err)
	}
	return result
}
