package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creditledger/internal/config"
	"creditledger/internal/handler"
	"creditledger/internal/infrastructure/cache"
	"creditledger/internal/infrastructure/chain"
	"creditledger/internal/infrastructure/database"
	"creditledger/internal/infrastructure/lock"
	"creditledger/internal/infrastructure/mq"
	"creditledger/internal/infrastructure/push"
	"creditledger/internal/job"
	"creditledger/internal/service"
	"creditledger/pkg/idgen"
)

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("CREDITLEDGER_CONFIG"); p != "" {
		configPath = p
	}
	cfg := config.LoadConfig(configPath)

	idgen.Init(cfg.Server.WorkerID)

	db := database.InitMySQL(&cfg.MySQL)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("[main] migrate schema: %v", err)
	}

	var locker service.DebtLocker
	if redisClient := cache.InitRedis(&cfg.Redis); redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, cfg.Business.LockTTL())
	} else {
		log.Println("[main] redis not configured, using in-process debt locks")
		locker = lock.NewLocalLocker()
	}

	var mirror service.LedgerMirror = chain.Disabled{}
	if cfg.Mirror.Enabled {
		dialCtx, dialCancel := context.WithTimeout(context.Background(), cfg.Mirror.Timeout())
		client, err := chain.Dial(dialCtx, cfg.Mirror)
		dialCancel()
		if err != nil {
			log.Fatalf("[main] dial ledger mirror: %v", err)
		}
		defer client.Close()
		mirror = client
	}

	var notifier service.Notifier = push.Disabled{}
	if cfg.Push.Enabled {
		notifier = push.NewOneSignal(cfg.Push)
	}

	producer := mq.InitKafka(&cfg.Kafka)
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxSender := job.NewOutboxSender(db, cfg, producer)
	go outboxSender.Start(ctx)

	reminderJob := job.NewOverdueReminderJob(db, notifier, cfg.Business.ReminderInterval())
	go reminderJob.Start(ctx)

	router := handler.SetupRouter(db, cfg, handler.Dependencies{
		Mirror:   mirror,
		Locker:   locker,
		Notifier: notifier,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("[main] listening on :%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[main] shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}

	log.Println("[main] stopped")
}
