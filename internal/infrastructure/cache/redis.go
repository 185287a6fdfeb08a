package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"creditledger/internal/config"

	"github.com/go-redis/redis/v8"
)

// InitRedis connects the client used for per-debt locks. It returns nil when
// Redis is not configured.
func InitRedis(cfg *config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		log.Println("[cache] redis not configured, using in-process debt locks")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("[cache] connect redis %s:%d: %v", cfg.Host, cfg.Port, err)
	}

	log.Printf("[cache] redis connected: %s:%d db=%d", cfg.Host, cfg.Port, cfg.DB)
	return client
}
