package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Push     PushConfig     `mapstructure:"push"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port     int   `mapstructure:"port"`
	WorkerID int64 `mapstructure:"worker_id"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig is optional; an empty host selects the in-process debt locker.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LedgerEvents string `mapstructure:"ledger_events"`
}

// MirrorConfig points at the CreditosChain contract.
type MirrorConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	RPCURL          string `mapstructure:"rpc_url"`
	PrivateKey      string `mapstructure:"private_key"`
	ContractAddress string `mapstructure:"contract_address"`
	GasLimit        uint64 `mapstructure:"gas_limit"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

func (c MirrorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PushConfig holds the OneSignal credentials.
type PushConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	AppID          string `mapstructure:"app_id"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (c PushConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type BusinessConfig struct {
	ReminderIntervalMinutes int `mapstructure:"reminder_interval_minutes"`
	MaxRetryCount           int `mapstructure:"max_retry_count"`
	LockTTLSeconds          int `mapstructure:"lock_ttl_seconds"`
	OutboxIntervalMs        int `mapstructure:"outbox_interval_ms"`
}

func (c BusinessConfig) ReminderInterval() time.Duration {
	return time.Duration(c.ReminderIntervalMinutes) * time.Minute
}

func (c BusinessConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func (c BusinessConfig) OutboxInterval() time.Duration {
	return time.Duration(c.OutboxIntervalMs) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.worker_id", 1)
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("kafka.topic.ledger_events", "ledger-events")
	v.SetDefault("mirror.gas_limit", 300000)
	v.SetDefault("mirror.timeout_seconds", 5)
	v.SetDefault("push.base_url", "https://onesignal.com/api/v1")
	v.SetDefault("push.timeout_seconds", 10)
	v.SetDefault("business.reminder_interval_minutes", 60)
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.lock_ttl_seconds", 30)
	v.SetDefault("business.outbox_interval_ms", 500)
}

// Load reads the YAML file at configPath and applies CREDITLEDGER_* overrides,
// e.g. CREDITLEDGER_MYSQL_PASSWORD.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("creditledger")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// LoadConfig is Load for process startup.
func LoadConfig(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	return cfg
}
