package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
mysql:
  host: db
  database: creditos
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db", cfg.MySQL.Host)
	assert.Equal(t, 5*time.Second, cfg.Mirror.Timeout())
	assert.Equal(t, uint64(300000), cfg.Mirror.GasLimit)
	assert.Equal(t, time.Hour, cfg.Business.ReminderInterval())
	assert.Equal(t, "ledger-events", cfg.Kafka.Topic.LedgerEvents)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
mysql:
  password: from-file
push:
  app_id: file-app
`)
	t.Setenv("CREDITLEDGER_MYSQL_PASSWORD", "from-env")
	t.Setenv("CREDITLEDGER_PUSH_APP_ID", "env-app")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.MySQL.Password)
	assert.Equal(t, "env-app", cfg.Push.AppID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
