package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lessonshop/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "lessonshop.db", cfg.DatabaseDSN)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Equal(t, 5*time.Second, cfg.OrderTxTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.SeedLessons)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", ":9999")
	t.Setenv("DATABASE_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_DSN", "host=db user=shop dbname=shop sslmode=disable")
	t.Setenv("ORDER_TX_TIMEOUT", "750ms")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SEED_LESSONS", "false")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "host=db user=shop dbname=shop sslmode=disable", cfg.DatabaseDSN)
	assert.Equal(t, 750*time.Millisecond, cfg.OrderTxTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.SeedLessons)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lessonshop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_DRIVER: memory\nLOG_LEVEL: debug\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.DatabaseDriver)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mongodb")

	_, err := config.Load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseDriver")
}

func TestValidate_MemoryDriverNeedsNoDSN(t *testing.T) {
	cfg := config.Config{
		AppPort:        ":8080",
		DatabaseDriver: "memory",
		OrderTxTimeout: time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
	}
	assert.NoError(t, cfg.Validate())

	cfg.DatabaseDriver = "sqlite"
	assert.Error(t, cfg.Validate())
}
