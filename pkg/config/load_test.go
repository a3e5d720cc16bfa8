package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file::memory:")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal("sqlite", cfg.DB.Driver)
	assert.Equal("test-secret", cfg.Auth.Jwt.Secret)
	assert.Equal(24*time.Hour, cfg.Auth.Jwt.Expiry)
	assert.Equal("memory", cfg.EventBus.Driver)
	assert.Equal("10000.00", cfg.Ledger.MaxTransferAmount)
	assert.Equal(5*time.Second, cfg.Ledger.OperationTimeout)
	assert.Equal(3, cfg.Ledger.ConflictRetries)
	assert.Equal(50, cfg.Ledger.DefaultPageSize)
	assert.Equal(100, cfg.Ledger.MaxPageSize)
	assert.Equal(10000, cfg.Ledger.MaxStatementRows)
	assert.Equal("X-Forwarded-For", cfg.Server.ProxyHeader)
	assert.Empty(cfg.Server.TrustedProxies)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("AUTH_JWT_SECRET"))
	_, err := loadFromEnv()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s")
	t.Setenv("LEDGER_MAX_TRANSFER_AMOUNT", "250.50")
	t.Setenv("LEDGER_OPERATION_TIMEOUT", "750ms")
	t.Setenv("EVENT_BUS_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SERVER_TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")

	cfg, err := loadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "250.50", cfg.Ledger.MaxTransferAmount)
	assert.Equal(t, 750*time.Millisecond, cfg.Ledger.OperationTimeout)
	assert.Equal(t, "kafka", cfg.EventBus.Driver)
	assert.Equal(t, "k1:9092,k2:9092", cfg.Kafka.Brokers)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Server.TrustedProxies)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown db driver", map[string]string{"DATABASE_DRIVER": "mysql"}},
		{"unknown bus", map[string]string{"EVENT_BUS_DRIVER": "nats"}},
		{"bad max amount", map[string]string{"LEDGER_MAX_TRANSFER_AMOUNT": "1.001"}},
		{"zero timeout", map[string]string{"LEDGER_OPERATION_TIMEOUT": "0s"}},
		{"page sizes", map[string]string{"LEDGER_DEFAULT_PAGE_SIZE": "200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AUTH_JWT_SECRET", "s")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "****", maskValue("short"))
	assert.Equal(t, "po****5432", maskValue("postgres://u:p@h:5432"))
}
