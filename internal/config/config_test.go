package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "BIND_ADDRESS", "LOG_LEVEL", "DB_DRIVER", "DB_DSN", "REDIS_ADDR", "REDIS_PASSWORD",
		"REDIS_DB", "JWT_SECRET", "ADMIN_IDS", "MEMORIZATION_SECONDS", "TURN_SECONDS", "CHOICE_SECONDS",
		"TOKEN_TTL", "SAVE_INITIAL_INTERVAL", "SAVE_MAX_ELAPSED", "SAVE_SWEEP", "SHUTDOWN_TIMEOUT",
	} {
		// godotenv never overrides a variable that exists, even when empty.
		prev, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, prev)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.AdminIDs)
	assert.Equal(t, 10, cfg.MemorizationSeconds)
	assert.Equal(t, 30, cfg.TurnSeconds)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.SaveMaxElapsed)
}

func TestDotenvAndOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9000\nTURN_SECONDS=0\nADMIN_IDS=a, b ,,c\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("PORT", "7000")
	t.Setenv("SAVE_SWEEP", "250ms")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port, "environment wins over .env")
	assert.Equal(t, 0, cfg.TurnSeconds)
	assert.Equal(t, 0, cfg.TableDefaults().TurnSeconds)
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, cfg.AdminIDs)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.SaveSweep)
}

func TestInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TURN_SECONDS", "-1")
	t.Setenv("SAVE_SWEEP", "often")
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TURN_SECONDS")
	assert.Contains(t, err.Error(), "SAVE_SWEEP")

	clearEnv(t)
	t.Setenv("LOG_LEVEL", "loud")
	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
