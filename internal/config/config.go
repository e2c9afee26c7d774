// Package config reads process settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/showtime/engine"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port        string
	BindAddress string
	LogLevel    log.Level

	DBDriver string
	DBDSN    string

	// RedisAddr empty disables the action queue, event mirror and profiles.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	TokenTTL  time.Duration
	AdminIDs  map[string]bool

	// Table defaults applied to create requests that omit them.
	MemorizationSeconds int
	TurnSeconds         int
	ChoiceSeconds       int

	SaveInitialInterval time.Duration
	SaveMaxElapsed      time.Duration
	SaveSweep           time.Duration

	ShutdownTimeout time.Duration
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. Variables already set in the
// environment win over the file.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	defaults := engine.DefaultSettings()
	level, err := log.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		BindAddress:         getEnv("BIND_ADDRESS", ""),
		LogLevel:            level,
		DBDriver:            getEnv("DB_DRIVER", "sqlite"),
		DBDSN:               getEnv("DB_DSN", "file:showtime.db"),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		JWTSecret:           getEnv("JWT_SECRET", "change-me"),
		AdminIDs:            splitSet(getEnv("ADMIN_IDS", "")),
		MemorizationSeconds: defaults.MemorizationSeconds,
		TurnSeconds:         defaults.TurnSeconds,
		ChoiceSeconds:       defaults.ChoiceSeconds,
	}

	var errs []error
	intVar := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				errs = append(errs, errors.New(key+": expected a non-negative integer, got "+v))
				return
			}
			*dst = n
		}
	}
	durVar := func(key string, dst *time.Duration, def time.Duration) {
		*dst = def
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, errors.New(key+": "+err.Error()))
				return
			}
			*dst = d
		}
	}

	intVar("REDIS_DB", &cfg.RedisDB)
	intVar("MEMORIZATION_SECONDS", &cfg.MemorizationSeconds)
	intVar("TURN_SECONDS", &cfg.TurnSeconds)
	intVar("CHOICE_SECONDS", &cfg.ChoiceSeconds)
	durVar("TOKEN_TTL", &cfg.TokenTTL, 24*time.Hour)
	durVar("SAVE_INITIAL_INTERVAL", &cfg.SaveInitialInterval, 100*time.Millisecond)
	durVar("SAVE_MAX_ELAPSED", &cfg.SaveMaxElapsed, 10*time.Second)
	durVar("SAVE_SWEEP", &cfg.SaveSweep, 5*time.Second)
	durVar("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout, 10*time.Second)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string { return c.BindAddress + ":" + c.Port }

// TableDefaults returns the settings a create request starts from.
func (c *Config) TableDefaults() engine.Settings {
	s := engine.DefaultSettings()
	s.MemorizationSeconds = c.MemorizationSeconds
	s.TurnSeconds = c.TurnSeconds
	s.ChoiceSeconds = c.ChoiceSeconds
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitSet(raw string) map[string]bool {
	out := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out[part] = true
		}
	}
	return out
}
