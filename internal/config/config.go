package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"liftlog/internal/adapters/storage"
)

// Environment names accepted in LIFTLOG_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	defaultAddr      = ":8080"
	defaultSQLite    = "liftlog.db"
	defaultEmailFrom = "Liftlog <noreply@liftlog.local>"
)

// Config is the process configuration assembled from the environment.
type Config struct {
	Addr        string
	Env         string
	DBDriver    storage.Dialect
	DBDSN       string
	SessionKey  []byte
	CSRFKey     []byte
	ResendKey   string
	EmailFrom   string
	SlowRequest time.Duration
	SlowQuery   time.Duration
	LogLevel    slog.Level

	// GeneratedKeys is true when development keys were generated at startup.
	// Sessions do not survive a restart in that case.
	GeneratedKeys bool
}

// Production reports whether the app runs with production cookie and CSRF settings.
func (c Config) Production() bool {
	return c.Env == EnvProduction
}

// LoadDotEnv reads a .env file into the process environment when one exists.
// Variables already set are not overridden.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from environment variables.
// PRE: LoadDotEnv has been called if a .env file should apply
// POST: Returns a Config with every field set, or an error naming the bad variable
func Load() (Config, error) {
	cfg := Config{
		Addr:      envOrDefault("LIFTLOG_ADDR", defaultAddr),
		Env:       strings.ToLower(envOrDefault("LIFTLOG_ENV", EnvDevelopment)),
		ResendKey: os.Getenv("LIFTLOG_RESEND_KEY"),
		EmailFrom: envOrDefault("LIFTLOG_EMAIL_FROM", defaultEmailFrom),
	}
	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return Config{}, fmt.Errorf("LIFTLOG_ENV: unknown environment %q", cfg.Env)
	}

	driver, err := storage.ParseDialect(os.Getenv("LIFTLOG_DB_DRIVER"))
	if err != nil {
		return Config{}, fmt.Errorf("LIFTLOG_DB_DRIVER: %w", err)
	}
	cfg.DBDriver = driver
	cfg.DBDSN = os.Getenv("LIFTLOG_DB_DSN")
	if cfg.DBDSN == "" {
		if driver == storage.DialectMySQL {
			return Config{}, errors.New("LIFTLOG_DB_DSN is required for the mysql driver")
		}
		cfg.DBDSN = storage.DefaultSQLiteDSN(defaultSQLite)
	}

	if cfg.SlowRequest, err = envMillis("LIFTLOG_SLOW_REQUEST_MS", 200*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.SlowQuery, err = envMillis("LIFTLOG_SLOW_QUERY_MS", storage.DefaultSlowQuery); err != nil {
		return Config{}, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(envOrDefault("LIFTLOG_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LIFTLOG_LOG_LEVEL: %w", err)
	}

	if cfg.SessionKey, err = loadKey("LIFTLOG_SESSION_KEY", 32, 64); err != nil {
		return Config{}, err
	}
	if cfg.CSRFKey, err = loadKey("LIFTLOG_CSRF_KEY", 32); err != nil {
		return Config{}, err
	}
	if cfg.SessionKey == nil || cfg.CSRFKey == nil {
		if cfg.Production() {
			return Config{}, errors.New("LIFTLOG_SESSION_KEY and LIFTLOG_CSRF_KEY are required in production")
		}
		if cfg.SessionKey == nil {
			cfg.SessionKey = randomKey(32)
		}
		if cfg.CSRFKey == nil {
			cfg.CSRFKey = randomKey(32)
		}
		cfg.GeneratedKeys = true
	}
	return cfg, nil
}

// loadKey decodes a hex key. A missing variable returns nil without error.
func loadKey(name string, sizes ...int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: not valid hex: %w", name, err)
	}
	for _, n := range sizes {
		if len(key) == n {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%s: key is %d bytes, want one of %v", name, len(key), sizes)
}

func envMillis(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("%s: want a positive number of milliseconds, got %q", name, raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func randomKey(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return b
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
