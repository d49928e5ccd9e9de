package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	Addr                 string
	StorageDriver        string
	StorageDSN           string
	JWTSecret            string
	SessionTTL           time.Duration
	RingTimeout          time.Duration
	SimulatedAnswerDelay time.Duration
	SendRatePerMinute    int
	DevMode              bool
	SeedDemo             bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Addr:                 "127.0.0.1:8080",
		StorageDriver:        "sqlite3",
		StorageDSN:           "vaani.db",
		SessionTTL:           720 * time.Hour,
		RingTimeout:          30 * time.Second,
		SimulatedAnswerDelay: 4 * time.Second,
		SendRatePerMinute:    60,
	}

	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Addr = addr
	}

	// Load STORAGE_DRIVER (memory, sqlite3 or postgres)
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		cfg.StorageDriver = driver
	}
	switch cfg.StorageDriver {
	case "memory", "sqlite3":
	case "postgres":
		cfg.StorageDSN = os.Getenv("DATABASE_URL")
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be memory, sqlite3 or postgres, got %q", cfg.StorageDriver)
	}
	if dsn := os.Getenv("STORAGE_DSN"); dsn != "" {
		cfg.StorageDSN = dsn
	}
	if cfg.StorageDriver == "postgres" && cfg.StorageDSN == "" {
		return nil, fmt.Errorf("DATABASE_URL or STORAGE_DSN is required for postgres storage")
	}

	// Load JWT_SECRET (required)
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	var err error
	if cfg.SessionTTL, err = hoursEnv("SESSION_TTL_HOURS", cfg.SessionTTL); err != nil {
		return nil, err
	}
	if cfg.RingTimeout, err = millisEnv("RING_TIMEOUT_MS", cfg.RingTimeout); err != nil {
		return nil, err
	}
	if cfg.SimulatedAnswerDelay, err = millisEnv("SIMULATED_ANSWER_MS", cfg.SimulatedAnswerDelay); err != nil {
		return nil, err
	}
	if v := os.Getenv("SEND_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("SEND_RATE_PER_MINUTE must be a positive integer, got %q", v)
		}
		cfg.SendRatePerMinute = n
	}

	cfg.DevMode = os.Getenv("DEV_MODE") == "true"
	cfg.SeedDemo = os.Getenv("SEED_DEMO") == "true"

	return cfg, nil
}

// millisEnv parses a non-negative millisecond count; 0 is allowed and disables the timer
func millisEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, v)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func hoursEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, v)
	}
	return time.Duration(n) * time.Hour, nil
}
