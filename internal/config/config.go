package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Database      DatabaseConfig
	HTTP          HTTPConfig
	GRPC          GRPCConfig
	Auth          AuthConfig
	Referral      ReferralConfig
	Logging       LoggingConfig
	Bootstrap     BootstrapConfig
	Subscriptions SubscriptionConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	DSN    string // SQLite file path / URI, or a lib/pq connection string
}

// HTTPConfig contains settings for the server-rendered pages.
type HTTPConfig struct {
	Address      string // listen address (e.g., ":8080")
	SecureCookie bool   // mark the session cookie Secure (HTTPS only)
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string // gRPC server listen address (e.g., ":50051")
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret       string        // JWT signing secret
	SessionTTL      time.Duration // lifetime of issued tokens
	CookieName      string        // session cookie carrying the token
	LoginRatePerMin int           // login attempts per client per minute
	LoginBurst      int
}

// MaxReferralCodeLength is the width of the referral_code column.
const MaxReferralCodeLength = 16

// ReferralConfig tunes referral code allocation.
type ReferralConfig struct {
	CodeLength  int
	MaxAttempts int
	Backoff     time.Duration
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// BootstrapConfig seeds the first back-office member when set.
type BootstrapConfig struct {
	MemberUser     string
	MemberPassword string
	MemberEmail    string
}

// SubscriptionConfig schedules the subscription expiry sweep.
type SubscriptionConfig struct {
	SweepSchedule string // cron spec; empty disables the sweep
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file (ENV_FILE, default ".env") is read first when present; real
// environment variables win over it.
func Load() (*Config, error) {
	cfg, err := load("")
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}

	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return load("dev-secret-change-me")
}

func load(defaultSecret string) (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:    getEnv("DB_DSN", getEnv("DB_PATH", "app.db")),
		},
		HTTP: HTTPConfig{
			Address:      getEnv("HTTP_ADDRESS", ":8080"),
			SecureCookie: getEnvBool("SECURE_COOKIE", false),
		},
		GRPC: GRPCConfig{
			Address: getEnv("GRPC_ADDRESS", ":50051"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", defaultSecret),
			SessionTTL:      durVar("SESSION_TTL", 12*time.Hour),
			CookieName:      getEnv("SESSION_COOKIE", "membership_session"),
			LoginRatePerMin: intVar("LOGIN_RATE_PER_MIN", 10),
			LoginBurst:      intVar("LOGIN_BURST", 5),
		},
		Referral: ReferralConfig{
			CodeLength:  intVar("REFERRAL_CODE_LENGTH", 6),
			MaxAttempts: intVar("REFERRAL_MAX_ATTEMPTS", 10),
			Backoff:     durVar("REFERRAL_BACKOFF", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		Bootstrap: BootstrapConfig{
			MemberUser:     getEnv("BOOTSTRAP_MEMBER_USER", ""),
			MemberPassword: getEnv("BOOTSTRAP_MEMBER_PASSWORD", ""),
			MemberEmail:    getEnv("BOOTSTRAP_MEMBER_EMAIL", ""),
		},
		Subscriptions: SubscriptionConfig{
			SweepSchedule: getEnv("SUBSCRIPTION_SWEEP", "@hourly"),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.Referral.CodeLength < 1 || cfg.Referral.CodeLength > MaxReferralCodeLength {
		return nil, fmt.Errorf("REFERRAL_CODE_LENGTH must be between 1 and %d, got %d", MaxReferralCodeLength, cfg.Referral.CodeLength)
	}
	if cfg.Referral.MaxAttempts < 1 {
		return nil, fmt.Errorf("REFERRAL_MAX_ATTEMPTS must be positive, got %d", cfg.Referral.MaxAttempts)
	}
	return cfg, nil
}

// loadDotEnv reads KEY=VALUE pairs from path without overriding variables
// already present in the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

func getEnvBool(key string, defaultVal bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultVal
	}
	return b
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	dsn := c.Database.DSN
	if c.Database.Driver == "postgres" {
		dsn = "*** (masked) ***"
	}
	return fmt.Sprintf("Config{DB: %s %s, HTTP: %s, gRPC: %s, Auth: *** (masked) ***, ReferralCode: len=%d attempts=%d}",
		c.Database.Driver, dsn, c.HTTP.Address, c.GRPC.Address, c.Referral.CodeLength, c.Referral.MaxAttempts)
}
