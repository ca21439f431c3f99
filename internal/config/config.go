package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	CORSOrigins []string
	SentryDSN   string
	CronSecret  string

	DatabaseURL            string
	DBMaxOpenConns         int
	DBMaxIdleConns         int
	DBConnMaxLifetime      time.Duration
	DBConnMaxIdleTime      time.Duration
	DBPingAttempts         int
	RunMigrationsOnStartup bool

	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	BcryptCost         int

	CloudinaryURL    string
	CloudinaryFolder string

	LoginRateLimitMax    int
	LoginRateLimitWindow time.Duration
	CleanupBatchSize     int
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}

// LoadDotEnv reads .env into the process environment if the file exists.
// Variables already set win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads the configuration from the environment. Every required variable
// that is absent is reported in one error.
func Load() (Config, error) {
	var missing []string
	required := func(name string) string {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" {
			missing = append(missing, name)
		}
		return value
	}

	cfg := Config{
		Port:     envOrDefault("PORT", "8000"),
		AppEnv:   strings.ToLower(envOrDefault("APP_ENV", "development")),
		LogLevel: envOrDefault("LOG_LEVEL", "info"),

		CORSOrigins: splitList(envOrDefault("CORS_ORIGIN", "*")),
		SentryDSN:   strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		CronSecret:  strings.TrimSpace(os.Getenv("CRON_SECRET")),

		DatabaseURL:            required("DATABASE_URL"),
		DBMaxOpenConns:         envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:         envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime:      envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleTime:      envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
		DBPingAttempts:         envIntOrDefault("DB_PING_ATTEMPTS", 5),
		RunMigrationsOnStartup: EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", true),

		AccessTokenSecret:  required("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: required("REFRESH_TOKEN_SECRET"),
		BcryptCost:         envIntOrDefault("BCRYPT_COST", 10),

		CloudinaryURL:    required("CLOUDINARY_URL"),
		CloudinaryFolder: envOrDefault("CLOUDINARY_FOLDER", "videotube"),

		LoginRateLimitMax:    envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 10),
		LoginRateLimitWindow: envSecondsOrDefault("LOGIN_RATE_LIMIT_WINDOW_SECONDS", 60),
		CleanupBatchSize:     envIntOrDefault("AUTH_CLEANUP_BATCH_SIZE", 500),
	}

	accessExpiry := required("ACCESS_TOKEN_EXPIRY")
	refreshExpiry := required("REFRESH_TOKEN_EXPIRY")
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.AccessTokenExpiry, err = ParseExpiry(accessExpiry); err != nil {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_EXPIRY: %w", err)
	}
	if cfg.RefreshTokenExpiry, err = ParseExpiry(refreshExpiry); err != nil {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_EXPIRY: %w", err)
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	return cfg, nil
}

// ParseExpiry accepts a Go duration ("15m", "1h30m"), a day count ("10d") or
// a bare number of seconds.
func ParseExpiry(value string) (time.Duration, error) {
	value = strings.TrimSpace(strings.ToLower(value))

	var parsed time.Duration
	switch {
	case value == "":
		return 0, fmt.Errorf("empty duration")
	case strings.HasSuffix(value, "d"):
		days, err := strconv.Atoi(strings.TrimSuffix(value, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		parsed = time.Duration(days) * 24 * time.Hour
	default:
		if seconds, err := strconv.Atoi(value); err == nil {
			parsed = time.Duration(seconds) * time.Second
			break
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		parsed = d
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", value)
	}
	return parsed, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
