package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	JWTSigningKey  string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTTTL         time.Duration `mapstructure:"JWT_TTL"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	MailAPIURL   string `mapstructure:"MAIL_API_URL"`
	MailAPIKey   string `mapstructure:"MAIL_API_KEY"`
	MailFrom     string `mapstructure:"MAIL_FROM"`
	ResetURLBase string `mapstructure:"RESET_URL_BASE"`

	StatsDailyTarget   int64         `mapstructure:"STATS_DAILY_TARGET"`
	StatsWeeklyTarget  int64         `mapstructure:"STATS_WEEKLY_TARGET"`
	StatsMonthlyTarget int64         `mapstructure:"STATS_MONTHLY_TARGET"`
	StatsCacheTTL      time.Duration `mapstructure:"STATS_CACHE_TTL"`

	MessagePollInterval time.Duration `mapstructure:"MESSAGE_POLL_INTERVAL"`
	MessageWaitTimeout  time.Duration `mapstructure:"MESSAGE_WAIT_TIMEOUT"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"JWT_SIGNING_KEY", "JWT_TTL", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT", "MAIL_API_URL", "MAIL_API_KEY", "MAIL_FROM", "RESET_URL_BASE",
	"STATS_DAILY_TARGET", "STATS_WEEKLY_TARGET", "STATS_MONTHLY_TARGET", "STATS_CACHE_TTL",
	"MESSAGE_POLL_INTERVAL", "MESSAGE_WAIT_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JWT_TTL", "12h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("MAIL_FROM", "no-reply@clinic.local")
	v.SetDefault("RESET_URL_BASE", "http://localhost:3000/reset-password")
	// Revenue targets in KRW per bucket.
	v.SetDefault("STATS_DAILY_TARGET", 5_000_000)
	v.SetDefault("STATS_WEEKLY_TARGET", 30_000_000)
	v.SetDefault("STATS_MONTHLY_TARGET", 120_000_000)
	v.SetDefault("STATS_CACHE_TTL", "0s")
	v.SetDefault("MESSAGE_POLL_INTERVAL", "3s")
	v.SetDefault("MESSAGE_WAIT_TIMEOUT", "60s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: requests without a bearer token get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SigningKey returns the HMAC key used for session tokens. Hex input is
// decoded; anything else is used as raw bytes.
func (c *Config) SigningKey() []byte {
	if b, err := hex.DecodeString(c.JWTSigningKey); err == nil && len(b) > 0 {
		return b
	}
	return []byte(c.JWTSigningKey)
}

// Validate checks that the configuration is safe to run. Outside development
// a signing key of at least 32 bytes is required.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSigningKey == "" {
			return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
		}
		if len(c.SigningKey()) < 32 {
			return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes, got %d", len(c.SigningKey()))
		}
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.MessagePollInterval <= 0 {
		return fmt.Errorf("MESSAGE_POLL_INTERVAL must be positive")
	}
	if c.StatsDailyTarget < 0 || c.StatsWeeklyTarget < 0 || c.StatsMonthlyTarget < 0 {
		return fmt.Errorf("stats targets must not be negative")
	}
	return nil
}
