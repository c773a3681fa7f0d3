// Package config loads server configuration from .env, the environment and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/crazyaces/internal/claim"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Addr   string
	AppEnv string // "development" or "production"

	LogLevel  string
	LogFormat string

	SessionSecret   string
	SessionTTL      time.Duration
	TokenMaxAge     time.Duration
	StreakAuthority string // "store" or "token"

	RedisURL     string // empty = in-memory stores
	DatabaseURL  string
	LedgerDriver string // "memory", "redis", "postgres" or "sqlite"
	SQLitePath   string

	AllowedOrigins []string

	SMTP SMTP

	ClaimRateLimit   int // requests per RateWindow per IP
	SessionRateLimit int
	RateWindow       time.Duration

	AnalyticsFlushInterval time.Duration

	Game Game
}

// SMTP holds mail relay settings. An empty Host logs emails instead.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Game holds tuning read from the YAML overlay.
type Game struct {
	HandSize          int         `yaml:"hand_size"`
	StepDelay         Duration    `yaml:"step_delay"`
	DiscountCodes     claim.Codes `yaml:"discount_codes"`
	DisposableDomains []string    `yaml:"disposable_domains"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "600ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c Config) IsDevelopment() bool { return c.AppEnv == "development" }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:                   ":8080",
		AppEnv:                 "development",
		LogLevel:               "info",
		LogFormat:              "text",
		SessionTTL:             time.Hour,
		TokenMaxAge:            0,
		StreakAuthority:        "store",
		LedgerDriver:           "memory",
		SQLitePath:             "claims.db",
		AllowedOrigins:         []string{"http://localhost:5173", "http://localhost:8080"},
		SMTP:                   SMTP{Port: 587},
		ClaimRateLimit:         5,
		SessionRateLimit:       30,
		RateWindow:             time.Minute,
		AnalyticsFlushInterval: 5 * time.Second,
		Game: Game{
			HandSize:      7,
			StepDelay:     Duration(600 * time.Millisecond),
			DiscountCodes: claim.DefaultCodes,
		},
	}
}

// Load reads .env (if present), applies environment overrides and then the
// YAML file named by CONFIG_FILE, and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := FromEnv(Default())
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv overlays environment variables onto cfg.
func FromEnv(cfg Config) Config {
	setString(&cfg.Addr, "ADDR")
	setString(&cfg.AppEnv, "APP_ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setString(&cfg.SessionSecret, "SESSION_SECRET")
	setSeconds(&cfg.SessionTTL, "SESSION_TTL")
	setSeconds(&cfg.TokenMaxAge, "TOKEN_MAX_AGE")
	setString(&cfg.StreakAuthority, "STREAK_AUTHORITY")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.LedgerDriver, "LEDGER_DRIVER")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setInt(&cfg.SMTP.Port, "SMTP_PORT")
	setString(&cfg.SMTP.Username, "SMTP_USERNAME")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.SMTP.From, "SMTP_FROM")
	setInt(&cfg.ClaimRateLimit, "CLAIM_RATE_LIMIT")
	setInt(&cfg.SessionRateLimit, "SESSION_RATE_LIMIT")
	setSeconds(&cfg.AnalyticsFlushInterval, "ANALYTICS_FLUSH_INTERVAL")
	setInt(&cfg.Game.HandSize, "HAND_SIZE")
	if v := os.Getenv("STEP_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Game.StepDelay = Duration(d)
		}
	}
	return cfg
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.SessionSecret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("SESSION_SECRET is required outside development"))
	}
	switch c.LedgerDriver {
	case "memory", "sqlite":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("LEDGER_DRIVER=redis needs REDIS_URL"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("LEDGER_DRIVER=postgres needs DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_DRIVER %q", c.LedgerDriver))
	}
	if c.StreakAuthority == "token" && !c.IsDevelopment() {
		errs = append(errs, errors.New("STREAK_AUTHORITY=token is only allowed in development"))
	}
	if c.Game.HandSize < 1 || c.Game.HandSize > 20 {
		errs = append(errs, fmt.Errorf("hand size %d out of range 1..20", c.Game.HandSize))
	}
	return errors.Join(errs...)
}

// loadYAML overlays the game section of the YAML file at path.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var file struct {
		Game Game `yaml:"game"`
	}
	file.Game = c.Game
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Game = file.Game
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// setSeconds reads an integer number of seconds, or a Go duration string.
func setSeconds(dst *time.Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
