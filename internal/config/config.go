package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseName is the logical database holding both review collections.
const DatabaseName = "phishing_agent_db"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongodb"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		Mode            string        `yaml:"mode"`
		StaticDir       string        `yaml:"static_dir"`
		CORSOrigin      string        `yaml:"cors_origin"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     struct {
		Password         string        `yaml:"password"`
		PasswordHash     string        `yaml:"password_hash"`
		FallbackPassword string        `yaml:"fallback_password"`
		JWTSecret        string        `yaml:"jwt_secret"`
		TokenTTL         time.Duration `yaml:"token_ttl"`
		RequireToken     bool          `yaml:"require_token"`
	} `yaml:"auth"`
	Review struct {
		PendingLimit   int  `yaml:"pending_limit"`
		StrictNotFound bool `yaml:"strict_not_found"`
	} `yaml:"review"`
	Telegram struct {
		Enabled  bool          `yaml:"enabled"`
		BotToken string        `yaml:"bot_token"`
		ChatID   int64         `yaml:"chat_id"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"telegram"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// DatabaseConfig describes how to reach the review store.
type DatabaseConfig struct {
	URL          string        `yaml:"url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	Migrate      bool          `yaml:"migrate"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "3000"
	cfg.Server.Mode = "release"
	cfg.Server.CORSOrigin = "*"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Database.Timeout = 5 * time.Second
	cfg.Database.MaxOpenConns = 10
	cfg.Database.Migrate = true
	cfg.Auth.TokenTTL = 12 * time.Hour
	cfg.Auth.RequireToken = true
	cfg.Review.PendingLimit = 50
	cfg.Telegram.Timeout = 5 * time.Second
	cfg.Log.Level = "info"
	return cfg
}

// LoadConfig reads configuration from the specified YAML file and overlays
// environment variables. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	file, err := os.Open(configPath)
	switch {
	case err == nil:
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	var errs []error
	boolean := func(dst *bool, key string) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	integer := func(dst *int64, key string) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str(&c.Server.Port, "PORT")
	str(&c.Server.Mode, "GIN_MODE")
	str(&c.Server.StaticDir, "STATIC_DIR")
	str(&c.Server.CORSOrigin, "CORS_ORIGIN")

	str(&c.Database.URL, "DATABASE_URL", "MONGODB_URI")
	duration(&c.Database.Timeout, "DATABASE_TIMEOUT")
	boolean(&c.Database.Migrate, "DATABASE_MIGRATE")

	str(&c.Auth.Password, "ADMIN_PASSWORD")
	str(&c.Auth.PasswordHash, "ADMIN_PASSWORD_HASH")
	str(&c.Auth.FallbackPassword, "ADMIN_FALLBACK_PASSWORD")
	str(&c.Auth.JWTSecret, "ADMIN_JWT_SECRET")
	duration(&c.Auth.TokenTTL, "ADMIN_TOKEN_TTL")
	boolean(&c.Auth.RequireToken, "ADMIN_REQUIRE_TOKEN")

	limit := int64(c.Review.PendingLimit)
	integer(&limit, "REVIEW_PENDING_LIMIT")
	c.Review.PendingLimit = int(limit)
	boolean(&c.Review.StrictNotFound, "REVIEW_STRICT_NOT_FOUND")

	boolean(&c.Telegram.Enabled, "TELEGRAM_ENABLED")
	str(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	integer(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	duration(&c.Telegram.Timeout, "TELEGRAM_TIMEOUT")

	str(&c.Log.Level, "LOG_LEVEL")
	boolean(&c.Log.Development, "LOG_DEVELOPMENT")

	return errors.Join(errs...)
}

// Validate reports configuration the server cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("database url is required (set DATABASE_URL)")
	}
	if scheme, ok := urlScheme(c.Database.URL); ok {
		switch scheme {
		case "postgres", "postgresql", "mongodb", "mongodb+srv", "sqlite", "file":
		default:
			return fmt.Errorf("unsupported database url scheme %q (want postgres, mongodb, mongodb+srv or sqlite)", scheme)
		}
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q (want debug, release or test)", c.Server.Mode)
	}
	if c.Database.Timeout <= 0 {
		return errors.New("database timeout must be positive")
	}
	if c.Review.PendingLimit <= 0 {
		return errors.New("review pending_limit must be positive")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth token_ttl must be positive")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		return errors.New("telegram notifier requires bot_token and chat_id")
	}
	return nil
}

func urlScheme(raw string) (string, bool) {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return "", false
	}
	return strings.ToLower(raw[:i]), true
}

// Driver returns the backend implied by the database URL.
func (d DatabaseConfig) Driver() string {
	switch {
	case strings.HasPrefix(d.URL, "sqlite:"), strings.HasPrefix(d.URL, "file:"):
		return DriverSQLite
	case strings.HasPrefix(d.URL, "mongodb://"), strings.HasPrefix(d.URL, "mongodb+srv://"):
		return DriverMongo
	default:
		return DriverPostgres
	}
}

// DSN returns the data source name passed to the sql driver. PostgreSQL URLs
// without a database path are pointed at DatabaseName.
func (d DatabaseConfig) DSN() string {
	switch d.Driver() {
	case DriverSQLite:
		return strings.TrimPrefix(d.URL, "sqlite:")
	case DriverMongo:
		// the database is always DatabaseName, whatever the URL path says
		return d.URL
	}

	u, err := url.Parse(d.URL)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		// key=value DSNs are passed through untouched
		return d.URL
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/" + DatabaseName
	}
	return u.String()
}
