package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultJWTSecret is only meant for local development.
const DefaultJWTSecret = "insecure-dev-secret"

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	DB      DBConfig
	Auth    AuthConfig
	Ledger  LedgerConfig
	Logging LoggingConfig
	Admin   AdminConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Port            string        `env:"PORT" env-default:"8080"`
	TemplateDir     string        `env:"TEMPLATE_DIR" env-default:"web/templates"`
	StaticDir       string        `env:"STATIC_DIR" env-default:"web/static"`
	SecureCookie    bool          `env:"SECURE_COOKIE" env-default:"false"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DBConfig selects the ledger store. DatabaseURL wins over Path when set.
type DBConfig struct {
	Path        string `env:"DB_PATH" env-default:"bankly.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	MaxConns    int    `env:"DB_MAX_CONNS" env-default:"10"`
}

// AuthConfig controls token signing.
type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET" env-default:"insecure-dev-secret"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"30m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"24h"`
}

// LedgerConfig tunes the transaction engine.
type LedgerConfig struct {
	MaxAttempts int `env:"TX_MAX_ATTEMPTS" env-default:"3"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"` // text|json
}

// AdminConfig is the user created on first start when no user exists.
type AdminConfig struct {
	User     string `env:"ADMIN_USER"`
	Password string `env:"ADMIN_PASSWORD"`
}

// Load reads an optional .env file and then the environment, applying defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("couldn't read .env file: %w", err)
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("couldn't read environment variables: %w", err)
	}

	if cfg.Ledger.MaxAttempts < 1 {
		return nil, fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1, got %d", cfg.Ledger.MaxAttempts)
	}
	if cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RefreshTokenTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	return cfg, nil
}
