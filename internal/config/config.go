// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development; secrets are
// validated in production. Nothing here is mutable after startup.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup and passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used to build links in emails.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings (session store).
	Redis RedisConfig

	// Auth holds signing key, session, and token lifetime settings.
	Auth AuthConfig

	// Mail holds outbound SMTP settings.
	Mail MailConfig

	// Cookie holds session cookie security flags.
	Cookie CookieConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields are
// read from separate env vars; DATABASE_URL takes precedence when set.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	Host string

	// User is the MariaDB username (default: "gatehouse").
	User string

	// Password is the MariaDB password (default: "gatehouse").
	Password string

	// Name is the database name (default: "gatehouse").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() to safely handle special
// characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SecretKey signs email tokens. Loaded once at startup; rotating it
	// invalidates all outstanding tokens, which is acceptable given the
	// one-hour token lifetime.
	SecretKey string

	// SessionTTL is how long browser sessions last before expiring.
	SessionTTL time.Duration

	// TokenMaxAge is the maximum accepted age of reset/confirm tokens.
	TokenMaxAge time.Duration
}

// MailConfig holds outbound SMTP settings. Mail is disabled when Host is
// empty; sends become logged no-ops so local development works without a
// mail server.
type MailConfig struct {
	// Host is the SMTP server hostname.
	Host string

	// Port is the SMTP server port (default: 465).
	Port int

	// Username authenticates against the SMTP server and doubles as the
	// From address when FromAddress is unset.
	Username string

	// Password is the SMTP password.
	Password string

	// FromAddress is the sender address on outgoing mail.
	FromAddress string

	// FromName is the display name on outgoing mail.
	FromName string

	// TLSMode selects the transport encryption: "ssl" (implicit TLS,
	// port 465 typical) or "none" (plain, local relays only).
	TLSMode string

	// SendTimeout bounds a single outbound send so mail problems can
	// never stall a request indefinitely.
	SendTimeout time.Duration
}

// Enabled returns true if an SMTP host is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

// From returns the effective sender address.
func (m MailConfig) From() string {
	if m.FromAddress != "" {
		return m.FromAddress
	}
	return m.Username
}

// CookieConfig holds session cookie security flags. HttpOnly and
// SameSite=Lax are always on; only Secure varies by deployment.
type CookieConfig struct {
	// Secure marks cookies as HTTPS-only. Defaults to true outside
	// development.
	Secure bool
}

// Load reads configuration from environment variables with sensible
// defaults. Returns an error if required production settings are missing.
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "gatehouse"),
			Password:        getEnv("DB_PASSWORD", "gatehouse"),
			Name:            getEnv("DB_NAME", "gatehouse"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			SecretKey:   getEnv("SECRET_KEY", ""),
			SessionTTL:  getEnvDuration("SESSION_TTL", 720*time.Hour),
			TokenMaxAge: getEnvDuration("TOKEN_MAX_AGE", time.Hour),
		},

		Mail: MailConfig{
			Host:        getEnv("MAIL_HOST", ""),
			Port:        getEnvInt("MAIL_PORT", 465),
			Username:    getEnv("MAIL_USERNAME", ""),
			Password:    getEnv("MAIL_PASSWORD", ""),
			FromAddress: getEnv("MAIL_FROM", ""),
			FromName:    getEnv("MAIL_FROM_NAME", "Gatehouse"),
			TLSMode:     getEnv("MAIL_TLS", "ssl"),
			SendTimeout: getEnvDuration("MAIL_SEND_TIMEOUT", 10*time.Second),
		},

		Cookie: CookieConfig{
			Secure: getEnvBool("COOKIE_SECURE", !isDevEnv(getEnv("ENV", "development"))),
		},
	}

	// Validate required fields in production. Case-insensitive check
	// catches common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
		if cfg.Mail.Enabled() && cfg.Mail.From() == "" {
			return nil, fmt.Errorf("MAIL_FROM or MAIL_USERNAME is required when MAIL_HOST is set")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return isDevEnv(c.Env)
}

func isDevEnv(env string) bool {
	env = strings.ToLower(env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var or returns the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "1h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
