package commands

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskbook/internal/logger"
	postgresstore "github.com/wolfeidau/taskbook/internal/store/postgres"
)

// devJWTSecret is only accepted together with --dev.
const devJWTSecret = "taskbook-dev-secret-key-minimum-32-bytes"

type Globals struct {
	Debug   bool
	Dev     bool
	Version string
}

// setupLogger configures the command logger and installs it as the global logger used by the stores.
func setupLogger(globals *Globals) zerolog.Logger {
	log := logger.Setup(globals.Dev || globals.Debug)
	zlog.Logger = log
	return log
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	// Create HTTP server
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

type PostgresFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"TASKBOOK_POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20" env:"TASKBOOK_POSTGRES_MAX_CONNS"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5" env:"TASKBOOK_POSTGRES_MIN_CONNS"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`
	ConnectRetry    int32 `help:"seconds to keep retrying the initial connection" default:"30" env:"TASKBOOK_POSTGRES_CONNECT_RETRY"`

	// Store Configuration
	QueryTimeout int32 `help:"query timeout in seconds" default:"10" env:"TASKBOOK_POSTGRES_QUERY_TIMEOUT"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"TASKBOOK_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or TASKBOOK_POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (s *PostgresFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:          s.ConnString,
		MaxConns:            s.MaxConns,
		MinConns:            s.MinConns,
		MaxConnLifetime:     s.MaxConnLifetime,
		MaxConnIdleTime:     s.MaxConnIdleTime,
		ConnectRetryTimeout: s.ConnectRetry,
	}
}

func (s *PostgresFlags) storeConfig() postgresstore.StoreConfig {
	cfg := postgresstore.StoreConfig{QueryTimeoutSeconds: s.QueryTimeout}
	cfg.ApplyDefaults()
	return cfg
}

type SessionFlags struct {
	JWTSecret    string        `help:"secret key for HMAC signing of session tokens" env:"TASKBOOK_JWT_SECRET"`
	SessionTTL   time.Duration `help:"session lifetime" default:"1h" env:"TASKBOOK_SESSION_TTL"`
	SecureCookie bool          `help:"set the Secure attribute on the session cookie" default:"true" negatable:"" env:"TASKBOOK_SECURE_COOKIE"`
}

// Validate checks the session settings, filling in the development secret when dev is set.
func (s *SessionFlags) Validate(dev bool) error {
	if s.JWTSecret == "" {
		if !dev {
			return errors.New("JWT secret is required (--session-jwt-secret or TASKBOOK_JWT_SECRET)")
		}
		s.JWTSecret = devJWTSecret
	}
	if len(s.JWTSecret) < 32 {
		return errors.New("JWT secret must be at least 32 bytes (256 bits) for HMAC-SHA256")
	}
	if s.SessionTTL < time.Second {
		return fmt.Errorf("session TTL must be at least 1s, got %s", s.SessionTTL)
	}
	return nil
}
