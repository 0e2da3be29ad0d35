package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/taskbook/internal/auth"
	"github.com/wolfeidau/taskbook/internal/bootstrap"
	httpmiddleware "github.com/wolfeidau/taskbook/internal/http"
	"github.com/wolfeidau/taskbook/internal/logger"
	"github.com/wolfeidau/taskbook/internal/server"
	memorystore "github.com/wolfeidau/taskbook/internal/store/memory"
	postgresstore "github.com/wolfeidau/taskbook/internal/store/postgres"
	"github.com/wolfeidau/taskbook/internal/telemetry"
	"github.com/wolfeidau/taskbook/internal/website"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"TASKBOOK_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"TASKBOOK_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"TASKBOOK_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" env:"TASKBOOK_CORS_ORIGINS"`

	TrustProxy bool `help:"take the client IP from X-Forwarded-For and X-Real-IP" default:"false" env:"TASKBOOK_TRUST_PROXY"`

	// Telemetry
	Tracing     bool    `help:"enable tracing" default:"false" env:"TASKBOOK_TRACING"`
	SampleRatio float64 `help:"fraction of root traces to sample" default:"1.0" env:"TASKBOOK_TRACE_SAMPLE_RATIO"`
	ServiceName string  `help:"service.name reported to the collector" default:"taskbook-server" env:"TASKBOOK_SERVICE_NAME"`
	Environment string  `help:"deployment.environment reported to the collector" default:"production" env:"TASKBOOK_ENVIRONMENT"`

	// Store configuration
	StoreType string        `help:"store type (memory or postgres)" default:"memory" env:"TASKBOOK_STORE_TYPE" enum:"memory,postgres"`
	SeedFile  string        `help:"YAML seed file loaded at startup" default:"" env:"TASKBOOK_SEED_FILE"`
	Postgres  PostgresFlags `embed:"" prefix:"postgres-"`
	Session   SessionFlags  `embed:"" prefix:"session-"`
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := setupLogger(globals)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("dev", globals.Dev).Msg("Starting server")

	if err := c.Session.Validate(globals.Dev); err != nil {
		return fmt.Errorf("failed to validate session flags: %w", err)
	}
	if globals.Dev && c.Session.SecureCookie {
		log.Warn().Msg("Development mode, session cookie is not marked Secure")
		c.Session.SecureCookie = false
	}

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Float64("sample_ratio", c.SampleRatio).Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: c.ServiceName,
			Version:     globals.Version,
			Environment: c.Environment,
			StoreType:   c.StoreType,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	tokens, err := auth.NewTokenService([]byte(c.Session.JWTSecret), c.Session.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}
	gate := auth.NewGate(tokens, c.Session.SecureCookie)

	stores, pinger, cleanup, err := c.createStores(ctx, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if c.SeedFile != "" {
		seed, err := bootstrap.LoadSeedFile(c.SeedFile)
		if err != nil {
			return err
		}
		if _, err := bootstrap.Bootstrap(ctx, bootstrap.Config{
			Users:     stores.Users,
			Divisions: stores.Divisions,
			Seed:      seed,
		}); err != nil {
			return fmt.Errorf("failed to seed stores: %w", err)
		}
	}

	pages, err := website.NewPages()
	if err != nil {
		return fmt.Errorf("failed to load page templates: %w", err)
	}

	api := server.NewServer(stores, gate, pinger).Handler()

	mux := http.NewServeMux()
	mux.Handle("/api/", api)
	mux.Handle("/healthz", api)
	mux.Handle("/", pages.Handler())

	handler, err := c.buildHandler(log, gate, mux)
	if err != nil {
		return err
	}

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		if c.Cert != "" || c.Key != "" {
			log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// createStores builds the stores for the configured backend. The returned pinger is nil for memory stores.
func (c *ServeCmd) createStores(ctx context.Context, log zerolog.Logger) (server.Stores, server.Pinger, func(), error) {
	switch c.StoreType {
	case "postgres":
		if err := c.Postgres.Validate(); err != nil {
			return server.Stores{}, nil, nil, fmt.Errorf("failed to validate postgres flags: %w", err)
		}

		pool, err := postgresstore.NewPool(ctx, c.Postgres.poolConfig())
		if err != nil {
			return server.Stores{}, nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}

		if c.Postgres.AutoMigrate {
			report, err := postgresstore.RunMigrations(ctx, pool)
			if err != nil {
				pool.Close()
				return server.Stores{}, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Int("applied", len(report.Applied)).Int("schema_version", report.Current()).Msg("Database migrated")
		}

		cfg := c.Postgres.storeConfig()
		log.Info().Msg("Using PostgreSQL stores")

		return server.Stores{
			Tasks:     postgresstore.NewTaskStore(pool, cfg),
			Users:     postgresstore.NewUserStore(pool, cfg),
			Divisions: postgresstore.NewDivisionStore(pool, cfg),
		}, pool, pool.Close, nil

	default:
		if c.SeedFile == "" {
			log.Warn().Msg("Using in-memory stores without a seed file, nobody can log in")
		}
		users := memorystore.NewUserStore()
		divisions := memorystore.NewDivisionStore()
		log.Info().Msg("Using in-memory stores")

		return server.Stores{
			Tasks:     memorystore.NewTaskStore(users, divisions),
			Users:     users,
			Divisions: divisions,
		}, nil, func() {}, nil
	}
}

// buildHandler wraps the routes in the site guard, CSRF and CORS protection and the HTTP middleware chain.
func (c *ServeCmd) buildHandler(log zerolog.Logger, gate *auth.Gate, routes http.Handler) (http.Handler, error) {
	guarded := gate.SiteGuard("/login", auth.DefaultSiteAllowList...)(routes)

	// Cross origin writes are refused for pages and the API alike, the session is a cookie.
	protection := csrf.New()
	for _, origin := range c.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid CORS origin %q: %w", origin, err)
		}
	}

	corsHandler := withCORS(c.CORSOrigins, guarded)
	handler := protection.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// API routes get CORS, HTML routes do not
		if isAPIRoute(r.URL.Path) {
			corsHandler.ServeHTTP(w, r)
			return
		}
		guarded.ServeHTTP(w, r)
	}))

	gzip, err := gzhttp.NewWrapper(gzhttp.MinSize(1024))
	if err != nil {
		return nil, fmt.Errorf("failed to create compression wrapper: %w", err)
	}
	handler = gzip(handler)

	if c.Tracing {
		handler = otelhttp.NewHandler(handler, c.ServiceName)
	}

	handler = logger.RequestLogger(log)(handler)
	handler = httpmiddleware.ClientIPMiddleware(httpmiddleware.ClientIPResolver{TrustProxy: c.TrustProxy})(handler)

	return handler, nil
}

// isAPIRoute returns true if the path is an API route that gets CORS headers
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/") || path == "/healthz"
}

// withCORS adds CORS support to the JSON API.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders:   []string{"Content-Type", logger.RequestIDHeader},
		ExposedHeaders:   []string{logger.RequestIDHeader},
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return middleware.Handler(h)
}
