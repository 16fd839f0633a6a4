package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/pai-tracker/internal/api"
	"github.com/p-n-ai/pai-tracker/internal/catalog"
	"github.com/p-n-ai/pai-tracker/internal/live"
	"github.com/p-n-ai/pai-tracker/internal/platform/config"
	"github.com/p-n-ai/pai-tracker/internal/platform/database"
	"github.com/p-n-ai/pai-tracker/internal/platform/metrics"
	"github.com/p-n-ai/pai-tracker/internal/platform/redisdb"
	"github.com/p-n-ai/pai-tracker/internal/progress"
	"github.com/p-n-ai/pai-tracker/internal/tracker"
)

const poolStatsInterval = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if cfg.CatalogSeed != "" {
		if err := seedCatalog(ctx, st.catalog, cfg.CatalogSeed); err != nil {
			slog.Error("failed to seed catalog", "path", cfg.CatalogSeed, "error", err)
			os.Exit(1)
		}
	}

	m := metrics.New()
	if st.db != nil {
		go recordPoolStats(ctx, st.db, m)
	}

	srv := api.New(api.Config{
		Engine: tracker.NewEngine(tracker.EngineConfig{
			Catalog:  st.catalog,
			Progress: st.progress,
			Events:   st.events,
		}),
		Reporter: tracker.NewReporter(st.catalog, st.progress),
		Catalog:  st.catalog,
		Hub:      live.NewHub(0),
		Metrics:  m,
		Auth:     cfg.Auth,
		Checks:   st.checks,
	})

	httpSrv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting",
			"addr", httpSrv.Addr,
			"catalog_store", cfg.Store.Catalog,
			"progress_store", cfg.Store.Progress,
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// stores holds the configured backends and the connections behind them.
type stores struct {
	catalog  catalog.Store
	progress progress.Store
	events   tracker.EventLogger
	checks   map[string]api.HealthChecker
	db       *database.DB
	redis    *redisdb.Client
}

func (s *stores) Close() {
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// openStores connects the backends selected in cfg. Connections are only
// opened for backends that are in use.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{checks: map[string]api.HealthChecker{}}

	if cfg.UsesPostgres() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st.db = db
		st.checks["postgres"] = db
		slog.Info("connected to postgres")

		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				st.Close()
				return nil, err
			}
		}
		st.events = tracker.NewPostgresEventLogger(db.Pool)
	}

	if cfg.Store.Progress == config.BackendRedis {
		client, err := redisdb.New(ctx, cfg.Redis.URL)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		st.redis = client
		st.checks["redis"] = client
		slog.Info("connected to redis")
	}

	switch cfg.Store.Catalog {
	case config.BackendPostgres:
		s, err := catalog.NewPostgresStore(st.db.Pool)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.catalog = s
	default:
		st.catalog = catalog.NewMemoryStore()
	}

	switch cfg.Store.Progress {
	case config.BackendPostgres:
		s, err := progress.NewPostgresStore(st.db.Pool)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.progress = s
	case config.BackendRedis:
		s, err := progress.NewRedisStore(st.redis.Client)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.progress = s
	default:
		st.progress = progress.NewMemoryStore()
	}

	return st, nil
}

// seedCatalog imports the catalog at path. Topics that already exist are
// skipped, so seeding is safe on every start.
func seedCatalog(ctx context.Context, store catalog.Store, path string) error {
	topics, err := catalog.Load(path)
	if err != nil {
		return err
	}
	result, err := catalog.Import(ctx, store, topics)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		slog.Warn("catalog seed entry rejected", "error", e)
	}
	slog.Info("catalog seeded",
		"path", path,
		"added", result.Added,
		"skipped", result.Skipped,
		"rejected", len(result.Errors),
	)
	return nil
}

func recordPoolStats(ctx context.Context, db *database.DB, m *metrics.Metrics) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()

	for {
		s := db.Stats()
		m.RecordDBPoolStats(s.Total, s.Acquired, s.Idle, s.WaitCount, s.WaitDuration)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
