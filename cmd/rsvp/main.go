package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/rsvp/internal/adapter/fsm"
	otelAdapter "github.com/neomorfeo/rsvp/internal/adapter/otel"
	"github.com/neomorfeo/rsvp/internal/adapter/postgres"
	riverAdapter "github.com/neomorfeo/rsvp/internal/adapter/river"
	"github.com/neomorfeo/rsvp/internal/adapter/sqlite"
	"github.com/neomorfeo/rsvp/internal/app"
	"github.com/neomorfeo/rsvp/internal/config"
	"github.com/neomorfeo/rsvp/internal/domain"
	"github.com/neomorfeo/rsvp/internal/logging"

	handler "github.com/neomorfeo/rsvp/internal/adapter/http"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rsvp: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until SIGINT or SIGTERM.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	providers, err := otelAdapter.Setup(ctx, cfg.Telemetry.OTel())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn("otel shutdown", zap.Error(err))
		}
	}()

	// --- Adapters (out) ---
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.close(log)

	queue, err := riverAdapter.Setup(ctx, store.queueDB, log, cfg.QueueWorkers)
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}

	repo := otelAdapter.NewTracingRepository(store.repo)
	publisher := otelAdapter.NewTracingPublisher(riverAdapter.NewPublisher(queue))

	// --- Application ---
	mgr := app.NewReservationManager(repo, publisher, fsm.New(),
		app.WithLogger(log),
		app.WithStorageTimeout(cfg.StorageTimeout),
	)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(cfg.Telemetry.ServiceName, otelchi.WithChiRoutes(router)))
	router.Use(handler.RequestLogger(log))
	router.Use(handler.RateLimit(cfg.RateLimit))

	api := humachi.New(router, huma.DefaultConfig("rsvp", cfg.Telemetry.ServiceVersion))
	handler.Register(api, mgr)
	handler.RegisterHealth(api, store.health)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// River stops through queue.Stop, not through ctx cancellation.
	if err := queue.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("starting queue: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("rsvp listening",
			zap.Int("port", cfg.Port),
			zap.String("storage", cfg.Storage),
			zap.String("docs", fmt.Sprintf("http://localhost:%d/docs", cfg.Port)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := queue.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("queue stop: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}

// storage is the selected reservation store plus the SQLite handle the
// event queue runs on.
type storage struct {
	repo    domain.ReservationRepository
	queueDB *sql.DB
	health  handler.HealthCheck
	closers []func() error
}

func (s *storage) close(log *zap.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn("closing storage", zap.Error(err))
		}
	}
}

func openStorage(ctx context.Context, cfg config.Config) (*storage, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		return openPostgres(ctx, cfg)
	default:
		return openSQLite(cfg.DatabasePath)
	}
}

// openSQLite shares one instrumented handle between the reservations table
// and the queue.
func openSQLite(path string) (*storage, error) {
	db, err := otelAdapter.OpenSQLite(path)
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &storage{
		repo:    repo,
		queueDB: db,
		health:  db.PingContext,
		closers: []func() error{db.Close},
	}, nil
}

// openPostgres migrates the schema, opens the pgx pool, and opens the
// separate SQLite file the queue needs.
func openPostgres(ctx context.Context, cfg config.Config) (*storage, error) {
	migrationDB, err := otelAdapter.OpenPostgres(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	err = postgres.Migrate(ctx, migrationDB)
	migrationDB.Close()
	if err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	queueDB, err := otelAdapter.OpenSQLite(cfg.QueuePath)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("queue database: %w", err)
	}

	repo := postgres.New(pool)
	return &storage{
		repo:    repo,
		queueDB: queueDB,
		health:  repo.Ping,
		closers: []func() error{
			func() error { pool.Close(); return nil },
			queueDB.Close,
		},
	}, nil
}
