package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/riandyrn/otelchi"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/innkeep/internal/adapter/fsm"
	otelAdapter "github.com/neomorfeo/innkeep/internal/adapter/otel"
	riverAdapter "github.com/neomorfeo/innkeep/internal/adapter/river"
	"github.com/neomorfeo/innkeep/internal/adapter/sqlite"
	"github.com/neomorfeo/innkeep/internal/app"
	"github.com/neomorfeo/innkeep/internal/domain"
	"github.com/neomorfeo/innkeep/internal/integrity"
	"github.com/neomorfeo/innkeep/internal/policy"
	"github.com/neomorfeo/innkeep/internal/rules"

	handler "github.com/neomorfeo/innkeep/internal/adapter/http"
)

const serviceName = "innkeep"

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("innkeep stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	providers, err := otelAdapter.Setup(ctx, otelAdapter.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otelAdapter.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	store, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("database: %w", err)
	}
	defer store.Close()

	if err := store.SeedRules(ctx, rules.DefaultRules()); err != nil {
		return fmt.Errorf("seeding default rules: %w", err)
	}
	if cfg.SeedDemo {
		if err := seedDemo(ctx, store, time.Now().UTC()); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
		logger.InfoContext(ctx, "demo data loaded", "organization_id", demoOrganization)
	}

	sweepWorker := riverAdapter.NewSweepWorker(logger)
	client, err := riverAdapter.Setup(ctx, db, riverAdapter.Options{
		Approvals:     store,
		Sweeps:        sweepWorker,
		SweepSchedule: cfg.SweepSchedule,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("job queue: %w", err)
	}

	// --- Application ---
	eng, err := newEngine(store,
		riverAdapter.NewPublisher(client),
		riverAdapter.NewApprovalNotifier(client),
		cfg, logger,
	)
	if err != nil {
		return err
	}
	sweepWorker.Use(eng.Sweeper)

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("starting job queue: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			logger.Error("job queue shutdown", "error", err)
		}
	}()

	// --- Adapters (in) ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(eng, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "innkeep listening",
			"addr", srv.Addr,
			"docs", "http://localhost:"+cfg.Port+"/docs",
			"sweep_schedule", cfg.SweepSchedule,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

func newLogger(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// engine is the wired application layer.
type engine struct {
	Service *app.ReservationService
	Sweeper *app.Sweeper
	Rules   *rules.Registry
}

// newEngine builds the validation engine over store. Reads and writes of
// reservations, rule loads, validations and outgoing events are traced.
func newEngine(
	store *sqlite.Store,
	publisher domain.EventPublisher,
	approvals domain.ApprovalNotifier,
	cfg Config,
	logger *slog.Logger,
) (*engine, error) {
	reservations := otelAdapter.NewTracingRepository(store)
	graph := fsm.New()
	registry := rules.NewRegistry(otelAdapter.NewTracingRuleRepository(store), cfg.RulesCacheTTL, logger)
	checker := integrity.NewChecker(integrity.Stores{
		Reservations: reservations,
		Rooms:        store,
		Properties:   store,
		History:      store,
	}, integrity.WithTimeout(cfg.IntegrityTimeout), integrity.WithLogger(logger))

	validator, err := otelAdapter.NewTracingValidator(
		app.NewValidator(graph, policy.DefaultRolePolicy(), registry, checker, reservations, cfg.Validator, logger),
	)
	if err != nil {
		return nil, fmt.Errorf("validator metrics: %w", err)
	}

	svc := app.NewReservationService(app.ServiceDeps{
		Reservations: reservations,
		History:      store,
		Publisher:    otelAdapter.NewTracingPublisher(publisher),
		Approvals:    otelAdapter.NewTracingApprovalNotifier(approvals),
		Graph:        graph,
		Validator:    validator,
		Integrity:    checker,
	}, logger)

	return &engine{
		Service: svc,
		Sweeper: app.NewSweeper(reservations, graph, svc, cfg.Sweep, logger),
		Rules:   registry,
	}, nil
}

func newRouter(eng *engine, approvals handler.ApprovalLister, logger *slog.Logger) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(requestLogger(logger))

	api := humachi.New(router, huma.DefaultConfig(serviceName, "0.1.0"))
	handler.Register(api, handler.Deps{
		Service:   eng.Service,
		Sweeper:   eng.Sweeper,
		Rules:     eng.Rules,
		Approvals: approvals,
	})
	return router
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
