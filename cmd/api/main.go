// Package main is the entry point for the Casita API server.
// Its sole responsibility is wiring dependencies together and starting the
// server plus its background tasks. No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/ncarvajal/casita/backend/internal/calendar"
	"github.com/ncarvajal/casita/backend/internal/config"
	"github.com/ncarvajal/casita/backend/internal/handler"
	"github.com/ncarvajal/casita/backend/internal/middleware"
	"github.com/ncarvajal/casita/backend/internal/repo"
	"github.com/ncarvajal/casita/backend/internal/service"
)

const (
	maxBodySize    = 1 << 20 // 1 MiB; form payloads are tiny
	currentTTL     = 30 * time.Second
	sweepInterval  = time.Hour
	shutdownWindow = 15 * time.Second
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// log/slog JSON handler writes machine-readable output suitable for log
	// aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately — the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Repos and services -----------------------------------------------
	reservationRepo := repo.NewReservationRepo(pool)
	preRegRepo := repo.NewPreRegistrationRepo(pool)
	grantRepo := repo.NewAccessGrantRepo(pool)

	feedCache := calendar.NewCache()

	lifecycleSvc := service.NewLifecycleService(reservationRepo, currentTTL)
	reservationSvc := service.NewReservationService(reservationRepo, lifecycleSvc)
	reconcileSvc := service.NewReconcileService(reservationRepo, preRegRepo, feedCache)
	preRegSvc := service.NewPreRegService(preRegRepo)
	accessSvc := service.NewAccessService(grantRepo, reservationRepo, cfg.AccessGraceDays, cfg.PreArrivalWindowDays)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger →
	// Recoverer → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodySize))

	srv := handler.NewServer(reservationSvc, lifecycleSvc, reconcileSvc, preRegSvc, accessSvc, cfg.BaseURL)
	r.Mount("/", srv.Routes())

	// --- Background tasks -------------------------------------------------
	// The poller keeps the feed cache warm; the sweeps tidy overdue tokens
	// and finished grants. All advisory: request handling never blocks on
	// any of them.
	bgCtx, cancelBG := context.WithCancel(context.Background())
	defer cancelBG()
	group, groupCtx := errgroup.WithContext(bgCtx)

	if cfg.FeedURL != "" {
		client := calendar.NewClient(nil, cfg.FeedURL, cfg.PropertyTimezone)
		poller := calendar.NewPoller(client, feedCache, cfg.FeedPollInterval, cfg.FeedStaleAfter, logger)
		group.Go(func() error { return poller.Run(groupCtx) })
	} else {
		slog.Info("FEED_URL not set; calendar poller disabled")
	}

	group.Go(func() error {
		return runSweeps(groupCtx, preRegSvc, accessSvc, logger)
	})

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	cancelBG()
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("background task error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownWindow)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// runSweeps periodically expires overdue pre-registration tokens and
// withdraws access grants whose reservation finished. Both are advisory;
// reads observe expiry and status on their own.
func runSweeps(ctx context.Context, preRegs *service.PreRegService, access *service.AccessService, log *slog.Logger) error {
	log = log.With("component", "sweeper")
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := preRegs.ExpireOverdue(ctx); err != nil {
				log.Error("token expiry sweep failed", "error", err)
			} else if n > 0 {
				log.Info("expired overdue tokens", "count", n)
			}
			if n, err := access.WithdrawFinished(ctx); err != nil {
				log.Error("grant withdrawal sweep failed", "error", err)
			} else if n > 0 {
				log.Info("withdrew finished grants", "count", n)
			}
		}
	}
}
