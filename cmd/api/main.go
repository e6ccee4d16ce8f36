// Package main is the entry point for the campus rides API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pkordes/campusride/internal/auth"
	"github.com/pkordes/campusride/internal/config"
	"github.com/pkordes/campusride/internal/handler"
	"github.com/pkordes/campusride/internal/live"
	"github.com/pkordes/campusride/internal/logging"
	"github.com/pkordes/campusride/internal/metrics"
	"github.com/pkordes/campusride/internal/middleware"
	"github.com/pkordes/campusride/internal/notify"
	"github.com/pkordes/campusride/internal/repo"
	"github.com/pkordes/campusride/internal/service"
	"github.com/pkordes/campusride/internal/storage"
	"github.com/pkordes/campusride/migrations"
	"github.com/pkordes/campusride/openapi"
)

// uploadsPath is where the local disk store's objects are served.
const uploadsPath = "/uploads/"

func main() {
	if err := run(); err != nil {
		// Use plain stderr: the failure may predate the logger.
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Config -----------------------------------------------------------
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// --- Logger -----------------------------------------------------------
	logOut := os.Stdout
	if cfg.LogFormat == "text" {
		logOut = os.Stderr
	}
	logger := logging.New(logOut, cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connection established")

	if cfg.MigrateOnStart {
		db := stdlib.OpenDBFromPool(pool)
		n, err := migrations.Up(ctx, db)
		_ = db.Close()
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "count", n)
	}

	// --- Collaborators ----------------------------------------------------
	m := metrics.New()
	hub := live.NewHub(m)

	store, serveUploads, err := newObjectStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	var mailer notify.Mailer = notify.LogMailer{Logger: logger}
	if cfg.Mail.APIKey != "" {
		if mailer, err = notify.NewResendMailer(cfg.Mail.APIKey, cfg.Mail.BaseURL); err != nil {
			return err
		}
	} else {
		logger.Warn("RESEND_API_KEY not set; emails are logged, not sent")
	}
	dispatcher := notify.NewDispatcher(mailer, cfg.Mail.From, 64, logger, m)
	defer dispatcher.Close()

	// --- Services ---------------------------------------------------------
	txPolicy := service.DefaultTxPolicy()
	txPolicy.MaxRetries = cfg.TxMaxRetries
	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithTxPolicy(txPolicy),
		service.WithRideFeed(hub),
		service.WithNotifier(dispatcher),
	}
	users := repo.NewUserRepo(pool)
	groupSvc := service.NewGroupService(repo.NewGroupRepo(pool), store, opts...)
	rideSvc := service.NewRideService(repo.NewRideRepo(pool), users, opts...)
	bookingSvc := service.NewBookingService(repo.NewBookingRepo(pool), opts...)
	userSvc := service.NewUserService(users)

	// --- Router -----------------------------------------------------------
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(middleware.NewMetricsHandler(m))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Method(http.MethodGet, "/openapi.yaml", openapi.Handler())
	if serveUploads != nil {
		r.Handle(uploadsPath+"*", serveUploads)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 0)
	api := handler.NewServer(groupSvc, rideSvc, bookingSvc, hub,
		handler.WithLogger(logger),
		handler.WithPinger(pool),
		handler.WithAllowedOrigins(cfg.CORSOrigins),
	)
	r.Mount("/", api.Routes(
		middleware.RequireAuth(jwtManager),
		middleware.SyncProfile(userSvc, logger),
	))

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// Upgraded live sockets manage their own deadlines.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown: wait for a signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newObjectStore picks S3 when an endpoint is configured and local disk
// otherwise. For disk it also returns the handler that serves the files.
func newObjectStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (service.ObjectStore, http.Handler, error) {
	if cfg.Endpoint != "" {
		s3, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.Endpoint,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
			PublicURL: cfg.PublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		log.Info("object storage ready", "backend", "s3", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
		return s3, nil, nil
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = uploadsPath
	}
	disk, err := storage.NewDiskStore(cfg.Dir, baseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("object storage ready", "backend", "disk", "dir", disk.Root())
	return disk, http.StripPrefix(uploadsPath, http.FileServer(http.Dir(disk.Root()))), nil
}
