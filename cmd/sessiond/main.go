package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/config"
	httptransport "github.com/example/session-scheduler/internal/http"
	"github.com/example/session-scheduler/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "", "path to an optional YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	subjectRepo := sqlite.NewSubjectRepository(pool)
	sessionStore := sqlite.NewSessionStore(pool)
	enrollmentRepo := sqlite.NewEnrollmentRepository(pool)
	attendanceStore := sqlite.NewAttendanceStore(pool)
	credentialStore := sqlite.NewCredentialStore(pool)

	credentialService := application.NewCredentialService(credentialStore, nil, now, logger)
	attendanceService := application.NewAttendanceService(enrollmentRepo, attendanceStore, logger)
	effects := application.NewSideEffects(credentialService, attendanceService, logger)

	materializer := application.NewMaterializer(sessionStore, logger)
	resolver := application.NewLinkResolver()
	reconciler := application.NewReconciler(subjectRepo, resolver, materializer, effects, idGenerator, now, logger)
	previewService := application.NewPreviewService(subjectRepo, now, logger)

	if err := reconciler.Start(ctx, cfg.ReconcilePeriod, cfg.Lookahead); err != nil {
		logger.Error("failed to start reconciliation loop", "error", err)
		os.Exit(1)
	}
	defer reconciler.Stop()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Reconcile: httptransport.NewReconcileHandler(reconciler, now, cfg.Lookahead, logger),
		Preview:   httptransport.NewPreviewHandler(previewService, logger),
		Loop:      httptransport.NewLoopHandler(reconciler, logger),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httptransport.RequestLogger(logger)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		reconciler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("session scheduler API listening", "addr", server.Addr, "period", cfg.ReconcilePeriod.String(), "lookahead", cfg.Lookahead.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
