package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/fee-registry/internal/auth"
	"github.com/Dan9191/fee-registry/internal/config"
	"github.com/Dan9191/fee-registry/internal/controller"
	"github.com/Dan9191/fee-registry/internal/handler"
	"github.com/Dan9191/fee-registry/internal/metrics"
	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/Dan9191/fee-registry/internal/notify"
	"github.com/Dan9191/fee-registry/internal/repository"
	"github.com/Dan9191/fee-registry/internal/scheduler"
	"github.com/Dan9191/fee-registry/internal/service"
	"github.com/Dan9191/fee-registry/internal/store"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize record store
	var (
		coll store.Collection
		feed store.Feed
	)
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		repo := repository.NewRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		coll, feed = repo, repository.NewListener(cfg.DBConn, logger)
	default:
		mem := store.NewMemory()
		coll, feed = mem, mem
		logger.Warn("Using in-memory store; records are lost on restart")
	}

	// Initialize layers
	m := metrics.New()
	adapter := store.NewAdapter(coll, feed, logger)
	ctrl := controller.New(cfg.MessageTTL, logger)
	hub := handler.NewHub(ctrl.State(), m, logger)
	ctrl.OnChange(hub.Publish)

	gate, err := auth.NewGate(cfg.AdminUsername, cfg.AdminPassword, cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		logger.Fatalf("Failed to initialize login gate: %v", err)
	}

	go ctrl.Run(ctx)
	go hub.Run(ctx)
	unsubscribe := adapter.Subscribe(ctx,
		func(records []models.StudentRecord) {
			m.Snapshots.Inc()
			m.Records.Set(float64(len(records)))
			ctrl.ReplaceAll(records)
		},
		func(err error) {
			m.FeedErrors.Inc()
			ctrl.Fail(err)
		},
	)
	defer unsubscribe()

	svc := service.NewService(ctrl, adapter, ctrl, gate, m, logger)
	h := handler.NewHandler(svc, ctrl, logger)

	// Fee digest
	if cfg.DigestEnabled() {
		sched, err := scheduler.New(cfg.DigestSchedule, ctrl, notify.NewSender(cfg, logger), m, logger)
		if err != nil {
			logger.Fatalf("Failed to schedule fee digest: %v", err)
		}
		sched.Start()
		defer sched.Stop()
		logger.WithField("schedule", cfg.DigestSchedule).Info("Fee digest scheduled")
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, hub, gate, m.Handler()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}
