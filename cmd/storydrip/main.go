package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nshaw/storydrip/internal/alerts"
	"github.com/nshaw/storydrip/internal/catalog"
	"github.com/nshaw/storydrip/internal/config"
	"github.com/nshaw/storydrip/internal/logger"
	"github.com/nshaw/storydrip/internal/mail"
	"github.com/nshaw/storydrip/internal/repository/sqlite"
	"github.com/nshaw/storydrip/internal/server"
	"github.com/nshaw/storydrip/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logr.Sync()
	}()

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logr.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	logr.Info("database initialized", zap.String("path", cfg.DatabasePath))

	stageRepo := sqlite.NewStageRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)
	notificationRepo := sqlite.NewNotificationRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Seed the catalog on first boot. An empty catalog afterwards is a
	// configuration error, not something to limp along with.
	if err := stageRepo.Seed(ctx, catalog.Default()); err != nil {
		logr.Fatal("failed to seed stage catalog", zap.Error(err))
	}
	stages, err := stageRepo.Catalog(ctx)
	if err != nil {
		logr.Fatal("failed to load stage catalog", zap.Error(err))
	}
	if len(stages) == 0 {
		logr.Fatal("stage catalog is empty")
	}
	logr.Info("stage catalog loaded", zap.Int("stages", len(stages)))

	var transport mail.Transport
	if cfg.SendGridAPIKey != "" {
		transport = mail.NewSendGridTransport(cfg.SendGridAPIKey, cfg.FromName, cfg.FromEmail, logr)
	} else {
		logr.Warn("no SendGrid API key configured, emails will be logged only")
		transport = mail.NewLogTransport(logr)
	}

	alerter, err := alerts.New(cfg.TelegramBotToken, cfg.TelegramChatID, logr)
	if err != nil {
		logr.Fatal("failed to initialize ops alerts", zap.Error(err))
	}

	clock := service.SystemClock{}
	signupService := service.NewSignupService(stageRepo, sessionRepo, transport, clock, logr, cfg.TrackerURL, cfg.SendTimeout)
	trackerService := service.NewTrackerService(stageRepo, sessionRepo, clock)
	scheduler := service.NewScheduler(
		notificationRepo,
		transport,
		clock,
		logr,
		alerter,
		cfg.TrackerURL,
		cfg.SweepInterval,
		cfg.SweepBatchSize,
		cfg.SendTimeout,
		cfg.ClaimTTL,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	srv := server.New(signupService, trackerService, logr)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(cfg.SignupRatePerMinute, cfg.SignupRateBurst, cfg.Debug),
	}

	go func() {
		logr.Info("http server started", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}

	// Let an in-flight sweep tick finish before closing the database.
	wg.Wait()
}
