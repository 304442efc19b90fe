package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/config"
	"github.com/mamadbah2/wabahub/internal/repository"
	"github.com/mamadbah2/wabahub/internal/repository/memory"
	"github.com/mamadbah2/wabahub/internal/repository/mongodb"
	"github.com/mamadbah2/wabahub/internal/repository/postgres"
	"github.com/mamadbah2/wabahub/internal/scheduler"
	"github.com/mamadbah2/wabahub/internal/server/handlers"
	"github.com/mamadbah2/wabahub/internal/server/router"
	"github.com/mamadbah2/wabahub/internal/service/configstore"
	"github.com/mamadbah2/wabahub/internal/service/messaging"
	"github.com/mamadbah2/wabahub/internal/service/onboarding"
	"github.com/mamadbah2/wabahub/internal/service/webhook"
	whatsappclient "github.com/mamadbah2/wabahub/pkg/clients/whatsapp"
	"github.com/mamadbah2/wabahub/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File}))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, err := openStore(context.Background(), cfg.Store, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
	configs := configstore.New(store, baseLogger.Named("svc.configstore"))
	messagingSvc := messaging.NewService(whatsClient, configs, store, baseLogger.Named("svc.messaging"))
	onboardingSvc := onboarding.New(whatsClient, configs, store, messagingSvc, cfg.MetaApp, cfg.Webhook, baseLogger.Named("svc.onboarding"))
	webhookSvc := webhook.New(store, store, cfg.Webhook.VerifyToken, cfg.MetaApp.AppSecret, baseLogger.Named("svc.webhook"))

	if !cfg.MetaApp.HasSignupCredentials() {
		baseLogger.Warn("meta app credentials missing, embedded signup disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(router.Handlers{
		Webhook:    handlers.NewWebhookHandler(webhookSvc, baseLogger.Named("handlers.webhook")),
		Onboarding: handlers.NewOnboardingHandler(onboardingSvc, baseLogger.Named("handlers.onboarding")),
		Messaging:  handlers.NewMessagingHandler(messagingSvc, baseLogger.Named("handlers.messaging")),
	}, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Scheduler, store, configs, messagingSvc, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WhatsApp.HTTPTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig, base *zap.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.StoreDriverMongoDB:
		return mongodb.NewStore(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, base.Named("repo.mongodb"))
	case config.StoreDriverPostgres, config.StoreDriverSQLite:
		return postgres.Open(cfg.Driver, cfg.DSN, base.Named("repo."+cfg.Driver))
	case config.StoreDriverMemory:
		base.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
