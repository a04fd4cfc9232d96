package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/systechdigital/redemption-platform/pkg/admin/middleware"
	"github.com/systechdigital/redemption-platform/pkg/claims"
	"github.com/systechdigital/redemption-platform/pkg/common/config"
	"github.com/systechdigital/redemption-platform/pkg/common/database"
	"github.com/systechdigital/redemption-platform/pkg/common/kafka"
	"github.com/systechdigital/redemption-platform/pkg/common/logger"
	"github.com/systechdigital/redemption-platform/pkg/fulfillment"
	"github.com/systechdigital/redemption-platform/pkg/inventory"
	"github.com/systechdigital/redemption-platform/pkg/notifier"
	"github.com/systechdigital/redemption-platform/pkg/observability/metrics"
)

func main() {
	if os.Getenv("SERVICE_NAME") == "" {
		os.Setenv("SERVICE_NAME", "fulfillment-service")
	}
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	claimRepo := claims.NewRepository(db)
	if err := claimRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate claim tables")
	}
	salesRepo := inventory.NewSalesRepository(db)
	if err := salesRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate sales tables")
	}
	keyRepo := inventory.NewKeyRepository(db)
	if err := keyRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate key tables")
	}
	settingsRepo := fulfillment.NewSettingsRepository(db)
	if err := settingsRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate settings tables")
	}
	if err := settingsRepo.EnsureDefaults(context.Background(), cfg.DefaultSweepEnabled, cfg.DefaultSweepIntervalM); err != nil {
		logger.Log.WithError(err).Fatal("failed to seed automation settings")
	}
	notifyLog := notifier.NewLogRepository(db)
	if err := notifyLog.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate notification log")
	}

	catalog, err := notifier.LoadCatalog(cfg.TemplateCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load notification templates")
	}

	var channel notifier.Channel
	if cfg.SMTPUser != "" {
		channel = notifier.NewEmailChannel(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		logger.Log.Warn("SMTP not configured, notifications will only be logged")
		channel = notifier.NewLogChannel()
	}
	notifySvc := notifier.NewService(catalog, channel, notifyLog)

	producer := kafka.NewProducer(cfg.ResultEventTopic)
	defer producer.Close()

	orch := fulfillment.NewOrchestrator(claimRepo, salesRepo, keyRepo, notifySvc, producer, cfg.SweepBatchSize)

	locker := fulfillment.NewRedisLocker(database.GetRedis())
	scheduler := fulfillment.NewScheduler(orch, settingsRepo, locker, cfg.SweepLockTTL, cfg.SweepTimeout)

	handler := fulfillment.NewHandler(scheduler, orch, settingsRepo)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.FulfillmentServicePort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.FulfillmentServicePort,
		}).Info("Fulfillment Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	// Periodic sweep driven by the persisted automation settings.
	go scheduler.Run(ctx)

	// Event-driven path: payment confirmations trigger fulfillment without
	// waiting for the next sweep.
	consumer := kafka.NewConsumer(cfg.PaymentEventTopic, cfg.KafkaGroupID)
	defer consumer.Close()
	go func() {
		if err := consumer.Consume(ctx, orch.PaymentEventHandler()); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("payment consumer stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Fulfillment Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	database.ClosePostgres()
	database.CloseRedis()
	logger.Log.Info("Fulfillment Service stopped")
}
