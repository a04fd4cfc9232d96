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
	"github.com/systechdigital/redemption-platform/pkg/notifier"
	"github.com/systechdigital/redemption-platform/pkg/observability/metrics"
	"github.com/systechdigital/redemption-platform/pkg/otp"
	"github.com/systechdigital/redemption-platform/pkg/payments"
)

func main() {
	if os.Getenv("SERVICE_NAME") == "" {
		os.Setenv("SERVICE_NAME", "claims-service")
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

	otpStore := otp.NewRedisStore(database.GetRedis())
	otpSvc := otp.NewService(otpStore, cfg.OTPTTL, cfg.OTPMaxAttempts)

	gateway := payments.NewClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayWebhookSecret, cfg.GatewayTimeout)

	producer := kafka.NewProducer(cfg.PaymentEventTopic)
	defer producer.Close()

	svc := claims.NewService(claimRepo, gateway, otpSvc, notifySvc, producer, cfg.ClaimFeePaise, cfg.ClaimFeeCurrency, int(cfg.OTPTTL.Minutes()))
	handler := claims.NewHandler(svc)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

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
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ClaimsServicePort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ClaimsServicePort,
		}).Info("Claims Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Claims Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	database.ClosePostgres()
	database.CloseRedis()
	logger.Log.Info("Claims Service stopped")
}
