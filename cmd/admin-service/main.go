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
	"github.com/systechdigital/redemption-platform/pkg/admin"
	adminauth "github.com/systechdigital/redemption-platform/pkg/admin/auth"
	"github.com/systechdigital/redemption-platform/pkg/admin/middleware"
	"github.com/systechdigital/redemption-platform/pkg/claims"
	"github.com/systechdigital/redemption-platform/pkg/common/config"
	"github.com/systechdigital/redemption-platform/pkg/common/database"
	"github.com/systechdigital/redemption-platform/pkg/common/logger"
	"github.com/systechdigital/redemption-platform/pkg/inventory"
	"github.com/systechdigital/redemption-platform/pkg/notifier"
	"github.com/systechdigital/redemption-platform/pkg/observability/metrics"
)

func main() {
	if os.Getenv("SERVICE_NAME") == "" {
		os.Setenv("SERVICE_NAME", "admin-service")
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
	notifyLog := notifier.NewLogRepository(db)
	if err := notifyLog.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate notification log")
	}

	credentials, err := adminauth.NewCredentialChecker(cfg.AdminEmail, cfg.AdminPasswordHash)
	if err != nil {
		logger.Log.WithError(err).Fatal("admin credentials not configured")
	}
	jwtManager, err := adminauth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("jwt configuration invalid")
	}

	var oidc *adminauth.OIDCAuthenticator
	if cfg.OIDCIssuer != "" {
		oidc, err = adminauth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
		if err != nil {
			logger.Log.WithError(err).Fatal("oidc configuration invalid")
		}
	}

	svc := admin.NewService(credentials, jwtManager, claimRepo, salesRepo, keyRepo, notifyLog)
	handler := admin.NewHandler(svc, jwtManager, oidc)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
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
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.AdminServicePort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.AdminServicePort,
		}).Info("Admin Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Admin Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	database.ClosePostgres()
	logger.Log.Info("Admin Service stopped")
}
