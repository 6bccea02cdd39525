package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/georgia-tax-declaration/internal/application/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/config"
	ports "github.com/damon-houk/georgia-tax-declaration/internal/domain/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/api"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/db"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/handler"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/ledger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/middleware"
	"github.com/dgraph-io/badger/v3"
	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	log := logger.NewJSONLogger(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	logger.SetDefaultLogger(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting Georgian income declaration service", map[string]interface{}{
		"port":          cfg.Port,
		"rate_source":   cfg.RateSourceURL,
		"lookback_days": cfg.RateLookbackDays,
	})

	var source ports.RateSource = api.NewNBGClient(api.NBGClientConfig{
		BaseURL:    cfg.RateSourceURL,
		Timeout:    cfg.RateHTTPTimeout,
		MaxRetries: cfg.RateMaxRetries,
	}, nil, log.WithField("component", "nbg"))

	// Setup BadgerDB rate archive
	if cfg.RateArchivePath != "" {
		if err := os.MkdirAll(cfg.RateArchivePath, 0755); err != nil {
			log.Fatal("Failed to create rate archive directory", map[string]interface{}{"error": err.Error()})
		}

		badgerOpts := badger.DefaultOptions(cfg.RateArchivePath)
		badgerOpts.Logger = nil // Disable Badger's default logger

		badgerDB, err := badger.Open(badgerOpts)
		if err != nil {
			log.Fatal("Failed to open rate archive", map[string]interface{}{"error": err.Error()})
		}

		defer func() {
			if err := badgerDB.Close(); err != nil {
				log.Error("Error closing BadgerDB", map[string]interface{}{"error": err.Error()})
			}
		}()

		source = db.NewArchivedRateSource(source, db.NewBadgerRateArchive(badgerDB), log.WithField("component", "archive"))
		log.Info("Rate archive enabled", map[string]interface{}{"path": cfg.RateArchivePath})
	}

	svcCfg := service.DeclarationServiceConfig{
		LookbackDays: cfg.RateLookbackDays,
		FileReader:   ledger.NewXLSXReader(log),
	}

	if cfg.HasSheetsCredentials() {
		opts, err := ledger.CredentialOptions(cfg.GoogleServiceAccountJSON, cfg.GoogleKeyPath)
		if err != nil {
			log.Fatal("Failed to load Google credentials", map[string]interface{}{"error": err.Error()})
		}
		sheets, err := ledger.NewSheetsReader(context.Background(), log, opts...)
		if err != nil {
			log.Fatal("Failed to create Google Sheets reader", map[string]interface{}{"error": err.Error()})
		}
		svcCfg.SheetReader = sheets
	} else {
		log.Warn("No Google service account credentials, shared sheet declarations disabled", map[string]interface{}{
			"key_path": cfg.GoogleKeyPath,
		})
	}

	declarations := service.NewDeclarationService(source, svcCfg, log)

	// Setup router
	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.AccessLog(log, cfg.MaxUploadBytes))
	handler.NewDeclarationHandler(declarations, cfg.MaxUploadBytes, log).RegisterRoutes(router)
	handler.NewRateHandler(declarations, log).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	log.Info("Server stopped", nil)
}
