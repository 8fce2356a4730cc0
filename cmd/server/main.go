/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load configuration from the environment (TREASURY_ prefix)
  2. Build the zap logger
  3. Open the SQLite store (migrates, verifies schema, seeds months)
  4. Wire the keeper, timezone resolver and HTTP router
  5. Serve with graceful shutdown on SIGINT/SIGTERM

CONFIGURATION:
  TREASURY_PORT          HTTP port (default 8080)
  TREASURY_DB_PATH       SQLite path, ":memory:" for in-memory
  TREASURY_GEO_BASE_URL  geocoding service base URL
  TREASURY_LOG_LEVEL     debug|info|warn|error
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sidrat/treasury-engine/api"
	"github.com/sidrat/treasury-engine/config"
	"github.com/sidrat/treasury-engine/ledger"
	"github.com/sidrat/treasury-engine/store/sqlite"
	"github.com/sidrat/treasury-engine/tzlookup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()

	keeper := ledger.NewKeeper(store, logger)
	resolver := tzlookup.NewClient(cfg.GeoBaseURL)
	handler := api.NewHandler(keeper, resolver, logger)
	router := api.NewRouter(handler, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
