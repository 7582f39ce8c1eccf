package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/blobstore"
	"github.com/medirank/medirank-api/internal/config"
	"github.com/medirank/medirank-api/internal/database"
	"github.com/medirank/medirank-api/internal/handlers"
	"github.com/medirank/medirank-api/internal/logger"
	"github.com/medirank/medirank-api/internal/metrics"
	"github.com/medirank/medirank-api/internal/services/audits"
	"github.com/medirank/medirank-api/internal/services/auth"
	"github.com/medirank/medirank-api/internal/services/inspection"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format, "medirank-api")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.IsProduction() && cfg.UsesDefaultSecret() {
		zlog.Warn("JWT_SECRET is not set; tokens are signed with the default secret")
	}

	// 2. Connect the document store and prepare its schema
	startCtx, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute)
	stores, err := database.Open(startCtx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}

	// 3. Object store
	m := metrics.New()
	blobs, closeBlobs, err := blobstore.Open(startCtx, cfg.Blob, zlog)
	cancelStart()
	if err != nil {
		zlog.Fatal("failed to open object store", zap.String("backend", cfg.Blob.Backend), zap.Error(err))
	}
	blobs = blobstore.Instrument(blobs, m.ObserveBlob)

	// 4. Services and router
	router := handlers.NewRouter(handlers.Deps{
		Auth:        auth.NewService(stores.Users, cfg.JWTSecret, zlog.Named("auth")),
		Inspections: inspection.NewService(stores.Inspections, blobs, zlog.Named("inspection"), m),
		Audits:      audits.NewService(),
		Database:    stores,
		Driver:      stores.Driver,
		Metrics:     m,
		Logger:      zlog.Named("http"),
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: false,
	})

	// 5. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler.Handler(router.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		zlog.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.NodeEnv),
			zap.String("store", stores.Driver),
			zap.String("blob_backend", cfg.Blob.Backend),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	sig := <-shutdown
	zlog.Info("shutting down gracefully", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := closeBlobs(); err != nil {
		zlog.Error("object store close error", zap.Error(err))
	}

	// Close database (this also stops embedded PostgreSQL)
	zlog.Info("closing database connection")
	if err := stores.Close(ctx); err != nil {
		zlog.Error("database close error", zap.Error(err))
	}

	zlog.Info("shutdown complete")
}
