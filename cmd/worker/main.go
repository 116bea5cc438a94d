package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"presensi/internal/app"
	"presensi/internal/config"
	"presensi/internal/logger"
	"presensi/internal/worker"
)

// Worker records scans queued by offline stations.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	zl, err := logger.New(cfg.Production())
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		zl.Info("shutdown signal received")
		cancel()
	}()

	a, err := app.Build(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("backend init failed", zap.Error(err))
	}
	defer a.Close(context.Background())

	if cfg.QueueBackend != "redis" {
		zl.Warn("worker started with the in-memory queue; it only sees scans published by this process")
	}

	zl.Info("worker started, waiting for messages")
	if err := worker.New(a.Queue, a.Engine, zl.Named("worker")).Run(ctx); err != nil {
		zl.Error("worker stopped", zap.Error(err))
		return
	}
	zl.Info("worker stopped")
}
