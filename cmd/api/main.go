package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"presensi/internal/app"
	"presensi/internal/attendance"
	"presensi/internal/config"
	"presensi/internal/httpapi"
	"presensi/internal/logger"
)

func main() {
	// .env is optional outside development
	_ = godotenv.Load()
	cfg := config.Load()

	zl, err := logger.New(cfg.Production())
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, zl); err != nil {
		zl.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, zl *zap.Logger) error {
	ctx := context.Background()
	a, err := app.Build(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	a.StartLocalWorker(workerCtx)

	h := httpapi.New(httpapi.Deps{
		Engine:    a.Engine,
		Store:     a.Store,
		Reporter:  a.Reporter,
		Roster:    a.Roster,
		Queue:     a.Queue,
		Debouncer: attendance.NewDebouncer(cfg.ScanDebounce, nil),
		Health:    a.Health,
		Log:       zl.Named("http"),
	}, httpapi.Options{
		JWTIssuer:        cfg.JWTIssuer,
		JWTSigningKey:    cfg.JWTSigningKey,
		AccessTTL:        cfg.AccessTTL,
		RefreshTTL:       cfg.RefreshTTL,
		StationEnrollKey: cfg.StationEnrollKey,
		AdminKey:         cfg.AdminKey,
		RateLimitPerMin:  cfg.RateLimitPerMin,
		AllowOrigins:     cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	zl.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("server forced shutdown", zap.Error(err))
	}
	zl.Info("server exited")
	return nil
}
