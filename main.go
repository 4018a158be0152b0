package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/listing-api/internal/bootstrap"
	"github.com/yourorg/listing-api/internal/config"
	"github.com/yourorg/listing-api/internal/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log, closeLog := bootstrap.Logger(cfg.Log, "api")
	defer closeLog()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Error("startup", "err", err)
		os.Exit(1)
	}
	defer rt.Close()
	if rt.Events != nil {
		go events.Drain(ctx, rt.Events, log)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           BuildRouter(RouterDeps{Service: rt.Service, Logger: log, RateLimitPerMin: cfg.RateLimitPerMin, MaxUploadBytes: cfg.MaxUploadBytes}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("listing-api listening", "port", cfg.Port, "store", cfg.StoreDriver, "unique_key", cfg.EnforceUniqueKey)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}
