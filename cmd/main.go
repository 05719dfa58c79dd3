package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ed843/codecollab/config"
	"github.com/ed843/codecollab/internal/registry"
	"github.com/ed843/codecollab/internal/service"
	httpx "github.com/ed843/codecollab/internal/transport/http"
	"github.com/ed843/codecollab/internal/transport/ws"
	"github.com/ed843/codecollab/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting codecollab",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version,
		"registry", cfg.Registry.Backend)

	// --- registry ---
	var reg registry.Registry
	switch cfg.Registry.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cache := registry.NewRedisCache(client)
		reg = registry.NewSharedRegistry(cache, cfg.RedisTTL(registry.DefaultTTL))
	default:
		reg = registry.NewMemoryRegistry()
	}

	// --- services ---
	roomSvc := service.NewRoomService(reg)

	// --- WS Hub & Server ---
	hub := ws.NewHub()
	collabSvc := service.NewCollabService(reg, hub)
	wsServer := ws.NewServer(collabSvc)

	// --- HTTP ---
	handler := httpx.NewHandler(roomSvc)
	router := httpx.NewRouter(handler, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
