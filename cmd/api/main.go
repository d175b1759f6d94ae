package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wayfarer-travel/wayfarer-api/internal/adapters/httpapi"
	memstorage "github.com/wayfarer-travel/wayfarer-api/internal/adapters/memory/storage"
	postgres "github.com/wayfarer-travel/wayfarer-api/internal/adapters/postgres"
	pgstorage "github.com/wayfarer-travel/wayfarer-api/internal/adapters/postgres/storage"
	"github.com/wayfarer-travel/wayfarer-api/internal/app/bundles"
	"github.com/wayfarer-travel/wayfarer-api/internal/app/mutations"
	platformclock "github.com/wayfarer-travel/wayfarer-api/internal/platform/clock"
	"github.com/wayfarer-travel/wayfarer-api/internal/platform/config"
	storageport "github.com/wayfarer-travel/wayfarer-api/internal/ports/out/storage"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	clk := platformclock.NewSystemClock()

	var (
		backend storageport.Backend
		cleanup func()
	)
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			log.Error("postgres setup failed", "error", err)
			os.Exit(1)
		}
		cleanup = pool.Close
		backend = pgstorage.NewBackend(pool)
	default:
		backend = memstorage.NewBackend()
	}
	if cleanup != nil {
		defer cleanup()
	}

	mutationSvc := mutations.NewService(backend, clk)
	bundleSvc := bundles.NewService(backend, clk)

	reaper := mutations.NewReaper(backend.Ledger(), cfg.LedgerTTL, cfg.ReaperInterval, clk, log)
	reaper.Start()
	defer reaper.Stop()

	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case "dev":
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevUser)
	default:
		// The session service is an external collaborator; deployments
		// inject a verifier implementation here.
		log.Error("no session verifier configured; set AUTH_MODE=dev for local use")
		os.Exit(1)
	}

	api := httpapi.NewServer(mutationSvc, bundleSvc, log)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{AuthMiddleware: authMW})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api listening", "port", cfg.Port, "backend", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
