package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"showroom/internal/config"
	"showroom/internal/handlers"
	"showroom/internal/logging"
	"showroom/internal/showroom"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		logging.New("info", "json", "showroom-web").Fatal("load config", zap.Error(err))
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "showroom-web")
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Server, logger *zap.Logger) error {
	store := showroom.NewStore(showroom.Options{
		Capacity:   cfg.RoomCapacity,
		SessionTTL: cfg.SessionTTL,
	}, logger.Named("store"))
	defer store.Close()

	catalog, err := showroom.DefaultCatalog()
	if err != nil {
		return err
	}
	if err := store.LoadCatalog(catalog); err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)

	handlers.NewHomeHandler(store).RegisterRoutes(r)
	handlers.NewStoreHandler(store, logger.Named("handlers")).RegisterRoutes(r)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Room streams stay open; unary routes carry their own timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr()), zap.String("url", cfg.PublicURL()))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// Closing the store ends open streams so Shutdown does not wait on them.
	store.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
