package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/timmy/lexpdf/internal/api"
	"github.com/timmy/lexpdf/internal/api/middleware"
	"github.com/timmy/lexpdf/internal/app"
	"github.com/timmy/lexpdf/internal/config"
	"github.com/timmy/lexpdf/internal/logger"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	store, err := config.NewStore(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := store.Current()

	logger.SetDefaultLogger(logger.New(cfg.LoggerConfig()))
	defer logger.Sync()

	ctx := logger.SetComponent(context.Background(), "server")

	rt, err := app.New(ctx, store)
	if err != nil {
		logger.Fatal("Failed to initialize runtime: %v", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.CtxWarn(ctx, "close runtime: %v", err)
		}
	}()

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	rt.Jobs.Start(workerCtx)

	router := api.SetupRouter(rt.Jobs, rt, api.RouterConfig{
		Mode:      cfg.Server.Mode,
		UploadDir: cfg.Server.UploadDir,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		SearchDisabled: app.ErrSearchDisabled,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.With(logger.Fields{"port": cfg.Server.Port, "mode": cfg.Server.Mode}).
			Info(ctx, "Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				if err := rt.Reload(gctx); err != nil {
					logger.CtxError(ctx, "Config reload failed, keeping previous settings: %v", err)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.CtxInfo(ctx, "Shutting down server...")

		timeout := store.Current().Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}
		if err := rt.Jobs.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("workers did not drain: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.CtxError(ctx, "%v", err)
	}
	logger.CtxInfo(ctx, "Server exited")
}
