// Package main runs the executor config service: HTTP and WebSocket APIs on
// top of the selector sessions, backed by SQLite or PostgreSQL.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kandev/executorconfig/internal/common/config"
	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/common/tracing"
	gateways "github.com/kandev/executorconfig/internal/gateway/websocket"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "executorconfigd",
		Short:         "Serve executor config sessions over HTTP and WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Load configuration
			cfg, err := config.LoadWithPath(configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
				return err
			}

			// 2. Initialize logger
			log, err := logger.NewLogger(cfg.Logging.ToLoggerConfig())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
				return err
			}
			defer func() { _ = log.Sync() }()
			logger.SetDefault(log)

			if err := run(cfg, log); err != nil {
				log.Error("executor config service failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file or directory")
	return cmd
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting executor config service...")

	// 3. Tracing is a no-op unless an OTLP endpoint is configured
	if err := tracing.Init(ctx, cfg.Tracing); err != nil {
		log.Warn("Failed to initialize tracing", zap.Error(err))
	}

	// 4. Storage, event bus, profiles and service
	a, cleanups, err := provideApp(cfg, log)
	runCleanups := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				log.Warn("cleanup failed", zap.Error(err))
			}
		}
	}
	if err != nil {
		runCleanups()
		return err
	}

	// 5. HTTP server
	router := newRouter(cfg, a, log)
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.gateway.Run(gctx) })
	if cfg.Profiles.Watch {
		g.Go(func() error { return a.registry.Watch(gctx) })
	}
	g.Go(func() error {
		log.Info("HTTP server listening",
			zap.String("addr", server.Addr),
			zap.String("websocket", gateways.Path),
			zap.String("health", "/health"))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(server, runCleanups, log)
	})

	return g.Wait()
}

// shutdown stops the HTTP server, flushes traces and runs cleanups.
func shutdown(server *http.Server, runCleanups func(), log *logger.Logger) error {
	log.Info("Shutting down executor config service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracing shutdown error", zap.Error(err))
	}
	runCleanups()

	log.Info("Executor config service stopped")
	return nil
}
