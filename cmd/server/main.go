package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ParleSec/MirrorBin/internal/core"
	"github.com/ParleSec/MirrorBin/internal/dynamic"
	"github.com/ParleSec/MirrorBin/internal/plugin"
)

func main() {
	bootstrap, err := core.Bootstrap(core.BootstrapOptions{EnableMetrics: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mirrorbin: %v\n", err)
		os.Exit(1)
	}
	cfg := bootstrap.Config
	logger := bootstrap.Logger
	slog.SetDefault(logger)

	// Initialize plugin registry
	registry := plugin.NewRegistry()

	dynamicPlugin := dynamic.NewPlugin(dynamic.Limits{
		MaxDelaySeconds: cfg.Limits.MaxDelaySeconds,
		MaxBytes:        cfg.Limits.MaxBytes,
		MaxChars:        cfg.Limits.MaxChars,
		MaxBodyBytes:    cfg.Limits.MaxBodyBytes,
	})
	if err := registry.Register(dynamicPlugin); err != nil {
		logger.Error("failed to register dynamic plugin", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := registry.InitializeAll(ctx, bootstrap.PluginConfig); err != nil {
		logger.Error("failed to initialize plugins", "error", err)
		os.Exit(1)
	}
	logger.Info("plugins initialized", "count", len(registry.List()))

	// Cancelled on shutdown so suspended /delay requests end as Interrupted
	// instead of holding the shutdown open.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	server := core.NewServer(cfg, registry, bootstrap.LookingGlass, bootstrap.Metrics, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout(),
		WriteTimeout:      cfg.RequestTimeout(),
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			"addr", cfg.ListenAddr,
			"base_url", cfg.BaseURL,
			"environment", cfg.Environment,
			"max_delay_seconds", cfg.Limits.MaxDelaySeconds,
		)
		if bootstrap.LookingGlass != nil {
			logger.Info("inspection feed available", "ws", cfg.BaseURL+"/ws/inspect/{session}")
		}
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cancelBase()

	if err := registry.ShutdownAll(shutdownCtx); err != nil {
		logger.Warn("plugin shutdown error", "error", err)
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited gracefully")
}
