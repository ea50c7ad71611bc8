package main

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/observability"
)

// runGateway starts the listeners and the config watcher, blocks until
// ctx is done and then shuts everything down.
func runGateway(ctx context.Context, app *application, configPath string) error {
	if err := app.start(ctx); err != nil {
		app.shutdown()
		return err
	}

	watcher := startConfigWatcher(ctx, app, configPath)

	<-ctx.Done()
	app.logger.Info("received shutdown signal")

	if watcher != nil {
		_ = watcher.Stop()
	}
	app.shutdown()
	return nil
}

// start opens the listeners.
func (app *application) start(ctx context.Context) error {
	if err := app.listener.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway listener: %w", err)
	}

	if app.metricsListener != nil {
		if err := app.metricsListener.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics listener: %w", err)
		}
	}

	return nil
}

// shutdown drains in-flight calls and pending reports, then releases
// every resource.
func (app *application) shutdown() {
	timeout := app.config.Spec.Listen.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	app.checker.SetDraining(true)

	if err := app.listener.Stop(shutdownCtx); err != nil {
		app.logger.Error("failed to stop gateway listener gracefully", observability.Error(err))
	}

	if err := app.handler.Wait(shutdownCtx); err != nil {
		app.logger.Warn("pending reports dropped", observability.Error(err))
	}

	if app.metricsListener != nil {
		if err := app.metricsListener.Stop(shutdownCtx); err != nil {
			app.logger.Error("failed to stop metrics listener gracefully", observability.Error(err))
		}
	}

	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}

	if app.checkCache != nil {
		if err := app.checkCache.Close(); err != nil {
			app.logger.Error("failed to close check cache", observability.Error(err))
		}
	}

	if err := app.tracerProvider.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	app.logger.Info("gateway stopped")
}
