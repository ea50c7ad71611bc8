package main

import (
	"context"

	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/observability"
	"github.com/vyrodovalexey/apimanager/internal/service"
)

// startConfigWatcher reloads the service on configuration changes.
func startConfigWatcher(ctx context.Context, app *application, configPath string) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, app.reload, config.WithLogger(app.logger))
	if err != nil {
		app.logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		app.logger.Warn("failed to start config watcher", observability.Error(err))
		return nil
	}

	return watcher
}

// reload swaps in a service context built from newCfg. Calls in flight
// finish with the context they started with. Listener, backend, service
// control and authentication settings need a restart.
func (app *application) reload(newCfg *config.GatewayConfig) {
	svc, err := service.New(newCfg, app.tracerProvider.Tracer(), app.logger)
	if err != nil {
		app.logger.Error("failed to reload service", observability.Error(err))
		return
	}
	app.services.Store(svc)

	if !app.logLevelPinned {
		applyLogLevel(app.logger, newCfg.Spec.Logging.Level)
	}

	for _, field := range restartRequired(app.config, newCfg) {
		app.logger.Warn("configuration change requires a restart", observability.String("field", field))
	}

	app.logger.Info("service reloaded",
		observability.String("service", newCfg.Spec.Service.Name),
		observability.Int("methods", len(newCfg.Spec.Service.Methods)),
	)
}

// restartRequired lists the changed settings that a reload cannot apply.
func restartRequired(oldCfg, newCfg *config.GatewayConfig) []string {
	var fields []string
	if oldCfg.Spec.Listen.Address != newCfg.Spec.Listen.Address {
		fields = append(fields, "spec.listen.address")
	}
	if oldCfg.Spec.Backend.URL != newCfg.Spec.Backend.URL {
		fields = append(fields, "spec.backend.url")
	}
	if oldCfg.Spec.ServiceControl.Endpoint != newCfg.Spec.ServiceControl.Endpoint {
		fields = append(fields, "spec.serviceControl.endpoint")
	}
	if (oldCfg.Spec.Auth == nil) != (newCfg.Spec.Auth == nil) {
		fields = append(fields, "spec.auth")
	}
	return fields
}
