package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyrodovalexey/apimanager/internal/auth/jwt"
	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/gateway"
	"github.com/vyrodovalexey/apimanager/internal/health"
	"github.com/vyrodovalexey/apimanager/internal/middleware"
	"github.com/vyrodovalexey/apimanager/internal/observability"
	"github.com/vyrodovalexey/apimanager/internal/proxy"
	"github.com/vyrodovalexey/apimanager/internal/service"
	"github.com/vyrodovalexey/apimanager/internal/servicecontrol"
)

const defaultServiceName = "apimanager"

// application holds all application components.
type application struct {
	config         *config.GatewayConfig
	logger         observability.Logger
	logLevelPinned bool

	tracerProvider *observability.TracerProvider
	services       *service.Holder
	checkCache     *servicecontrol.CheckCache
	handler        *gateway.Handler
	rateLimiter    *middleware.RateLimiter
	checker        *health.Checker

	listener        *gateway.Listener
	metricsListener *gateway.Listener
}

// initApplication builds every component from cfg. Nothing listens yet.
func initApplication(ctx context.Context, cfg *config.GatewayConfig, logger observability.Logger) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		checker: health.NewChecker(version),
	}

	tp, err := initTracer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	app.tracerProvider = tp

	svc, err := service.New(cfg, tp.Tracer(), logger)
	if err != nil {
		return nil, err
	}
	app.services = service.NewHolder(svc)

	client, err := app.initServiceControl(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := proxy.New(cfg.Spec.Backend, proxy.WithProxyLogger(logger.Named("proxy")))
	if err != nil {
		return nil, fmt.Errorf("failed to create backend proxy: %w", err)
	}

	ips := middleware.NewClientIPExtractor(cfg.Spec.Listen.TrustedProxies)
	opts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithServiceControl(client),
		gateway.WithClientIPSource(ips),
		gateway.WithCheckTimeout(cfg.Spec.ServiceControl.CheckTimeout.OrDefault(config.DefaultCheckTimeout)),
	}

	if cfg.Spec.Auth != nil && cfg.Spec.Auth.JWT != nil {
		auth, err := jwt.New(cfg.Spec.Auth.JWT, jwt.WithLogger(logger.Named("auth")))
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticator: %w", err)
		}
		opts = append(opts, gateway.WithAuthenticator(auth))
	}

	app.handler, err = gateway.NewHandler(app.services, backend, opts...)
	if err != nil {
		return nil, err
	}

	app.listener = gateway.NewListener("http", cfg.Spec.Listen,
		app.buildMiddlewareChain(app.handler, ips),
		gateway.WithListenerLogger(logger),
	)

	if cfg.Spec.Metrics.Enabled {
		app.metricsListener = gateway.NewListener("metrics",
			config.ListenConfig{Address: cfg.Spec.Metrics.Address},
			app.metricsMux(cfg.Spec.Metrics.Path),
			gateway.WithListenerLogger(logger),
		)
	}

	return app, nil
}

// initTracer builds the OpenTelemetry provider.
func initTracer(ctx context.Context, cfg *config.GatewayConfig) (*observability.TracerProvider, error) {
	name := cfg.Spec.Service.Name
	if name == "" {
		name = defaultServiceName
	}

	var zone string
	if cfg.Spec.Cloud != nil {
		zone = cfg.Spec.Cloud.Zone
	}

	return observability.NewTracerProvider(ctx, observability.TracerConfig{
		Enabled:        cfg.Spec.Tracing.Enabled,
		ServiceName:    name,
		ServiceVersion: version,
		Zone:           zone,
		OTLPEndpoint:   cfg.Spec.Tracing.OTLPEndpoint,
		SamplingRate:   cfg.Spec.Tracing.SamplingRate,
	})
}

// initServiceControl builds the check and report client. Without an
// endpoint every check is allowed and reports are only logged.
func (app *application) initServiceControl(cfg *config.GatewayConfig) (servicecontrol.Client, error) {
	sc := cfg.Spec.ServiceControl
	logger := app.logger.Named("servicecontrol")
	if sc.Endpoint == "" {
		logger.Info("no service control endpoint configured, reports are logged only")
		return servicecontrol.NewLogReporter(nil, logger), nil
	}

	opts := []servicecontrol.Option{
		servicecontrol.WithLogger(logger),
		servicecontrol.WithTracer(app.tracerProvider.Tracer()),
	}

	if sc.CheckCache != nil {
		cache, err := servicecontrol.NewCheckCache(sc.CheckCache, logger)
		if err != nil {
			logger.Warn("check cache unavailable, continuing without it", observability.Error(err))
		} else {
			app.checkCache = cache
			app.checker.RegisterCheck("check_cache", health.PingCheck(cache.Ping, false))
			opts = append(opts, servicecontrol.WithCheckCache(cache))
		}
	}

	client, err := servicecontrol.NewHTTPClient(sc, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create service control client: %w", err)
	}

	return servicecontrol.NewLogReporter(client, logger), nil
}

// buildMiddlewareChain wraps the pipeline handler.
// The execution order (outermost executes first):
// Recovery -> AccessLog -> RateLimit -> [pipeline]
func (app *application) buildMiddlewareChain(handler http.Handler, ips *middleware.ClientIPExtractor) http.Handler {
	h := handler

	rateLimit, limiter := middleware.RateLimitFromConfig(app.config.Spec.Listen.RateLimit, ips, app.logger)
	app.rateLimiter = limiter
	h = rateLimit(h)

	h = middleware.AccessLog(app.logger.Named("access"), ips)(h)
	h = middleware.Recovery(app.logger)(h)

	return h
}

// metricsMux serves Prometheus metrics and the health probes.
func (app *application) metricsMux(path string) *http.ServeMux {
	if path == "" {
		path = config.DefaultMetricsPath
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	app.checker.RegisterRoutes(mux)
	return mux
}
