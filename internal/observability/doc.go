// Package observability provides structured logging and the OpenTelemetry
// tracer provider for the gateway.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("report sent",
//	    observability.String("operation_id", id),
//	    observability.Int("response_code", 200),
//	)
//
// # Tracing
//
// NewTracerProvider builds an SDK provider exporting over OTLP/gRPC. A
// disabled provider hands out no-op tracers.
package observability
