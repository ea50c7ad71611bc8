package servicecontrol

import (
	"context"

	"github.com/vyrodovalexey/apimanager/internal/observability"
)

// LogReporter writes every report as one structured log line and then
// hands it to the next client. Checks pass through unchanged.
type LogReporter struct {
	next   Client
	logger observability.Logger
}

// NewLogReporter wraps next. A nil next makes the reporter the only sink
// and allows every check.
func NewLogReporter(next Client, logger observability.Logger) *LogReporter {
	if next == nil {
		next = NewLocalClient()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogReporter{next: next, logger: logger}
}

// Check implements Client.
func (r *LogReporter) Check(ctx context.Context, info CheckRequestInfo, done CheckDoneFunc) {
	r.next.Check(ctx, info, done)
}

// Report implements Client.
func (r *LogReporter) Report(ctx context.Context, info ReportRequestInfo) error {
	fields := []observability.Field{
		observability.String("operation_id", info.OperationID),
		observability.String("service_name", info.ServiceName),
		observability.String("operation_name", info.OperationName),
		observability.String("url", info.URL),
		observability.String("http_method", info.Method),
		observability.Int("http_response_code", info.ResponseCode),
		observability.String("status", info.Status.Code().String()),
		observability.Int64("request_size", info.RequestSize),
		observability.Int64("response_size", info.ResponseSize),
		observability.Stringer("protocol", info.Protocol),
		observability.String("location", info.Location),
		observability.Stringer("compute_platform", info.ComputePlatform),
		observability.Duration("request_latency", info.Latency.RequestTime),
		observability.Duration("backend_latency", info.Latency.BackendTime),
		observability.Duration("overhead_latency", info.Latency.OverheadTime),
	}
	if info.APIKey != "" {
		fields = append(fields, observability.Bool("api_key_valid", info.IsAPIKeyValid))
	}
	if info.Referer != "" {
		fields = append(fields, observability.String("referer", info.Referer))
	}
	if info.AuthIssuer != "" {
		fields = append(fields,
			observability.String("auth_issuer", info.AuthIssuer),
			observability.String("auth_audience", info.AuthAudience))
	}

	if info.ResponseCode >= 400 {
		r.logger.Warn(info.LogMessage, fields...)
	} else {
		r.logger.Info(info.LogMessage, fields...)
	}

	return r.next.Report(ctx, info)
}
