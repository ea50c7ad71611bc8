package servicecontrol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"

	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/observability"
	"github.com/vyrodovalexey/apimanager/internal/retry"
	"github.com/vyrodovalexey/apimanager/internal/util"
)

const (
	tracerName = "apimanager/servicecontrol"

	operationCheck  = "check"
	operationReport = "report"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 1024
)

// HTTPClient sends records as JSON to a service control endpoint:
// POST {endpoint}/v1/services/{service}:check and :report.
type HTTPClient struct {
	endpoint     string
	httpClient   *http.Client
	checkTimeout time.Duration
	breaker      *gobreaker.CircuitBreaker
	reportRetry  retry.Policy
	cache        *CheckCache
	tracer       trace.Tracer
	logger       observability.Logger
	metrics      *Metrics
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithCheckCache enables check-result caching.
func WithCheckCache(cache *CheckCache) Option {
	return func(c *HTTPClient) {
		c.cache = cache
	}
}

// WithTracer sets the tracer used for client spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *HTTPClient) {
		c.tracer = tracer
	}
}

// NewHTTPClient creates a client for the configured endpoint.
func NewHTTPClient(cfg config.ServiceControlConfig, opts ...Option) (*HTTPClient, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("%w: service control endpoint is required", util.ErrConfigInvalid)
	}

	c := &HTTPClient{
		endpoint:     endpoint,
		httpClient:   &http.Client{Timeout: cfg.Timeout.OrDefault(config.DefaultServiceControlTimeout)},
		checkTimeout: cfg.CheckTimeout.OrDefault(config.DefaultCheckTimeout),
		tracer:       otel.Tracer(tracerName),
		logger:       observability.NopLogger(),
		metrics:      GetSharedMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.CircuitBreaker.Enabled {
		c.breaker = newBreaker("servicecontrol", cfg.CircuitBreaker.Threshold,
			cfg.CircuitBreaker.Timeout.OrDefault(config.DefaultBreakerTimeout), c.logger, c.metrics)
	}

	if rr := cfg.ReportRetry; rr != nil {
		c.reportRetry = retry.Policy{
			Attempts:       rr.Attempts,
			InitialBackoff: rr.InitialBackoff.OrDefault(retry.DefaultInitialBackoff),
			MaxBackoff:     rr.MaxBackoff.OrDefault(retry.DefaultMaxBackoff),
			Jitter:         retry.DefaultJitter,
			Retryable:      retryableReportError,
			OnRetry: func(attempt int, err error, wait time.Duration) {
				c.logger.Debug("retrying report",
					observability.Int("attempt", attempt),
					observability.Duration("backoff", wait),
					observability.Error(err),
				)
			},
		}
	}

	return c, nil
}

// retryableReportError is true for transport failures and 5xx answers.
// An open breaker is final.
func retryableReportError(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return errors.Is(err, util.ErrBackendUnavail)
}

func newBreaker(
	name string, threshold int, timeout time.Duration, logger observability.Logger, metrics *Metrics,
) *gobreaker.CircuitBreaker {
	thresholdU32 := safeIntToUint32(threshold)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= thresholdU32 && failureRatio >= 0.5
		},
		// Rejections by the endpoint are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, util.ErrBackendUnavail)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			metrics.breakerTransitions.WithLabelValues(from.String(), to.String()).Inc()
		},
	})
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// Check implements Client. The decision is computed on a new goroutine
// bounded by the configured check timeout.
func (c *HTTPClient) Check(ctx context.Context, info CheckRequestInfo, done CheckDoneFunc) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
		defer cancel()

		st, resp := c.check(ctx, info)
		c.metrics.checks.WithLabelValues(st.Code().String()).Inc()
		done(st, resp)
	}()
}

func (c *HTTPClient) check(ctx context.Context, info CheckRequestInfo) (Status, CheckResponseInfo) {
	if c.cache != nil {
		if resp, ok := c.cache.Get(ctx, info); ok {
			return CheckResponseStatus(info, resp), resp
		}
	}

	var resp CheckResponseInfo
	if err := c.call(ctx, operationCheck, info.ServiceName, info, &resp); err != nil {
		c.logger.Warn("check failed",
			observability.String("operation_id", info.OperationID),
			observability.Error(err))
		return transportStatus(err), CheckResponseInfo{IsAPIKeyValid: true}
	}

	if c.cache != nil {
		c.cache.Set(ctx, info, resp)
	}
	return CheckResponseStatus(info, resp), resp
}

// Report implements Client.
func (c *HTTPClient) Report(ctx context.Context, info ReportRequestInfo) error {
	err := retry.Do(ctx, operationReport, c.reportRetry, func(ctx context.Context) error {
		return c.call(ctx, operationReport, info.ServiceName, info, nil)
	})
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.metrics.reports.WithLabelValues(result, codeClass(info.ResponseCode), info.ComputePlatform.String()).Inc()
	return err
}

// call posts body to the operation URL through the breaker and decodes
// the answer into out when out is non-nil.
func (c *HTTPClient) call(ctx context.Context, operation, service string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "servicecontrol."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("servicecontrol.operation", operation),
			attribute.String("servicecontrol.service", service),
		),
	)
	defer span.End()

	do := func() (interface{}, error) {
		return nil, c.post(ctx, operation, service, body, out)
	}

	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(do)
	} else {
		_, err = do()
	}

	if err != nil {
		c.metrics.transportErrors.WithLabelValues(operation).Inc()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, operation, service string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", operation, err)
	}

	target := c.endpoint + "/v1/services/" + url.PathEscape(service) + ":" + operation
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", util.ErrBackendUnavail, operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &util.TransportError{Operation: operation, StatusCode: resp.StatusCode, Body: string(msg)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

// CheckResponseStatus turns a check decision into the status of the call.
func CheckResponseStatus(info CheckRequestInfo, resp CheckResponseInfo) Status {
	if info.APIKey != "" && !resp.IsAPIKeyValid {
		return NewStatus(codes.InvalidArgument, "API key not valid. Please pass a valid API key.")
	}
	if !resp.ServiceIsActivated {
		return NewStatus(codes.PermissionDenied,
			fmt.Sprintf("API %s is not enabled for the project.", info.ServiceName))
	}
	return OK()
}

// transportStatus maps a failed round trip to a status.
func transportStatus(err error) Status {
	var terr *util.TransportError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return NewStatus(codes.Unavailable, "service control is unavailable: "+err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return NewStatus(codes.DeadlineExceeded, "service control check timed out")
	case errors.As(err, &terr):
		return StatusFromHTTP(terr.StatusCode, terr.Error())
	default:
		return NewStatus(codes.Unavailable, err.Error())
	}
}

func codeClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "other"
	}
}
