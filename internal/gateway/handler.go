package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"

	"github.com/vyrodovalexey/apimanager/internal/auth/jwt"
	"github.com/vyrodovalexey/apimanager/internal/cloudtrace"
	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/middleware"
	"github.com/vyrodovalexey/apimanager/internal/observability"
	"github.com/vyrodovalexey/apimanager/internal/reqctx"
	"github.com/vyrodovalexey/apimanager/internal/service"
	"github.com/vyrodovalexey/apimanager/internal/servicecontrol"
)

const (
	authorizationHeader = "Authorization"

	// CheckSpanName names the span around the check.
	CheckSpanName = "CheckServiceControl"
)

// Handler runs the per-call pipeline.
type Handler struct {
	services     *service.Holder
	backend      http.Handler
	client       servicecontrol.Client
	auth         *jwt.Authenticator
	ips          ClientIPSource
	checkTimeout time.Duration
	logger       observability.Logger
	metrics      *Metrics

	reports sync.WaitGroup
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithServiceControl sets the check and report client.
func WithServiceControl(client servicecontrol.Client) Option {
	return func(h *Handler) {
		if client != nil {
			h.client = client
		}
	}
}

// WithAuthenticator enables bearer token validation.
func WithAuthenticator(auth *jwt.Authenticator) Option {
	return func(h *Handler) {
		h.auth = auth
	}
}

// WithClientIPSource sets how the client address is resolved.
func WithClientIPSource(ips ClientIPSource) Option {
	return func(h *Handler) {
		if ips != nil {
			h.ips = ips
		}
	}
}

// WithCheckTimeout bounds the wait for a check decision.
func WithCheckTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.checkTimeout = d
		}
	}
}

// NewHandler creates the pipeline handler. The service is loaded from
// services on every call so a reload applies to the next call.
func NewHandler(services *service.Holder, backend http.Handler, opts ...Option) (*Handler, error) {
	if services == nil {
		return nil, ErrNilServices
	}
	if backend == nil {
		return nil, ErrNilBackend
	}

	h := &Handler{
		services:     services,
		backend:      backend,
		client:       servicecontrol.NewLocalClient(),
		ips:          middleware.NewClientIPExtractor(nil),
		checkTimeout: config.DefaultCheckTimeout,
		logger:       observability.NopLogger(),
		metrics:      GetSharedMetrics(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body := &countingBody{ReadCloser: r.Body}
	if r.Body == nil {
		body.ReadCloser = http.NoBody
	}
	r.Body = body

	rc := reqctx.New(r.Context(), h.services.Load(), newHTTPRequest(r, h.ips))
	session := rc.TraceSession()
	defer session.End()

	ctx := observability.ContextWithOperationID(session.Context(), rc.OperationID())
	if session.Enabled() {
		ctx = observability.ContextWithTraceID(ctx, session.Root().SpanContext().TraceID().String())
	}
	logger := h.logger.WithContext(ctx)

	rec := newRecorder(w)

	outcome := checkSkipped
	st := h.authenticate(rc, r, logger)
	if st.IsOK() && rc.Method() != nil {
		st = h.check(ctx, rc)
		outcome = checkAllowed
	}

	var backendTime time.Duration
	if st.IsOK() {
		backendTime = h.forward(ctx, rec, r, rc)
		st = servicecontrol.StatusFromHTTP(rec.status, http.StatusText(rec.status))
	} else {
		outcome = checkRejected
		logger.Debug("call rejected",
			observability.String("path", r.URL.Path),
			observability.Stringer("status", st),
		)
		writeStatus(rec, st)
	}

	total := time.Since(start)
	resp := &callResponse{
		requestSize:  requestSize(r, body),
		responseSize: rec.size,
		status:       st,
		latency: servicecontrol.LatencyInfo{
			RequestTime:  total,
			BackendTime:  backendTime,
			OverheadTime: total - backendTime,
		},
	}

	h.metrics.calls.WithLabelValues(outcome, statusClass(rec.status)).Inc()
	h.metrics.latency.WithLabelValues("backend").Observe(backendTime.Seconds())
	h.metrics.latency.WithLabelValues("overhead").Observe(resp.latency.OverheadTime.Seconds())

	h.report(ctx, rc, resp, logger)
}

// authenticate validates the bearer token when an authenticator is
// configured. A missing token is not an error.
func (h *Handler) authenticate(rc *reqctx.RequestContext, r *http.Request, logger observability.Logger) servicecontrol.Status {
	if h.auth == nil {
		return servicecontrol.OK()
	}

	claims, err := h.auth.Authenticate(r.Header.Get(authorizationHeader))
	switch {
	case err == nil:
		rc.SetAuthClaims(claims.Issuer, claims.Audience)
		return servicecontrol.OK()
	case errors.Is(err, jwt.ErrNoToken):
		return servicecontrol.OK()
	default:
		logger.Debug("authentication failed", observability.Error(err))
		return servicecontrol.NewStatus(codes.Unauthenticated, "invalid bearer token")
	}
}

type checkResult struct {
	status   servicecontrol.Status
	response servicecontrol.CheckResponseInfo
}

// check asks the client whether the call may proceed. The decision
// reaches the request context exactly once: from the client, from the
// check timeout, or from the cancellation of the call.
func (h *Handler) check(ctx context.Context, rc *reqctx.RequestContext) servicecontrol.Status {
	span := rc.TraceSession().StartSpan(CheckSpanName)
	defer span.End()

	done := make(chan servicecontrol.Status, 1)
	rc.SetCheckContinuation(func(st servicecontrol.Status) {
		done <- st
	})

	var info servicecontrol.CheckRequestInfo
	rc.FillCheckRequestInfo(&info)

	results := make(chan checkResult, 1)
	h.client.Check(ctx, info, func(st servicecontrol.Status, resp servicecontrol.CheckResponseInfo) {
		select {
		case results <- checkResult{status: st, response: resp}:
		default:
		}
	})

	timer := time.NewTimer(h.checkTimeout)
	defer timer.Stop()

	var st servicecontrol.Status
	select {
	case res := <-results:
		st = res.status
		if rc.APIKey() != "" {
			rc.SetAPIKeyValid(res.response.IsAPIKeyValid)
		}
	case <-timer.C:
		st = servicecontrol.NewStatus(codes.DeadlineExceeded, "check timed out")
	case <-ctx.Done():
		st = servicecontrol.NewStatus(codes.Canceled, "call canceled during check")
	}
	rc.CompleteCheck(st)

	decision := <-done
	h.metrics.checks.WithLabelValues(decision.Code().String()).Inc()
	span.SetAttributes(attribute.String("check.code", decision.Code().String()))
	if !decision.IsOK() {
		span.SetStatus(otelcodes.Error, decision.Message())
	}
	return decision
}

// forward sends the call to the backend inside the Backend span and
// returns the time spent there.
func (h *Handler) forward(ctx context.Context, rec *recorder, r *http.Request, rc *reqctx.RequestContext) time.Duration {
	span := rc.StartBackendSpan()
	defer span.End()

	out := r.WithContext(trace.ContextWithSpan(ctx, span))
	if rc.TraceSession().Enabled() {
		out.Header = r.Header.Clone()
		out.Header.Set(rc.ServiceContext().Tracer().TriggerHeader(), cloudtrace.FormatHeader(span.SpanContext()))
	}

	start := time.Now()
	h.backend.ServeHTTP(rec, out)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.Int("http.status_code", rec.status))
	if rec.status >= http.StatusInternalServerError {
		span.SetStatus(otelcodes.Error, http.StatusText(rec.status))
	}
	return elapsed
}

// report fills the report record and sends it without blocking the
// response.
func (h *Handler) report(ctx context.Context, rc *reqctx.RequestContext, resp *callResponse, logger observability.Logger) {
	var info servicecontrol.ReportRequestInfo
	rc.FillReportRequestInfo(resp, &info)

	ctx = context.WithoutCancel(ctx)
	h.reports.Add(1)
	go func() {
		defer h.reports.Done()
		if err := h.client.Report(ctx, info); err != nil {
			h.metrics.reports.WithLabelValues(reportError).Inc()
			logger.Warn("report failed", observability.Error(err))
			return
		}
		h.metrics.reports.WithLabelValues(reportOK).Inc()
	}()
}

// Wait blocks until every pending report has been sent or ctx is done.
func (h *Handler) Wait(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		h.reports.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type errorBody struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// writeStatus answers a rejected call.
func writeStatus(w http.ResponseWriter, st servicecontrol.Status) {
	code := st.HTTPCode()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{
		Code:    code,
		Status:  st.Code().String(),
		Message: st.Message(),
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
