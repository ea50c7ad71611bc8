package reqctx

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/apimanager/internal/auth/apikey"
	"github.com/vyrodovalexey/apimanager/internal/cloudtrace"
	"github.com/vyrodovalexey/apimanager/internal/opid"
	"github.com/vyrodovalexey/apimanager/internal/router"
	"github.com/vyrodovalexey/apimanager/internal/servicecontrol"
)

const (
	refererHeader = "referer"

	// BackendSpanName names the span around the backend call.
	BackendSpanName = "Backend"
)

var keyResolver = apikey.NewResolver()

// RequestContext is the state of one call.
type RequestContext struct {
	svc ServiceContext
	req Request

	operationID string
	method      *router.MethodInfo
	bindings    map[string]string

	apiKey       string
	apiKeyValid  bool
	httpReferer  string
	authIssuer   string
	authAudience string

	trace *cloudtrace.Session
	check CheckGuard
}

// New creates the context of a call.
func New(ctx context.Context, svc ServiceContext, req Request) *RequestContext {
	rc := &RequestContext{
		svc:         svc,
		req:         req,
		operationID: opid.New(),
		apiKeyValid: true,
	}

	match := svc.ResolveMethod(req.HTTPMethod(), req.Path())
	if match.Matched() {
		rc.method = match.Method
		rc.bindings = match.Bindings
		rc.apiKey = keyResolver.Resolve(match.Method, req)
	}

	if referer, ok := req.FindHeader(refererHeader); ok {
		rc.httpReferer = referer
	}

	tracer := svc.Tracer()
	header, _ := req.FindHeader(tracer.TriggerHeader())
	rc.trace = tracer.NewSession(ctx, header, rc.spanName())

	return rc
}

func (rc *RequestContext) spanName() string {
	if rc.method != nil {
		return rc.method.Name()
	}
	return rc.req.HTTPMethod() + " " + rc.req.Path()
}

// OperationID returns the unique id of the call.
func (rc *RequestContext) OperationID() string { return rc.operationID }

// Method returns the matched method, or nil for an unrecognized call.
func (rc *RequestContext) Method() *router.MethodInfo { return rc.method }

// Bindings returns the path template variables of the matched method.
func (rc *RequestContext) Bindings() map[string]string { return rc.bindings }

// APIKey returns the resolved API key, or "" when there is none.
func (rc *RequestContext) APIKey() string { return rc.apiKey }

// IsAPIKeyValid reports whether the API key is still considered valid.
func (rc *RequestContext) IsAPIKeyValid() bool { return rc.apiKeyValid }

// SetAPIKeyValid records the validity of the API key as decided by the
// check.
func (rc *RequestContext) SetAPIKeyValid(valid bool) { rc.apiKeyValid = valid }

// HTTPReferer returns the referer header of the call.
func (rc *RequestContext) HTTPReferer() string { return rc.httpReferer }

// SetAuthClaims records the issuer and audience of a validated token.
func (rc *RequestContext) SetAuthClaims(issuer, audience string) {
	rc.authIssuer = issuer
	rc.authAudience = audience
}

// AuthIssuer returns the issuer of the validated token.
func (rc *RequestContext) AuthIssuer() string { return rc.authIssuer }

// AuthAudience returns the audience of the validated token.
func (rc *RequestContext) AuthAudience() string { return rc.authAudience }

// TraceSession returns the trace session of the call.
func (rc *RequestContext) TraceSession() *cloudtrace.Session { return rc.trace }

// Request returns the inbound call.
func (rc *RequestContext) Request() Request { return rc.req }

// ServiceContext returns the service the call belongs to.
func (rc *RequestContext) ServiceContext() ServiceContext { return rc.svc }

// SetCheckContinuation arms the check guard.
func (rc *RequestContext) SetCheckContinuation(cb CheckContinuation) {
	rc.check.Arm(cb)
}

// CompleteCheck delivers the check decision to the armed continuation.
func (rc *RequestContext) CompleteCheck(st servicecontrol.Status) {
	rc.check.Complete(st)
}

// operationName is the method name, or a placeholder because reports
// cannot carry an unnamed operation.
func (rc *RequestContext) operationName() string {
	if rc.method != nil {
		return rc.method.Name()
	}
	return UnknownOperationName
}

func (rc *RequestContext) operationInfo() servicecontrol.OperationInfo {
	return servicecontrol.OperationInfo{
		ServiceName:       rc.svc.ServiceName(),
		OperationName:     rc.operationName(),
		OperationID:       rc.operationID,
		APIKey:            rc.apiKey,
		IsAPIKeyValid:     rc.apiKeyValid,
		ProducerProjectID: rc.svc.ProjectID(),
		Referer:           rc.httpReferer,
	}
}

// FillCheckRequestInfo populates the check record of the call.
func (rc *RequestContext) FillCheckRequestInfo(info *servicecontrol.CheckRequestInfo) {
	info.OperationInfo = rc.operationInfo()
	info.ClientIP = rc.req.ClientIP()
}

// FillReportRequestInfo populates the report record of the call. It must
// be called once resp is final.
func (rc *RequestContext) FillReportRequestInfo(resp Response, info *servicecontrol.ReportRequestInfo) {
	var methodName string
	if rc.method != nil {
		methodName = rc.method.Name()
	}

	*info = BuildReportInfo(ReportInputs{
		Operation:    rc.operationInfo(),
		MethodName:   methodName,
		HTTPMethod:   rc.req.HTTPMethod(),
		UnparsedPath: rc.req.UnparsedPath(),
		Protocol:     rc.req.Protocol(),
		RequestSize:  resp.RequestSize(),
		ResponseSize: resp.ResponseSize(),
		Status:       resp.Status(),
		Latency:      resp.LatencyInfo(),
		AuthIssuer:   rc.authIssuer,
		AuthAudience: rc.authAudience,
		Metadata:     rc.svc.Metadata(),
	})
}

// StartBackendSpan starts the span around the backend call. The caller
// ends it.
func (rc *RequestContext) StartBackendSpan() trace.Span {
	return rc.trace.StartSpan(BackendSpanName, trace.WithSpanKind(trace.SpanKindClient))
}
