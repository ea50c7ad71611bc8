// Package proxy forwards calls to the backend of the managed API.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/observability"
)

// hopHeaders are headers that should not be forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ReverseProxy forwards calls to a single backend.
type ReverseProxy struct {
	target    *url.URL
	timeout   time.Duration
	transport http.RoundTripper
	logger    observability.Logger
	metrics   *proxyMetrics
	proxy     *httputil.ReverseProxy
}

// ProxyOption is a functional option for configuring the proxy.
type ProxyOption func(*ReverseProxy)

// WithProxyLogger sets the logger for the proxy.
func WithProxyLogger(logger observability.Logger) ProxyOption {
	return func(p *ReverseProxy) {
		p.logger = logger
	}
}

// WithTransport sets the transport for the proxy.
func WithTransport(transport http.RoundTripper) ProxyOption {
	return func(p *ReverseProxy) {
		p.transport = transport
	}
}

// New creates a proxy for the configured backend.
func New(cfg config.BackendConfig, opts ...ProxyOption) (*ReverseProxy, error) {
	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, NewInvalidTargetError(cfg.URL, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, NewInvalidTargetError(cfg.URL, errors.New("scheme and host are required"))
	}

	p := &ReverseProxy{
		target:  target,
		timeout: cfg.Timeout.OrDefault(config.DefaultBackendTimeout),
		logger:  observability.NopLogger(),
		metrics: getProxyMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.proxy = &httputil.ReverseProxy{
		Rewrite:      p.rewrite,
		Transport:    p.transport,
		ErrorHandler: p.handleError,
	}
	return p, nil
}

// ServeHTTP forwards r to the backend.
func (p *ReverseProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	p.proxy.ServeHTTP(w, r.WithContext(ctx))

	p.metrics.backendDuration.WithLabelValues(p.target.Host).Observe(time.Since(start).Seconds())
}

// rewrite points the outbound request at the backend.
func (p *ReverseProxy) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(p.target)
	pr.SetXForwarded()
	pr.Out.Host = p.target.Host

	for _, h := range hopHeaders {
		pr.Out.Header.Del(h)
	}
}

func (p *ReverseProxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	errorType := "connection"
	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = "timeout"
		status = http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		errorType = "canceled"
		status = 499
	}

	p.metrics.errorsTotal.WithLabelValues(p.target.Host, errorType).Inc()
	p.logger.Error("backend call failed",
		observability.String("backend", p.target.Host),
		observability.String("path", r.URL.Path),
		observability.Error(NewProxyError("forward", p.target.String(), err)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"code":%d,"message":%q}`, status, http.StatusText(status))
}

// Target returns the backend URL.
func (p *ReverseProxy) Target() *url.URL {
	return p.target
}
