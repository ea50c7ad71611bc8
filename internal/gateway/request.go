package gateway

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/vyrodovalexey/apimanager/internal/servicecontrol"
)

const grpcContentType = "application/grpc"

// ClientIPSource resolves the client address of a request.
type ClientIPSource interface {
	Extract(r *http.Request) string
}

// httpRequest adapts *http.Request to reqctx.Request.
type httpRequest struct {
	r        *http.Request
	query    url.Values
	clientIP string
}

func newHTTPRequest(r *http.Request, ips ClientIPSource) *httpRequest {
	return &httpRequest{
		r:        r,
		query:    r.URL.Query(),
		clientIP: ips.Extract(r),
	}
}

func (h *httpRequest) HTTPMethod() string {
	return h.r.Method
}

func (h *httpRequest) Path() string {
	return h.r.URL.Path
}

func (h *httpRequest) UnparsedPath() string {
	return h.r.URL.RequestURI()
}

func (h *httpRequest) ClientIP() string {
	return h.clientIP
}

func (h *httpRequest) Protocol() servicecontrol.Protocol {
	if strings.HasPrefix(h.r.Header.Get("Content-Type"), grpcContentType) {
		return servicecontrol.ProtocolGRPC
	}
	if h.r.TLS != nil {
		return servicecontrol.ProtocolHTTPS
	}
	return servicecontrol.ProtocolHTTP
}

func (h *httpRequest) FindHeader(name string) (string, bool) {
	values := h.r.Header.Values(name)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (h *httpRequest) FindQuery(name string) (string, bool) {
	values, ok := h.query[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
