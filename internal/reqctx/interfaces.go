package reqctx

import (
	"github.com/vyrodovalexey/apimanager/internal/cloudtrace"
	"github.com/vyrodovalexey/apimanager/internal/metadata"
	"github.com/vyrodovalexey/apimanager/internal/router"
	"github.com/vyrodovalexey/apimanager/internal/servicecontrol"
)

// Request is the inbound call as seen by the coordinator.
type Request interface {
	HTTPMethod() string
	// Path is the decoded path used for method matching.
	Path() string
	// UnparsedPath is the raw request target including the query.
	UnparsedPath() string
	ClientIP() string
	Protocol() servicecontrol.Protocol
	FindHeader(name string) (string, bool)
	FindQuery(name string) (string, bool)
}

// Response is the finished call.
type Response interface {
	RequestSize() int64
	ResponseSize() int64
	Status() servicecontrol.Status
	LatencyInfo() servicecontrol.LatencyInfo
}

// ServiceContext is the long-lived, read-only service state shared by all
// calls.
type ServiceContext interface {
	ResolveMethod(httpMethod, path string) router.MatchResult
	ServiceName() string
	ProjectID() string
	Metadata() metadata.Source
	Tracer() *cloudtrace.Tracer
}
