package reqctx

import (
	"github.com/vyrodovalexey/apimanager/internal/metadata"
	"github.com/vyrodovalexey/apimanager/internal/servicecontrol"
)

// Record constants.
const (
	UnknownOperationName = "<Unknown Operation Name>"
	UnknownHTTPVerb      = "<Unknown HTTP Verb>"

	successMessage = "Method: "
	failedMessage  = "Failed to call method: "
	skippedMessage = "Endpoints management skipped for an unrecognized HTTP call: "
)

// ReportInputs is everything a report record is built from.
type ReportInputs struct {
	Operation servicecontrol.OperationInfo

	// MethodName is empty when the call matched no method.
	MethodName string

	HTTPMethod   string
	UnparsedPath string
	Protocol     servicecontrol.Protocol

	RequestSize  int64
	ResponseSize int64
	Status       servicecontrol.Status
	Latency      servicecontrol.LatencyInfo

	AuthIssuer   string
	AuthAudience string

	Metadata metadata.Source
}

// BuildReportInfo assembles a report record. Location, compute platform
// and log message are derived after every other field is set.
func BuildReportInfo(in ReportInputs) servicecontrol.ReportRequestInfo {
	info := servicecontrol.ReportRequestInfo{
		OperationInfo: in.Operation,
		URL:           in.UnparsedPath,
		Method:        in.HTTPMethod,
		APIName:       in.Operation.ServiceName,
		APIMethod:     in.MethodName,
		RequestSize:   in.RequestSize,
		ResponseSize:  in.ResponseSize,
		Status:        in.Status,
		ResponseCode:  in.Status.HTTPCode(),
		Protocol:      in.Protocol,
		AuthIssuer:    in.AuthIssuer,
		AuthAudience:  in.AuthAudience,
		Latency:       in.Latency,
	}

	info.Location = metadata.Location(in.Metadata)
	info.ComputePlatform = metadata.Platform(in.Metadata)
	info.LogMessage = LogMessage(in.MethodName, info.ResponseCode, info.Method, info.URL)

	return info
}

// LogMessage describes a call for the log. methodName is empty for calls
// that matched no method.
func LogMessage(methodName string, responseCode int, httpMethod, unparsedPath string) string {
	if methodName != "" {
		if responseCode >= 400 {
			return failedMessage + methodName
		}
		return successMessage + methodName
	}

	if httpMethod == "" {
		httpMethod = UnknownHTTPVerb
	}
	return skippedMessage + httpMethod + " " + unparsedPath
}
