package servicecontrol

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Status is the outcome of a call or a check. It carries a canonical code
// and, for calls answered over HTTP, the exact HTTP code.
type Status struct {
	st       *status.Status
	httpCode int
}

// OK returns the success status.
func OK() Status {
	return Status{}
}

// NewStatus creates a status with a canonical code.
func NewStatus(code codes.Code, msg string) Status {
	return Status{st: status.New(code, msg)}
}

// FromGRPC wraps a gRPC status.
func FromGRPC(st *status.Status) Status {
	return Status{st: st}
}

// FromError converts an error to a status. Errors that carry a gRPC
// status keep their code; any other error is Unknown.
func FromError(err error) Status {
	if err == nil {
		return OK()
	}
	st, _ := status.FromError(err)
	return Status{st: st}
}

// StatusFromHTTP creates a status for an HTTP response code.
func StatusFromHTTP(httpCode int, msg string) Status {
	return Status{st: status.New(CodeFromHTTP(httpCode), msg), httpCode: httpCode}
}

// CodeFromHTTP maps an HTTP status code to a canonical code.
func CodeFromHTTP(httpCode int) codes.Code {
	switch httpCode {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.Aborted
	case http.StatusRequestedRangeNotSatisfiable:
		return codes.OutOfRange
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case 499:
		return codes.Canceled
	case http.StatusNotImplemented:
		return codes.Unimplemented
	case http.StatusServiceUnavailable:
		return codes.Unavailable
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	}

	switch {
	case httpCode >= 200 && httpCode < 400:
		return codes.OK
	case httpCode >= 400 && httpCode < 500:
		return codes.FailedPrecondition
	case httpCode >= 500 && httpCode < 600:
		return codes.Internal
	}
	return codes.Unknown
}

// Code returns the canonical code.
func (s Status) Code() codes.Code {
	if s.st == nil {
		return codes.OK
	}
	return s.st.Code()
}

// Message returns the status message.
func (s Status) Message() string {
	if s.st == nil {
		return ""
	}
	return s.st.Message()
}

// IsOK reports whether the status is a success.
func (s Status) IsOK() bool {
	return s.Code() == codes.OK
}

// HTTPCode returns the recorded HTTP code, or the code derived from the
// canonical code when none was recorded.
func (s Status) HTTPCode() int {
	if s.httpCode != 0 {
		return s.httpCode
	}
	return runtime.HTTPStatusFromCode(s.Code())
}

// Err returns the status as an error, or nil for success.
func (s Status) Err() error {
	if s.IsOK() {
		return nil
	}
	return s.st.Err()
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if s.Message() == "" {
		return s.Code().String()
	}
	return fmt.Sprintf("%s: %s", s.Code(), s.Message())
}

type statusJSON struct {
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
	HTTPCode int    `json:"http_code"`
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{
		Code:     s.Code().String(),
		Message:  s.Message(),
		HTTPCode: s.HTTPCode(),
	})
}
