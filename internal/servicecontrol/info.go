package servicecontrol

import "time"

// ComputePlatform is the inferred hosting environment of the gateway.
type ComputePlatform int

// Compute platforms.
const (
	PlatformUnknown ComputePlatform = iota
	PlatformGAE
	PlatformGKE
	PlatformGCE
)

var platformNames = map[ComputePlatform]string{
	PlatformUnknown: "UNKNOWN",
	PlatformGAE:     "GAE",
	PlatformGKE:     "GKE",
	PlatformGCE:     "GCE",
}

// String returns the reported name of the platform.
func (p ComputePlatform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return platformNames[PlatformUnknown]
}

// MarshalText implements encoding.TextMarshaler.
func (p ComputePlatform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Protocol is the wire protocol of a call.
type Protocol int

// Protocols.
const (
	ProtocolUnknown Protocol = iota
	ProtocolHTTP
	ProtocolHTTPS
	ProtocolGRPC
)

var protocolNames = map[Protocol]string{
	ProtocolUnknown: "UNKNOWN",
	ProtocolHTTP:    "HTTP",
	ProtocolHTTPS:   "HTTPS",
	ProtocolGRPC:    "GRPC",
}

// String returns the reported name of the protocol.
func (p Protocol) String() string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return protocolNames[ProtocolUnknown]
}

// MarshalText implements encoding.TextMarshaler.
func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// LatencyInfo splits the time spent on a call.
type LatencyInfo struct {
	// RequestTime is the total time from receiving the request to
	// sending the response.
	RequestTime time.Duration `json:"request_time"`
	// BackendTime is the time spent waiting for the backend.
	BackendTime time.Duration `json:"backend_time"`
	// OverheadTime is the time spent in the gateway itself.
	OverheadTime time.Duration `json:"overhead_time"`
}

// OperationInfo holds the fields shared by check and report records.
type OperationInfo struct {
	ServiceName       string `json:"service_name"`
	OperationName     string `json:"operation_name"`
	OperationID       string `json:"operation_id"`
	APIKey            string `json:"api_key,omitempty"`
	IsAPIKeyValid     bool   `json:"is_api_key_valid"`
	ProducerProjectID string `json:"producer_project_id"`
	Referer           string `json:"referer,omitempty"`
}

// CheckRequestInfo is the record sent to authorize a call.
type CheckRequestInfo struct {
	OperationInfo
	ClientIP string `json:"client_ip"`
}

// ReportRequestInfo is the record sent after a call was served.
type ReportRequestInfo struct {
	OperationInfo

	URL       string `json:"url"`
	Method    string `json:"method"`
	APIName   string `json:"api_name"`
	APIMethod string `json:"api_method,omitempty"`

	RequestSize  int64  `json:"request_size"`
	ResponseSize int64  `json:"response_size"`
	Status       Status `json:"status"`
	ResponseCode int    `json:"response_code"`

	Protocol        Protocol        `json:"protocol"`
	Location        string          `json:"location"`
	ComputePlatform ComputePlatform `json:"compute_platform"`

	AuthIssuer   string `json:"auth_issuer,omitempty"`
	AuthAudience string `json:"auth_audience,omitempty"`

	Latency    LatencyInfo `json:"latency"`
	LogMessage string      `json:"log_message"`
}

// CheckResponseInfo is the decision returned by a check.
type CheckResponseInfo struct {
	IsAPIKeyValid      bool   `json:"is_api_key_valid"`
	ServiceIsActivated bool   `json:"service_is_activated"`
	ConsumerProjectID  string `json:"consumer_project_id,omitempty"`
}
