package middleware

// Header names and values used by the middleware.
const (
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderContentType   = "Content-Type"
	HeaderRetryAfter    = "Retry-After"

	ContentTypeJSON = "application/json"

	errInternal          = `{"code":500,"message":"internal server error"}`
	errRateLimitExceeded = `{"code":429,"message":"rate limit exceeded"}`
)
