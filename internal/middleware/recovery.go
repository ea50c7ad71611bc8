package middleware

import (
	"errors"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/vyrodovalexey/apimanager/internal/observability"
	"github.com/vyrodovalexey/apimanager/internal/util"
)

// Recovery returns a middleware that recovers from panics. A contract
// violation is a broken pipeline invariant and terminates the process
// through logger.Fatal.
func Recovery(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(rec)
				}

				fields := []observability.Field{
					observability.String("path", r.URL.Path),
					observability.String("method", r.Method),
					observability.Any("error", rec),
					observability.String("stack", string(debug.Stack())),
				}

				if err, ok := rec.(error); ok {
					var cv *util.ContractViolation
					if errors.As(err, &cv) {
						logger.Fatal("contract violation", fields...)
						return
					}
				}

				logger.Error("panic recovered", fields...)
				GetMiddlewareMetrics().panicsRecovered.Inc()

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, errInternal)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
