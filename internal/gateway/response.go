package gateway

import (
	"io"
	"net/http"
	"sync/atomic"

	"github.com/vyrodovalexey/apimanager/internal/servicecontrol"
)

// countingBody counts the bytes read from a request body.
type countingBody struct {
	io.ReadCloser
	n atomic.Int64
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n.Add(int64(n))
	return n, err
}

// requestSize is the number of body bytes read, or the declared length
// when the body was never consumed.
func requestSize(r *http.Request, body *countingBody) int64 {
	if n := body.n.Load(); n > 0 {
		return n
	}
	if r.ContentLength > 0 {
		return r.ContentLength
	}
	return 0
}

// recorder captures the status code and size of a response while
// writing it through.
type recorder struct {
	http.ResponseWriter
	status      int
	size        int64
	wroteHeader bool
}

func newRecorder(w http.ResponseWriter) *recorder {
	return &recorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader captures the status code.
func (r *recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Write captures the response size.
func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += int64(n)
	return n, err
}

// Flush implements http.Flusher for streamed backend responses.
func (r *recorder) Flush() {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// callResponse is the finished call handed to the report.
type callResponse struct {
	requestSize  int64
	responseSize int64
	status       servicecontrol.Status
	latency      servicecontrol.LatencyInfo
}

func (c *callResponse) RequestSize() int64 {
	return c.requestSize
}

func (c *callResponse) ResponseSize() int64 {
	return c.responseSize
}

func (c *callResponse) Status() servicecontrol.Status {
	return c.status
}

func (c *callResponse) LatencyInfo() servicecontrol.LatencyInfo {
	return c.latency
}
