// Package cloudtrace activates a per-call trace session from the
// X-Cloud-Trace-Context header and creates the spans of the call.
//
// The header has the form TRACE_ID[/SPAN_ID][;o=OPTIONS] where TRACE_ID is
// 32 hex digits, SPAN_ID is a decimal 64-bit integer and bit 1 of OPTIONS
// asks for the call to be traced.
package cloudtrace

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// HeaderName is the trace trigger header.
const HeaderName = "X-Cloud-Trace-Context"

const optionTraceEnabled = 1

// Header parse errors.
var (
	ErrEmptyHeader    = errors.New("empty trace header")
	ErrInvalidTraceID = errors.New("invalid trace id")
	ErrInvalidSpanID  = errors.New("invalid span id")
	ErrInvalidOptions = errors.New("invalid trace options")
)

// Header is a parsed trace header.
type Header struct {
	TraceID trace.TraceID
	// SpanID is zero when the header carries none.
	SpanID  uint64
	Enabled bool
}

// ParseHeader parses a trace header value.
func ParseHeader(value string) (Header, error) {
	var h Header

	value = strings.TrimSpace(value)
	if value == "" {
		return h, ErrEmptyHeader
	}

	ids, options, hasOptions := strings.Cut(value, ";")
	traceHex, spanDec, hasSpan := strings.Cut(ids, "/")

	if len(traceHex) != 32 {
		return h, fmt.Errorf("%w: %q", ErrInvalidTraceID, traceHex)
	}
	raw, err := hex.DecodeString(traceHex)
	if err != nil {
		return h, fmt.Errorf("%w: %q", ErrInvalidTraceID, traceHex)
	}
	copy(h.TraceID[:], raw)
	if !h.TraceID.IsValid() {
		return h, fmt.Errorf("%w: all zero", ErrInvalidTraceID)
	}

	if hasSpan && spanDec != "" {
		h.SpanID, err = strconv.ParseUint(spanDec, 10, 64)
		if err != nil {
			return h, fmt.Errorf("%w: %q", ErrInvalidSpanID, spanDec)
		}
	}

	if hasOptions {
		opt, ok := strings.CutPrefix(options, "o=")
		if !ok {
			return h, fmt.Errorf("%w: %q", ErrInvalidOptions, options)
		}
		bits, err := strconv.ParseUint(opt, 10, 32)
		if err != nil {
			return h, fmt.Errorf("%w: %q", ErrInvalidOptions, options)
		}
		h.Enabled = bits&optionTraceEnabled != 0
	}

	return h, nil
}

// SpanContext returns the remote parent described by the header. A header
// without a span id gets a random parent span id so the trace id is kept.
func (h Header) SpanContext() trace.SpanContext {
	var spanID trace.SpanID
	if h.SpanID != 0 {
		binary.BigEndian.PutUint64(spanID[:], h.SpanID)
	} else {
		_, _ = rand.Read(spanID[:])
	}

	var flags trace.TraceFlags
	if h.Enabled {
		flags = trace.FlagsSampled
	}

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    h.TraceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	})
}

// FormatHeader renders sc as a trace header, e.g. for the backend call.
func FormatHeader(sc trace.SpanContext) string {
	opt := 0
	if sc.IsSampled() {
		opt = optionTraceEnabled
	}
	spanID := sc.SpanID()
	return fmt.Sprintf("%s/%d;o=%d", sc.TraceID(), binary.BigEndian.Uint64(spanID[:]), opt)
}
