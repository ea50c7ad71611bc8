// Package gateway wires the per-call pipeline of the API manager into
// net/http.
//
// For every inbound call the Handler builds a request context, asks the
// service control client whether the call may proceed, forwards it to the
// backend inside a Backend span, and finally sends the report record of
// the call. Calls that match no configured method skip the check and are
// forwarded as is.
package gateway
