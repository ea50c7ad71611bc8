// Package reqctx is the per-call coordinator of the gateway.
//
// A RequestContext is created for every inbound call. Construction is
// synchronous and does no I/O: it assigns an operation id, resolves the
// target method, resolves the API key when a method matched, captures the
// referer and opens a trace session. The context then guards the single
// completion of the asynchronous check and assembles the check and report
// records once the response is known.
//
// A RequestContext belongs to one call. Only the check guard may be
// touched from another goroutine.
package reqctx
