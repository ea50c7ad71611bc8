// Package router resolves an HTTP verb and path to a configured API
// method.
//
// Methods are registered with URL templates:
//
//	/v1/shelves                      literal
//	/v1/shelves/{shelf}              single-segment variable
//	/v1/{name=shelves/*}             variable bound to a sub-template
//	/v1/files/{path=**}              variable bound to the remaining path
//	/v1/operations/{op}:cancel       custom verb
//	/v1/*/books                      unnamed single-segment wildcard
//
// Resolve always extracts variable bindings on a match, even when the
// caller has no use for them. Matching is paid for once; extracting the
// bindings later would mean matching the path a second time.
package router
