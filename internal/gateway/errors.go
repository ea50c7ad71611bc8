package gateway

import "errors"

// Sentinel errors for gateway operations.
var (
	// ErrListenerRunning indicates that Start was called on a running
	// listener.
	ErrListenerRunning = errors.New("listener is already running")

	// ErrNilBackend indicates that the handler was built without a
	// backend.
	ErrNilBackend = errors.New("backend is required")

	// ErrNilServices indicates that the handler was built without a
	// service holder.
	ErrNilServices = errors.New("service holder is required")
)
