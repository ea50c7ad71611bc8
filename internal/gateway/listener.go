package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/observability"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	maxHeaderBytes    = 1 << 20
)

// Listener serves one handler on one address. It can be started once
// at a time; Stop drains in-flight calls.
type Listener struct {
	name    string
	config  config.ListenConfig
	handler http.Handler
	logger  observability.Logger

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
	served chan error
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the logger.
func WithListenerLogger(logger observability.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a listener. name only labels log lines.
func NewListener(name string, cfg config.ListenConfig, handler http.Handler, opts ...ListenerOption) *Listener {
	l := &Listener{
		name:    name,
		config:  cfg,
		handler: handler,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start binds the address and serves in the background.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		return fmt.Errorf("%w: %s", ErrListenerRunning, l.name)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.config.Address, err)
	}

	srv := &http.Server{
		Handler:           l.handler,
		ReadTimeout:       l.config.ReadTimeout.OrDefault(config.DefaultReadTimeout),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      l.config.WriteTimeout.OrDefault(config.DefaultWriteTimeout),
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
	served := make(chan error, 1)

	l.server, l.addr, l.served = srv, ln.Addr(), served

	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			l.logger.Error("listener failed", observability.String("name", l.name), observability.Error(err))
		}
		served <- err
	}()

	l.logger.Info("listener started",
		observability.String("name", l.name),
		observability.String("address", ln.Addr().String()),
	)
	return nil
}

// Stop stops accepting connections and waits, within ctx, for calls in
// flight. When ctx expires the remaining connections are closed.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	srv, served := l.server, l.served
	l.server, l.served = nil, nil
	l.mu.Unlock()

	if srv == nil {
		return nil
	}

	l.logger.Info("stopping listener", observability.String("name", l.name))

	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		<-served
		return fmt.Errorf("listener %s did not drain: %w", l.name, err)
	}
	if err := <-served; err != nil {
		return fmt.Errorf("listener %s: %w", l.name, err)
	}

	l.logger.Info("listener stopped", observability.String("name", l.name))
	return nil
}

// Addr returns the bound address, or nil before the first Start.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

// IsRunning reports whether the listener has been started and not
// stopped.
func (l *Listener) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.server != nil
}
