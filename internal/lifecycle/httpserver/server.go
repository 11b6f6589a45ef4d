// Package httpserver is the reference EndToEnd server provider. It serves the
// http.Handler resolved from the invocation's facade on a local port.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"testrig/internal/lifecycle"
	"testrig/internal/service"
	"testrig/pkg/logging"
)

// Config is what Configure hands to Start.
type Config struct {
	Addr    string
	Handler http.Handler
}

// Handle is a running server.
type Handle struct {
	addr   net.Addr
	server *http.Server

	mu       sync.Mutex
	serveErr error
}

// BaseURL returns the http URL the server listens on.
func (h *Handle) BaseURL() string {
	return "http://" + h.addr.String()
}

// Addr returns the listen address.
func (h *Handle) Addr() net.Addr { return h.addr }

// Provider implements lifecycle.ServerProvider.
type Provider struct {
	// Addr defaults to 127.0.0.1:0.
	Addr string
	// HandlerName selects a named http.Handler binding.
	HandlerName string
}

func (p Provider) Configure(ctx context.Context, rc *lifecycle.Context) (any, error) {
	facade, ok := rc.Facade()
	if !ok {
		return nil, fmt.Errorf("server needs a container to resolve its handler")
	}
	var qualifiers []service.Qualifier
	if p.HandlerName != "" {
		qualifiers = append(qualifiers, service.Named(p.HandlerName))
	}
	handler, err := service.Get[http.Handler](facade, qualifiers...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve http.Handler: %w", err)
	}

	addr := p.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	return Config{Addr: addr, Handler: handler}, nil
}

func (p Provider) Start(ctx context.Context, rc *lifecycle.Context, raw any) (any, error) {
	cfg, ok := raw.(Config)
	if !ok {
		return nil, fmt.Errorf("expected httpserver.Config, got %T", raw)
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("no handler to serve")
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	h := &Handle{
		addr: listener.Addr(),
		server: &http.Server{
			Handler:           cfg.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	go func() {
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.mu.Lock()
			h.serveErr = err
			h.mu.Unlock()
			logging.Error("Server", err, "Server on %s stopped unexpectedly", h.addr)
		}
	}()

	logging.Info("Server", "Serving on %s", h.BaseURL())
	return h, nil
}

func (p Provider) Stop(ctx context.Context, handle any) error {
	h, ok := handle.(*Handle)
	if !ok {
		return fmt.Errorf("expected *httpserver.Handle, got %T", handle)
	}

	shutdownCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := h.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server on %s: %w", h.addr, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.serveErr
}
