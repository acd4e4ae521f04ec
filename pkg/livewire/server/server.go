// Package server runs the connection loop around the http11 core: accept,
// tune, serve one goroutine per connection, and coordinate the shared timer
// wheel, routing table and configuration.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/livewire/pkg/livewire/encoding"
	"github.com/yourusername/livewire/pkg/livewire/http11"
	"github.com/yourusername/livewire/pkg/livewire/socket"
	"github.com/yourusername/livewire/pkg/livewire/timerwheel"
)

// Config holds server configuration.
type Config struct {
	// Addr is the TCP address to listen on.
	// Default: ":8080"
	Addr string

	// KeepAliveTimeout bounds idle time between requests and doubles as
	// the body-read wall-clock budget.
	// Default: 60 seconds
	KeepAliveTimeout time.Duration

	// MaxPostDataSize caps declared Content-Length; above it the request
	// answers 413 before any allocation.
	// Default: 10 MiB
	MaxPostDataSize int

	// AllowPostTempFile lets bodies of 1 MiB and up spool to an
	// unlinked temp-file mapping instead of the heap.
	AllowPostTempFile bool

	// AllowProxyProtocol enables PROXY v1/v2 preamble decoding on this
	// listener.
	AllowProxyProtocol bool

	// Authorizer backs routes flagged RouteAuth. Nil fails them closed.
	Authorizer http11.Authorizer

	// WebSocketHandler takes over the raw connection after a successful
	// upgrade. Nil closes upgraded connections immediately.
	WebSocketHandler func(net.Conn)

	// Compression enables response re-encoding on routes flagged for it.
	Compression bool

	// Socket tunes accepted sockets and the listener.
	// Default: socket.DefaultConfig()
	Socket *socket.Config

	// Logger receives accept-path and lifecycle events. The request hot
	// path never logs.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		KeepAliveTimeout: 60 * time.Second,
		MaxPostDataSize:  10 << 20,
		Socket:           socket.DefaultConfig(),
	}
}

// Server accepts connections and serves them through the request core.
type Server struct {
	cfg     Config
	routes  http11.RouteLookup
	encoder http11.BodyEncoder
	wheel   *timerwheel.Wheel
	log     *zap.Logger

	listener net.Listener
	conns    sync.WaitGroup
	closed   atomic.Bool
}

// New creates a server routing through routes. Zero-valued knobs in cfg take
// their defaults.
func New(cfg Config, routes http11.RouteLookup) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.KeepAliveTimeout == 0 {
		cfg.KeepAliveTimeout = def.KeepAliveTimeout
	}
	if cfg.MaxPostDataSize == 0 {
		cfg.MaxPostDataSize = def.MaxPostDataSize
	}
	if cfg.Socket == nil {
		cfg.Socket = socket.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		cfg:   cfg,
		log:   cfg.Logger,
		wheel: timerwheel.New(10*time.Millisecond, 512),
	}
	s.routes = routes
	if cfg.Compression {
		s.encoder = &encoding.Negotiator{}
	}
	return s
}

// ListenAndServe listens on the configured address and serves until
// Shutdown or a fatal accept error.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections from ln. It returns after Shutdown, or with the
// first non-temporary accept error.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	s.cfg.Socket.ApplyListener(ln)
	s.log.Info("serving", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			s.log.Error("accept failed", zap.Error(err))
			return err
		}

		s.cfg.Socket.Apply(conn)
		connectionsTotal.Inc()
		connectionsActive.Inc()

		c := newConnection(s, conn)
		s.conns.Add(1)
		go func() {
			defer func() {
				connectionsActive.Dec()
				s.conns.Done()
			}()
			c.serve()
		}()
	}
}

// Shutdown stops accepting and waits for active connections up to the
// context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.wheel.Stop()
		return ctx.Err()
	}
	s.wheel.Stop()
	s.log.Info("shutdown complete")
	return nil
}

// AuthorizerFunc adapts a function to the http11.Authorizer interface.
type AuthorizerFunc func(authorization []byte, realm, passwordFile string) bool

// Authorize calls f.
func (f AuthorizerFunc) Authorize(authorization []byte, realm, passwordFile string) bool {
	return f(authorization, realm, passwordFile)
}
