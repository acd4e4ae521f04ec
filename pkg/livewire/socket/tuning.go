// Package socket applies socket options on the accept path. The defaults
// favor request latency: Nagle off, sized kernel buffers, keepalive on.
// Platform-specific options live in tuning_linux.go and tuning_other.go.
package socket

import (
	"net"
	"syscall"
)

// Config is the socket tuning applied to accepted connections and the
// listener. Zero values mean "system default".
type Config struct {
	// NoDelay disables Nagle's algorithm.
	NoDelay bool

	// RecvBuffer and SendBuffer size the kernel buffers (SO_RCVBUF /
	// SO_SNDBUF) in bytes.
	RecvBuffer int
	SendBuffer int

	// DeferAccept keeps the accept loop asleep until request data
	// arrives (Linux only).
	DeferAccept bool

	// KeepAlive enables TCP keepalive probing.
	KeepAlive bool
}

// DefaultConfig returns the recommended tuning for HTTP workloads.
func DefaultConfig() *Config {
	return &Config{
		NoDelay:     true,
		RecvBuffer:  256 * 1024,
		SendBuffer:  256 * 1024,
		DeferAccept: true,
		KeepAlive:   true,
	}
}

// Apply tunes an accepted connection. Options that fail are skipped: tuning
// is best-effort and never rejects a connection.
func (cfg *Config) Apply(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}

	_ = tc.SetNoDelay(cfg.NoDelay)
	_ = tc.SetKeepAlive(cfg.KeepAlive)
	if cfg.RecvBuffer > 0 {
		_ = tc.SetReadBuffer(cfg.RecvBuffer)
	}
	if cfg.SendBuffer > 0 {
		_ = tc.SetWriteBuffer(cfg.SendBuffer)
	}

	if raw, err := tc.SyscallConn(); err == nil {
		_ = raw.Control(func(fd uintptr) {
			applyConnOptions(int(fd), cfg)
		})
	}
}

// ApplyListener tunes the listening socket.
func (cfg *Config) ApplyListener(ln net.Listener) {
	tl, ok := ln.(*net.TCPListener)
	if !ok {
		return
	}
	raw, err := tl.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
		applyListenerOptions(int(fd), cfg)
	})
}
