//go:build linux

package socket

import "golang.org/x/sys/unix"

// applyConnOptions sets Linux per-connection options.
func applyConnOptions(fd int, cfg *Config) {
	// TCP_QUICKACK is not persistent; setting it once at accept is a
	// best-effort latency win on the first exchange.
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1)

	if cfg.KeepAlive {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, 60)
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, 10)
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 3)
	}
}

// applyListenerOptions sets Linux listener options.
func applyListenerOptions(fd int, cfg *Config) {
	if cfg.DeferAccept {
		// Wake the accept loop only when request bytes arrive.
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 5)
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}
