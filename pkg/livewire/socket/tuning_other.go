//go:build !linux

package socket

// Non-Linux platforms get only the portable options from tuning.go.

func applyConnOptions(fd int, cfg *Config) {}

func applyListenerOptions(fd int, cfg *Config) {}
