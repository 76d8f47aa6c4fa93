//go:build !linux

package logger

import "os"

// isTerminal is a conservative fallback for platforms without an ioctl
// probe: character devices are treated as terminals. The fd argument is
// kept for parity with the linux build, which probes the descriptor
// directly.
func isTerminal(_ uintptr) bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
