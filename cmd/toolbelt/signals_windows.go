//go:build windows

package main

import (
	"os"
	"syscall"
)

// getShutdownSignals returns the signals that cancel a running command
// on Windows.
func getShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}
