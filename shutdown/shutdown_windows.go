//go:build windows

// Package shutdown registers the signals that should end a recording
// run cleanly, so an in-flight session can be finalized before exit.
package shutdown

import (
	"os"
	"os/signal"
)

// SIGTERM is not deliverable on Windows; interrupt covers console
// close and ctrl+c.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
