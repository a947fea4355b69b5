// internal/recovery/recovery.go
// Package recovery turns panics in main and background goroutines into a
// logged stack trace and a non-zero exit.
package recovery

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

// output and exit are swapped out by tests.
var (
	output io.Writer = os.Stderr
	exit             = os.Exit
)

// HandlePanic should be deferred at the top of main() or goroutines.
// It reports the panic with its stack and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		report(r)
		exit(1)
	}
}

// HandlePanicFunc reports the panic, runs cleanup, then exits with code 1.
// Used where a hardware resource must be released (GPIO pin, audio device).
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		report(r)
		if cleanup != nil {
			cleanup()
		}
		exit(1)
	}
}

// Go runs fn on a new goroutine guarded by HandlePanicFunc.
func Go(fn func(), cleanup func()) {
	go func() {
		defer HandlePanicFunc(cleanup)
		fn()
	}()
}

func report(r any) {
	_, _ = fmt.Fprintf(output, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
}
