// internal/recovery/recovery.go
package recovery

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
)

// HandlePanic should be deferred at the top of main().
// It writes the panic and stack to stderr and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
		os.Exit(1)
	}
}

// HandlePanicFunc should be deferred at the top of goroutines. It logs the
// panic through log (stderr when nil), runs cleanup, and exits with code 1.
//
//	go func() {
//		defer recovery.HandlePanicFunc(log, func() { close(done) })
//		l.sample(ctx, units)
//	}()
func HandlePanicFunc(log *slog.Logger, cleanup func()) {
	if r := recover(); r != nil {
		stack := debug.Stack()
		if log != nil {
			log.Error("FATAL: goroutine panicked", "panic", fmt.Sprint(r), "stack", string(stack))
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
		}
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}
