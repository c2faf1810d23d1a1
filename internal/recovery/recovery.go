// Package recovery provides panic recovery for long-running goroutines.
package recovery

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/perimeterlab/udpbridge/internal/logging"
)

// LogPanic recovers from a panic in the calling goroutine and logs it
// with a stack trace. Defer it at the top of relay loops so a panic in
// one loop never takes the process down with it.
//
//	go func() {
//	    defer recovery.LogPanic(logger, "forward")
//	    // ...
//	}()
func LogPanic(logger *slog.Logger, name string) {
	if r := recover(); r != nil {
		logger.Error("panic recovered",
			logging.KeyComponent, name,
			logging.KeyError, fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()))
	}
}
