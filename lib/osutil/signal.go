package osutil

import (
	"context"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is canceled when Ctrl+C is pressed or
// the process is asked to terminate, stop releases the signal handler.
func SignalContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
