package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var signals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func Notify(ch chan os.Signal) {
	signal.Notify(ch, signals...)
}

// Context is cancelled on the first interrupt or termination signal.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}
