package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/waftester/reconsuite/pkg/defaults"
)

// ErrInterrupted is the context cause after SIGINT or SIGTERM.
var ErrInterrupted = errors.New("interrupted")

// SignalContext returns a context cancelled on SIGINT/SIGTERM with cause
// ErrInterrupted. A second signal within gracePeriod exits the process with
// defaults.ExitInternalError instead of waiting for in-flight categories.
//
//	ctx, cancel := cli.SignalContext(duration.ShutdownGrace)
//	defer cancel()
func SignalContext(gracePeriod time.Duration) (context.Context, context.CancelFunc) {
	return signalContext(gracePeriod, nil, nil, os.Stderr)
}

// signalContext is SignalContext with its signal source, exit function and
// message sink injectable. A nil sigChan subscribes to the real signals.
func signalContext(
	gracePeriod time.Duration,
	sigChan chan os.Signal,
	exitFn func(int),
	stderr io.Writer,
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(context.Background())

	ownChannel := sigChan == nil
	if ownChannel {
		sigChan = make(chan os.Signal, 2)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	}
	if exitFn == nil {
		exitFn = os.Exit
	}

	go func() {
		defer func() {
			if ownChannel {
				signal.Stop(sigChan)
			}
		}()

		var sig os.Signal
		select {
		case sig = <-sigChan:
		case <-ctx.Done():
			return
		}
		fmt.Fprintf(stderr, "\n%s received, waiting for in-flight categories (again to force)\n", sig)
		cancel(fmt.Errorf("%w: %s", ErrInterrupted, sig))

		select {
		case <-sigChan:
			fmt.Fprintln(stderr, "forced exit")
			exitFn(defaults.ExitInternalError)
		case <-time.After(gracePeriod):
		}
	}()

	return ctx, func() { cancel(context.Canceled) }
}
