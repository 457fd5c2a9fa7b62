// Package cli holds process-level helpers shared by the commands.
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
)

// ErrInterrupted is the cancellation cause of a context stopped by a
// signal. Check it with Interrupted.
var ErrInterrupted = errors.New("interrupted by signal")

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The run
// then has gracePeriod to finalize its report; a second signal within the
// period exits immediately with status 1.
//
//	ctx, cancel := cli.SignalContext(defaults.ShutdownGrace, os.Stderr)
//	defer cancel()
func SignalContext(gracePeriod time.Duration, notice io.Writer) (context.Context, context.CancelFunc) {
	return signalContextWithNotifier(gracePeriod, notice, nil, nil)
}

// Interrupted reports whether ctx was cancelled by a signal.
func Interrupted(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrInterrupted)
}

// signalContextWithNotifier lets tests supply the signal channel and the
// exit function.
func signalContextWithNotifier(
	gracePeriod time.Duration,
	notice io.Writer,
	sigChan chan os.Signal,
	exitFn func(int),
) (context.Context, context.CancelFunc) {
	ctx, cancelCause := context.WithCancelCause(context.Background())
	cancel := func() { cancelCause(context.Canceled) }

	ownChannel := sigChan == nil
	if ownChannel {
		sigChan = make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	}
	if exitFn == nil {
		exitFn = os.Exit
	}
	if notice == nil {
		notice = io.Discard
	}

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(notice)
			fmt.Fprintln(notice, "Interrupt received, finishing the report (press Ctrl+C again to quit)...")
			cancelCause(ErrInterrupted)

			select {
			case <-sigChan:
				exitFn(1)
			case <-time.After(gracePeriod):
			}
		case <-ctx.Done():
		}
		if ownChannel {
			signal.Stop(sigChan)
		}
	}()

	return ctx, cancel
}
