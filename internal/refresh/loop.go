package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/stacklok/catalog-ingester/internal/catalog"
)

// Loop is a running refresh loop. Once cancelled it cannot be restarted.
type Loop struct {
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}
}

// Cancel stops the loop. A cycle in progress runs to completion and no further
// cycle starts. Calling Cancel more than once has no further effect.
func (l *Loop) Cancel() {
	l.cancel()
}

// Trigger starts the next cycle without waiting for the rest of the interval.
// A trigger received while a cycle runs starts another one right after it.
// Triggers never interrupt a cycle and are dropped once the loop is cancelled.
func (l *Loop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// Done is closed once the loop has stopped
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Stop cancels the loop and waits for it to stop
func (l *Loop) Stop() {
	l.Cancel()
	<-l.done
}

// StartRefreshLoop runs a refresh cycle immediately and then again every
// interval until ctx is cancelled or the returned loop's Cancel is called.
// It returns without waiting for any cycle.
func (e *Engine) StartRefreshLoop(ctx context.Context) *Loop {
	loopCtx, cancel := context.WithCancel(ctx)
	loop := &Loop{
		cancel:  cancel,
		done:    make(chan struct{}),
		trigger: make(chan struct{}, 1),
	}

	go e.run(loopCtx, loop)
	return loop
}

func (e *Engine) run(ctx context.Context, loop *Loop) {
	defer close(loop.done)

	e.logger.Info("Refresh loop started", "interval", e.interval.String())
	defer e.logger.Info("Refresh loop stopped")

	// Cycles never observe the loop's cancellation; it is honoured between cycles only
	cycleCtx := context.WithoutCancel(ctx)

	timer := time.NewTimer(e.interval)
	defer timer.Stop()

	for {
		e.RefreshOnce(cycleCtx)

		if ctx.Err() != nil {
			return
		}

		timer.Reset(e.interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-loop.trigger:
			e.logger.Debug("Refresh cycle triggered early")
		}

		// Cancellation wins over a timer that fired at the same moment
		if ctx.Err() != nil {
			return
		}
	}
}

// RefreshOnce runs a single refresh cycle with default settings
func RefreshOnce(ctx context.Context, cat catalog.Catalog, reader LocationReader, logger *slog.Logger) {
	New(cat, reader, WithLogger(logger)).RefreshOnce(ctx)
}

// StartRefreshLoop starts a refresh loop with default settings and returns
// the function that cancels it
func StartRefreshLoop(cat catalog.Catalog, reader LocationReader, logger *slog.Logger) (cancel func()) {
	loop := New(cat, reader, WithLogger(logger)).StartRefreshLoop(context.Background())
	return loop.Cancel
}
