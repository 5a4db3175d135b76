package studentsync

import (
	"context"
	"time"
)

// Task is the polling loop of an active engine.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Activate refreshes immediately and then once per interval until the task
// is stopped or ctx is cancelled. Ticks that find a refresh in flight are skipped.
func (e *Engine) Activate(ctx context.Context) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		e.log.Debug().Dur("interval", e.interval).Msg("polling started")
		defer e.log.Debug().Msg("polling stopped")

		e.tryRefresh(ctx)

		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.tryRefresh(ctx)
			}
		}
	}()

	return t
}

// Stop cancels the loop and waits for it to exit.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed once the loop has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
