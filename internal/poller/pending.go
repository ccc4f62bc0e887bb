package poller

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/five82/sift/internal/meili"
)

// Pending is the handle of an await running on its own goroutine.
type Pending struct {
	uid  int64
	done chan struct{}
	task meili.Task
	err  error
}

// Start runs Await on a new goroutine and returns immediately. The poll
// stops when ctx is cancelled, not when a caller stops waiting on it.
func (p *Poller) Start(ctx context.Context, task meili.Task, opts ...AwaitOption) *Pending {
	pending := &Pending{uid: task.UID, done: make(chan struct{})}
	go func() {
		defer close(pending.done)
		pending.task, pending.err = p.Await(ctx, task, opts...)
	}()
	return pending
}

// UID returns the awaited task uid.
func (w *Pending) UID() int64 {
	return w.uid
}

// Done is closed once the poll has finished.
func (w *Pending) Done() <-chan struct{} {
	return w.done
}

// Wait blocks until the poll finishes or ctx is done. Giving up on ctx only
// releases this caller; the poll keeps running.
func (w *Pending) Wait(ctx context.Context) (meili.Task, error) {
	select {
	case <-ctx.Done():
		return meili.Task{}, ctx.Err()
	case <-w.done:
		return w.task, w.err
	}
}

// AwaitAll waits for every task concurrently, running at most limit polls at
// once (no limit when limit <= 0). Results keep the order of tasks. The first
// failure cancels the remaining polls at their next suspension.
func (p *Poller) AwaitAll(ctx context.Context, tasks []meili.Task, limit int, opts ...AwaitOption) ([]meili.Task, error) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	results := make([]meili.Task, len(tasks))
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			done, err := p.Await(gctx, task, opts...)
			if err != nil {
				return err
			}
			results[i] = done
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
