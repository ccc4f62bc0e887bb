package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/five82/sift/internal/config"
	"github.com/five82/sift/internal/meili"
	"github.com/five82/sift/internal/metrics"
	"github.com/five82/sift/internal/poller"
	"github.com/five82/sift/internal/prefs"
	"github.com/five82/sift/internal/state"
	"github.com/five82/sift/internal/ui"
)

// maxConcurrentAwaits bounds the polls a single wait command runs at once.
const maxConcurrentAwaits = 4

// newPoller builds the poller every command shares. Each tick feeds both the
// watch store and the poll counter.
func newPoller(cfg config.Config, fetcher meili.TaskFetcher, store *state.Store, m *metrics.Metrics, logger *zap.Logger) *poller.Poller {
	return poller.New(fetcher,
		poller.WithInterval(cfg.PollInterval),
		poller.WithMaxAttempts(cfg.PollAttempts),
		poller.WithLogger(logger.Named("poller")),
		poller.WithObserver(func(obs poller.Observation) {
			m.ObservePoll(obs)
			store.Update(obs)
		}),
	)
}

// awaitEnqueued waits for a task returned by a mutation. Enqueue responses
// from older servers carry no status; those tasks are enqueued by definition.
func awaitEnqueued(ctx context.Context, e *env, task meili.Task) (meili.Task, error) {
	if task.Status == "" {
		task.Status = meili.TaskEnqueued
	}
	return e.poller.Await(ctx, task)
}

// awaitTasks waits for every task and reports each outcome on out.
func awaitTasks(ctx context.Context, e *env, tasks []meili.Task, opts ...poller.AwaitOption) error {
	done, err := e.poller.AwaitAll(ctx, tasks, maxConcurrentAwaits, opts...)
	if err != nil {
		return err
	}
	for _, task := range done {
		printOutcome(e.stdout, task)
	}
	return nil
}

// watchTasks starts one poll per task and renders their progress until all
// finish. Quitting the view stops the polls at their next interval.
func watchTasks(ctx context.Context, e *env, tasks []meili.Task, opts ...poller.AwaitOption) error {
	pollCtx, cancelPolls := context.WithCancel(ctx)
	defer cancelPolls()

	pending := make([]*poller.Pending, 0, len(tasks))
	for _, task := range tasks {
		e.store.Track(task.UID)
	}
	for _, task := range tasks {
		pending = append(pending, e.poller.Start(pollCtx, task, opts...))
	}

	result, err := ui.Run(ctx, ui.Options{
		Store:     e.store,
		ThemeName: e.prefs.Theme,
		Output:    e.stderr,
	})
	if result.ThemeName != "" && result.ThemeName != e.prefs.Theme {
		if _, saveErr := prefs.Update(e.prefsPath, func(p *prefs.Prefs) { p.Theme = result.ThemeName }); saveErr != nil {
			e.logger.Warn("save theme", zap.Error(saveErr))
		}
	}
	if err != nil {
		return err
	}
	if result.Aborted {
		cancelPolls()
	}

	var failures []error
	for _, p := range pending {
		task, err := p.Wait(ctx)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		printOutcome(e.stdout, task)
	}
	if result.Aborted {
		return fmt.Errorf("watch aborted with %d task(s) unfinished", countUnfinished(e.store.Snapshot()))
	}
	return errors.Join(failures...)
}

func countUnfinished(snap state.Snapshot) int {
	n := 0
	for _, p := range snap.Tasks {
		if !p.Done {
			n++
		}
	}
	return n
}

func printOutcome(out io.Writer, task meili.Task) {
	line := fmt.Sprintf("task %d %s", task.UID, task.Status)
	if task.Duration != "" {
		line += " in " + task.Duration
	}
	fmt.Fprintln(out, line)
}
