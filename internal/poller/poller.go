package poller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/sift/internal/meili"
)

const (
	defaultInterval    = 5 * time.Second
	defaultMaxAttempts = 10
)

// Observation describes one tick of a poll loop.
type Observation struct {
	UID         int64
	Attempt     int
	MaxAttempts int // zero when attempts are unlimited
	Task        *meili.Task
	Err         error
	Done        bool
}

// Poller waits for tasks to reach a terminal status. A Poller holds no
// per-await state and is safe for concurrent use.
type Poller struct {
	fetcher     meili.TaskFetcher
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger
	observe     func(Observation)
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides the pause before each fetch.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts overrides the default attempt budget.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithLogger routes tick logging to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver registers fn to receive every Observation. fn is called from
// the polling goroutine and must not block.
func WithObserver(fn func(Observation)) Option {
	return func(p *Poller) {
		p.observe = fn
	}
}

// WithSleep replaces the suspension between ticks.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Poller) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// New builds a Poller around fetcher.
func New(fetcher meili.TaskFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:     fetcher,
		interval:    defaultInterval,
		maxAttempts: defaultMaxAttempts,
		logger:      zap.NewNop(),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type awaitConfig struct {
	attempts  int
	unlimited bool
}

// AwaitOption adjusts a single await.
type AwaitOption func(*awaitConfig)

// Unlimited disables the attempt budget.
func Unlimited() AwaitOption {
	return func(c *awaitConfig) { c.unlimited = true }
}

// Attempts overrides the attempt budget for one await.
func Attempts(n int) AwaitOption {
	return func(c *awaitConfig) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// Await blocks until task succeeds, fails, or the attempt budget runs out.
//
// Each tick first sleeps the full interval, then fetches the task once. Fetch
// errors end the wait immediately. Cancelling ctx is honored only while
// sleeping; a fetch already on the wire runs to completion.
func (p *Poller) Await(ctx context.Context, task meili.Task, opts ...AwaitOption) (meili.Task, error) {
	cfg := awaitConfig{attempts: p.maxAttempts}
	for _, opt := range opts {
		opt(&cfg)
	}

	budget := cfg.attempts
	if cfg.unlimited {
		budget = 0
	}

	if !task.Status.Pending() {
		violation := &meili.PreconditionError{UID: task.UID, Status: task.Status}
		p.emit(Observation{UID: task.UID, MaxAttempts: budget, Err: violation, Done: true})
		return meili.Task{}, violation
	}

	log := p.logger.With(zap.Int64("task_uid", task.UID))
	log.Debug("awaiting task", zap.String("status", string(task.Status)), zap.Int("max_attempts", budget))

	last := task
	for attempt := 1; cfg.unlimited || attempt <= cfg.attempts; attempt++ {
		if err := p.sleep(ctx, p.interval); err != nil {
			return meili.Task{}, fmt.Errorf("await task %d: %w", task.UID, err)
		}

		fetched, err := p.fetcher.Task(context.WithoutCancel(ctx), task.UID)
		if err != nil {
			p.emit(Observation{UID: task.UID, Attempt: attempt, MaxAttempts: budget, Err: err, Done: true})
			log.Warn("task fetch failed", zap.Int("attempt", attempt), zap.Error(err))
			return meili.Task{}, fmt.Errorf("await task %d: %w", task.UID, err)
		}
		snapshot := fetched
		log.Debug("polled task", zap.Int("attempt", attempt), zap.String("status", string(fetched.Status)))

		switch fetched.Status {
		case meili.TaskEnqueued, meili.TaskProcessing:
			p.emit(Observation{UID: task.UID, Attempt: attempt, MaxAttempts: budget, Task: &snapshot})
			last = fetched
		case meili.TaskSucceeded:
			p.emit(Observation{UID: task.UID, Attempt: attempt, MaxAttempts: budget, Task: &snapshot, Done: true})
			log.Info("task succeeded", zap.Int("attempt", attempt))
			return fetched, nil
		case meili.TaskFailed:
			failure := &meili.TaskFailedError{Task: fetched, Err: fetched.Error}
			p.emit(Observation{UID: task.UID, Attempt: attempt, MaxAttempts: budget, Task: &snapshot, Err: failure, Done: true})
			log.Warn("task failed", zap.Int("attempt", attempt), zap.Error(failure))
			return meili.Task{}, failure
		default:
			violation := &meili.PreconditionError{UID: task.UID, Status: fetched.Status, Fetched: true}
			p.emit(Observation{UID: task.UID, Attempt: attempt, MaxAttempts: budget, Task: &snapshot, Err: violation, Done: true})
			return meili.Task{}, violation
		}
	}

	timeout := &meili.TimeoutError{UID: task.UID, Attempts: cfg.attempts, Last: last}
	p.emit(Observation{UID: task.UID, Attempt: cfg.attempts, MaxAttempts: budget, Task: &last, Err: timeout, Done: true})
	log.Warn("gave up waiting for task", zap.Int("attempts", cfg.attempts))
	return meili.Task{}, timeout
}

func (p *Poller) emit(obs Observation) {
	if p.observe != nil {
		p.observe(obs)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
