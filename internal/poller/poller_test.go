package poller

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/five82/sift/internal/meili"
)

// fakeFetcher replays a status sequence per uid; the last status repeats.
type fakeFetcher struct {
	mu       sync.Mutex
	statuses map[int64][]meili.TaskStatus
	failure  *meili.TaskError
	err      error
	calls    map[int64]int
	onFetch  func(ctx context.Context)
}

func newFakeFetcher(uid int64, statuses ...meili.TaskStatus) *fakeFetcher {
	return &fakeFetcher{
		statuses: map[int64][]meili.TaskStatus{uid: statuses},
		calls:    map[int64]int{},
	}
}

func (f *fakeFetcher) Task(ctx context.Context, uid int64) (meili.Task, error) {
	if f.onFetch != nil {
		f.onFetch(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.calls[uid]
	f.calls[uid]++
	if f.err != nil {
		return meili.Task{}, f.err
	}
	seq := f.statuses[uid]
	status := seq[len(seq)-1]
	if n < len(seq) {
		status = seq[n]
	}
	task := meili.Task{UID: uid, IndexUID: "movies", Type: "documentAddition", Status: status}
	if status == meili.TaskFailed {
		task.Error = f.failure
	}
	return task, nil
}

func (f *fakeFetcher) callCount(uid int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[uid]
}

// fakeClock advances simulated time instead of sleeping.
type fakeClock struct {
	mu      sync.Mutex
	ticks   int
	elapsed time.Duration
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	c.elapsed += d
	return nil
}

func enqueued(uid int64) meili.Task {
	return meili.Task{UID: uid, IndexUID: "movies", Type: "documentAddition", Status: meili.TaskEnqueued}
}

func TestAwait_SucceedsAfterThreeTicks(t *testing.T) {
	fetcher := newFakeFetcher(1, meili.TaskEnqueued, meili.TaskProcessing, meili.TaskSucceeded)
	clock := &fakeClock{}
	p := New(fetcher, WithSleep(clock.sleep))

	got, err := p.Await(context.Background(), enqueued(1))
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if got.Status != meili.TaskSucceeded || got.UID != 1 {
		t.Fatalf("Await = %#v, want succeeded snapshot", got)
	}
	if clock.ticks != 3 || clock.elapsed != 15*time.Second {
		t.Fatalf("ticks = %d elapsed = %v, want 3 and 15s", clock.ticks, clock.elapsed)
	}
	if fetcher.callCount(1) != 3 {
		t.Fatalf("fetches = %d, want 3", fetcher.callCount(1))
	}
}

func TestAwait_FailedTaskCarriesServerError(t *testing.T) {
	payload := &meili.TaskError{Message: "bad id", Code: "invalid_document_id", Type: "invalid_request"}
	fetcher := newFakeFetcher(2, meili.TaskFailed)
	fetcher.failure = payload
	clock := &fakeClock{}
	p := New(fetcher, WithSleep(clock.sleep))

	_, err := p.Await(context.Background(), enqueued(2))
	var failed *meili.TaskFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("Await error = %v, want *TaskFailedError", err)
	}
	if failed.Err != payload {
		t.Fatalf("TaskFailedError.Err = %#v, want %#v", failed.Err, payload)
	}
	if clock.ticks != 1 {
		t.Fatalf("ticks = %d, want 1", clock.ticks)
	}
}

func TestAwait_GivesUpAfterDefaultAttempts(t *testing.T) {
	fetcher := newFakeFetcher(3, meili.TaskEnqueued)
	clock := &fakeClock{}
	p := New(fetcher, WithSleep(clock.sleep))

	_, err := p.Await(context.Background(), enqueued(3))
	var timeout *meili.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("Await error = %v, want *TimeoutError", err)
	}
	if timeout.Attempts != defaultMaxAttempts || timeout.Last.Status != meili.TaskEnqueued {
		t.Fatalf("TimeoutError = %+v", timeout)
	}
	if clock.ticks != 10 {
		t.Fatalf("ticks = %d, want 10", clock.ticks)
	}
	if fetcher.callCount(3) != 10 {
		t.Fatalf("fetches = %d, want 10", fetcher.callCount(3))
	}
}

func TestAwait_AttemptOverrides(t *testing.T) {
	fetcher := newFakeFetcher(4, meili.TaskProcessing)
	clock := &fakeClock{}
	p := New(fetcher, WithSleep(clock.sleep), WithMaxAttempts(4))

	if _, err := p.Await(context.Background(), enqueued(4)); !errors.Is(err, meili.ErrPollTimeout) {
		t.Fatalf("Await error = %v, want ErrPollTimeout", err)
	}
	if clock.ticks != 4 {
		t.Fatalf("ticks = %d, want 4", clock.ticks)
	}

	if _, err := p.Await(context.Background(), enqueued(4), Attempts(2)); !errors.Is(err, meili.ErrPollTimeout) {
		t.Fatalf("Await error = %v, want ErrPollTimeout", err)
	}
	if clock.ticks != 6 {
		t.Fatalf("ticks = %d, want 6", clock.ticks)
	}
}

func TestAwait_UnlimitedNeverGivesUp(t *testing.T) {
	statuses := make([]meili.TaskStatus, 0, 51)
	for i := 0; i < 50; i++ {
		statuses = append(statuses, meili.TaskProcessing)
	}
	statuses = append(statuses, meili.TaskSucceeded)
	fetcher := newFakeFetcher(5, statuses...)
	clock := &fakeClock{}
	p := New(fetcher, WithSleep(clock.sleep))

	got, err := p.Await(context.Background(), enqueued(5), Unlimited())
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if got.Status != meili.TaskSucceeded || clock.ticks != 51 {
		t.Fatalf("Await = %s after %d ticks, want succeeded after 51", got.Status, clock.ticks)
	}
}

func TestAwait_RejectsNonPendingStart(t *testing.T) {
	for _, status := range []meili.TaskStatus{meili.TaskSucceeded, meili.TaskFailed, ""} {
		t.Run(string(status), func(t *testing.T) {
			fetcher := newFakeFetcher(6, meili.TaskSucceeded)
			clock := &fakeClock{}
			p := New(fetcher, WithSleep(clock.sleep))

			task := enqueued(6)
			task.Status = status
			_, err := p.Await(context.Background(), task)
			var pre *meili.PreconditionError
			if !errors.As(err, &pre) || pre.Fetched {
				t.Fatalf("Await error = %v, want start PreconditionError", err)
			}
			if fetcher.callCount(6) != 0 || clock.ticks != 0 {
				t.Fatalf("fetches = %d ticks = %d, want none", fetcher.callCount(6), clock.ticks)
			}
		})
	}
}

func TestAwait_RejectedStartIsObservedAsDone(t *testing.T) {
	var seen []Observation
	fetcher := newFakeFetcher(9, meili.TaskSucceeded)
	clock := &fakeClock{}
	p := New(fetcher, WithSleep(clock.sleep), WithObserver(func(obs Observation) { seen = append(seen, obs) }))

	_, err := p.Await(context.Background(), meili.Task{UID: 9})
	if !errors.Is(err, meili.ErrPrecondition) {
		t.Fatalf("Await error = %v, want ErrPrecondition", err)
	}
	if len(seen) != 1 {
		t.Fatalf("observations = %d, want 1", len(seen))
	}
	obs := seen[0]
	if !obs.Done || obs.UID != 9 || obs.Attempt != 0 || obs.Task != nil {
		t.Fatalf("observation = %+v, want done at attempt 0 with no snapshot", obs)
	}
	if !errors.Is(obs.Err, meili.ErrPrecondition) {
		t.Fatalf("observation error = %v, want ErrPrecondition", obs.Err)
	}
	if fetcher.callCount(9) != 0 || clock.ticks != 0 {
		t.Fatalf("fetches = %d ticks = %d, want none", fetcher.callCount(9), clock.ticks)
	}
}

func TestAwait_MissingFetchedStatusIsProtocolViolation(t *testing.T) {
	fetcher := newFakeFetcher(7, meili.TaskEnqueued, "")
	p := New(fetcher, WithSleep((&fakeClock{}).sleep))

	_, err := p.Await(context.Background(), enqueued(7))
	var pre *meili.PreconditionError
	if !errors.As(err, &pre) || !pre.Fetched {
		t.Fatalf("Await error = %v, want fetched PreconditionError", err)
	}
	if errors.Is(err, meili.ErrPollTimeout) || errors.Is(err, meili.ErrTaskFailed) {
		t.Fatalf("Await error = %v matches another taxonomy entry", err)
	}
}

func TestAwait_FetchErrorAbortsWithoutRetry(t *testing.T) {
	fetcher := newFakeFetcher(8, meili.TaskEnqueued)
	fetcher.err = &meili.ServiceError{HTTPStatus: 404, Code: meili.CodeTaskNotFound, Message: "gone"}
	clock := &fakeClock{}
	p := New(fetcher, WithSleep(clock.sleep))

	_, err := p.Await(context.Background(), enqueued(8))
	var svcErr *meili.ServiceError
	if !errors.As(err, &svcErr) || svcErr.Code != meili.CodeTaskNotFound {
		t.Fatalf("Await error = %v, want wrapped ServiceError", err)
	}
	if errors.Is(err, meili.ErrPollTimeout) {
		t.Fatalf("fetch failure reported as timeout")
	}
	if fetcher.callCount(8) != 1 || clock.ticks != 1 {
		t.Fatalf("fetches = %d ticks = %d, want 1 and 1", fetcher.callCount(8), clock.ticks)
	}
}

func TestAwait_CancellationWaitsForInFlightFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := newFakeFetcher(9, meili.TaskEnqueued)
	var fetchCtxErr error
	fetcher.onFetch = func(fetchCtx context.Context) {
		cancel()
		fetchCtxErr = fetchCtx.Err()
	}
	clock := &fakeClock{}
	p := New(fetcher, WithSleep(clock.sleep))

	_, err := p.Await(ctx, enqueued(9))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Await error = %v, want context.Canceled", err)
	}
	if fetchCtxErr != nil {
		t.Fatalf("in-flight fetch saw %v, want an uncancelled context", fetchCtxErr)
	}
	if fetcher.callCount(9) != 1 {
		t.Fatalf("fetches = %d, want 1", fetcher.callCount(9))
	}
}

func TestAwait_ReportsObservationsAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var seen []Observation
	fetcher := newFakeFetcher(10, meili.TaskProcessing, meili.TaskSucceeded)
	p := New(fetcher,
		WithSleep((&fakeClock{}).sleep),
		WithLogger(zap.New(core)),
		WithObserver(func(o Observation) { seen = append(seen, o) }),
	)

	if _, err := p.Await(context.Background(), enqueued(10)); err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("observations = %d, want 2", len(seen))
	}
	if seen[0].Attempt != 1 || seen[0].Done || seen[0].Task.Status != meili.TaskProcessing {
		t.Fatalf("first observation = %+v", seen[0])
	}
	if seen[1].Attempt != 2 || !seen[1].Done || seen[1].MaxAttempts != defaultMaxAttempts {
		t.Fatalf("second observation = %+v", seen[1])
	}
	if logs.FilterMessage("task succeeded").Len() != 1 {
		t.Fatalf("missing success log, got %v", logs.All())
	}
}

func TestStart_JoinCancellationDoesNotStopPoll(t *testing.T) {
	release := make(chan struct{})
	sleep := func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-release:
			return nil
		}
	}
	fetcher := newFakeFetcher(11, meili.TaskSucceeded)
	p := New(fetcher, WithSleep(sleep))

	pending := p.Start(context.Background(), enqueued(11))
	if pending.UID() != 11 {
		t.Fatalf("UID = %d, want 11", pending.UID())
	}

	joinCtx, cancelJoin := context.WithCancel(context.Background())
	cancelJoin()
	if _, err := pending.Wait(joinCtx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait error = %v, want context.Canceled", err)
	}

	close(release)
	select {
	case <-pending.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("poll did not finish after join was abandoned")
	}
	got, err := pending.Wait(context.Background())
	if err != nil || got.Status != meili.TaskSucceeded {
		t.Fatalf("Wait = %#v, %v, want succeeded", got, err)
	}
}

func TestStart_PropagatesFailureToJoin(t *testing.T) {
	fetcher := newFakeFetcher(12, meili.TaskFailed)
	fetcher.failure = &meili.TaskError{Message: "boom", Code: "internal"}
	p := New(fetcher, WithSleep((&fakeClock{}).sleep))

	_, err := p.Start(context.Background(), enqueued(12)).Wait(context.Background())
	if !errors.Is(err, meili.ErrTaskFailed) {
		t.Fatalf("Wait error = %v, want ErrTaskFailed", err)
	}
}

func TestAwaitAll_PreservesOrderAndSurfacesFailure(t *testing.T) {
	fetcher := &fakeFetcher{
		statuses: map[int64][]meili.TaskStatus{
			20: {meili.TaskProcessing, meili.TaskSucceeded},
			21: {meili.TaskSucceeded},
			22: {meili.TaskEnqueued, meili.TaskProcessing, meili.TaskSucceeded},
		},
		calls: map[int64]int{},
	}
	p := New(fetcher, WithSleep((&fakeClock{}).sleep))

	got, err := p.AwaitAll(context.Background(), []meili.Task{enqueued(20), enqueued(21), enqueued(22)}, 2)
	if err != nil {
		t.Fatalf("AwaitAll returned error: %v", err)
	}
	uids := []int64{got[0].UID, got[1].UID, got[2].UID}
	if !reflect.DeepEqual(uids, []int64{20, 21, 22}) {
		t.Fatalf("AwaitAll uids = %v, want input order", uids)
	}

	fetcher.statuses[23] = []meili.TaskStatus{meili.TaskFailed}
	fetcher.failure = &meili.TaskError{Message: "nope"}
	_, err = p.AwaitAll(context.Background(), []meili.Task{enqueued(23)}, 0)
	if !errors.Is(err, meili.ErrTaskFailed) {
		t.Fatalf("AwaitAll error = %v, want ErrTaskFailed", err)
	}
}
