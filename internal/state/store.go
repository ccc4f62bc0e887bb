package state

import (
	"bytes"
	"sync"
	"time"

	"github.com/five82/sift/internal/meili"
	"github.com/five82/sift/internal/poller"
)

// Progress is the latest known state of one awaited task.
type Progress struct {
	UID         int64
	Task        meili.Task
	HasTask     bool
	Attempt     int
	MaxAttempts int // zero when unlimited
	Err         error
	Done        bool
	LastUpdated time.Time
}

// Succeeded reports whether the await finished without error.
func (p Progress) Succeeded() bool {
	return p.Done && p.Err == nil
}

// Snapshot is a point-in-time copy of every tracked task.
type Snapshot struct {
	Tasks       []Progress
	LastUpdated time.Time
}

// Done reports whether every tracked await has finished. An empty snapshot
// is not done.
func (s Snapshot) Done() bool {
	if len(s.Tasks) == 0 {
		return false
	}
	for _, p := range s.Tasks {
		if !p.Done {
			return false
		}
	}
	return true
}

// Failures counts finished awaits that ended in an error.
func (s Snapshot) Failures() int {
	n := 0
	for _, p := range s.Tasks {
		if p.Done && p.Err != nil {
			n++
		}
	}
	return n
}

// Store collects poll observations for concurrent readers.
type Store struct {
	mu          sync.RWMutex
	order       []int64
	tasks       map[int64]Progress
	lastUpdated time.Time
}

// Track registers uids so they show up before their first tick. Tracking is
// idempotent and keeps first-seen order.
func (s *Store) Track(uids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range uids {
		s.ensure(uid)
	}
}

// Update folds one observation into the store. A fetch error without a task
// snapshot keeps the previously seen task.
func (s *Store) Update(obs poller.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.ensure(obs.UID)
	if obs.Task != nil {
		p.Task = cloneTask(*obs.Task)
		p.HasTask = true
	}
	p.Attempt = obs.Attempt
	p.MaxAttempts = obs.MaxAttempts
	p.Err = obs.Err
	p.Done = obs.Done
	p.LastUpdated = time.Now()

	s.tasks[obs.UID] = p
	s.lastUpdated = p.LastUpdated
}

// Snapshot returns a copy of the current state in tracking order.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{LastUpdated: s.lastUpdated}
	if len(s.order) == 0 {
		return snap
	}
	snap.Tasks = make([]Progress, 0, len(s.order))
	for _, uid := range s.order {
		p := s.tasks[uid]
		p.Task = cloneTask(p.Task)
		snap.Tasks = append(snap.Tasks, p)
	}
	return snap
}

// ensure must be called with the write lock held.
func (s *Store) ensure(uid int64) Progress {
	if s.tasks == nil {
		s.tasks = make(map[int64]Progress)
	}
	p, ok := s.tasks[uid]
	if !ok {
		p = Progress{UID: uid}
		s.tasks[uid] = p
		s.order = append(s.order, uid)
	}
	return p
}

func cloneTask(t meili.Task) meili.Task {
	if t.Error != nil {
		taskErr := *t.Error
		t.Error = &taskErr
	}
	if t.Details != nil {
		t.Details = bytes.Clone(t.Details)
	}
	return t
}
