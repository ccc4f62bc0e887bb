package meili

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus is the lifecycle state reported for an asynchronous task.
// The zero value means the server did not report a status.
type TaskStatus string

const (
	TaskEnqueued   TaskStatus = "enqueued"
	TaskProcessing TaskStatus = "processing"
	TaskSucceeded  TaskStatus = "succeeded"
	TaskFailed     TaskStatus = "failed"
)

// Valid reports whether s is one of the statuses the server may send.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskEnqueued, TaskProcessing, TaskSucceeded, TaskFailed:
		return true
	default:
		return false
	}
}

// Pending reports whether the task has not reached a terminal status yet.
func (s TaskStatus) Pending() bool {
	return s == TaskEnqueued || s == TaskProcessing
}

// Terminal reports whether the task finished, successfully or not.
func (s TaskStatus) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// UnmarshalJSON rejects statuses outside the known set.
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status := TaskStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("unrecognized task status %q", raw)
	}
	*s = status
	return nil
}

// TaskError mirrors the error object the server embeds in failed tasks and
// in non-2xx response bodies.
type TaskError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type,omitempty"`
	Link    string `json:"link,omitempty"`
}

func (e *TaskError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Task is one snapshot of an asynchronous server-side operation.
type Task struct {
	UID        int64           `json:"uid"`
	IndexUID   string          `json:"indexUid"`
	Type       string          `json:"type"`
	Status     TaskStatus      `json:"status,omitempty"`
	Error      *TaskError      `json:"error,omitempty"`
	Duration   string          `json:"duration,omitempty"`
	EnqueuedAt *time.Time      `json:"enqueuedAt,omitempty"`
	StartedAt  *time.Time      `json:"startedAt,omitempty"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// UnmarshalJSON accepts the summary form returned by newer servers on
// enqueue, which reports the identifier as taskUid.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var wire struct {
		plain
		TaskUID *int64 `json:"taskUid"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*t = Task(wire.plain)
	if wire.TaskUID != nil && t.UID == 0 {
		t.UID = *wire.TaskUID
	}
	return nil
}

// TaskList mirrors /tasks and /indexes/{uid}/tasks.
type TaskList struct {
	Results []Task `json:"results"`
	Limit   int    `json:"limit,omitempty"`
	From    *int64 `json:"from,omitempty"`
	Next    *int64 `json:"next,omitempty"`
}

// TasksQuery filters /tasks requests.
type TasksQuery struct {
	IndexUIDs []string
	Statuses  []TaskStatus
	Types     []string
	Limit     int
	From      int64
}

// Version mirrors /version.
type Version struct {
	CommitSHA  string `json:"commitSha"`
	CommitDate string `json:"commitDate"`
	PkgVersion string `json:"pkgVersion"`
}

// Health mirrors /health.
type Health struct {
	Status string `json:"status"`
}

// Index describes a named document collection.
type Index struct {
	UID        string     `json:"uid"`
	Name       string     `json:"name,omitempty"`
	PrimaryKey string     `json:"primaryKey,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// Dump describes a snapshot export job.
type Dump struct {
	UID        string     `json:"uid"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// DocumentsQuery configures document listing.
type DocumentsQuery struct {
	Limit  int
	Offset int
	Fields []string
}

// SearchRequest is the body of POST /indexes/{uid}/search.
type SearchRequest struct {
	Query                 string   `json:"q"`
	Offset                int      `json:"offset,omitempty"`
	Limit                 int      `json:"limit,omitempty"`
	Filter                any      `json:"filter,omitempty"`
	Facets                []string `json:"facets,omitempty"`
	AttributesToRetrieve  []string `json:"attributesToRetrieve,omitempty"`
	AttributesToCrop      []string `json:"attributesToCrop,omitempty"`
	CropLength            int      `json:"cropLength,omitempty"`
	AttributesToHighlight []string `json:"attributesToHighlight,omitempty"`
	ShowMatchesPosition   bool     `json:"showMatchesPosition,omitempty"`
	Sort                  []string `json:"sort,omitempty"`
}

// SearchResponse carries typed hits.
type SearchResponse[T any] struct {
	Hits               []T                       `json:"hits"`
	Query              string                    `json:"query"`
	Offset             int                       `json:"offset"`
	Limit              int                       `json:"limit"`
	EstimatedTotalHits int64                     `json:"estimatedTotalHits"`
	ProcessingTimeMS   int64                     `json:"processingTimeMs"`
	FacetDistribution  map[string]map[string]int `json:"facetDistribution,omitempty"`
}
