package meili

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrTransport    = errors.New("meili: transport failure")
	ErrService      = errors.New("meili: service error")
	ErrDecode       = errors.New("meili: decode failure")
	ErrTaskFailed   = errors.New("meili: task failed")
	ErrPollTimeout  = errors.New("meili: gave up waiting for task")
	ErrPrecondition = errors.New("meili: precondition violated")
)

// TransportError reports a failure before any HTTP response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: execute request: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ServiceError is a classified non-2xx response.
type ServiceError struct {
	Method     string
	Path       string
	HTTPStatus int
	// Code is empty when the server sent no code or one missing from the catalog.
	Code    ErrorCode
	RawCode string
	Message string
	Body    []byte
}

func (e *ServiceError) Error() string {
	if e.Method == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

func (e *ServiceError) Is(target error) bool { return target == ErrService }

// DecodeError reports a 2xx body that did not match the expected shape.
type DecodeError struct {
	Method string
	Path   string
	Body   []byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s: decode response: %v", e.Method, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error        { return e.Err }
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// TaskFailedError reports a polled task that reached the failed status.
type TaskFailedError struct {
	Task Task
	Err  *TaskError
}

func (e *TaskFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("task %d failed", e.Task.UID)
	}
	return fmt.Sprintf("task %d failed: %s", e.Task.UID, e.Err.Error())
}

func (e *TaskFailedError) Is(target error) bool { return target == ErrTaskFailed }

// TimeoutError reports an exhausted attempt budget. Last is the most recent
// non-terminal snapshot.
type TimeoutError struct {
	UID      int64
	Attempts int
	Last     Task
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %d still %s after %d attempts", e.UID, e.Last.Status, e.Attempts)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrPollTimeout }

// PreconditionError reports a task in a status the poller cannot work with:
// either the handed-in task was not pending, or a fetched snapshot carried no
// recognizable status.
type PreconditionError struct {
	UID     int64
	Status  TaskStatus
	Fetched bool
}

func (e *PreconditionError) Error() string {
	status := string(e.Status)
	if status == "" {
		status = "<none>"
	}
	if e.Fetched {
		return fmt.Sprintf("task %d reported unexpected status %s", e.UID, status)
	}
	return fmt.Sprintf("task %d must be enqueued or processing to await, got %s", e.UID, status)
}

func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

// IsNotFound reports whether err is a ServiceError with status 404.
func IsNotFound(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.HTTPStatus == http.StatusNotFound
}
