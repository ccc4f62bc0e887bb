// Package metrics instruments the meilisearch client and the task poller with
// prometheus collectors exposed through go-kit metric interfaces.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/sift/internal/meili"
	"github.com/five82/sift/internal/poller"
)

var (
	methodStatusError = []string{"method", "status", "error"}
	pollOutcome       = []string{"outcome"}
)

// Poll outcomes recorded in task_poll_count.
const (
	OutcomePending   = "pending"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeProtocol  = "protocol"
	OutcomeError     = "error"
)

// Metrics groups the collectors sift exports.
type Metrics struct {
	RequestCount    metrics.Counter
	RequestDuration metrics.Histogram
	PollCount       metrics.Counter

	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	polls     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(namespace, subsystem string, reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_count",
			Help:      "meilisearch request count",
		}, methodStatusError),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "meilisearch request duration",
			Buckets:   prometheus.DefBuckets,
		}, methodStatusError),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "task_poll_count",
			Help:      "task poll ticks by outcome",
		}, pollOutcome),
	}

	for _, c := range []prometheus.Collector{m.requests, m.durations, m.polls} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	m.RequestCount = kitprometheus.NewCounter(m.requests)
	m.RequestDuration = kitprometheus.NewHistogram(m.durations)
	m.PollCount = kitprometheus.NewCounter(m.polls)
	return m, nil
}

// Doer decorates next with the request collectors.
func (m *Metrics) Doer(next meili.Doer) meili.Doer {
	return InstrumentDoer(next, m.RequestCount, m.RequestDuration)
}

// ObservePoll records one poll observation. It has the signature expected by
// poller.WithObserver.
func (m *Metrics) ObservePoll(obs poller.Observation) {
	m.PollCount.With("outcome", Outcome(obs)).Add(1)
}

// Outcome names the result an observation represents.
func Outcome(obs poller.Observation) string {
	if !obs.Done {
		return OutcomePending
	}
	switch {
	case obs.Err == nil:
		return OutcomeSucceeded
	case errors.Is(obs.Err, meili.ErrTaskFailed):
		return OutcomeFailed
	case errors.Is(obs.Err, meili.ErrPollTimeout):
		return OutcomeTimeout
	case errors.Is(obs.Err, meili.ErrPrecondition):
		return OutcomeProtocol
	default:
		return OutcomeError
	}
}

// instrumentingDoer wraps a Doer and records request metrics.
type instrumentingDoer struct {
	reqCount    metrics.Counter
	reqDuration metrics.Histogram
	next        meili.Doer
}

// InstrumentDoer returns a Doer that counts and times every exchange made
// through next. Transport failures are recorded with an empty status.
func InstrumentDoer(next meili.Doer, reqCount metrics.Counter, reqDuration metrics.Histogram) meili.Doer {
	return &instrumentingDoer{
		reqCount:    reqCount,
		reqDuration: reqDuration,
		next:        next,
	}
}

func (d *instrumentingDoer) Do(req *http.Request) (resp *http.Response, err error) {
	defer func(startTime time.Time) {
		status := ""
		if resp != nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		labels := []string{
			"method", req.Method,
			"status", status,
			"error", strconv.FormatBool(err != nil || (resp != nil && resp.StatusCode >= http.StatusBadRequest)),
		}
		d.reqCount.With(labels...).Add(1)
		d.reqDuration.With(labels...).Observe(time.Since(startTime).Seconds())
	}(time.Now())
	return d.next.Do(req)
}
