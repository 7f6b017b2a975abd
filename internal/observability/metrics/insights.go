// Package metrics emits standardised metrics for cache and job platform
// activity through a statsd sink.
package metrics

import (
	"time"

	obserrors "github.com/talentforge/insights/internal/observability/errors"
	"github.com/talentforge/insights/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultSuccess = "success"
	ResultError   = "error"
)

// EmitCacheLookup counts a score cache lookup outcome.
func EmitCacheLookup(sink statsd.Sink, result string) {
	if sink == nil {
		return
	}
	sink.Count("score_cache.lookup", 1, map[string]string{"result": result})
}

// EmitCacheStore counts a score cache write.
func EmitCacheStore(sink statsd.Sink) {
	if sink == nil {
		return
	}
	sink.Count("score_cache.store", 1, nil)
}

// SubmissionMetric captures a job submission event.
type SubmissionMetric struct {
	Kind     string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitSubmission emits submission count and duration metrics.
func EmitSubmission(sink statsd.Sink, in SubmissionMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"kind":   in.Kind,
		"result": in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.submission", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.submission_duration", in.Duration, CloneTags(tags))
	}
}

// AwaitMetric captures the outcome of one synchronous wait.
type AwaitMetric struct {
	Kind     string
	State    string
	Duration time.Duration
}

// EmitAwait emits wait outcome and duration metrics.
func EmitAwait(sink statsd.Sink, in AwaitMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"kind":  in.Kind,
		"state": in.State,
	}
	sink.Count("job.await", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.await_duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
