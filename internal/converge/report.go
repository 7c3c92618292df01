package converge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"warren/internal/dependency"
)

// EventType is the outcome of converging one resource.
type EventType string

const (
	EventUnchanged   EventType = "unchanged"
	EventChanged     EventType = "changed"
	EventWouldChange EventType = "would-change"
	EventRefreshed   EventType = "refreshed"
	EventFailed      EventType = "failed"
	EventSkipped     EventType = "skipped"
)

// Event records what happened to one resource.
type Event struct {
	Resource dependency.NodeID
	Kind     dependency.NodeKind
	Type     EventType
	Changes  []string
	Diff     string
	Err      error
	// Cause is the failed resource a skipped one depended on.
	Cause    dependency.NodeID
	Duration time.Duration
}

// Report is the result of one run.
type Report struct {
	RunID    string
	Noop     bool
	Started  time.Time
	Finished time.Time
	Events   []Event
}

// Count returns the number of events of type t.
func (r *Report) Count(t EventType) int {
	n := 0
	for _, ev := range r.Events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// Changes is the number of resources that changed or would change.
func (r *Report) Changes() int {
	return r.Count(EventChanged) + r.Count(EventRefreshed) + r.Count(EventWouldChange)
}

// Failed reports whether any resource failed or was skipped.
func (r *Report) Failed() bool {
	return r.Count(EventFailed)+r.Count(EventSkipped) > 0
}

// Err joins a *ResourceError for every failed resource, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, ev := range r.Events {
		if ev.Type == EventFailed {
			errs = append(errs, &ResourceError{ID: ev.Resource, Err: ev.Err})
		}
	}
	return errors.Join(errs...)
}

// Summary is a one-line account of the run.
func (r *Report) Summary() string {
	parts := []string{}
	for _, t := range []EventType{EventChanged, EventRefreshed, EventWouldChange, EventUnchanged, EventFailed, EventSkipped} {
		if n := r.Count(t); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	if len(parts) == 0 {
		return "no resources"
	}
	return strings.Join(parts, ", ")
}

// ResourceError is a failure of a single resource.
type ResourceError struct {
	ID  dependency.NodeID
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
