// Package converge drives a set of resources to their desired state.
//
// Resources are visited one at a time in dependency order. Each is checked
// and, when out of sync, applied; in noop mode the pending change is only
// recorded. A failure skips everything that transitively depends on the
// failed resource. A resource that changed refreshes the resources it
// notifies, once, after they have been converged themselves.
package converge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warren/internal/dependency"
	"warren/internal/resource"
	"warren/pkg/logging"
)

// Engine runs resources. The zero value applies changes.
type Engine struct {
	Noop bool
	// Observer, when set, sees every event as soon as it is recorded.
	Observer func(Event)
}

// Run converges resources. The returned error covers problems with the set
// itself, like cycles, unknown references or cancellation; resource failures
// are in the report, see Report.Err.
func (e *Engine) Run(ctx context.Context, resources []resource.Resource) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Noop: e.Noop, Started: time.Now()}
	defer func() { report.Finished = time.Now() }()

	graph, byID, err := buildGraph(resources)
	if err != nil {
		return report, err
	}
	order, err := graph.TopologicalOrder()
	if err != nil {
		return report, err
	}

	logging.Info("Converge", "Run %s: %d resources (noop=%t)", report.RunID, len(order), e.Noop)

	refresh := make(map[dependency.NodeID]bool)
	cause := make(map[dependency.NodeID]dependency.NodeID)

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		r := byID[id]
		var ev Event
		if graph.Get(id).State == dependency.StateSkipped {
			ev = Event{Resource: id, Kind: r.Kind(), Type: EventSkipped, Cause: cause[id]}
		} else {
			ev = e.converge(ctx, r, refresh[id])
		}
		e.record(report, ev)

		switch ev.Type {
		case EventFailed:
			graph.SetState(id, dependency.StateFailed)
			for _, dep := range graph.TransitiveDependents(id) {
				if graph.Get(dep).State != dependency.StateSkipped {
					graph.SetState(dep, dependency.StateSkipped)
					cause[dep] = id
				}
			}
		case EventChanged, EventWouldChange:
			graph.SetState(id, dependency.StateChanged)
			for _, n := range r.Notifies() {
				refresh[n] = true
			}
		case EventRefreshed:
			graph.SetState(id, dependency.StateChanged)
		case EventUnchanged:
			graph.SetState(id, dependency.StateInSync)
		}
	}

	logging.Info("Converge", "Run %s finished: %s", report.RunID, report.Summary())
	return report, nil
}

func (e *Engine) converge(ctx context.Context, r resource.Resource, refresh bool) Event {
	start := time.Now()
	ev := Event{Resource: r.ID(), Kind: r.Kind(), Type: EventUnchanged}

	fail := func(err error) Event {
		ev.Type = EventFailed
		ev.Err = err
		ev.Duration = time.Since(start)
		return ev
	}

	st, err := r.Check(ctx)
	if err != nil {
		return fail(fmt.Errorf("check: %w", err))
	}
	if !st.InSync {
		ev.Changes = st.Changes
		ev.Diff = st.Diff
		if e.Noop {
			ev.Type = EventWouldChange
		} else {
			if err := r.Apply(ctx); err != nil {
				return fail(err)
			}
			ev.Type = EventChanged
		}
	}

	rf, ok := r.(resource.Refresher)
	if !refresh || !ok {
		ev.Duration = time.Since(start)
		return ev
	}
	if e.Noop {
		ev.Type = EventWouldChange
		ev.Changes = append(ev.Changes, "refresh")
	} else {
		if err := rf.Refresh(ctx); err != nil {
			return fail(fmt.Errorf("refresh: %w", err))
		}
		if ev.Type == EventUnchanged {
			ev.Type = EventRefreshed
		}
		ev.Changes = append(ev.Changes, "refresh")
	}
	ev.Duration = time.Since(start)
	return ev
}

func (e *Engine) record(report *Report, ev Event) {
	report.Events = append(report.Events, ev)

	switch ev.Type {
	case EventFailed:
		logging.Error("Converge", ev.Err, "%s failed", ev.Resource)
	case EventSkipped:
		logging.Warn("Converge", "%s skipped, %s failed", ev.Resource, ev.Cause)
	case EventUnchanged:
		logging.Debug("Converge", "%s unchanged", ev.Resource)
	default:
		logging.Info("Converge", "%s %s: %v", ev.Resource, ev.Type, ev.Changes)
	}

	if e.Observer != nil {
		e.Observer(ev)
	}
}

func buildGraph(resources []resource.Resource) (*dependency.Graph, map[dependency.NodeID]resource.Resource, error) {
	graph := dependency.New()
	byID := make(map[dependency.NodeID]resource.Resource, len(resources))

	for _, r := range resources {
		if _, dup := byID[r.ID()]; dup {
			return nil, nil, fmt.Errorf("duplicate resource %s", r.ID())
		}
		byID[r.ID()] = r
	}
	for _, r := range resources {
		for _, ref := range append(r.Requires(), r.Notifies()...) {
			if _, ok := byID[ref]; !ok {
				return nil, nil, fmt.Errorf("%s references unknown resource %s", r.ID(), ref)
			}
		}
		// A notified resource must converge after its notifier.
		var notifiedBy []dependency.NodeID
		for _, other := range resources {
			for _, n := range other.Notifies() {
				if n == r.ID() {
					notifiedBy = append(notifiedBy, other.ID())
				}
			}
		}
		graph.AddNode(dependency.Node{
			ID:           r.ID(),
			FriendlyName: string(r.ID()),
			Kind:         r.Kind(),
			DependsOn:    append(append([]dependency.NodeID{}, r.Requires()...), notifiedBy...),
		})
	}
	return graph, byID, nil
}
