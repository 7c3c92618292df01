// Package resource defines the units of desired state a catalog is made of
// and the providers-backed implementations warren ships: files, directories,
// the package, the service, plugins, users, downloads and the database wipe.
package resource

import (
	"context"

	"warren/internal/dependency"
)

// Status is the result of comparing a resource with the host.
type Status struct {
	InSync bool
	// Changes describes, one line each, what Apply would do.
	Changes []string
	// Diff is an optional content diff for files, empty for sensitive ones.
	Diff string
}

// Resource is one piece of desired state. Check must not modify the host;
// Apply must converge it and be safe to repeat.
type Resource interface {
	ID() dependency.NodeID
	Kind() dependency.NodeKind
	Requires() []dependency.NodeID
	Notifies() []dependency.NodeID
	Check(ctx context.Context) (Status, error)
	Apply(ctx context.Context) error
}

// Refresher is implemented by resources that react to a change in a
// resource that notifies them, like a service restarting when its config
// file changes.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Meta carries a resource's relationships. Concrete resources embed it.
type Meta struct {
	Require []dependency.NodeID
	Notify  []dependency.NodeID
}

func (m Meta) Requires() []dependency.NodeID { return m.Require }
func (m Meta) Notifies() []dependency.NodeID { return m.Notify }

func inSync() Status {
	return Status{InSync: true}
}

func outOfSync(changes ...string) Status {
	return Status{Changes: changes}
}
