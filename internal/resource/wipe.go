package resource

import (
	"context"
	"fmt"
	"os"

	"warren/internal/dependency"
	"warren/internal/host"
	"warren/internal/systemd"
	"warren/pkg/logging"
)

// WipeID is the node id of the database wipe, which only exists in a
// catalog when an authorized cookie change was detected.
const WipeID dependency.NodeID = "exec:wipe-mnesia"

// Wipe stops the broker and deletes its mnesia directory so the node can
// rejoin a cluster under a new Erlang cookie. It is destructive and never
// in sync: the catalog includes it only for a run that needs it.
type Wipe struct {
	Meta
	Service   string
	Manager   systemd.Manager
	MnesiaDir string
	Root      string
}

func (w *Wipe) ID() dependency.NodeID     { return WipeID }
func (w *Wipe) Kind() dependency.NodeKind { return dependency.KindExec }

func (w *Wipe) Check(_ context.Context) (Status, error) {
	var changes []string
	if w.Manager != nil {
		changes = append(changes, "stop "+w.Service)
	}
	changes = append(changes, "remove "+w.MnesiaDir)
	return outOfSync(changes...), nil
}

func (w *Wipe) Apply(ctx context.Context) error {
	if w.Manager != nil {
		logging.Warn("Wipe", "Stopping %s before removing %s", w.Service, w.MnesiaDir)
		if err := w.Manager.Stop(ctx, w.Service); err != nil {
			return fmt.Errorf("stop %s: %w", w.Service, err)
		}
	}
	if err := os.RemoveAll(host.Rooted(w.Root, w.MnesiaDir)); err != nil {
		return fmt.Errorf("remove %s: %w", w.MnesiaDir, err)
	}
	logging.Warn("Wipe", "Removed broker database %s", w.MnesiaDir)
	return nil
}
