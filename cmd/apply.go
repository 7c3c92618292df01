package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"warren/internal/converge"
	"warren/internal/guard"
	"warren/internal/history"
	"warren/internal/metrics"
	"warren/internal/watch"
	"warren/pkg/logging"
)

// applier runs apply once or repeatedly under --watch.
type applier struct {
	noop        bool
	historyPath string
	metricsPath string
	out         io.Writer
	progress    io.Writer
}

func newApplyCmd() *cobra.Command {
	a := &applier{}
	var watchDescriptor bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Converge the host to the descriptor",
		Long: `Converges the host to the descriptor: installs the broker package,
writes the configuration files and the Erlang cookie, enables plugins and
starts or restarts the service as needed.

A run that would replace the Erlang cookie of an existing node stops before
touching anything unless cluster.wipeDBOnCookieChange is set.

Examples:
  warren apply
  warren apply --noop
  warren apply --watch --metrics-textfile /var/lib/node_exporter/warren.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			a.progress = cmd.ErrOrStderr()
			ctx := commandContext(cmd)
			if watchDescriptor {
				return a.watch(ctx)
			}
			return a.run(ctx)
		},
	}

	cmd.Flags().BoolVar(&a.noop, "noop", false, "Report what would change without changing anything")
	cmd.Flags().BoolVarP(&watchDescriptor, "watch", "w", false, "Keep running and converge again whenever the descriptor changes")
	cmd.Flags().StringVar(&a.historyPath, "history-db", history.DefaultPath, "Run journal location, empty to disable")
	cmd.Flags().StringVar(&a.metricsPath, "metrics-textfile", "", "Write Prometheus metrics for the run to this file")
	return cmd
}

func (a *applier) run(ctx context.Context) error {
	_, cat, cleanup, err := compile(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	label := "Converging"
	if a.noop {
		label = "Checking"
	}
	p := startProgress(a.progress, label+"...")
	engine := &converge.Engine{Noop: a.noop, Observer: p.Observe}
	report, err := engine.Run(ctx, cat.Resources)
	p.Stop()
	if err != nil {
		return err
	}

	printReport(a.out, report, false, false)
	runErr := report.Err()
	a.record(ctx, report, runErr)
	return runErr
}

// record journals the run and exports its metrics. Failures here never
// change the outcome of the run.
func (a *applier) record(ctx context.Context, report *converge.Report, runErr error) {
	if a.historyPath != "" {
		store, err := history.Open(a.historyPath)
		if err != nil {
			logging.Warn("Apply", "Not recording run history: %v", err)
		} else {
			defer store.Close()
			if err := store.Record(ctx, history.FromReport(report, descriptorPath, runErr)); err != nil {
				logging.Warn("Apply", "Not recording run history: %v", err)
			}
		}
	}

	if a.metricsPath != "" {
		m := metrics.New()
		m.Observe(report)
		if err := m.WriteTextfile(a.metricsPath); err != nil {
			logging.Warn("Apply", "%v", err)
		}
	}
}

// watch converges once, then again after every change to the descriptor,
// until interrupted. A refused cookie change or a failing run is logged and
// the watch continues, so fixing the descriptor is enough to recover.
func (a *applier) watch(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New([]string{descriptorPath}, 0)
	changes := make(chan watch.Change, 1)
	if err := w.Start(ctx, changes); err != nil {
		return fmt.Errorf("watch %s: %w", descriptorPath, err)
	}
	defer w.Stop()

	a.runLogged(ctx)
	watchIdentity(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-changes:
			logging.Info("Apply", "%s changed (%s), converging", c.Path, c.Operation)
			a.runLogged(ctx)
			watchIdentity(w)
		}
	}
}

// watchIdentity follows the age identity file the current descriptor names,
// which may change between runs.
func watchIdentity(w *watch.Watcher) {
	desc, err := loadDescriptor()
	if err != nil || desc.Cluster.AgeIdentityFile == "" {
		return
	}
	if err := w.Add(desc.Cluster.AgeIdentityFile); err != nil {
		logging.Warn("Apply", "Cannot watch %s: %v", desc.Cluster.AgeIdentityFile, err)
	}
}

func (a *applier) runLogged(ctx context.Context) {
	err := a.run(ctx)
	var mismatch *guard.MismatchError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.As(err, &mismatch):
		logging.Error("Apply", err, "Refusing to replace the Erlang cookie")
	default:
		logging.Error("Apply", err, "Run failed")
	}
}
