package resource

import (
	"context"
	"fmt"

	"warren/internal/config"
	"warren/internal/dependency"
	"warren/internal/systemd"
	"warren/pkg/logging"
)

// Service ensures the broker service is running or stopped and enabled at
// boot, and restarts it when a resource that notifies it changes.
type Service struct {
	Meta
	Name    string
	Ensure  string // running or stopped
	Enable  bool
	Manager systemd.Manager

	// started is set when Apply started the service in this run; a refresh
	// right after a fresh start would be a redundant restart.
	started bool
}

func (s *Service) ID() dependency.NodeID     { return dependency.NodeID("service:" + s.Name) }
func (s *Service) Kind() dependency.NodeKind { return dependency.KindService }

func (s *Service) Check(ctx context.Context) (Status, error) {
	active, err := s.isActive(ctx)
	if err != nil {
		return Status{}, err
	}

	var changes []string
	wantRunning := s.Ensure == config.ServiceRunning
	if wantRunning && !active {
		changes = append(changes, "start "+s.Name)
	}
	if !wantRunning && active {
		changes = append(changes, "stop "+s.Name)
	}

	if s.Enable {
		enabled, err := s.Manager.IsEnabled(ctx, s.Name)
		if err != nil {
			return Status{}, err
		}
		if !enabled {
			changes = append(changes, "enable "+s.Name)
		}
	}

	if len(changes) == 0 {
		return inSync(), nil
	}
	return outOfSync(changes...), nil
}

func (s *Service) Apply(ctx context.Context) error {
	if s.Enable {
		enabled, err := s.Manager.IsEnabled(ctx, s.Name)
		if err != nil {
			return err
		}
		if !enabled {
			if err := s.Manager.Enable(ctx, s.Name); err != nil {
				return err
			}
		}
	}

	active, err := s.isActive(ctx)
	if err != nil {
		return err
	}
	switch {
	case s.Ensure == config.ServiceRunning && !active:
		if err := s.Manager.Start(ctx, s.Name); err != nil {
			return err
		}
		s.started = true
	case s.Ensure == config.ServiceStopped && active:
		return s.Manager.Stop(ctx, s.Name)
	}
	return nil
}

// Refresh restarts a running service. It is a no-op when the service should
// be stopped or was started by this run already.
func (s *Service) Refresh(ctx context.Context) error {
	if s.Ensure != config.ServiceRunning {
		return nil
	}
	if s.started {
		logging.Debug("Service", "Skipping restart of %s, it was started in this run", s.Name)
		return nil
	}
	logging.Info("Service", "Restarting %s", s.Name)
	return s.Manager.Restart(ctx, s.Name)
}

func (s *Service) isActive(ctx context.Context) (bool, error) {
	state, err := s.Manager.ActiveState(ctx, s.Name)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", s.Name, err)
	}
	return state == "active" || state == "activating" || state == "reloading", nil
}
