package resource

import (
	"context"
	"slices"

	"warren/internal/dependency"
	"warren/internal/rabbitctl"
)

// Plugin ensures a broker plugin is enabled.
type Plugin struct {
	Meta
	Name string
	Ctl  *rabbitctl.Ctl
}

func (p *Plugin) ID() dependency.NodeID     { return dependency.NodeID("plugin:" + p.Name) }
func (p *Plugin) Kind() dependency.NodeKind { return dependency.KindPlugin }

func (p *Plugin) Check(ctx context.Context) (Status, error) {
	enabled, err := p.Ctl.EnabledPlugins(ctx)
	if err != nil {
		return Status{}, err
	}
	if slices.Contains(enabled, p.Name) {
		return inSync(), nil
	}
	return outOfSync("enable plugin " + p.Name), nil
}

func (p *Plugin) Apply(ctx context.Context) error {
	return p.Ctl.EnablePlugin(ctx, p.Name)
}

// UserAbsent ensures a broker user does not exist. It is only put into a
// catalog when deleting the default user was explicitly requested.
type UserAbsent struct {
	Meta
	Name string
	Ctl  *rabbitctl.Ctl
}

func (u *UserAbsent) ID() dependency.NodeID     { return dependency.NodeID("user:" + u.Name) }
func (u *UserAbsent) Kind() dependency.NodeKind { return dependency.KindUser }

func (u *UserAbsent) Check(ctx context.Context) (Status, error) {
	present, err := u.Ctl.HasUser(ctx, u.Name)
	if err != nil {
		return Status{}, err
	}
	if !present {
		return inSync(), nil
	}
	return outOfSync("delete user " + u.Name), nil
}

func (u *UserAbsent) Apply(ctx context.Context) error {
	return u.Ctl.DeleteUser(ctx, u.Name)
}
