// Package rabbitctl wraps the rabbitmqctl and rabbitmq-plugins command line
// tools shipped with the broker package.
package rabbitctl

import (
	"context"
	"fmt"
	"strings"

	"warren/internal/host"
	"warren/pkg/logging"
)

// Ctl runs broker administration commands through a host.Runner.
type Ctl struct {
	Runner      host.Runner
	CtlPath     string // rabbitmqctl
	PluginsPath string // rabbitmq-plugins
}

// New returns a Ctl that finds the tools on PATH.
func New(runner host.Runner) *Ctl {
	return &Ctl{Runner: runner, CtlPath: "rabbitmqctl", PluginsPath: "rabbitmq-plugins"}
}

// ListUsers returns the names of all broker users.
func (c *Ctl) ListUsers(ctx context.Context) ([]string, error) {
	out, err := c.Runner.Run(ctx, c.CtlPath, "-q", "list_users")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var users []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] == "user" || strings.HasPrefix(fields[0], "Listing") {
			continue
		}
		users = append(users, fields[0])
	}
	return users, nil
}

// HasUser reports whether name exists.
func (c *Ctl) HasUser(ctx context.Context, name string) (bool, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u == name {
			return true, nil
		}
	}
	return false, nil
}

// DeleteUser removes a broker user.
func (c *Ctl) DeleteUser(ctx context.Context, name string) error {
	logging.Info("RabbitCtl", "Deleting user %s", name)
	if _, err := c.Runner.Run(ctx, c.CtlPath, "delete_user", name); err != nil {
		return fmt.Errorf("delete user %s: %w", name, err)
	}
	return nil
}

// EnabledPlugins returns the explicitly enabled plugins.
func (c *Ctl) EnabledPlugins(ctx context.Context) ([]string, error) {
	out, err := c.Runner.Run(ctx, c.PluginsPath, "list", "-E", "-m")
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	var plugins []string
	for _, line := range strings.Split(string(out), "\n") {
		if p := strings.TrimSpace(line); p != "" {
			plugins = append(plugins, p)
		}
	}
	return plugins, nil
}

// EnablePlugin enables a plugin. --offline lets it run before the broker is
// up; the service restart that follows picks it up.
func (c *Ctl) EnablePlugin(ctx context.Context, name string) error {
	logging.Info("RabbitCtl", "Enabling plugin %s", name)
	if _, err := c.Runner.Run(ctx, c.PluginsPath, "enable", "--offline", name); err != nil {
		return fmt.Errorf("enable plugin %s: %w", name, err)
	}
	return nil
}
