// Package systemd controls the broker service through systemd's D-Bus API.
package systemd

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"

	"warren/pkg/logging"
)

// Manager is the slice of service-manager behaviour warren needs.
type Manager interface {
	// ActiveState returns the unit's ActiveState ("active", "inactive",
	// "failed", ...).
	ActiveState(ctx context.Context, unit string) (string, error)
	// IsEnabled reports whether the unit starts at boot.
	IsEnabled(ctx context.Context, unit string) (bool, error)
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	Restart(ctx context.Context, unit string) error
	Enable(ctx context.Context, unit string) error
}

// UnitName appends ".service" when name has no unit suffix.
func UnitName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

// DBusManager implements Manager over a system bus connection.
type DBusManager struct {
	conn *dbus.Conn
}

// NewDBusManager connects to the system bus.
func NewDBusManager(ctx context.Context) (*DBusManager, error) {
	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	return &DBusManager{conn: conn}, nil
}

// Close releases the bus connection.
func (m *DBusManager) Close() {
	m.conn.Close()
}

func (m *DBusManager) ActiveState(ctx context.Context, unit string) (string, error) {
	unit = UnitName(unit)
	statuses, err := m.conn.ListUnitsByNamesContext(ctx, []string{unit})
	if err != nil {
		return "", fmt.Errorf("query %s: %w", unit, err)
	}
	if len(statuses) == 0 {
		return "inactive", nil
	}
	return statuses[0].ActiveState, nil
}

func (m *DBusManager) IsEnabled(ctx context.Context, unit string) (bool, error) {
	unit = UnitName(unit)
	prop, err := m.conn.GetUnitPropertyContext(ctx, unit, "UnitFileState")
	if err != nil {
		return false, fmt.Errorf("query %s UnitFileState: %w", unit, err)
	}
	state, _ := prop.Value.Value().(string)
	return state == "enabled" || state == "enabled-runtime" || state == "static", nil
}

func (m *DBusManager) Start(ctx context.Context, unit string) error {
	return m.job(ctx, "start", unit, m.conn.StartUnitContext)
}

func (m *DBusManager) Stop(ctx context.Context, unit string) error {
	return m.job(ctx, "stop", unit, m.conn.StopUnitContext)
}

func (m *DBusManager) Restart(ctx context.Context, unit string) error {
	return m.job(ctx, "restart", unit, m.conn.RestartUnitContext)
}

func (m *DBusManager) Enable(ctx context.Context, unit string) error {
	unit = UnitName(unit)
	if _, _, err := m.conn.EnableUnitFilesContext(ctx, []string{unit}, false, false); err != nil {
		return fmt.Errorf("enable %s: %w", unit, err)
	}
	if err := m.conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("reload systemd after enabling %s: %w", unit, err)
	}
	return nil
}

type jobFunc func(ctx context.Context, name string, mode string, ch chan<- string) (int, error)

// job submits a unit job and waits for systemd to report its result.
func (m *DBusManager) job(ctx context.Context, verb, unit string, submit jobFunc) error {
	unit = UnitName(unit)
	done := make(chan string, 1)
	if _, err := submit(ctx, unit, "replace", done); err != nil {
		return fmt.Errorf("%s %s: %w", verb, unit, err)
	}

	select {
	case result := <-done:
		logging.Debug("Systemd", "%s %s: %s", verb, unit, result)
		if result != "done" {
			return fmt.Errorf("%s %s: job finished with result %q", verb, unit, result)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s %s: %w", verb, unit, ctx.Err())
	}
}
