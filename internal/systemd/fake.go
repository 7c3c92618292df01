package systemd

import (
	"context"
	"fmt"
	"sync"
)

// FakeManager is an in-memory Manager for tests and --noop previews. It
// records every mutating call.
type FakeManager struct {
	mu      sync.Mutex
	active  map[string]bool
	enabled map[string]bool
	calls   []string

	// FailOn makes the named verb ("start", "restart", ...) fail.
	FailOn map[string]error
}

// NewFakeManager returns a manager where every unit is stopped and disabled.
func NewFakeManager() *FakeManager {
	return &FakeManager{
		active:  make(map[string]bool),
		enabled: make(map[string]bool),
		FailOn:  make(map[string]error),
	}
}

// SetActive seeds the running state of a unit.
func (f *FakeManager) SetActive(unit string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[UnitName(unit)] = active
}

// SetEnabled seeds the enabled state of a unit.
func (f *FakeManager) SetEnabled(unit string, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled[UnitName(unit)] = enabled
}

// Calls returns the mutating calls made so far, e.g. "restart rabbitmq-server.service".
func (f *FakeManager) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeManager) ActiveState(_ context.Context, unit string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active[UnitName(unit)] {
		return "active", nil
	}
	return "inactive", nil
}

func (f *FakeManager) IsEnabled(_ context.Context, unit string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled[UnitName(unit)], nil
}

func (f *FakeManager) Start(_ context.Context, unit string) error {
	return f.record("start", unit, func(u string) { f.active[u] = true })
}

func (f *FakeManager) Stop(_ context.Context, unit string) error {
	return f.record("stop", unit, func(u string) { f.active[u] = false })
}

func (f *FakeManager) Restart(_ context.Context, unit string) error {
	return f.record("restart", unit, func(u string) { f.active[u] = true })
}

func (f *FakeManager) Enable(_ context.Context, unit string) error {
	return f.record("enable", unit, func(u string) { f.enabled[u] = true })
}

func (f *FakeManager) record(verb, unit string, apply func(string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	unit = UnitName(unit)
	f.calls = append(f.calls, fmt.Sprintf("%s %s", verb, unit))
	if err := f.FailOn[verb]; err != nil {
		return err
	}
	apply(unit)
	return nil
}
