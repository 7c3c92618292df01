// Package hosttest provides a scripted host.Runner for provider tests.
package hosttest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"warren/internal/host"
)

type response struct {
	out string
	err error
}

// FakeRunner answers commands from a script keyed by the full command line
// ("name arg1 arg2"). Unscripted commands succeed with empty output unless
// Strict is set.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string][]response
	calls     []string
	Strict    bool
}

// NewFakeRunner returns an empty script.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string][]response)}
}

// On queues a response for line. Several responses for the same line are
// returned in order; the last one repeats.
func (f *FakeRunner) On(line, out string, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = append(f.responses[line], response{out: out, err: err})
	return f
}

// Run implements host.Runner.
func (f *FakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, line)

	queue, ok := f.responses[line]
	if !ok {
		if f.Strict {
			return nil, fmt.Errorf("unexpected command: %s", line)
		}
		return nil, nil
	}
	r := queue[0]
	if len(queue) > 1 {
		f.responses[line] = queue[1:]
	}
	return []byte(r.out), r.err
}

// Calls returns every command line run so far.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Ran reports whether line was run at least once.
func (f *FakeRunner) Ran(line string) bool {
	for _, c := range f.Calls() {
		if c == line {
			return true
		}
	}
	return false
}

// Exit builds the error ExecRunner returns for a non-zero exit status.
func Exit(code int, output string) error {
	return &host.CommandError{
		Command:  "fake",
		ExitCode: code,
		Output:   output,
		Err:      fmt.Errorf("exit status %d", code),
	}
}
