// Package host holds the thin seams between warren and the operating system:
// running commands and writing files.
package host

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"warren/pkg/logging"
)

// Runner runs external commands. Providers depend on this interface so that
// tests can substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Env is appended to the inherited environment.
	Env []string
}

// CommandError carries the output of a failed command.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, out)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Run executes name with args and returns its stdout. On failure the error
// is a *CommandError that includes stderr.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	logging.Debug("Exec", "Running %s", line)

	if err := cmd.Run(); err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return stdout.Bytes(), &CommandError{
			Command:  line,
			ExitCode: code,
			Output:   stderr.String() + stdout.String(),
			Err:      err,
		}
	}
	return stdout.Bytes(), nil
}
