// Package packages installs the broker package through the host's package
// manager.
package packages

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"warren/internal/host"
	"warren/pkg/logging"
)

// Manager queries and installs OS packages.
type Manager interface {
	// Name identifies the backend, e.g. "apt".
	Name() string
	// InstalledVersion returns the installed version, or "" if the package
	// is not installed.
	InstalledVersion(ctx context.Context, pkg string) (string, error)
	// CandidateVersion returns the version an unpinned install would pick.
	CandidateVersion(ctx context.Context, pkg string) (string, error)
	// Install installs pkg, pinned to version when it is not empty.
	Install(ctx context.Context, pkg, version string) error
}

// Detect picks a backend from an explicit name or, when name is empty, from
// the tools present on the host.
func Detect(name string, runner host.Runner) (Manager, error) {
	switch name {
	case "apt":
		return &Apt{Runner: runner}, nil
	case "yum":
		return &Yum{Runner: runner}, nil
	case "":
	default:
		return nil, fmt.Errorf("unsupported package manager %q", name)
	}

	if exists("/usr/bin/apt-get") {
		return &Apt{Runner: runner}, nil
	}
	if exists("/usr/bin/yum") || exists("/usr/bin/dnf") {
		return &Yum{Runner: runner}, nil
	}
	return nil, errors.New("no supported package manager found (looked for apt-get and yum)")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Apt drives dpkg-query and apt-get.
type Apt struct {
	Runner host.Runner
}

func (a *Apt) Name() string { return "apt" }

func (a *Apt) InstalledVersion(ctx context.Context, pkg string) (string, error) {
	out, err := a.Runner.Run(ctx, "dpkg-query", "-W", "-f=${Status}\t${Version}", pkg)
	if err != nil {
		var cmdErr *host.CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
			return "", nil
		}
		return "", err
	}
	status, version, ok := strings.Cut(strings.TrimSpace(string(out)), "\t")
	if !ok || !strings.HasSuffix(status, " installed") {
		return "", nil
	}
	return version, nil
}

func (a *Apt) CandidateVersion(ctx context.Context, pkg string) (string, error) {
	out, err := a.Runner.Run(ctx, "apt-cache", "policy", pkg)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Candidate:"); ok {
			v = strings.TrimSpace(v)
			if v == "(none)" {
				return "", fmt.Errorf("package %s has no installation candidate", pkg)
			}
			return v, nil
		}
	}
	return "", fmt.Errorf("no candidate line in apt-cache policy output for %s", pkg)
}

func (a *Apt) Install(ctx context.Context, pkg, version string) error {
	target := pkg
	if version != "" {
		target = pkg + "=" + version
	}
	logging.Info("Packages", "Installing %s with apt-get", target)
	_, err := a.Runner.Run(ctx, "apt-get", "install", "-y", "-q",
		"-o", "Dpkg::Options::=--force-confold", target)
	return err
}

// Yum drives rpm and yum.
type Yum struct {
	Runner host.Runner
}

func (y *Yum) Name() string { return "yum" }

func (y *Yum) InstalledVersion(ctx context.Context, pkg string) (string, error) {
	out, err := y.Runner.Run(ctx, "rpm", "-q", "--qf", "%{VERSION}-%{RELEASE}", pkg)
	if err != nil {
		var cmdErr *host.CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (y *Yum) CandidateVersion(ctx context.Context, pkg string) (string, error) {
	out, err := y.Runner.Run(ctx, "yum", "-q", "list", "available", "--showduplicates", pkg)
	if err != nil {
		var cmdErr *host.CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
			// Nothing newer than what is installed.
			return y.InstalledVersion(ctx, pkg)
		}
		return "", err
	}
	var latest string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && strings.HasPrefix(fields[0], pkg+".") {
			latest = fields[1]
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no available version of %s", pkg)
	}
	return latest, nil
}

func (y *Yum) Install(ctx context.Context, pkg, version string) error {
	target := pkg
	if version != "" {
		target = pkg + "-" + version
	}
	logging.Info("Packages", "Installing %s with yum", target)
	_, err := y.Runner.Run(ctx, "yum", "install", "-y", "-q", target)
	return err
}
