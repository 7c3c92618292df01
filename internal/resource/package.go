package resource

import (
	"context"
	"fmt"

	"warren/internal/config"
	"warren/internal/dependency"
	"warren/internal/packages"
)

// Package ensures the broker package is installed, optionally pinned to a
// version or kept at the latest available one.
type Package struct {
	Meta
	Name    string
	Ensure  string // installed, latest or a version
	Manager packages.Manager
}

func (p *Package) ID() dependency.NodeID     { return dependency.NodeID("package:" + p.Name) }
func (p *Package) Kind() dependency.NodeKind { return dependency.KindPackage }

func (p *Package) Check(ctx context.Context) (Status, error) {
	installed, err := p.Manager.InstalledVersion(ctx, p.Name)
	if err != nil {
		return Status{}, fmt.Errorf("query %s: %w", p.Name, err)
	}

	switch p.Ensure {
	case config.EnsureInstalled:
		if installed != "" {
			return inSync(), nil
		}
		return outOfSync("install " + p.Name), nil
	case config.EnsureLatest:
		candidate, err := p.Manager.CandidateVersion(ctx, p.Name)
		if err != nil {
			return Status{}, err
		}
		if installed == candidate {
			return inSync(), nil
		}
		return outOfSync(fmt.Sprintf("upgrade %s %s -> %s", p.Name, orNone(installed), candidate)), nil
	default:
		if installed == p.Ensure {
			return inSync(), nil
		}
		return outOfSync(fmt.Sprintf("install %s %s -> %s", p.Name, orNone(installed), p.Ensure)), nil
	}
}

func (p *Package) Apply(ctx context.Context) error {
	version := ""
	if p.Ensure != config.EnsureInstalled && p.Ensure != config.EnsureLatest {
		version = p.Ensure
	}
	return p.Manager.Install(ctx, p.Name, version)
}

func orNone(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}

// Repo writes the apt source list for the broker package and refreshes the
// package index when it changes.
type Repo struct {
	File
	Update func(ctx context.Context) error
}

func (r *Repo) ID() dependency.NodeID     { return dependency.NodeID("repo:" + r.Path) }
func (r *Repo) Kind() dependency.NodeKind { return dependency.KindRepo }

func (r *Repo) Apply(ctx context.Context) error {
	if err := r.File.Apply(ctx); err != nil {
		return err
	}
	if r.Update == nil {
		return nil
	}
	return r.Update(ctx)
}
