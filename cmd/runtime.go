package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"warren/internal/catalog"
	"warren/internal/config"
	"warren/internal/host"
	"warren/internal/packages"
	"warren/internal/rabbitctl"
	"warren/internal/systemd"
)

// commandContext returns the command's context, or Background when a test
// calls a RunE function directly.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

func loadDescriptor() (*config.Descriptor, error) {
	desc, err := config.LoadDescriptor(descriptorPath)
	if err != nil {
		return nil, err
	}
	return &desc, nil
}

// providers connects the catalog to the real host: apt or yum, systemd over
// D-Bus, and the broker's command line tools.
type providers struct {
	runner  host.Runner
	systemd *systemd.DBusManager
	options catalog.Options
}

func newProviders(ctx context.Context, desc *config.Descriptor) (*providers, error) {
	runner := host.ExecRunner{}

	pm, err := packages.Detect(desc.Package.Manager, runner)
	if err != nil {
		return nil, err
	}
	sd, err := systemd.NewDBusManager(ctx)
	if err != nil {
		return nil, err
	}

	return &providers{
		runner:  runner,
		systemd: sd,
		options: catalog.Options{
			Root:     rootDir,
			Packages: pm,
			Systemd:  sd,
			Ctl:      rabbitctl.New(runner),
			RepoUpdate: func(ctx context.Context) error {
				_, err := runner.Run(ctx, "apt-get", "update", "-q")
				return err
			},
		},
	}, nil
}

func (p *providers) Close() {
	p.systemd.Close()
}

// compile loads the descriptor and builds the catalog against the host.
// The returned cleanup must be called once the catalog is no longer used.
func compile(ctx context.Context) (*config.Descriptor, *catalog.Catalog, func(), error) {
	desc, err := loadDescriptor()
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := newProviders(ctx, desc)
	if err != nil {
		return nil, nil, nil, err
	}
	cat, err := catalog.Compile(desc, p.options)
	if err != nil {
		p.Close()
		return nil, nil, nil, err
	}
	return desc, cat, p.Close, nil
}
