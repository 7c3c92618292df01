// Package catalog compiles a broker descriptor into the set of resources one
// run converges, with their ordering and notification edges.
//
// Compile is the only place that decides what exists in a run. It evaluates
// the Erlang cookie guard first, so a refused cookie change fails before a
// single resource is built, let alone applied.
package catalog

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"path"
	"time"

	"warren/internal/config"
	"warren/internal/dependency"
	"warren/internal/guard"
	"warren/internal/host"
	"warren/internal/packages"
	"warren/internal/rabbitctl"
	"warren/internal/render"
	"warren/internal/resource"
	"warren/internal/secret"
	"warren/internal/systemd"
	"warren/pkg/logging"
)

// Options carries the providers resources are bound to.
type Options struct {
	// Root prefixes every managed path. Empty means the real root.
	Root string

	Packages packages.Manager
	Systemd  systemd.Manager
	Ctl      *rabbitctl.Ctl

	// HTTPClient downloads rabbitmqadmin. Nil builds one suited to the
	// management listener.
	HTTPClient *http.Client

	// RepoUpdate refreshes the package index after the repository file
	// changes.
	RepoUpdate func(ctx context.Context) error
}

// Catalog is the compiled, ordered set of resources for one run.
type Catalog struct {
	Resources []resource.Resource
	Files     render.Files

	// Clustered is set when the descriptor enables clustering; Decision is
	// only meaningful then.
	Clustered bool
	Decision  guard.Decision

	index map[dependency.NodeID]resource.Resource
}

// Get returns the resource with id, or nil.
func (c *Catalog) Get(id dependency.NodeID) resource.Resource {
	return c.index[id]
}

// IDs returns the resource ids in declaration order.
func (c *Catalog) IDs() []dependency.NodeID {
	ids := make([]dependency.NodeID, 0, len(c.Resources))
	for _, r := range c.Resources {
		ids = append(ids, r.ID())
	}
	return ids
}

func (c *Catalog) add(r resource.Resource) {
	if c.index == nil {
		c.index = make(map[dependency.NodeID]resource.Resource)
	}
	c.Resources = append(c.Resources, r)
	c.index[r.ID()] = r
}

// present filters ids down to the resources already in the catalog.
func (c *Catalog) present(ids ...dependency.NodeID) []dependency.NodeID {
	var out []dependency.NodeID
	for _, id := range ids {
		if _, ok := c.index[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Compile builds the catalog for d. A *guard.MismatchError is returned
// unchanged when the persisted cookie differs and the wipe is not authorized.
func Compile(d *config.Descriptor, opts Options) (*Catalog, error) {
	c := &Catalog{}

	var cookie string
	if d.Cluster.Enabled {
		var err error
		cookie, err = secret.ResolveCookie(d.Cluster)
		if err != nil {
			return nil, err
		}
		g := &guard.CookieGuard{
			Path:      host.Rooted(opts.Root, d.Paths.Cookie),
			Desired:   cookie,
			AllowWipe: d.Cluster.WipeDBOnCookieChange,
		}
		c.Decision, err = g.Evaluate()
		if err != nil {
			return nil, err
		}
		c.Clustered = true
		logging.Debug("Catalog", "Cookie guard decision: %s", c.Decision)
	}

	files, err := render.Render(d)
	if err != nil {
		return nil, fmt.Errorf("render configuration: %w", err)
	}
	c.Files = files

	owner := host.Ownership{User: d.Owner, Group: d.Group}
	svc := &resource.Service{
		Name:    d.Service.Name,
		Ensure:  d.Service.Ensure,
		Enable:  d.Service.Enable,
		Manager: opts.Systemd,
	}
	var notifyService []dependency.NodeID
	if d.Service.Manage {
		notifyService = []dependency.NodeID{svc.ID()}
	}

	if d.Repo.Manage {
		c.add(&resource.Repo{
			File: resource.File{
				Path:    d.Repo.Path,
				Root:    opts.Root,
				Content: []byte(fmt.Sprintf("deb %s %s %s\n", d.Repo.Location, d.Repo.Release, d.Repo.Components)),
				Mode:    0o644,
			},
			Update: opts.RepoUpdate,
		})
	}

	pkg := &resource.Package{Name: d.Package.Name, Ensure: d.Package.Ensure, Manager: opts.Packages}
	pkg.Require = c.present(dependency.NodeID("repo:" + d.Repo.Path))
	c.add(pkg)

	configDir := &resource.Directory{Path: d.Paths.ConfigDir, Root: opts.Root, Mode: 0o755, Owner: owner}
	configDir.Require = []dependency.NodeID{pkg.ID()}
	c.add(configDir)

	if d.SSL.Enabled {
		sslDir := &resource.Directory{Path: path.Join(d.Paths.ConfigDir, "ssl"), Root: opts.Root, Mode: 0o755, Owner: owner}
		sslDir.Require = []dependency.NodeID{configDir.ID()}
		c.add(sslDir)
	}

	if c.Clustered {
		if c.Decision == guard.DecisionWipe {
			wipe := &resource.Wipe{
				Service:   d.Service.Name,
				Manager:   opts.Systemd,
				MnesiaDir: d.Paths.MnesiaDir,
				Root:      opts.Root,
			}
			wipe.Require = []dependency.NodeID{pkg.ID()}
			c.add(wipe)
		}

		cookieFile := &resource.File{
			Path:      d.Paths.Cookie,
			Root:      opts.Root,
			Content:   []byte(cookie),
			Mode:      0o400,
			Owner:     owner,
			Sensitive: true,
		}
		cookieFile.Require = c.present(pkg.ID(), resource.WipeID)
		cookieFile.Notify = notifyService
		c.add(cookieFile)
	}

	for _, f := range []struct {
		path    string
		content string
	}{
		{d.Paths.Config, files.Config},
		{d.Paths.EnvConfig, files.Env},
	} {
		file := &resource.File{Path: f.path, Root: opts.Root, Content: []byte(f.content), Mode: 0o644, Owner: owner}
		file.Require = []dependency.NodeID{configDir.ID()}
		file.Notify = notifyService
		c.add(file)
	}

	var pluginIDs []dependency.NodeID
	for _, name := range d.RequiredPlugins() {
		p := &resource.Plugin{Name: name, Ctl: opts.Ctl}
		p.Require = []dependency.NodeID{pkg.ID()}
		p.Notify = notifyService
		c.add(p)
		pluginIDs = append(pluginIDs, p.ID())
	}

	if !d.Service.Manage {
		return c, nil
	}

	svc.Require = c.present(append([]dependency.NodeID{
		pkg.ID(),
		resource.WipeID,
		dependency.NodeID("file:" + d.Paths.Cookie),
		dependency.NodeID("file:" + d.Paths.Config),
		dependency.NodeID("file:" + d.Paths.EnvConfig),
	}, pluginIDs...)...)
	c.add(svc)

	if !d.ServiceRunning() {
		return c, nil
	}

	if d.Admin.Enable {
		dl := &resource.Download{
			URL:      adminURL(d),
			Path:     d.Admin.CLIPath,
			Root:     opts.Root,
			Mode:     0o755,
			User:     d.DefaultUser,
			Password: d.DefaultPass,
			Client:   opts.HTTPClient,
		}
		if dl.Client == nil {
			dl.Client = managementClient()
		}
		dl.Require = c.present(svc.ID(), "plugin:rabbitmq_management")
		c.add(dl)
	}

	// rabbitmqadmin is fetched with the default credentials, which are the
	// guest account unless overridden, so the user goes only afterwards.
	if d.DeleteGuest {
		u := &resource.UserAbsent{Name: config.DefaultGuestUser, Ctl: opts.Ctl}
		u.Require = c.present(svc.ID(), dependency.NodeID("download:"+d.Admin.CLIPath))
		c.add(u)
	}

	return c, nil
}

// adminURL is where the management plugin serves the rabbitmqadmin script.
func adminURL(d *config.Descriptor) string {
	scheme := "http"
	if d.SSL.Enabled {
		scheme = "https"
	}
	return fmt.Sprintf("%s://localhost:%s/cli/rabbitmqadmin", scheme, d.ManagementPort())
}

// managementClient talks to the local management listener. Its certificate
// is issued for the node's public name, never for localhost.
func managementClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	return &http.Client{Timeout: 30 * time.Second, Transport: transport}
}
