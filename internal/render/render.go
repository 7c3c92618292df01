// Package render turns a broker descriptor into the text of rabbitmq.config
// and rabbitmq-env.conf.
package render

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"

	"warren/internal/config"
	"warren/internal/erlang"
	"warren/internal/template"
)

const (
	configTemplate = "rabbitmq.config"
	envTemplate    = "rabbitmq-env.conf"
)

var (
	//go:embed templates/rabbitmq.config.tmpl
	configTemplateText string

	//go:embed templates/rabbitmq-env.conf.tmpl
	envTemplateText string

	engine = template.New().
		MustParse(configTemplate, configTemplateText).
		MustParse(envTemplate, envTemplateText)
)

// Files holds the rendered artifacts for one descriptor.
type Files struct {
	Config string // rabbitmq.config
	Env    string // rabbitmq-env.conf
}

// application is one top-level {Name, [Entries...]} tuple of rabbitmq.config.
// Entries are complete Erlang terms; the template joins them.
type application struct {
	Name    string
	Entries []string
}

type envVar struct {
	Key   string
	Value string
}

// Render produces both files. The output depends only on the descriptor, so
// rendering twice yields identical bytes. The config text is checked with
// erlang.Check before it is returned.
func Render(d *config.Descriptor) (Files, error) {
	cfg, err := engine.Render(configTemplate, map[string]interface{}{
		"Applications": applications(d),
	})
	if err != nil {
		return Files{}, err
	}
	if err := erlang.Check(cfg); err != nil {
		return Files{}, fmt.Errorf("rendered %s is malformed: %w", configTemplate, err)
	}

	env, err := engine.Render(envTemplate, map[string]interface{}{
		"Port":          d.Port.String(),
		"NodeIPAddress": d.NodeIPAddress,
		"Environment":   environment(d.EnvironmentVariables),
	})
	if err != nil {
		return Files{}, err
	}

	return Files{Config: cfg, Env: env}, nil
}

func applications(d *config.Descriptor) []application {
	apps := []application{{Name: "rabbit", Entries: rabbitEntries(d)}}

	if len(d.KernelVariables) > 0 {
		apps = append(apps, application{Name: "kernel", Entries: sortedTerms(d.KernelVariables)})
	}
	if d.Admin.Enable && d.ManagementPort().IsSet() {
		apps = append(apps, application{Name: "rabbitmq_management", Entries: managementEntries(d)})
	}
	if d.Stomp.Enabled {
		apps = append(apps, application{Name: "rabbitmq_stomp", Entries: stompEntries(d)})
	}
	if d.LDAP.Enabled {
		apps = append(apps, application{Name: "rabbitmq_auth_backend_ldap", Entries: ldapEntries(d)})
	}
	return apps
}

func rabbitEntries(d *config.Descriptor) []string {
	var entries []string

	if d.LDAP.Enabled {
		entries = append(entries, erlang.Pair("auth_backends",
			erlang.List("rabbit_auth_backend_internal", "rabbit_auth_backend_ldap")))
	}

	if d.Cluster.Enabled {
		nodes := make([]string, 0, len(d.Cluster.Nodes))
		for _, n := range d.Cluster.Nodes {
			nodes = append(nodes, erlang.Atom("rabbit@"+n))
		}
		entries = append(entries,
			erlang.Pair("cluster_nodes", erlang.Tuple(erlang.List(nodes...), erlang.Atom(d.Cluster.NodeType))),
			erlang.Pair("cluster_partition_handling", erlang.Atom(d.Cluster.PartitionHandling)),
		)
	}

	if d.TCPKeepalive {
		entries = append(entries, erlang.Pair("tcp_listen_options", erlang.List(erlang.Pair("keepalive", "true"))))
	}

	if d.SSL.Only {
		entries = append(entries, erlang.Pair("tcp_listeners", erlang.List()))
	}

	if d.SSL.Enabled {
		entries = append(entries,
			erlang.Pair("ssl_listeners", erlang.List(d.SSL.Port.String())),
			erlang.Pair("ssl_options", erlang.List(
				erlang.Pair("cacertfile", erlang.String(d.SSL.CACert)),
				erlang.Pair("certfile", erlang.String(d.SSL.Cert)),
				erlang.Pair("keyfile", erlang.String(d.SSL.Key)),
				erlang.Pair("verify", erlang.Atom(d.SSL.Verify)),
				erlang.Pair("fail_if_no_peer_cert", erlang.Bool(d.SSL.FailIfNoPeerCert)),
			)),
		)
	}

	entries = append(entries, sortedTerms(d.ConfigVariables)...)

	return append(entries,
		erlang.Pair("default_user", erlang.Binary(d.DefaultUser)),
		erlang.Pair("default_pass", erlang.Binary(d.DefaultPass)),
	)
}

func managementEntries(d *config.Descriptor) []string {
	listener := []string{erlang.Pair("port", d.ManagementPort().String())}
	if d.SSL.Enabled {
		listener = append(listener,
			erlang.Pair("ssl", "true"),
			erlang.Pair("ssl_opts", erlang.List(
				erlang.Pair("cacertfile", erlang.String(d.SSL.CACert)),
				erlang.Pair("certfile", erlang.String(d.SSL.Cert)),
				erlang.Pair("keyfile", erlang.String(d.SSL.Key)),
			)),
		)
	}
	return []string{erlang.Pair("listener", erlang.List(listener...))}
}

func stompEntries(d *config.Descriptor) []string {
	entries := []string{erlang.Pair("tcp_listeners", erlang.List(d.Stomp.Port.String()))}
	if d.SSL.Enabled && d.SSL.StompPort.IsSet() {
		entries = append(entries, erlang.Pair("ssl_listeners", erlang.List(d.SSL.StompPort.String())))
	}
	return entries
}

func ldapEntries(d *config.Descriptor) []string {
	return []string{
		erlang.Pair("other_bind", "anon"),
		erlang.Pair("servers", erlang.List(erlang.String(d.LDAP.Server))),
		erlang.Pair("user_dn_pattern", erlang.String(d.LDAP.UserDNPattern)),
		erlang.Pair("use_ssl", erlang.Bool(d.LDAP.UseSSL)),
		erlang.Pair("port", d.LDAP.Port.String()),
		erlang.Pair("log", erlang.Bool(d.LDAP.Log)),
	}
}

// sortedTerms renders a map of raw Erlang values as {key, value} pairs in key
// order.
func sortedTerms(vars map[string]string) []string {
	terms := make([]string, 0, len(vars))
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		terms = append(terms, erlang.Pair(k, vars[k]))
	}
	return terms
}

func environment(vars map[string]string) []envVar {
	env := make([]envVar, 0, len(vars))
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		env = append(env, envVar{Key: k, Value: vars[k]})
	}
	return env
}
