package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warren/internal/config"
	"warren/internal/erlang"
)

func TestRender_Defaults(t *testing.T) {
	desc := config.Defaults()

	files, err := Render(&desc)
	require.NoError(t, err)

	wantConfig := `% This file is managed by warren. Local changes will be overwritten.
[
  {rabbit, [
    {default_user, <<"guest">>},
    {default_pass, <<"guest">>}
  ]},
  {rabbitmq_management, [
    {listener, [{port, 15672}]}
  ]}
].
`
	if diff := cmp.Diff(wantConfig, files.Config); diff != "" {
		t.Errorf("rabbitmq.config mismatch (-want +got):\n%s", diff)
	}

	wantEnv := `# This file is managed by warren. Local changes will be overwritten.
NODE_PORT=5672
`
	if diff := cmp.Diff(wantEnv, files.Env); diff != "" {
		t.Errorf("rabbitmq-env.conf mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_EverythingEnabled(t *testing.T) {
	desc := config.Defaults()
	desc.TCPKeepalive = true
	desc.NodeIPAddress = "10.0.0.5"
	desc.Cluster = config.ClusterConfig{
		Enabled:           true,
		Nodes:             []string{"rabbit-1", "rabbit-2"},
		NodeType:          config.NodeTypeRAM,
		PartitionHandling: "autoheal",
		ErlangCookie:      "EOKOWXQREETZSHFNTPEY",
	}
	desc.SSL.Enabled = true
	desc.SSL.CACert = "/etc/rabbitmq/ssl/ca.pem"
	desc.SSL.Cert = "/etc/rabbitmq/ssl/cert.pem"
	desc.SSL.Key = "/etc/rabbitmq/ssl/key.pem"
	desc.SSL.StompPort = "6164"
	desc.Stomp.Enabled = true
	desc.LDAP.Enabled = true
	desc.ConfigVariables = map[string]string{
		"vm_memory_high_watermark": "0.6",
		"hipe_compile":             "true",
	}
	desc.KernelVariables = map[string]string{
		"inet_dist_listen_min": "9100",
		"inet_dist_listen_max": "9105",
	}
	desc.EnvironmentVariables = map[string]string{
		"RABBITMQ_NODENAME":  "rabbit@localhost",
		"RABBITMQ_SERVER_ADDITIONAL_ERL_ARGS": "-kernel inet_default_connect_options [{nodelay,true}]",
	}

	files, err := Render(&desc)
	require.NoError(t, err)

	wantConfig := `% This file is managed by warren. Local changes will be overwritten.
[
  {rabbit, [
    {auth_backends, [rabbit_auth_backend_internal, rabbit_auth_backend_ldap]},
    {cluster_nodes, {['rabbit@rabbit-1', 'rabbit@rabbit-2'], ram}},
    {cluster_partition_handling, autoheal},
    {tcp_listen_options, [{keepalive, true}]},
    {ssl_listeners, [5671]},
    {ssl_options, [{cacertfile, "/etc/rabbitmq/ssl/ca.pem"}, {certfile, "/etc/rabbitmq/ssl/cert.pem"}, {keyfile, "/etc/rabbitmq/ssl/key.pem"}, {verify, verify_none}, {fail_if_no_peer_cert, false}]},
    {hipe_compile, true},
    {vm_memory_high_watermark, 0.6},
    {default_user, <<"guest">>},
    {default_pass, <<"guest">>}
  ]},
  {kernel, [
    {inet_dist_listen_max, 9105},
    {inet_dist_listen_min, 9100}
  ]},
  {rabbitmq_management, [
    {listener, [{port, 15671}, {ssl, true}, {ssl_opts, [{cacertfile, "/etc/rabbitmq/ssl/ca.pem"}, {certfile, "/etc/rabbitmq/ssl/cert.pem"}, {keyfile, "/etc/rabbitmq/ssl/key.pem"}]}]}
  ]},
  {rabbitmq_stomp, [
    {tcp_listeners, [6163]},
    {ssl_listeners, [6164]}
  ]},
  {rabbitmq_auth_backend_ldap, [
    {other_bind, anon},
    {servers, ["ldap"]},
    {user_dn_pattern, "cn=${username},ou=People,dc=example,dc=com"},
    {use_ssl, false},
    {port, 389},
    {log, false}
  ]}
].
`
	if diff := cmp.Diff(wantConfig, files.Config); diff != "" {
		t.Errorf("rabbitmq.config mismatch (-want +got):\n%s", diff)
	}

	wantEnv := `# This file is managed by warren. Local changes will be overwritten.
NODE_PORT=5672
NODE_IP_ADDRESS=10.0.0.5
RABBITMQ_NODENAME=rabbit@localhost
RABBITMQ_SERVER_ADDITIONAL_ERL_ARGS='-kernel inet_default_connect_options [{nodelay,true}]'
`
	if diff := cmp.Diff(wantEnv, files.Env); diff != "" {
		t.Errorf("rabbitmq-env.conf mismatch (-want +got):\n%s", diff)
	}
}

// TestRender_LDAPWithoutStomp covers the combination where the LDAP block
// must stand on its own without the STOMP block around it.
func TestRender_LDAPWithoutStomp(t *testing.T) {
	desc := config.Defaults()
	desc.Admin.Enable = false
	desc.LDAP.Enabled = true

	files, err := Render(&desc)
	require.NoError(t, err)

	assert.NoError(t, erlang.Check(files.Config))
	assert.Contains(t, files.Config, "{rabbitmq_auth_backend_ldap, [")
	assert.NotContains(t, files.Config, "rabbitmq_stomp")
	assert.Contains(t, files.Config, "  ]},\n  {rabbitmq_auth_backend_ldap, [")
}

func TestRender_SSLOnlyDisablesPlainListener(t *testing.T) {
	desc := config.Defaults()
	desc.SSL.Enabled = true
	desc.SSL.Only = true
	desc.SSL.CACert = "/ca.pem"
	desc.SSL.Cert = "/cert.pem"
	desc.SSL.Key = "/key.pem"

	files, err := Render(&desc)
	require.NoError(t, err)
	assert.Contains(t, files.Config, "{tcp_listeners, []}")
}

func TestRender_EscapesCredentials(t *testing.T) {
	desc := config.Defaults()
	desc.DefaultPass = `pa"ss\word`

	files, err := Render(&desc)
	require.NoError(t, err)
	assert.Contains(t, files.Config, `{default_pass, <<"pa\"ss\\word">>}`)
	assert.NoError(t, erlang.Check(files.Config))
}

func TestRender_QuotesEnvironmentValues(t *testing.T) {
	desc := config.Defaults()
	desc.EnvironmentVariables = map[string]string{
		"SERVER_ADDITIONAL_ERL_ARGS": "-setcookie it's",
		"CTL_ERL_ARGS":               "$(reboot)",
	}

	files, err := Render(&desc)
	require.NoError(t, err)
	assert.Contains(t, files.Env, "SERVER_ADDITIONAL_ERL_ARGS='-setcookie it'\\''s'\n")
	assert.Contains(t, files.Env, "CTL_ERL_ARGS='$(reboot)'\n")
}

func TestRender_IsDeterministic(t *testing.T) {
	desc := config.Defaults()
	desc.ConfigVariables = map[string]string{"c": "3", "a": "1", "b": "2"}
	desc.EnvironmentVariables = map[string]string{"Z": "1", "A": "2", "M": "3"}

	first, err := Render(&desc)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Render(&desc)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

// TestRender_AllToggleCombinations renders every combination of the optional
// blocks and checks that each output is one balanced, terminated term with
// no dangling separators.
func TestRender_AllToggleCombinations(t *testing.T) {
	toggles := []struct {
		name  string
		apply func(d *config.Descriptor)
	}{
		{"admin", func(d *config.Descriptor) { d.Admin.Enable = true }},
		{"ldap", func(d *config.Descriptor) { d.LDAP.Enabled = true }},
		{"stomp", func(d *config.Descriptor) { d.Stomp.Enabled = true }},
		{"ssl", func(d *config.Descriptor) {
			d.SSL.Enabled = true
			d.SSL.CACert = "/ca.pem"
			d.SSL.Cert = "/cert.pem"
			d.SSL.Key = "/key.pem"
		}},
		{"sslStomp", func(d *config.Descriptor) { d.SSL.StompPort = "6164" }},
		{"cluster", func(d *config.Descriptor) {
			d.Cluster.Enabled = true
			d.Cluster.Nodes = []string{"a", "b.example.com"}
			d.Cluster.ErlangCookie = "COOKIE"
		}},
		{"keepalive", func(d *config.Descriptor) { d.TCPKeepalive = true }},
		{"configVariables", func(d *config.Descriptor) {
			d.ConfigVariables = map[string]string{"frame_max": "131072"}
		}},
		{"kernelVariables", func(d *config.Descriptor) {
			d.KernelVariables = map[string]string{"net_ticktime": "60"}
		}},
	}

	for mask := 0; mask < 1<<len(toggles); mask++ {
		desc := config.Defaults()
		desc.Admin.Enable = false

		var names []string
		for i, tg := range toggles {
			if mask&(1<<i) != 0 {
				tg.apply(&desc)
				names = append(names, tg.name)
			}
		}
		label := strings.Join(names, "+")
		if label == "" {
			label = "none"
		}

		files, err := Render(&desc)
		require.NoError(t, err, label)

		assert.NoError(t, erlang.Check(files.Config), label)
		for _, bad := range []string{",]", ",}", "[,", "{,", ",,", ",\n  ]", ",\n]"} {
			assert.NotContains(t, files.Config, bad, label)
		}
		assert.True(t, strings.HasSuffix(files.Config, "].\n"), label)
		assert.Equal(t, desc.LDAP.Enabled, strings.Contains(files.Config, "rabbitmq_auth_backend_ldap, ["), label)
		assert.Equal(t, desc.Stomp.Enabled, strings.Contains(files.Config, "rabbitmq_stomp, ["), label)
	}
}
