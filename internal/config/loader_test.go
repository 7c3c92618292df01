package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDescriptor(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rabbitmq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDescriptor_MissingFileUsesDefaults(t *testing.T) {
	desc, err := LoadDescriptor(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), desc)
}

func TestLoadDescriptor_EmptyFileUsesDefaults(t *testing.T) {
	desc, err := LoadDescriptor(writeDescriptor(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), desc)
}

func TestLoadDescriptor_OverridesDefaults(t *testing.T) {
	path := writeDescriptor(t, `
port: 5673
deleteGuestUser: true
admin:
  enable: false
cluster:
  enabled: true
  nodes: [rabbit-1, rabbit-2]
  erlangCookie: EOKOWXQREETZSHFNTPEY
  wipeDBOnCookieChange: true
stomp:
  enabled: true
  port: "61613"
configVariables:
  vm_memory_high_watermark: "0.6"
environmentVariables:
  RABBITMQ_NODENAME: rabbit@localhost
`)

	desc, err := LoadDescriptor(path)
	require.NoError(t, err)

	assert.Equal(t, Port("5673"), desc.Port)
	assert.Equal(t, 5673, desc.Port.Int())
	assert.True(t, desc.DeleteGuest)
	assert.False(t, desc.Admin.Enable)
	assert.Equal(t, Port("15672"), desc.Admin.Port, "untouched nested defaults survive")
	assert.True(t, desc.Cluster.Enabled)
	assert.Equal(t, []string{"rabbit-1", "rabbit-2"}, desc.Cluster.Nodes)
	assert.Equal(t, NodeTypeDisc, desc.Cluster.NodeType)
	assert.True(t, desc.Cluster.WipeDBOnCookieChange)
	assert.Equal(t, Port("61613"), desc.Stomp.Port)
	assert.Equal(t, "0.6", desc.ConfigVariables["vm_memory_high_watermark"])
	assert.Equal(t, "rabbit@localhost", desc.EnvironmentVariables["RABBITMQ_NODENAME"])
	assert.Equal(t, "rabbitmq-server", desc.Service.Name)
}

func TestLoadDescriptor_UnknownKeyIsParseError(t *testing.T) {
	path := writeDescriptor(t, "port: 5672\nwipeDbOnCookieChange: true\n")

	_, err := LoadDescriptor(path)
	require.Error(t, err)

	var ce ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrorTypeParse, ce.ErrorType)
	assert.Equal(t, 2, ce.LineNumber)
	assert.NotEmpty(t, ce.Suggestions)
	assert.Contains(t, ce.DetailedError(), "Line: 2")
}

func TestLoadDescriptor_ValidationErrorIsWrapped(t *testing.T) {
	path := writeDescriptor(t, "port: seventy\n")

	_, err := LoadDescriptor(path)
	require.Error(t, err)

	var ce ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrorTypeValidation, ce.ErrorType)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "port", verrs[0].Field)
}

func TestLoadDescriptor_PortMustBeScalar(t *testing.T) {
	_, err := LoadDescriptor(writeDescriptor(t, "port: [5672]\n"))
	require.Error(t, err)

	var ce ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrorTypeParse, ce.ErrorType)
}

func TestRequiredPlugins(t *testing.T) {
	desc := Defaults()
	desc.Stomp.Enabled = true
	desc.LDAP.Enabled = true
	desc.Plugins = []string{"rabbitmq_shovel", "rabbitmq_management"}

	assert.Equal(t, []string{
		"rabbitmq_management",
		"rabbitmq_stomp",
		"rabbitmq_auth_backend_ldap",
		"rabbitmq_shovel",
	}, desc.RequiredPlugins())

	desc.Admin.Enable = false
	desc.Stomp.Enabled = false
	desc.LDAP.Enabled = false
	desc.Plugins = nil
	assert.Empty(t, desc.RequiredPlugins())
}

func TestManagementPort(t *testing.T) {
	desc := Defaults()
	assert.Equal(t, Port("15672"), desc.ManagementPort())

	desc.SSL.Enabled = true
	assert.Equal(t, Port("15671"), desc.ManagementPort())
}
