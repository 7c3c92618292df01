package config

import (
	"fmt"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Descriptor is the Broker Configuration Descriptor: everything warren needs to
// know to converge a host to a RabbitMQ installation. It is loaded once per
// run and never mutated after validation.
type Descriptor struct {
	Port           Port   `yaml:"port,omitempty"`
	NodeIPAddress  string `yaml:"nodeIPAddress,omitempty"`
	DefaultUser    string `yaml:"defaultUser,omitempty"`
	DefaultPass    string `yaml:"defaultPass,omitempty"`
	DeleteGuest    bool   `yaml:"deleteGuestUser,omitempty"`
	TCPKeepalive   bool   `yaml:"tcpKeepalive,omitempty"`
	Owner          string `yaml:"owner,omitempty"`
	Group          string `yaml:"group,omitempty"`

	Admin   AdminConfig   `yaml:"admin,omitempty"`
	Package PackageConfig `yaml:"package,omitempty"`
	Repo    RepoConfig    `yaml:"repo,omitempty"`
	Service ServiceConfig `yaml:"service,omitempty"`
	Cluster ClusterConfig `yaml:"cluster,omitempty"`
	SSL     SSLConfig     `yaml:"ssl,omitempty"`
	Stomp   StompConfig   `yaml:"stomp,omitempty"`
	LDAP    LDAPConfig    `yaml:"ldap,omitempty"`
	Paths   PathsConfig   `yaml:"paths,omitempty"`

	// Plugins lists extra plugins to enable on top of the ones implied by
	// the admin, stomp and ldap toggles.
	Plugins []string `yaml:"plugins,omitempty"`

	ConfigVariables      map[string]string `yaml:"configVariables,omitempty"`      // raw Erlang terms for the rabbit app
	KernelVariables      map[string]string `yaml:"kernelVariables,omitempty"`      // raw Erlang terms for the kernel app
	EnvironmentVariables map[string]string `yaml:"environmentVariables,omitempty"` // extra rabbitmq-env.conf lines
}

// AdminConfig controls the management plugin and the rabbitmqadmin helper.
type AdminConfig struct {
	Enable  bool   `yaml:"enable"`
	Port    Port   `yaml:"port,omitempty"`
	CLIPath string `yaml:"cliPath,omitempty"`
}

// PackageConfig describes the broker package.
type PackageConfig struct {
	Name    string `yaml:"name,omitempty"`
	Ensure  string `yaml:"ensure,omitempty"`  // installed, latest, or an exact version
	Manager string `yaml:"manager,omitempty"` // apt, yum, or empty to auto-detect
}

// RepoConfig describes the optional apt repository the package comes from.
type RepoConfig struct {
	Manage     bool   `yaml:"manage,omitempty"`
	Location   string `yaml:"location,omitempty"`
	Release    string `yaml:"release,omitempty"`
	Components string `yaml:"components,omitempty"`
	Path       string `yaml:"path,omitempty"`
}

// ServiceConfig describes the desired state of the broker service.
type ServiceConfig struct {
	Name   string `yaml:"name,omitempty"`
	Ensure string `yaml:"ensure,omitempty"` // running or stopped
	Enable bool   `yaml:"enable"`
	Manage bool   `yaml:"manage"`
}

// ClusterConfig enables clustering through a shared Erlang cookie.
type ClusterConfig struct {
	Enabled           bool     `yaml:"enabled,omitempty"`
	Nodes             []string `yaml:"nodes,omitempty"`
	NodeType          string   `yaml:"nodeType,omitempty"`
	PartitionHandling string   `yaml:"partitionHandling,omitempty"`
	ErlangCookie      string   `yaml:"erlangCookie,omitempty"`

	// ErlangCookieAge is an ASCII-armored age ciphertext of the cookie,
	// decrypted with the identities in AgeIdentityFile.
	ErlangCookieAge string `yaml:"erlangCookieAge,omitempty"`
	AgeIdentityFile string `yaml:"ageIdentityFile,omitempty"`

	// WipeDBOnCookieChange authorizes stopping the broker and deleting its
	// mnesia directory when the persisted cookie differs from the desired one.
	WipeDBOnCookieChange bool `yaml:"wipeDBOnCookieChange,omitempty"`
}

// SSLConfig enables TLS listeners for AMQP, management and STOMP.
type SSLConfig struct {
	Enabled          bool   `yaml:"enabled,omitempty"`
	Only             bool   `yaml:"only,omitempty"`
	Port             Port   `yaml:"port,omitempty"`
	CACert           string `yaml:"cacert,omitempty"`
	Cert             string `yaml:"cert,omitempty"`
	Key              string `yaml:"key,omitempty"`
	Verify           string `yaml:"verify,omitempty"`
	FailIfNoPeerCert bool   `yaml:"failIfNoPeerCert,omitempty"`
	ManagementPort   Port   `yaml:"managementPort,omitempty"`
	StompPort        Port   `yaml:"stompPort,omitempty"`
}

// StompConfig enables the STOMP protocol gateway.
type StompConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
	Port    Port `yaml:"port,omitempty"`
}

// LDAPConfig enables the LDAP authentication backend.
type LDAPConfig struct {
	Enabled       bool   `yaml:"enabled,omitempty"`
	Server        string `yaml:"server,omitempty"`
	UserDNPattern string `yaml:"userDNPattern,omitempty"`
	UseSSL        bool   `yaml:"useSSL,omitempty"`
	Port          Port   `yaml:"port,omitempty"`
	Log           bool   `yaml:"log,omitempty"`
}

// PathsConfig holds the fixed filesystem locations warren manages.
type PathsConfig struct {
	ConfigDir string `yaml:"configDir,omitempty"`
	Config    string `yaml:"config,omitempty"`
	EnvConfig string `yaml:"envConfig,omitempty"`
	Cookie    string `yaml:"cookie,omitempty"`
	MnesiaDir string `yaml:"mnesiaDir,omitempty"`
}

// Port is a TCP port kept as its decimal string form. YAML integers and
// strings are both accepted; Validate rejects anything that is not a number
// between 1 and 65535.
type Port string

// UnmarshalYAML accepts both `port: 5672` and `port: "5672"`.
func (p *Port) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: port must be a scalar", value.Line)
	}
	*p = Port(value.Value)
	return nil
}

// Int returns the numeric value of the port, or 0 if it is malformed.
func (p Port) Int() int {
	n, err := strconv.Atoi(string(p))
	if err != nil {
		return 0
	}
	return n
}

// IsSet reports whether a port value was provided.
func (p Port) IsSet() bool {
	return p != ""
}

var portPattern = regexp.MustCompile(`^[0-9]+$`)

// Valid reports whether the port is a plain decimal number in the TCP range.
// Signs and surrounding spaces are rejected.
func (p Port) Valid() bool {
	if !portPattern.MatchString(string(p)) {
		return false
	}
	n, err := strconv.Atoi(string(p))
	return err == nil && n > 0 && n <= 65535
}

// String implements fmt.Stringer.
func (p Port) String() string {
	return string(p)
}

// RequiredPlugins returns the plugins implied by the descriptor's toggles,
// followed by the explicitly listed extras, without duplicates.
func (d *Descriptor) RequiredPlugins() []string {
	var plugins []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		plugins = append(plugins, name)
	}

	if d.Admin.Enable {
		add("rabbitmq_management")
	}
	if d.Stomp.Enabled {
		add("rabbitmq_stomp")
	}
	if d.LDAP.Enabled {
		add("rabbitmq_auth_backend_ldap")
	}
	for _, p := range d.Plugins {
		add(p)
	}
	return plugins
}

// ManagementPort is the port the management listener binds to, which moves
// to the TLS management port when SSL is enabled.
func (d *Descriptor) ManagementPort() Port {
	if d.SSL.Enabled && d.SSL.ManagementPort.IsSet() {
		return d.SSL.ManagementPort
	}
	return d.Admin.Port
}

// ServiceRunning reports whether the service is managed and should be running.
func (d *Descriptor) ServiceRunning() bool {
	return d.Service.Manage && d.Service.Ensure == ServiceRunning
}
