package config

const (
	// DefaultDescriptorPath is where warren looks for the descriptor when
	// --config is not given.
	DefaultDescriptorPath = "/etc/warren/rabbitmq.yaml"

	// DefaultGuestUser is the account RabbitMQ creates on first boot.
	DefaultGuestUser = "guest"
)

// Accepted enum values.
const (
	ServiceRunning = "running"
	ServiceStopped = "stopped"

	EnsureInstalled = "installed"
	EnsureLatest    = "latest"

	ManagerApt = "apt"
	ManagerYum = "yum"

	NodeTypeDisc = "disc"
	NodeTypeRAM  = "ram"

	VerifyNone = "verify_none"
	VerifyPeer = "verify_peer"
)

// PartitionHandlingModes are the cluster_partition_handling values RabbitMQ understands.
var PartitionHandlingModes = []string{"ignore", "pause_minority", "autoheal"}

// Defaults returns the descriptor every loaded file is merged onto.
func Defaults() Descriptor {
	return Descriptor{
		Port:        "5672",
		DefaultUser: DefaultGuestUser,
		DefaultPass: DefaultGuestUser,
		Owner:       "rabbitmq",
		Group:       "rabbitmq",
		Admin: AdminConfig{
			Enable:  true,
			Port:    "15672",
			CLIPath: "/usr/local/bin/rabbitmqadmin",
		},
		Package: PackageConfig{
			Name:   "rabbitmq-server",
			Ensure: EnsureInstalled,
		},
		Repo: RepoConfig{
			Location:   "https://packagecloud.io/rabbitmq/rabbitmq-server/debian/",
			Release:    "bookworm",
			Components: "main",
			Path:       "/etc/apt/sources.list.d/rabbitmq.list",
		},
		Service: ServiceConfig{
			Name:   "rabbitmq-server",
			Ensure: ServiceRunning,
			Enable: true,
			Manage: true,
		},
		Cluster: ClusterConfig{
			NodeType:          NodeTypeDisc,
			PartitionHandling: "ignore",
		},
		SSL: SSLConfig{
			Port:           "5671",
			Verify:         VerifyNone,
			ManagementPort: "15671",
		},
		Stomp: StompConfig{
			Port: "6163",
		},
		LDAP: LDAPConfig{
			Server:        "ldap",
			UserDNPattern: "cn=${username},ou=People,dc=example,dc=com",
			Port:          "389",
		},
		Paths: PathsConfig{
			ConfigDir: "/etc/rabbitmq",
			Config:    "/etc/rabbitmq/rabbitmq.config",
			EnvConfig: "/etc/rabbitmq/rabbitmq-env.conf",
			Cookie:    "/var/lib/rabbitmq/.erlang.cookie",
			MnesiaDir: "/var/lib/rabbitmq/mnesia",
		},
	}
}
