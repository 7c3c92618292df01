package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"warren/internal/erlang"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

var (
	cookiePattern  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	envKeyPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	hostPattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-_]*$`)
	versionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.+~:\-]*$`)
)

// ValidCookie reports whether cookie uses only the characters Erlang
// accepts in a cookie file: letters and digits.
func ValidCookie(cookie string) bool {
	return cookiePattern.MatchString(cookie)
}

// Validate checks every field of the descriptor and returns all problems at
// once as ValidationErrors. Nothing on the host is touched before this passes.
func Validate(d *Descriptor) error {
	var errs ValidationErrors

	validatePort(&errs, "port", d.Port, true)
	validatePort(&errs, "admin.port", d.Admin.Port, d.Admin.Enable)
	validatePort(&errs, "stomp.port", d.Stomp.Port, d.Stomp.Enabled)
	validatePort(&errs, "ldap.port", d.LDAP.Port, d.LDAP.Enabled)
	validatePort(&errs, "ssl.port", d.SSL.Port, d.SSL.Enabled)
	validatePort(&errs, "ssl.managementPort", d.SSL.ManagementPort, false)
	validatePort(&errs, "ssl.stompPort", d.SSL.StompPort, false)

	validateRequired(&errs, "defaultUser", d.DefaultUser)
	validateRequired(&errs, "defaultPass", d.DefaultPass)
	validateRequired(&errs, "package.name", d.Package.Name)
	validateRequired(&errs, "service.name", d.Service.Name)

	if d.Package.Ensure == "" || (d.Package.Ensure != EnsureInstalled && d.Package.Ensure != EnsureLatest && !versionPattern.MatchString(d.Package.Ensure)) {
		errs.Add("package.ensure", "must be 'installed', 'latest' or a package version", d.Package.Ensure)
	}
	if d.Package.Manager != "" {
		validateOneOf(&errs, "package.manager", d.Package.Manager, []string{ManagerApt, ManagerYum})
	}
	validateOneOf(&errs, "service.ensure", d.Service.Ensure, []string{ServiceRunning, ServiceStopped})

	if d.Repo.Manage {
		validateRequired(&errs, "repo.location", d.Repo.Location)
		validateRequired(&errs, "repo.release", d.Repo.Release)
		validateAbsolute(&errs, "repo.path", d.Repo.Path)
	}

	validateCluster(&errs, &d.Cluster)
	validateSSL(&errs, &d.SSL, d.Stomp.Enabled)

	if d.LDAP.Enabled {
		validateRequired(&errs, "ldap.server", d.LDAP.Server)
		validateRequired(&errs, "ldap.userDNPattern", d.LDAP.UserDNPattern)
	}

	if d.NodeIPAddress != "" && !hostPattern.MatchString(d.NodeIPAddress) {
		errs.Add("nodeIPAddress", "must be an IP address or host name", d.NodeIPAddress)
	}

	for _, p := range d.Plugins {
		if !erlang.IsAtom(p) {
			errs.Add("plugins", fmt.Sprintf("%q is not a valid plugin name", p), p)
		}
	}

	validateTerms(&errs, "configVariables", d.ConfigVariables)
	validateTerms(&errs, "kernelVariables", d.KernelVariables)
	for _, key := range slices.Sorted(maps.Keys(d.EnvironmentVariables)) {
		if !envKeyPattern.MatchString(key) {
			errs.Add("environmentVariables."+key, "is not a valid environment variable name", key)
		}
	}

	validateAbsolute(&errs, "paths.configDir", d.Paths.ConfigDir)
	validateAbsolute(&errs, "paths.config", d.Paths.Config)
	validateAbsolute(&errs, "paths.envConfig", d.Paths.EnvConfig)
	validateAbsolute(&errs, "paths.cookie", d.Paths.Cookie)
	validateAbsolute(&errs, "paths.mnesiaDir", d.Paths.MnesiaDir)
	if d.Admin.Enable {
		validateAbsolute(&errs, "admin.cliPath", d.Admin.CLIPath)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateCluster(errs *ValidationErrors, c *ClusterConfig) {
	validateOneOf(errs, "cluster.nodeType", c.NodeType, []string{NodeTypeDisc, NodeTypeRAM})
	validateOneOf(errs, "cluster.partitionHandling", c.PartitionHandling, PartitionHandlingModes)

	if c.ErlangCookie != "" && c.ErlangCookieAge != "" {
		errs.Add("cluster.erlangCookie", "cannot be combined with cluster.erlangCookieAge")
	}
	if c.ErlangCookie != "" && !ValidCookie(c.ErlangCookie) {
		errs.Add("cluster.erlangCookie", "must contain only letters and digits")
	}
	if c.ErlangCookieAge != "" && c.AgeIdentityFile == "" {
		errs.Add("cluster.ageIdentityFile", "is required when cluster.erlangCookieAge is set")
	}

	if !c.Enabled {
		return
	}
	if len(c.Nodes) == 0 {
		errs.Add("cluster.nodes", "must list at least one node when clustering is enabled")
	}
	for _, n := range c.Nodes {
		if !hostPattern.MatchString(n) {
			errs.Add("cluster.nodes", fmt.Sprintf("%q is not a valid host name", n), n)
		}
	}
	if c.ErlangCookie == "" && c.ErlangCookieAge == "" {
		errs.Add("cluster.erlangCookie", "is required when clustering is enabled")
	}
}

func validateSSL(errs *ValidationErrors, s *SSLConfig, stomp bool) {
	if s.Only && !s.Enabled {
		errs.Add("ssl.only", "requires ssl.enabled")
	}
	if !s.Enabled {
		if stomp && s.StompPort.IsSet() {
			errs.Add("ssl.stompPort", "requires ssl.enabled")
		}
		return
	}
	validateOneOf(errs, "ssl.verify", s.Verify, []string{VerifyNone, VerifyPeer})
	material := []struct{ field, path string }{
		{"ssl.cacert", s.CACert},
		{"ssl.cert", s.Cert},
		{"ssl.key", s.Key},
	}
	for _, m := range material {
		if m.path == "" {
			errs.Add(m.field, "is required when SSL is enabled")
			continue
		}
		validateAbsolute(errs, m.field, m.path)
	}
}

func validatePort(errs *ValidationErrors, field string, p Port, required bool) {
	if !p.IsSet() {
		if required {
			errs.Add(field, "is required")
		}
		return
	}
	if !p.Valid() {
		errs.Add(field, "must be a number between 1 and 65535", string(p))
	}
}

func validateRequired(errs *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, "is required", value)
	}
}

func validateOneOf(errs *ValidationErrors, field, value string, allowed []string) {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return
		}
	}
	errs.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")), value)
}

func validateAbsolute(errs *ValidationErrors, field, path string) {
	if path == "" || !filepath.IsAbs(path) {
		errs.Add(field, "must be an absolute path", path)
	}
}

func validateTerms(errs *ValidationErrors, field string, vars map[string]string) {
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		value := vars[key]
		if !erlang.IsAtom(key) {
			errs.Add(field+"."+key, "key must be an unquoted Erlang atom", key)
		}
		if err := erlang.CheckFragment(value); err != nil {
			errs.Add(field+"."+key, fmt.Sprintf("is not a well-formed Erlang term: %v", err), value)
		}
	}
}
