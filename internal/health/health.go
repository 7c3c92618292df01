// Package health probes the AMQP listeners of the local node and its cluster
// peers.
package health

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"warren/internal/config"
	"warren/pkg/logging"
)

// Target is one AMQP endpoint.
type Target struct {
	Name string
	Host string
	Port string
	TLS  bool
}

// Address returns host:port.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, t.Port)
}

// Result is the outcome of probing one target.
type Result struct {
	Target  Target
	Version string // server version reported during the handshake
	Latency time.Duration
	Err     error
}

// OK reports whether the handshake succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// DialFunc opens an AMQP connection to target and returns the server version.
type DialFunc func(ctx context.Context, target Target) (string, error)

// Checker probes targets concurrently.
type Checker struct {
	Dial DialFunc
	// Limit bounds concurrent probes; 0 means unlimited.
	Limit int
}

// Targets lists the local node followed by every cluster peer. With ssl.only
// the TLS listener is probed instead of the plain one.
func Targets(d *config.Descriptor) []Target {
	port, useTLS := d.Port.String(), false
	if d.SSL.Enabled && d.SSL.Only {
		port, useTLS = d.SSL.Port.String(), true
	}

	host := "localhost"
	if d.NodeIPAddress != "" && d.NodeIPAddress != "0.0.0.0" {
		host = d.NodeIPAddress
	}
	targets := []Target{{Name: "local", Host: host, Port: port, TLS: useTLS}}
	if d.Cluster.Enabled {
		for _, n := range d.Cluster.Nodes {
			targets = append(targets, Target{Name: "rabbit@" + n, Host: n, Port: port, TLS: useTLS})
		}
	}
	return targets
}

// Probe checks every target and returns one result per target, in order.
// Unreachable targets are reported in their result, not as an error.
func (c *Checker) Probe(ctx context.Context, targets []Target) []Result {
	results := make([]Result, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	if c.Limit > 0 {
		g.SetLimit(c.Limit)
	}
	for i, target := range targets {
		g.Go(func() error {
			start := time.Now()
			version, err := c.Dial(ctx, target)
			results[i] = Result{Target: target, Version: version, Latency: time.Since(start), Err: err}
			if err != nil {
				logging.Debug("Health", "Probe of %s at %s failed: %v", target.Name, target.Address(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// AMQPDialer returns a DialFunc that completes an AMQP handshake with the
// given credentials.
func AMQPDialer(user, password string, timeout time.Duration, tlsConfig *tls.Config) DialFunc {
	return func(ctx context.Context, target Target) (string, error) {
		u := url.URL{
			Scheme: "amqp",
			User:   url.UserPassword(user, password),
			Host:   target.Address(),
			Path:   "/",
		}
		cfg := amqp.Config{
			Dial:       amqp.DefaultDial(timeout),
			Properties: amqp.Table{"connection_name": "warren check"},
		}
		if target.TLS {
			u.Scheme = "amqps"
			cfg.TLSClientConfig = tlsConfig.Clone()
			if cfg.TLSClientConfig == nil {
				cfg.TLSClientConfig = &tls.Config{}
			}
			cfg.TLSClientConfig.ServerName = target.Host
		}

		type dialed struct {
			conn *amqp.Connection
			err  error
		}
		done := make(chan dialed, 1)
		go func() {
			conn, err := amqp.DialConfig(u.String(), cfg)
			done <- dialed{conn, err}
		}()

		select {
		case <-ctx.Done():
			// The dial goroutine finishes within timeout and closes what it got.
			go func() {
				if d := <-done; d.conn != nil {
					_ = d.conn.Close()
				}
			}()
			return "", ctx.Err()
		case d := <-done:
			if d.err != nil {
				return "", d.err
			}
			defer d.conn.Close()
			version, _ := d.conn.Properties["version"].(string)
			return version, nil
		}
	}
}

// TLSConfig builds the client TLS configuration for probing a node that
// serves the descriptor's certificates.
func TLSConfig(d *config.Descriptor) (*tls.Config, error) {
	if !d.SSL.Enabled {
		return nil, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if d.SSL.CACert != "" {
		pem, err := os.ReadFile(d.SSL.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", d.SSL.CACert)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
