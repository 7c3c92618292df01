// Package config loads and validates the broker configuration descriptor.
//
// The descriptor is a single YAML file (default /etc/warren/rabbitmq.yaml)
// decoded on top of Defaults. Keys are camelCase and unknown keys are
// rejected. A missing file is not an error: every option has a default, so
// an empty descriptor converges a stand-alone broker with the management
// plugin enabled.
//
// # Validation
//
// Validate collects every problem into ValidationErrors rather than stopping
// at the first one. It covers port ranges, enum values, required SSL
// material, cluster membership and cookie charset, absolute paths, and that
// every configVariables / kernelVariables value is a balanced Erlang term.
// LoadDescriptor wraps decoding and validation failures in a
// ConfigurationError that carries the file path and, for YAML errors, the
// offending line.
//
// # Example
//
//	port: 5672
//	deleteGuestUser: true
//	cluster:
//	  enabled: true
//	  nodes: [rabbit-1, rabbit-2]
//	  erlangCookie: EOKOWXQREETZSHFNTPEY
//	ssl:
//	  enabled: true
//	  cacert: /etc/rabbitmq/ssl/ca.pem
//	  cert: /etc/rabbitmq/ssl/cert.pem
//	  key: /etc/rabbitmq/ssl/key.pem
package config
