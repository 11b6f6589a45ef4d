// Package config loads testrig configuration.
//
// Configuration is read from a single directory containing testrig.yaml.
// Missing files yield the defaults; present files are decoded over the
// defaults, so only the keys that differ need to be written:
//
//	level: e2e
//	resourceStrategy: lazy
//	proxyPolicy: fail
//	logLevel: debug
//	parallel: 8
//	metrics:
//	  enabled: true
//	  namespace: testrig
//	tracing:
//	  enabled: true
//
// Validate reports every invalid field at once as ValidationErrors. Settings
// converts a valid configuration into the typed values the lifecycle and the
// logger accept.
package config
