package config

// RigConfig is the top-level configuration read from testrig.yaml.
type RigConfig struct {
	// Level is isolated, container or e2e (default: container).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// ResourceStrategy is eager or lazy (default: eager).
	ResourceStrategy string `json:"resourceStrategy,omitempty" yaml:"resourceStrategy,omitempty"`
	// ProxyPolicy is fail or eager (default: fail).
	ProxyPolicy string `json:"proxyPolicy,omitempty" yaml:"proxyPolicy,omitempty"`
	// LogLevel is debug, info, warn or error (default: info).
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	// Parallel bounds concurrent invocations in a suite (default: 4).
	Parallel int `json:"parallel,omitempty" yaml:"parallel,omitempty"`

	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// MetricsConfig controls the Prometheus phase observer.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"` // metric name prefix (default: testrig)
}

// TracingConfig controls the OpenTelemetry phase observer.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"` // default: testrig
}
