package config

const (
	DefaultLevel            = "container"
	DefaultResourceStrategy = "eager"
	DefaultProxyPolicy      = "fail"
	DefaultLogLevel         = "info"
	DefaultParallel         = 4
	DefaultNamespace        = "testrig"
)

// GetDefaultConfig returns the configuration used when no file exists.
func GetDefaultConfig() RigConfig {
	return RigConfig{
		Level:            DefaultLevel,
		ResourceStrategy: DefaultResourceStrategy,
		ProxyPolicy:      DefaultProxyPolicy,
		LogLevel:         DefaultLogLevel,
		Parallel:         DefaultParallel,
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultNamespace,
		},
	}
}
