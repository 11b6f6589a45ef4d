// Package catalog assembles the default extension registry: the built-in
// verifiers and reifiers, the memory container adapter, the HTTP server and
// client providers, the sqlite resource and the observers enabled by
// configuration.
package catalog

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"testrig/internal/config"
	"testrig/internal/container/memory"
	"testrig/internal/extension"
	"testrig/internal/lifecycle"
	"testrig/internal/lifecycle/httpclient"
	"testrig/internal/lifecycle/httpserver"
	"testrig/internal/lifecycle/sqlitedb"
	"testrig/internal/metrics"
	"testrig/internal/telemetry"
	"testrig/pkg/logging"
)

// Names of the default extensions.
const (
	ContainerMemory = "memory"
	ServerHTTP      = "http"
	ClientHTTP      = "http"
	FakesFunc       = "funcs"
	ResourceSQLite  = "sqlite"
)

// Option customizes the catalog before it is sealed.
type Option func(*builder)

type builder struct {
	modules   map[string]memory.Module
	fakes     []func(*lifecycle.FuncFakeFactory)
	register  []func(*extension.Registry) error
	server    httpserver.Provider
	client    httpclient.Provider
	sqlite    sqlitedb.Provider
	promReg   prometheus.Registerer
	gatherer  prometheus.Gatherer
	tracerP   trace.TracerProvider
	observers []lifecycle.Observer
}

// WithModule makes m available to descriptors scanning name.
func WithModule(name string, m memory.Module) Option {
	return func(b *builder) { b.modules[name] = m }
}

// WithFakes adds explicit fake constructors to the default FuncFakeFactory.
func WithFakes(fn func(f *lifecycle.FuncFakeFactory)) Option {
	return func(b *builder) { b.fakes = append(b.fakes, fn) }
}

// WithExtensions registers further extensions, e.g. resource providers.
func WithExtensions(fn func(r *extension.Registry) error) Option {
	return func(b *builder) { b.register = append(b.register, fn) }
}

// WithServer replaces the default HTTP server provider settings.
func WithServer(p httpserver.Provider) Option {
	return func(b *builder) { b.server = p }
}

// WithClient replaces the default HTTP client provider settings.
func WithClient(p httpclient.Provider) Option {
	return func(b *builder) { b.client = p }
}

// WithSQLiteSchema runs stmts on every database of the sqlite resource.
func WithSQLiteSchema(stmts ...string) Option {
	return func(b *builder) { b.sqlite.Schema = append(b.sqlite.Schema, stmts...) }
}

// WithMetricsRegistry registers phase metrics with reg instead of a fresh
// registry. It only has an effect when metrics are enabled.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(b *builder) { b.promReg, b.gatherer = reg, reg }
}

// WithTracerProvider traces with tp instead of the global provider. It only
// has an effect when tracing is enabled.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *builder) { b.tracerP = tp }
}

// WithObserver adds observers regardless of configuration.
func WithObserver(obs ...lifecycle.Observer) Option {
	return func(b *builder) { b.observers = append(b.observers, obs...) }
}

// Catalog is a sealed registry together with the settings it was built from.
type Catalog struct {
	registry  *extension.Registry
	adapter   *memory.Adapter
	settings  config.Settings
	observers []lifecycle.Observer
	gatherer  prometheus.Gatherer
}

// New builds and seals the default catalog for cfg.
func New(cfg config.RigConfig, opts ...Option) (*Catalog, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	b := &builder{modules: make(map[string]memory.Module)}
	for _, opt := range opts {
		opt(b)
	}

	adapter := memory.NewAdapter()
	for name, m := range b.modules {
		adapter.AddModule(name, m)
	}
	fakes := lifecycle.NewFuncFakeFactory()
	for _, fn := range b.fakes {
		fn(fakes)
	}

	reg := extension.New()
	// The explicit fakes are registered first so they win over zero values.
	steps := []func() error{
		func() error {
			return extension.Register[lifecycle.FakeFactory](reg, FakesFunc, lifecycle.FakeFactory(fakes), extension.AllLevels...)
		},
		func() error { return lifecycle.RegisterBuiltins(reg) },
		func() error {
			return extension.Register[lifecycle.ContainerAdapter](reg, ContainerMemory, lifecycle.ContainerAdapter(adapter), extension.AllLevels...)
		},
		func() error {
			return extension.Register[lifecycle.ServerProvider](reg, ServerHTTP, lifecycle.ServerProvider(b.server), extension.TagEndToEnd)
		},
		func() error {
			return extension.Register[lifecycle.ClientProvider](reg, ClientHTTP, lifecycle.ClientProvider(b.client), extension.TagEndToEnd)
		},
		func() error {
			return extension.Register[lifecycle.ResourceProvider](reg, ResourceSQLite, lifecycle.ResourceProvider(b.sqlite),
				extension.TagContainer, extension.TagEndToEnd)
		},
	}
	for _, fn := range b.register {
		steps = append(steps, func() error { return fn(reg) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("failed to build catalog: %w", err)
		}
	}
	if err := reg.Seal(); err != nil {
		return nil, fmt.Errorf("failed to seal catalog: %w", err)
	}

	c := &Catalog{
		registry:  reg,
		adapter:   adapter,
		settings:  settings,
		observers: b.observers,
	}

	if cfg.Metrics.Enabled {
		if b.promReg == nil {
			r := prometheus.NewRegistry()
			b.promReg, b.gatherer = r, r
		}
		namespace := cfg.Metrics.Namespace
		if namespace == "" {
			namespace = config.DefaultNamespace
		}
		c.observers = append(c.observers, metrics.NewObserver(b.promReg, namespace))
		c.gatherer = b.gatherer
	}
	if cfg.Tracing.Enabled {
		c.observers = append(c.observers, telemetry.NewObserver(b.tracerP, cfg.Tracing.TracerName))
	}

	logging.Debug("Catalog", "Built catalog with %d extensions and %d observers", len(reg.Entries()), len(c.observers))
	return c, nil
}

// Registry returns the sealed registry.
func (c *Catalog) Registry() *extension.Registry { return c.registry }

// Adapter returns the memory container adapter.
func (c *Catalog) Adapter() *memory.Adapter { return c.adapter }

// Settings returns the validated configuration.
func (c *Catalog) Settings() config.Settings { return c.settings }

// Gatherer exposes the phase metrics, or nil when metrics are disabled.
func (c *Catalog) Gatherer() prometheus.Gatherer { return c.gatherer }

// Orchestrator returns an orchestrator for the configured level.
func (c *Catalog) Orchestrator() *lifecycle.Orchestrator {
	return c.OrchestratorFor(c.settings.Level)
}

// OrchestratorFor returns an orchestrator for level using the configured
// strategies and observers.
func (c *Catalog) OrchestratorFor(level lifecycle.Level) *lifecycle.Orchestrator {
	opts := c.settings.OrchestratorOptions()
	if len(c.observers) > 0 {
		opts = append(opts, lifecycle.WithObserver(c.observers...))
	}
	return lifecycle.New(level, c.registry, opts...)
}
