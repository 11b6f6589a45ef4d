package config

import (
	"fmt"
	"strings"

	"testrig/internal/lifecycle"
	"testrig/pkg/logging"
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

// Validate checks every field and reports all problems at once.
func (c RigConfig) Validate() error {
	var errs ValidationErrors

	if _, err := lifecycle.ParseLevel(c.Level); err != nil {
		errs.Add("level", "must be one of: isolated, container, e2e", c.Level)
	}
	if _, err := lifecycle.ParseResourceStrategy(c.ResourceStrategy); err != nil {
		errs.Add("resourceStrategy", "must be one of: eager, lazy", c.ResourceStrategy)
	}
	if _, err := lifecycle.ParseProxyPolicy(c.ProxyPolicy); err != nil {
		errs.Add("proxyPolicy", "must be one of: fail, eager", c.ProxyPolicy)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs.Add("logLevel", "must be one of: debug, info, warn, error", c.LogLevel)
	}
	if c.Parallel < 1 {
		errs.Add("parallel", "must be at least 1", c.Parallel)
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Namespace) == "" {
		errs.Add("metrics.namespace", "is required when metrics are enabled")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Settings is the typed form of a validated RigConfig.
type Settings struct {
	Level            lifecycle.Level
	ResourceStrategy lifecycle.ResourceStrategy
	ProxyPolicy      lifecycle.ProxyPolicy
	LogLevel         logging.LogLevel
	Parallel         int
}

// Settings validates c and converts it.
func (c RigConfig) Settings() (Settings, error) {
	if err := c.Validate(); err != nil {
		return Settings{}, err
	}
	// Parsing cannot fail after Validate.
	level, _ := lifecycle.ParseLevel(c.Level)
	strategy, _ := lifecycle.ParseResourceStrategy(c.ResourceStrategy)
	policy, _ := lifecycle.ParseProxyPolicy(c.ProxyPolicy)
	logLevel, _ := logging.ParseLevel(c.LogLevel)
	return Settings{
		Level:            level,
		ResourceStrategy: strategy,
		ProxyPolicy:      policy,
		LogLevel:         logLevel,
		Parallel:         c.Parallel,
	}, nil
}

// OrchestratorOptions returns the lifecycle options implied by s.
func (s Settings) OrchestratorOptions() []lifecycle.Option {
	return []lifecycle.Option{
		lifecycle.WithResourceStrategy(s.ResourceStrategy),
		lifecycle.WithProxyPolicy(s.ProxyPolicy),
	}
}
