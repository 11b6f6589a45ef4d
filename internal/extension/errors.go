package extension

import (
	"errors"
	"fmt"
)

// ErrSealed is returned when registering into a sealed registry.
var ErrSealed = errors.New("extension registry is sealed")

// NotFoundError reports that discovery yielded no implementation for a
// capability the caller requires.
type NotFoundError struct {
	// Capability is the name of the capability interface.
	Capability string
	// Tags are the required tags of the failed lookup.
	Tags []Tag
}

func (e *NotFoundError) Error() string {
	if len(e.Tags) == 0 {
		return fmt.Sprintf("no %s implementation found", e.Capability)
	}
	return fmt.Sprintf("no %s implementation found with tags %v", e.Capability, e.Tags)
}

// IsNotFound checks if an error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// ConfigurationError reports an invalid catalog or an override that does not
// reference a registered implementation. It is always fatal.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// IsConfigurationError checks if an error is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// NewConfigurationError formats a ConfigurationError.
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}
