package service

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNotInitialized is returned by native lookups before Init.
	ErrNotInitialized = errors.New("service facade not initialized")
	// ErrAlreadyInitialized is returned by AddModules after Init.
	ErrAlreadyInitialized = errors.New("service facade already initialized")
	// ErrDestroyed is returned by every operation after Destroy.
	ErrDestroyed = errors.New("service facade destroyed")
)

// NotFoundError reports that no binding matches a lookup.
type NotFoundError struct {
	Contract reflect.Type
	Name     string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("no binding for %v", e.Contract)
	}
	return fmt.Sprintf("no binding for %v named %q", e.Contract, e.Name)
}

// IsNotFound checks if an error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// AmbiguousError reports that a native lookup matched several bindings.
type AmbiguousError struct {
	Contract   reflect.Type
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous binding for %v: %d candidates %v", e.Contract, len(e.Candidates), e.Candidates)
}

// IsAmbiguous checks if an error is or wraps an AmbiguousError.
func IsAmbiguous(err error) bool {
	var ambiguousErr *AmbiguousError
	return errors.As(err, &ambiguousErr)
}
