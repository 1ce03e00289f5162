package di

import (
	"github.com/sectrean/di-modules/internal/errors"
)

var (
	// ErrTypeNotRegistered is returned when a type is not registered.
	ErrTypeNotRegistered = errors.New("type not registered")
	// ErrDependencyCycle is returned when a dependency cycle is detected.
	ErrDependencyCycle = errors.New("dependency cycle detected")
	// ErrContainerClosed is returned when a closed Container is used.
	ErrContainerClosed = errors.New("container closed")
)

// UnknownDependencyError is returned when a dependency of a service, [Invoke] function,
// or [Populate] target is not available where it is needed.
//
// It matches [ErrTypeNotRegistered] with [errors.Is].
type UnknownDependencyError struct {
	Failure InjectionFailure
}

func (e *UnknownDependencyError) Error() string {
	return FormatUnknownDependencyMessage(e.Failure)
}

func (e *UnknownDependencyError) Unwrap() error {
	return ErrTypeNotRegistered
}
