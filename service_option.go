package di

import (
	"reflect"

	"github.com/sectrean/di-modules/internal/errors"
)

// ServiceOption can be used when calling [WithService] or [Provide].
//
// Available options:
//   - [Lifetime] specifies how services are created when resolved.
//   - [As] registers an alias for a service.
//   - [WithTag] specifies the tag associated with a service.
//   - [WithTagged] specifies a tag for a dependency.
//   - [WithCloseFunc] specifies a function to be called when the service is closed.
//   - [IgnoreCloser] specifies that the service should not be closed by the Container.
//   - [WithCloser] specifies that the service should be closed by the Container.
type ServiceOption interface {
	applyServiceConfig(serviceConfig) error
}

type serviceOption func(serviceConfig) error

func (o serviceOption) applyServiceConfig(sc serviceConfig) error {
	return o(sc)
}

// As registers an alias for a service. Use when calling [WithService] or [Provide].
//
// The service type must be assignable to T.
func As[T any]() ServiceOption {
	return serviceOption(func(sc serviceConfig) error {
		err := sc.AddAlias(reflect.TypeFor[T]())
		return errors.Wrapf(err, "as %s", reflect.TypeFor[T]())
	})
}
