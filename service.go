package di

import (
	"fmt"
	"reflect"

	"github.com/sectrean/di-modules/internal/errors"
)

// WithService registers the provided function or value with a new Container
// when calling [NewContainer] or [Container.NewScope].
//
// If a function is provided, it will be called to create the service when resolved.
//
// This function can take any number of arguments which will also be resolved from the Container.
// The function may also accept a [context.Context] or [di.Scope].
//
// The function must return a service, or the service and an error.
// The service will be registered as the return type of the function (struct, pointer, or interface).
//
// If the resolved service implements [Closer], or a compatible Close method signature,
// it will be closed when the Container is closed.
//
// If a value is provided, it will be returned as the service when resolved.
// The value can be a struct or pointer.
// (It will be registered as the actual type even if the the variable was declared as an interface.)
//
// Services registered with WithService do not belong to a [Module] and are visible to
// every service in the Container.
//
// Available options:
//   - [Lifetime] is used to specify how services are created when resolved.
//   - [As] registers an alias for a service.
//   - [WithTag] specifies the tag associated with a service.
//   - [WithTagged] specifies a tag for a service dependency.
//   - [WithCloseFunc] specifies a function to be called when the service is closed.
//   - [IgnoreCloser] specifies that the service should not be closed by the Container.
//   - [WithCloser] specifies that the service should be closed by the Container if it implements [Closer]
//     or a compatible function signature. This is the default for function services.
func WithService(funcOrValue any, opts ...ServiceOption) ContainerOption {
	return newContainerOption(orderService, func(c *Container) error {
		sc, err := newService(c, nil, funcOrValue, opts)
		if err != nil {
			return err
		}

		c.register(sc)
		return nil
	})
}

func newService(c *Container, m *Module, funcOrValue any, opts []ServiceOption) (serviceConfig, error) {
	// Use a single WithService function for both function and value services
	// because it's easier to use than separate functions.
	if funcOrValue == nil {
		return nil, errors.New("with service: funcOrValue is nil")
	}

	if _, ok := funcOrValue.(ServiceOption); ok {
		return nil, errors.Errorf("with service %T: unexpected ServiceOption as funcOrValue", funcOrValue)
	}

	var sc serviceConfig
	var err error
	if reflect.TypeOf(funcOrValue).Kind() == reflect.Func {
		sc, err = newFuncService(c, m, funcOrValue, opts...)
	} else {
		sc, err = newValueService(c, m, funcOrValue, opts...)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "with service %T", funcOrValue)
	}

	return sc, nil
}

func validateServiceType(t reflect.Type) error {
	switch t {
	// These are the only special types used by the Container.
	case typeContext,
		typeScope,
		typeError:
		return errors.New("invalid service type")
	}

	switch t.Kind() {
	case reflect.Interface,
		reflect.Pointer,
		reflect.Struct:
		return nil
	}

	return errors.New("invalid service type")
}

// service provides information about a service and how to resolve it.
type service interface {
	// Key returns the primary type and tag of the service.
	Key() serviceKey

	// Type returns the type of the service.
	Type() reflect.Type

	// Tag returns the tag of the service.
	Tag() any

	// Aliases returns the additional types that this service can be resolved as.
	Aliases() []reflect.Type

	// Lifetime returns the lifetime of the service.
	Lifetime() Lifetime

	// Scope returns the Container the service was registered with.
	Scope() *Container

	// Module returns the Module that provides the service, or nil for services
	// registered directly with the Container.
	Module() *Module

	// Dependencies returns the keys of the services that this service depends on.
	Dependencies() []serviceKey

	// New uses the dependencies to create a new instance of the service.
	New(deps []reflect.Value) (any, error)

	// CloserFor returns a Closer for the service, or nil.
	CloserFor(val any) Closer
}

// serviceConfig is a service that can be modified by [ServiceOption]s during registration.
type serviceConfig interface {
	service

	SetLifetime(Lifetime)
	AddAlias(reflect.Type) error
	SetTag(any)
	SetCloserFactory(closerFactory)
}

type serviceKey struct {
	Type reflect.Type
	Tag  any
}

func (k serviceKey) String() string {
	if k.Tag == nil {
		return k.Type.String()
	}
	return fmt.Sprintf("%s (Tag %v)", k.Type, k.Tag)
}

// serviceName is the consumer name reported when a service cannot be created.
func serviceName(svc service) string {
	return typeName(svc.Type())
}
