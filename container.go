package di

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/sectrean/di-modules/internal/errors"
)

// Container is a dependency injection container.
// It is used to resolve services by first resolving their dependencies.
type Container struct {
	id        uuid.UUID
	parent    *Container
	logger    *slog.Logger
	services  map[serviceKey][]service
	ordered   []service
	modules   []*Module
	resolved  *xsync.MapOf[service, *resolveFuture]
	closers   []Closer
	closedMu  sync.RWMutex
	closersMu sync.Mutex
	closed    bool
}

var _ Scope = (*Container)(nil)

// NewContainer creates a new [Container] with the provided options.
//
// Available options:
//   - [WithService] registers a service with a value or constructor function.
//   - [WithModule] adds a [Module] and the modules it imports.
//   - [WithLogger] sets the logger used by the Container.
//   - [WithDependencyValidation] validates service dependencies.
func NewContainer(opts ...ContainerOption) (*Container, error) {
	c := newContainer(nil)

	err := c.applyOptions(opts)
	if err != nil {
		return nil, errors.Wrap(err, "di.NewContainer")
	}

	return c, nil
}

func newContainer(parent *Container) *Container {
	c := &Container{
		id:       uuid.New(),
		parent:   parent,
		logger:   discardLogger,
		services: make(map[serviceKey][]service),
		resolved: xsync.NewMapOf[service, *resolveFuture](),
	}

	if parent != nil {
		c.logger = parent.logger
	}

	return c
}

// ID returns the unique identifier of the Container, used to correlate log records.
func (c *Container) ID() uuid.UUID {
	return c.id
}

// ContainerOption is used to configure a new [Container] when calling [NewContainer]
// or [Container.NewScope].
type ContainerOption interface {
	order() optionOrder
	applyContainer(*Container) error
}

func (c *Container) applyOptions(opts []ContainerOption) error {
	opts = append(slices.Clone(opts),
		newContainerOption(orderModules, (*Container).validateModules),
	)

	// Sort options by precedence
	// Use stable sort because the registration order of services matters
	slices.SortStableFunc(opts, func(a, b ContainerOption) int {
		return cmp.Compare(a.order(), b.order())
	})

	var errs []error
	for _, o := range opts {
		err := o.applyContainer(c)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (c *Container) register(sc serviceConfig) {
	c.ordered = append(c.ordered, sc)
	c.registerType(sc.Type(), sc)
	for _, alias := range sc.Aliases() {
		c.registerType(alias, sc)
	}

	// Add closers for value services
	// We don't need to take locks here because this is only called when creating a new Container
	if vs, ok := sc.(*valueService); ok {
		if closer := sc.CloserFor(vs.val); closer != nil {
			c.closers = append(c.closers, closer)
		}
	}

	c.logger.Debug("service registered",
		"container", c.id,
		"service", sc.Key().String(),
		"module", sc.Module().Name(),
		"lifetime", sc.Lifetime().String(),
	)
}

func (c *Container) registerType(t reflect.Type, sc serviceConfig) {
	key := serviceKey{
		Type: t,
		Tag:  sc.Tag(),
	}
	c.services[key] = append(c.services[key], sc)
}

// WithDependencyValidation validates registered services on [Container] creation.
//
// This will check that all dependencies are visible to the services that need them
// and that there are no dependency cycles.
// Missing dependencies are reported as [*UnknownDependencyError].
//
// Scoped services are not validated because depedencies may be registered with a child scope.
func WithDependencyValidation() ContainerOption {
	return newContainerOption(orderValidation, func(c *Container) error {
		err := c.validateDependencies()
		if err != nil {
			return errors.Wrap(err, "with dependency validation")
		}

		return nil
	})
}

func (c *Container) validateDependencies() error {
	var errs errors.MultiError
	svcProblems := make(map[service]error)

	validate := func(svc service) {
		err := c.validateService(svc, svcProblems, make(resolveVisitor))
		errs = errs.Append(errors.Wrapf(err, "service %s", svc.Key()))
	}

	for _, svc := range c.ordered {
		if svc.Lifetime() == Scoped {
			// Scoped services are not validated
			continue
		}
		validate(svc)
	}

	if c.parent != nil {
		// Validate scoped services of the parent Container with this scope
		for _, svc := range c.parent.ordered {
			if svc.Lifetime() == Scoped {
				validate(svc)
			}
		}
	}

	return errs.Join()
}

func (c *Container) validateService(svc service, svcProblems map[service]error, visitor resolveVisitor) error {
	if prob, ok := svcProblems[svc]; ok {
		return prob
	}

	deps := svc.Dependencies()
	if len(deps) == 0 {
		svcProblems[svc] = nil
		return nil
	}

	if !visitor.Enter(svc) {
		return ErrDependencyCycle
	}
	defer visitor.Leave(svc)

	var problems []error
	for i, depKey := range deps {
		if depKey.Type == typeContext || depKey.Type == typeScope {
			continue
		}

		depSvc := c.lookupService(depKey, svc.Module())
		if depSvc == nil {
			problems = append(problems, newUnknownDependencyError(svc, i))
			continue
		}

		err := c.validateService(depSvc, svcProblems, visitor)
		if err != nil {
			problems = append(problems, errors.Wrapf(err, "dependency %s", depKey))
		}
	}

	err := errors.Join(problems...)
	svcProblems[svc] = err
	return err
}

// lookupService returns the service for key that a service provided by consumer can depend on.
//
// The consumer's own providers come first, then exports of its imports, then exports of
// global modules, then services registered directly with the Container.
// Within the same visibility the last registered service in the nearest scope wins.
func (c *Container) lookupService(key serviceKey, consumer *Module) service {
	var found service
	best := notVisible

	for scope := c; scope != nil && best < visibleOwn; scope = scope.parent {
		svcs := scope.services[key]
		for i := len(svcs) - 1; i >= 0; i-- {
			if v := c.visibilityOf(consumer, svcs[i], key); v > best {
				found, best = svcs[i], v
			}
		}
	}

	return found
}

// NewScope creates a new [Container] with a child scope.
//
// Services registered with the parent [Container] will be inherited by the child [Container].
// Additional services can be registered with the new scope if needed and they will be isolated from
// the parent and sibling containers.
//
// Available options:
//   - [WithService] registers a service with a value or a function.
//   - [WithModule] adds a [Module] and the modules it imports.
//   - [WithLogger] sets the logger used by the scope.
//   - [WithDependencyValidation] validates service dependencies.
func (c *Container) NewScope(opts ...ContainerOption) (*Container, error) {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()

	if c.closed {
		return nil, errors.Wrap(ErrContainerClosed, "di.Container.NewScope")
	}

	scope := newContainer(c)

	err := scope.applyOptions(opts)
	if err != nil {
		return nil, errors.Wrap(err, "di.Container.NewScope")
	}

	scope.logger.Debug("scope created", "container", scope.id, "parent", c.id)
	return scope, nil
}

// Contains returns true if the [Container] has a service registered for the given [reflect.Type].
//
// Available options:
//   - [WithTag] specifies the tag associated with the service.
func (c *Container) Contains(t reflect.Type, opts ...ResolveOption) bool {
	key := serviceKey{Type: t}
	for _, opt := range opts {
		key = opt.applyServiceKey(key)
	}

	for scope := c; scope != nil; scope = scope.parent {
		if _, found := scope.services[key]; found {
			return true
		}
	}

	return false
}

// Resolve a service of the given [reflect.Type].
//
// Every registered service can be resolved from the Container, regardless of the
// [Module] that provides it.
// This will return an error if the [Container] has been closed.
//
// Available options:
//   - [WithTag] specifies the tag associated with the service.
func (c *Container) Resolve(ctx context.Context, t reflect.Type, opts ...ResolveOption) (any, error) {
	key := serviceKey{Type: t}
	for _, opt := range opts {
		key = opt.applyServiceKey(key)
	}

	c.closedMu.RLock()
	defer c.closedMu.RUnlock()

	if c.closed {
		return nil, errors.Wrapf(ErrContainerClosed, "di.Container.Resolve %s", key)
	}

	svc := c.lookupService(key, nil)
	if svc == nil {
		return nil, errors.Wrapf(ErrTypeNotRegistered, "di.Container.Resolve %s", key)
	}

	val, err := resolveService(ctx, c, key, svc, make(resolveVisitor))
	if err != nil {
		return val, errors.Wrapf(err, "di.Container.Resolve %s", key)
	}

	return val, nil
}

func resolveService(
	ctx context.Context,
	scope *Container,
	key serviceKey,
	svc service,
	visitor resolveVisitor,
) (val any, err error) {
	// Check context for errors
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// For singleton services, use the scope the service is registered with.
	// Otherwise, use the current scope.
	lifetime := svc.Lifetime()
	if lifetime == Singleton {
		scope = svc.Scope()
	} else if lifetime == Scoped && scope == svc.Scope() {
		return nil, errors.New("scoped service must be resolved from a child scope")
	}

	// Throw an error if we've already visited this service
	if !visitor.Enter(svc) {
		return nil, ErrDependencyCycle
	}
	defer visitor.Leave(svc)

	if lifetime == Transient {
		return createService(ctx, scope, key, svc, visitor)
	}

	// For Singleton or Scoped services, the first caller creates the service
	// and everyone else waits for the result.
	future, loaded := scope.resolved.LoadOrCompute(svc, newFuture)
	if loaded {
		return future.Result()
	}

	defer func() {
		if r := recover(); r != nil {
			future.setResult(nil, errors.Errorf("service %s panicked: %v", key, r))
			panic(r)
		}
	}()

	val, err = createService(ctx, scope, key, svc, visitor)
	future.setResult(val, err)

	return val, err
}

func createService(
	ctx context.Context,
	scope *Container,
	key serviceKey,
	svc service,
	visitor resolveVisitor,
) (any, error) {
	// Recursively resolve dependencies
	var depVals []reflect.Value

	deps := svc.Dependencies()
	if len(deps) > 0 {
		depVals = make([]reflect.Value, len(deps))
		for i, depKey := range deps {
			var depVal any
			var depErr error

			switch depKey.Type {
			case typeContext:
				// Pass along the context
				depVal = ctx

			case typeScope:
				var ready func()
				depVal, ready = newInjectedScope(key, scope)
				defer ready()

			default:
				depSvc := scope.lookupService(depKey, svc.Module())
				if depSvc == nil {
					err := newUnknownDependencyError(svc, i)
					logUnknownDependency(ctx, scope, depKey, err)
					return nil, err
				}

				// Recursive call
				depVal, depErr = resolveService(ctx, scope, depKey, depSvc, visitor)
			}

			if depErr != nil {
				// Stop at the first error
				return nil, errors.Wrapf(depErr, "dependency %s", depKey)
			}
			depVals[i] = safeReflectValue(depKey.Type, depVal)
		}
	}

	// Create the service
	val, err := svc.New(depVals)
	if err != nil {
		return val, err
	}

	// Add Closer for the service
	if closer := svc.CloserFor(val); closer != nil {
		scope.closersMu.Lock()
		scope.closers = append(scope.closers, closer)
		scope.closersMu.Unlock()
	}

	scope.logger.DebugContext(ctx, "service resolved",
		"container", scope.id,
		"service", key.String(),
		"lifetime", svc.Lifetime().String(),
	)

	return val, nil
}

func newUnknownDependencyError(svc service, index int) *UnknownDependencyError {
	deps := svc.Dependencies()

	return &UnknownDependencyError{
		Failure: InjectionFailure{
			Consumer:     serviceName(svc),
			Index:        &index,
			DeclaredType: dependencyName(deps[index]),
			Dependencies: dependencyNames(deps),
			Module:       svc.Module().Name(),
		},
	}
}

func logUnknownDependency(ctx context.Context, s Scope, dep serviceKey, err *UnknownDependencyError) {
	if injected, ok := s.(*injectedScope); ok {
		s = injected.scope
	}
	c, ok := s.(*Container)
	if !ok {
		return
	}

	attrs := []any{
		"container", c.id,
		"consumer", err.Failure.Consumer,
		"dependency", dep.String(),
		"module", err.Failure.Module,
	}
	if err.Failure.Index != nil {
		attrs = append(attrs, "index", *err.Failure.Index)
	}
	if err.Failure.Field != "" {
		attrs = append(attrs, "field", err.Failure.Field)
	}

	c.logger.WarnContext(ctx, "unknown dependency", attrs...)
}

// Close the [Container] and resolved services.
//
// Services are closed in the reverse order they were resolved/created.
// Errors returned from closing services are joined together.
//
// Close will return an error if called more than once.
func (c *Container) Close(ctx context.Context) error {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return errors.Wrap(ErrContainerClosed, "di.Container.Close: closed already")
	}
	c.closed = true

	// Close services in LIFO order
	// This is important because of dependencies
	var errs errors.MultiError
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = errs.Append(c.closers[i].Close(ctx))
	}

	if err := errs.Join(); err != nil {
		c.logger.ErrorContext(ctx, "error closing container", "container", c.id, "error", err)
		return errors.Wrap(err, "di.Container.Close")
	}

	return nil
}

// WithLogger sets the [slog.Logger] used by the [Container] and the scopes created from it.
//
// By default the Container does not log.
func WithLogger(logger *slog.Logger) ContainerOption {
	return newContainerOption(orderConfig, func(c *Container) error {
		if logger == nil {
			return errors.New("with logger: logger is nil")
		}

		c.logger = logger
		return nil
	})
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type optionOrder int8

const (
	orderConfig optionOrder = iota
	orderService
	orderModules
	orderValidation
)

func newContainerOption(order optionOrder, fn func(*Container) error) ContainerOption {
	return containerOption{fn: fn, ord: order}
}

type containerOption struct {
	fn  func(*Container) error
	ord optionOrder
}

func (o containerOption) order() optionOrder {
	return o.ord
}

func (o containerOption) applyContainer(c *Container) error {
	return o.fn(c)
}
