package di

import (
	"reflect"
	"slices"

	"github.com/sectrean/di-modules/internal/errors"
)

// A Module is a named group of services.
//
// Services provided by a module can depend on the module's other services, on services
// exported by the modules it imports, on services exported by [Global] modules, and on
// services registered directly with the [Container] using [WithService].
//
// Example:
//
//	var DatabaseModule = di.NewModule("DatabaseModule",
//		di.Provide(db.NewDB),
//		di.Exports[*db.DB](),
//	)
//
//	var ResourceModule = di.NewModule("ResourceModule",
//		di.Imports(DatabaseModule),
//		di.Provide(resource.NewService),
//		di.Provide(resource.NewController),
//	)
type Module struct {
	name      string
	imports   []*Module
	providers []provider
	exports   []serviceKey
	global    bool
}

type provider struct {
	funcOrValue any
	opts        []ServiceOption
}

// NewModule creates a new [Module] with the given name.
//
// Available options:
//   - [Imports] makes the exports of other modules available to this module.
//   - [Provide] registers a service with the module.
//   - [Exports] makes a service available to modules that import this module.
//   - [Global] makes the module's exports available to every module.
func NewModule(name string, opts ...ModuleOption) *Module {
	m := &Module{name: name}
	for _, opt := range opts {
		opt.applyModule(m)
	}

	return m
}

// Name returns the name of the module.
func (m *Module) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

func (m *Module) String() string {
	return m.name
}

// ModuleOption is used to configure a [Module] when calling [NewModule].
type ModuleOption interface {
	applyModule(*Module)
}

type moduleOption func(*Module)

func (o moduleOption) applyModule(m *Module) {
	o(m)
}

// Imports makes services exported by the given modules available to the module.
//
// Imported modules are added to the [Container] along with the importing module.
func Imports(mods ...*Module) ModuleOption {
	return moduleOption(func(m *Module) {
		m.imports = append(m.imports, mods...)
	})
}

// Provide registers a function or value with the module.
// See [WithService] for the supported functions, values, and options.
func Provide(funcOrValue any, opts ...ServiceOption) ModuleOption {
	return moduleOption(func(m *Module) {
		m.providers = append(m.providers, provider{funcOrValue, opts})
	})
}

// Exports makes the service of type Service available to modules that import the module.
//
// The service must be provided by the module or exported by one of its imports.
//
// Available options:
//   - [WithTag] specifies the tag associated with the service.
func Exports[Service any](opts ...ResolveOption) ModuleOption {
	key := serviceKey{Type: reflect.TypeFor[Service]()}
	for _, opt := range opts {
		key = opt.applyServiceKey(key)
	}

	return moduleOption(func(m *Module) {
		m.exports = append(m.exports, key)
	})
}

// Global makes the module's exports available to every module in the [Container]
// without importing it.
func Global() ModuleOption {
	return moduleOption(func(m *Module) {
		m.global = true
	})
}

// WithModule adds a [Module] and the modules it imports when calling [NewContainer]
// or [Container.NewScope].
//
// Each module is added once, even if it is imported by several modules.
//
// Example:
//
//	c, err := di.NewContainer(
//		di.WithModule(ResourceModule),
//		di.WithService(logger),
//	)
func WithModule(m *Module) ContainerOption {
	return newContainerOption(orderService, func(c *Container) error {
		if m == nil {
			return errors.New("with module: module is nil")
		}

		return c.addModule(m)
	})
}

func (c *Container) addModule(m *Module) error {
	for scope := c; scope != nil; scope = scope.parent {
		for _, existing := range scope.modules {
			if existing == m {
				return nil
			}
			if existing.name == m.name {
				return errors.Errorf("with module %s: another module with the same name is registered", m)
			}
		}
	}

	c.modules = append(c.modules, m)

	var errs errors.MultiError
	for _, imp := range m.imports {
		if imp == nil {
			errs = errs.Append(errors.New("imported module is nil"))
			continue
		}

		errs = errs.Append(c.addModule(imp))
	}

	for _, p := range m.providers {
		sc, err := newService(c, m, p.funcOrValue, p.opts)
		if err != nil {
			errs = errs.Append(err)
			continue
		}

		c.register(sc)
	}

	c.logger.Debug("module added",
		"container", c.id,
		"module", m.name,
		"providers", len(m.providers),
	)

	return errs.Wrapf("with module %s", m)
}

// validateModules checks that every exported service is provided by the module or
// exported by one of its imports.
func (c *Container) validateModules() error {
	var errs errors.MultiError
	for _, m := range c.modules {
		for _, key := range m.exports {
			if !c.moduleProvides(m, key, nil) {
				errs = errs.Append(errors.Errorf(
					"module %s: exports %s: service is not provided by the module or its imports", m, key))
			}
		}
	}

	return errs.Join()
}

func (c *Container) moduleProvides(m *Module, key serviceKey, visited []*Module) bool {
	if slices.Contains(visited, m) {
		return false
	}
	visited = append(visited, m)

	for scope := c; scope != nil; scope = scope.parent {
		for _, svc := range scope.services[key] {
			if svc.Module() == m {
				return true
			}
		}
	}

	for _, imp := range m.imports {
		if imp.isExported(key) && c.moduleProvides(imp, key, visited) {
			return true
		}
	}

	return false
}

func (m *Module) isExported(key serviceKey) bool {
	return slices.Contains(m.exports, key)
}

// exportsService returns true if svc is available under key to modules that import m.
func (m *Module) exportsService(svc service, key serviceKey, visited []*Module) bool {
	if !m.isExported(key) || slices.Contains(visited, m) {
		return false
	}
	if svc.Module() == m {
		return true
	}

	visited = append(visited, m)
	for _, imp := range m.imports {
		if imp.exportsService(svc, key, visited) {
			return true
		}
	}

	return false
}

type visibility int8

const (
	notVisible visibility = iota
	visibleRoot
	visibleGlobal
	visibleImported
	visibleOwn
)

// visibilityOf reports how a service provided by consumer sees svc.
// A higher visibility takes precedence when several services are registered for a key.
func (c *Container) visibilityOf(consumer *Module, svc service, key serviceKey) visibility {
	owner := svc.Module()
	switch {
	case consumer == nil || owner == consumer:
		return visibleOwn
	case owner == nil:
		return visibleRoot
	}

	for _, imp := range consumer.imports {
		if imp.exportsService(svc, key, nil) {
			return visibleImported
		}
	}

	for scope := c; scope != nil; scope = scope.parent {
		for _, m := range scope.modules {
			if m.global && m != consumer && m.exportsService(svc, key, nil) {
				return visibleGlobal
			}
		}
	}

	return notVisible
}
