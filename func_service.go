package di

import (
	"reflect"

	"github.com/sectrean/di-modules/internal/errors"
)

type funcService struct {
	key           serviceKey
	scope         *Container
	module        *Module
	fn            reflect.Value
	deps          []serviceKey
	aliases       []reflect.Type
	closerFactory closerFactory
	lifetime      Lifetime
}

func newFuncService(scope *Container, m *Module, fn any, opts ...ServiceOption) (*funcService, error) {
	fnType := reflect.TypeOf(fn)

	// Get the return type
	var t reflect.Type
	switch {
	case fnType.NumOut() == 1:
		t = fnType.Out(0)
	case fnType.NumOut() == 2 && fnType.Out(1) == typeError:
		t = fnType.Out(0)
	default:
		return nil, errors.New("function must return Service or (Service, error)")
	}

	if err := validateServiceType(t); err != nil {
		return nil, err
	}

	if fnType.IsVariadic() {
		return nil, errors.New("variadic functions are not supported")
	}

	// Get the dependencies
	var deps []serviceKey
	if fnType.NumIn() > 0 {
		deps = make([]serviceKey, fnType.NumIn())
		for i := range fnType.NumIn() {
			deps[i] = serviceKey{Type: fnType.In(i)}
		}
	}

	svc := &funcService{
		key:           serviceKey{Type: t},
		scope:         scope,
		module:        m,
		fn:            reflect.ValueOf(fn),
		deps:          deps,
		closerFactory: getCloser,
	}

	err := applyOptions(opts, func(opt ServiceOption) error {
		return opt.applyServiceConfig(svc)
	})
	if err != nil {
		return nil, err
	}

	return svc, nil
}

func (s *funcService) Key() serviceKey {
	return s.key
}

func (s *funcService) Type() reflect.Type {
	return s.key.Type
}

func (s *funcService) Tag() any {
	return s.key.Tag
}

func (s *funcService) SetTag(tag any) {
	s.key.Tag = tag
}

func (s *funcService) Aliases() []reflect.Type {
	return s.aliases
}

func (s *funcService) AddAlias(alias reflect.Type) error {
	if !s.key.Type.AssignableTo(alias) {
		return errors.Errorf("type %s not assignable to %s", s.key.Type, alias)
	}

	s.aliases = append(s.aliases, alias)
	return nil
}

func (s *funcService) Lifetime() Lifetime {
	return s.lifetime
}

func (s *funcService) SetLifetime(l Lifetime) {
	s.lifetime = l
}

func (s *funcService) Scope() *Container {
	return s.scope
}

func (s *funcService) Module() *Module {
	return s.module
}

func (s *funcService) Dependencies() []serviceKey {
	return s.deps
}

func (s *funcService) New(deps []reflect.Value) (any, error) {
	out := s.fn.Call(deps)

	// Extract the return value and error, if any
	val := out[0].Interface()

	var err error
	if len(out) == 2 {
		err, _ = out[1].Interface().(error)
	}

	return val, err
}

func (s *funcService) CloserFor(val any) Closer {
	if val == nil || s.closerFactory == nil {
		return nil
	}

	return s.closerFactory(val)
}

func (s *funcService) SetCloserFactory(cf closerFactory) {
	s.closerFactory = cf
}

func (s *funcService) String() string {
	return s.fn.Type().String()
}

var _ serviceConfig = (*funcService)(nil)
