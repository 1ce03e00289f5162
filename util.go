package di

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sectrean/di-modules/internal/errors"
)

// These are commonly used types.
var (
	typeAny     = reflect.TypeFor[any]()
	typeError   = reflect.TypeFor[error]()
	typeContext = reflect.TypeFor[context.Context]()
	typeScope   = reflect.TypeFor[Scope]()
)

func safeReflectValue(t reflect.Type, val any) reflect.Value {
	if val == nil {
		return reflect.Zero(t)
	}

	return reflect.ValueOf(val)
}

// Apply functional options and join any errors together.
func applyOptions[O any](opts []O, f func(O) error) error {
	var errs []error

	for _, o := range opts {
		err := f(o)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// typeName returns the short name of a type used in diagnostics.
// Pointers are dereferenced and the package qualifier is dropped for named types.
func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// dependencyName returns the name reported for a dependency in an [InjectionFailure].
//
// A dependency declared as any without a tag has no name.
func dependencyName(key serviceKey) string {
	if key.Type == typeAny {
		if key.Tag == nil {
			return ""
		}
		return fmt.Sprint(key.Tag)
	}

	if key.Tag != nil {
		return fmt.Sprintf("%s (Tag %v)", typeName(key.Type), key.Tag)
	}
	return typeName(key.Type)
}

func dependencyNames(keys []serviceKey) []string {
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = dependencyName(key)
	}

	return names
}
