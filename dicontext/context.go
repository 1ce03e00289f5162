// Package dicontext stores a [di.Scope] on a [context.Context] and resolves services from it.
package dicontext

import (
	"context"
	"reflect"

	"github.com/sectrean/di-modules"
	"github.com/sectrean/di-modules/internal/errors"
)

type scopeContextKey struct{}

// WithScope returns a new [context.Context] that carries the provided [di.Scope].
func WithScope(ctx context.Context, s di.Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// Scope returns the [di.Scope] stored on the [context.Context], if present.
func Scope(ctx context.Context) di.Scope {
	if s, ok := ctx.Value(scopeContextKey{}).(di.Scope); ok {
		return s
	}
	return nil
}

// Resolve a service of type Service from the [di.Scope] stored on the
// [context.Context].
func Resolve[Service any](ctx context.Context, opts ...di.ResolveOption) (Service, error) {
	var val Service

	s := Scope(ctx)
	if s == nil {
		return val, errors.Errorf("resolve %s from context: scope not found on context",
			reflect.TypeFor[Service]())
	}

	val, err := di.Resolve[Service](ctx, s, opts...)
	return val, errors.Wrap(err, "resolve from context")
}

// MustResolve resolves a service of type Service from the [di.Scope] stored on the
// [context.Context].
//
// If the service cannot be resolved, this function will panic.
func MustResolve[Service any](ctx context.Context, opts ...di.ResolveOption) Service {
	val, err := Resolve[Service](ctx, opts...)
	if err != nil {
		panic(err)
	}
	return val
}
