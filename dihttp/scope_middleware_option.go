package dihttp

import (
	"log/slog"

	"github.com/sectrean/di-modules"
	"github.com/sectrean/di-modules/internal/errors"
)

// ScopeMiddlewareOption is used to configure the scope middleware when calling [NewRequestScopeMiddleware].
type ScopeMiddlewareOption interface {
	applyScopeMiddleware(*scopeMiddleware) error
}

type scopeMiddlewareOption func(*scopeMiddleware) error

func (o scopeMiddlewareOption) applyScopeMiddleware(m *scopeMiddleware) error {
	return o(m)
}

// WithContainerOptions sets the options to use when calling [di.Container.NewScope] for each request.
func WithContainerOptions(opts ...di.ContainerOption) ScopeMiddlewareOption {
	return scopeMiddlewareOption(func(m *scopeMiddleware) error {
		m.opts = append(m.opts, opts...)
		return nil
	})
}

// WithNewScopeErrorHandler sets the error handler for when there is an error creating a new scope.
func WithNewScopeErrorHandler(h NewScopeErrorHandler) ScopeMiddlewareOption {
	return scopeMiddlewareOption(func(m *scopeMiddleware) error {
		if h == nil {
			return errors.New("WithNewScopeErrorHandler: h is nil")
		}

		m.newScopeHandler = h
		return nil
	})
}

// WithScopeCloseErrorHandler sets the error handler for when there is an error closing the scope.
func WithScopeCloseErrorHandler(h ScopeCloseErrorHandler) ScopeMiddlewareOption {
	return scopeMiddlewareOption(func(m *scopeMiddleware) error {
		if h == nil {
			return errors.New("WithScopeCloseErrorHandler: h is nil")
		}

		m.closeHandler = h
		return nil
	})
}

// WithLogger sets the logger used by the default error handlers.
// The default is [slog.Default].
func WithLogger(logger *slog.Logger) ScopeMiddlewareOption {
	return scopeMiddlewareOption(func(m *scopeMiddleware) error {
		if logger == nil {
			return errors.New("WithLogger: logger is nil")
		}

		m.logger = logger
		return nil
	})
}
