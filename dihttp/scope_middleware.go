package dihttp

import (
	"log/slog"
	"net/http"

	"github.com/sectrean/di-modules"
	"github.com/sectrean/di-modules/dicontext"
	"github.com/sectrean/di-modules/internal/errors"
)

// NewRequestScopeMiddleware creates a new child container scope for each request.
// The scope is closed after the request has been processed.
//
// The current [*http.Request] is automatically registered with the scope. It can be used as a dependency for scoped services.
//
// The scope is stored on the request context and can be accessed using [dicontext.Scope], [dicontext.Resolve], or [dicontext.MustResolve].
//
// Available options:
//   - [WithContainerOptions] sets [di.ContainerOption]s to use when creating each request scope.
//   - [WithNewScopeErrorHandler] sets the error handler for when there is an error creating a new scope.
//   - [WithScopeCloseErrorHandler] sets the error handler for when there is an error closing the scope.
//   - [WithLogger] sets the logger used by the default error handlers.
func NewRequestScopeMiddleware(parent *di.Container, opts ...ScopeMiddlewareOption) (func(http.Handler) http.Handler, error) {
	if parent == nil {
		return nil, errors.New("dihttp.NewRequestScopeMiddleware: parent is nil")
	}

	mw := &scopeMiddleware{
		parent: parent,
		logger: slog.Default(),
	}
	mw.newScopeHandler = mw.defaultNewScopeErrorHandler
	mw.closeHandler = mw.defaultScopeCloseErrorHandler

	var errs errors.MultiError
	for _, opt := range opts {
		errs = errs.Append(opt.applyScopeMiddleware(mw))
	}
	if err := errs.Wrapf("dihttp.NewRequestScopeMiddleware"); err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mw.serveHTTP(next, w, r)
		})
	}, nil
}

// NewScopeErrorHandler is a function that writes an error response to the client.
// This is called by the scope middleware when there is an error creating the [di.Container].
//
// The default handler logs the error and writes a 500 Internal Server Error response.
type NewScopeErrorHandler = func(w http.ResponseWriter, r *http.Request, err error)

// ScopeCloseErrorHandler is a function that handles errors when closing the [di.Container]
// after the request has completed.
//
// The default handler logs the error.
type ScopeCloseErrorHandler = func(r *http.Request, err error)

type scopeMiddleware struct {
	parent          *di.Container
	opts            []di.ContainerOption
	logger          *slog.Logger
	newScopeHandler NewScopeErrorHandler
	closeHandler    ScopeCloseErrorHandler
}

func (m *scopeMiddleware) defaultNewScopeErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.ErrorContext(r.Context(), "error creating new HTTP request scope", "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (m *scopeMiddleware) defaultScopeCloseErrorHandler(r *http.Request, err error) {
	m.logger.ErrorContext(r.Context(), "error closing HTTP request scope", "error", err)
}

func (m *scopeMiddleware) serveHTTP(next http.Handler, w http.ResponseWriter, r *http.Request) {
	opts := make([]di.ContainerOption, 0, len(m.opts)+1)
	opts = append(opts, m.opts...)
	// Register the *http.Request with the new scope
	opts = append(opts, di.WithService(r))

	scope, err := m.parent.NewScope(opts...)
	if err != nil {
		m.newScopeHandler(w, r, err)
		return
	}

	ctx := dicontext.WithScope(r.Context(), scope)
	next.ServeHTTP(w, r.WithContext(ctx))

	err = scope.Close(ctx)
	if err != nil {
		m.closeHandler(r, err)
	}
}
