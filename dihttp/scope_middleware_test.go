package dihttp_test

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sectrean/di-modules"
	"github.com/sectrean/di-modules/dicontext"
	"github.com/sectrean/di-modules/dihttp"
	"github.com/sectrean/di-modules/internal/mocks"
	"github.com/sectrean/di-modules/internal/testtypes"
	"github.com/sectrean/di-modules/internal/testutils"
)

func Test_NewRequestScopeMiddleware(t *testing.T) {
	t.Run("nil parent", func(t *testing.T) {
		mw, err := dihttp.NewRequestScopeMiddleware(nil)
		testutils.LogError(t, err)

		assert.Nil(t, mw)
		assert.EqualError(t, err, "dihttp.NewRequestScopeMiddleware: parent is nil")
	})

	t.Run("with new scope error handler nil", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		mw, err := dihttp.NewRequestScopeMiddleware(c,
			dihttp.WithNewScopeErrorHandler(nil),
		)
		testutils.LogError(t, err)

		assert.Nil(t, mw)
		assert.EqualError(t, err, "dihttp.NewRequestScopeMiddleware: WithNewScopeErrorHandler: h is nil")
	})

	t.Run("with scope close error handler nil", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		mw, err := dihttp.NewRequestScopeMiddleware(c,
			dihttp.WithScopeCloseErrorHandler(nil),
		)
		testutils.LogError(t, err)

		assert.Nil(t, mw)
		assert.EqualError(t, err, "dihttp.NewRequestScopeMiddleware: WithScopeCloseErrorHandler: h is nil")
	})

	t.Run("with logger nil", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		mw, err := dihttp.NewRequestScopeMiddleware(c,
			dihttp.WithLogger(nil),
		)
		testutils.LogError(t, err)

		assert.Nil(t, mw)
		assert.EqualError(t, err, "dihttp.NewRequestScopeMiddleware: WithLogger: logger is nil")
	})

	t.Run("multiple middleware calls", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		mw, err := dihttp.NewRequestScopeMiddleware(c)
		require.NoError(t, err)

		handlerA := mw(http.NotFoundHandler())
		handlerB := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		gotA := RunRequest(t, handlerA, "/")
		assert.Equal(t, http.StatusNotFound, gotA)

		gotB := RunRequest(t, handlerB, "/")
		assert.Equal(t, http.StatusInternalServerError, gotB)
	})
}

func Test_Middleware(t *testing.T) {
	t.Run("scoped service", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithService(testtypes.NewInterfaceA),
			di.WithService(testtypes.NewInterfaceB, di.Scoped),
		)
		require.NoError(t, err)

		mw, err := dihttp.NewRequestScopeMiddleware(c)
		require.NoError(t, err)

		r := chi.NewRouter()
		r.Use(mw)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			b, resolveErr := dicontext.Resolve[testtypes.InterfaceB](r.Context())
			assert.NotNil(t, b)
			assert.NoError(t, resolveErr)

			w.WriteHeader(http.StatusOK)
		})

		code := RunRequest(t, r, "/")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("*http.Request service", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		mw, err := dihttp.NewRequestScopeMiddleware(c)
		require.NoError(t, err)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req, resolveErr := dicontext.Resolve[*http.Request](ctx)

			assert.Equal(t, r, req.WithContext(ctx))
			assert.NoError(t, resolveErr)

			w.WriteHeader(http.StatusOK)
		})

		code := RunRequest(t, mw(handler), "/")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("module service", func(t *testing.T) {
		repo := di.NewModule("RepositoryModule",
			di.Provide(testtypes.NewResourceRepository),
			di.Exports[*testtypes.ResourceRepository](),
		)

		c, err := di.NewContainer(
			di.WithModule(repo),
		)
		require.NoError(t, err)

		mw, err := dihttp.NewRequestScopeMiddleware(c,
			dihttp.WithContainerOptions(
				di.WithModule(di.NewModule("ResourceModule",
					di.Imports(repo),
					di.Provide(testtypes.NewResourceService),
				)),
			),
		)
		require.NoError(t, err)

		r := chi.NewRouter()
		r.Use(mw)
		r.Get("/resources", func(w http.ResponseWriter, r *http.Request) {
			svc := dicontext.MustResolve[*testtypes.ResourceService](r.Context())
			_, _ = fmt.Fprint(w, svc.Repo.Name)
		})

		res := httptest.NewRecorder()
		r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/resources", http.NoBody))
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "default", res.Body.String())
	})

	t.Run("unknown dependency", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithModule(di.NewModule("ResourceModule",
				di.Provide(testtypes.NewResourceService, di.Scoped),
			)),
		)
		require.NoError(t, err)

		mw, err := dihttp.NewRequestScopeMiddleware(c)
		require.NoError(t, err)

		r := chi.NewRouter()
		r.Use(mw)
		r.Get("/resources", func(w http.ResponseWriter, r *http.Request) {
			_, resolveErr := dicontext.Resolve[*testtypes.ResourceService](r.Context())
			testutils.LogError(t, resolveErr)

			var unknownErr *di.UnknownDependencyError
			if assert.ErrorAs(t, resolveErr, &unknownErr) {
				assert.Equal(t, "ResourceService", unknownErr.Failure.Consumer)
				assert.Equal(t, "ResourceModule", unknownErr.Failure.Module)
			}

			w.WriteHeader(http.StatusInternalServerError)
		})

		code := RunRequest(t, r, "/resources")
		assert.Equal(t, http.StatusInternalServerError, code)
	})

	t.Run("concurrent requests", func(t *testing.T) {
		// Inject the *http.Request into a scoped service for a number of concurrent requests
		// and check that each handler sees its own request.
		const concurrency = 1000

		c, err := di.NewContainer(
			di.WithService(func(r *http.Request) *testtypes.StructA {
				return &testtypes.StructA{
					Tag: chi.URLParam(r, "id"),
				}
			}, di.Scoped),
		)
		require.NoError(t, err)

		mw, err := dihttp.NewRequestScopeMiddleware(c)
		require.NoError(t, err)

		tags := make(chan any, concurrency)
		expectedTags := make(chan any, concurrency)

		r := chi.NewRouter()
		r.Use(mw)
		r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
			a, resolveErr := dicontext.Resolve[*testtypes.StructA](r.Context())
			assert.NotNil(t, a)
			assert.NoError(t, resolveErr)

			assert.Equal(t, chi.URLParam(r, "id"), a.Tag)
			tags <- a.Tag
		})

		testutils.RunParallel(concurrency, func(i int) {
			id := fmt.Sprint(i)
			expectedTags <- id

			RunRequest(t, r, "/items/"+id)
		})

		close(tags)
		close(expectedTags)

		assert.ElementsMatch(t, testutils.CollectChannel(expectedTags), testutils.CollectChannel(tags))
	})

	t.Run("new scope error", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		called := false

		mw, err := dihttp.NewRequestScopeMiddleware(c,
			dihttp.WithContainerOptions(
				di.WithService(nil),
			),
			dihttp.WithNewScopeErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				assert.NotNil(t, w)
				assert.NotNil(t, r)
				assert.EqualError(t, err, "di.Container.NewScope: with service: funcOrValue is nil")
				called = true

				w.WriteHeader(599)
			}),
		)
		require.NoError(t, err)

		handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			assert.Fail(t, "handler should not get called")
		})

		code := RunRequest(t, mw(handler), "/")
		assert.Equal(t, 599, code)

		assert.True(t, called)
	})

	t.Run("default new scope error handler", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		var buf bytes.Buffer

		mw, err := dihttp.NewRequestScopeMiddleware(c,
			dihttp.WithContainerOptions(
				di.WithService(nil),
			),
			dihttp.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
		)
		require.NoError(t, err)

		code := RunRequest(t, mw(http.NotFoundHandler()), "/")
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Contains(t, buf.String(), `"msg":"error creating new HTTP request scope"`)
	})

	t.Run("close error", func(t *testing.T) {
		m := mocks.NewCloserMock(t)
		m.On("Close", mock.Anything).Return(stderrors.New("close error")).Once()

		c, err := di.NewContainer(
			di.WithService(func() *mocks.CloserMock { return m }, di.Scoped),
		)
		require.NoError(t, err)

		called := false

		mw, err := dihttp.NewRequestScopeMiddleware(c,
			dihttp.WithScopeCloseErrorHandler(func(r *http.Request, err error) {
				assert.NotNil(t, r)
				assert.EqualError(t, err, "di.Container.Close: close error")
				called = true
			}),
		)
		require.NoError(t, err)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			closer, resolveErr := dicontext.Resolve[*mocks.CloserMock](r.Context())
			assert.NotNil(t, closer)
			assert.NoError(t, resolveErr)

			w.WriteHeader(http.StatusOK)
		})

		code := RunRequest(t, mw(handler), "/")
		assert.Equal(t, http.StatusOK, code)

		assert.True(t, called)
	})
}

func RunRequest(t *testing.T, h http.Handler, path string) int {
	res := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, path, http.NoBody)
	require.NoError(t, err)

	h.ServeHTTP(res, req)
	return res.Code
}
