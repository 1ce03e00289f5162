package di_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectrean/di-modules"
	"github.com/sectrean/di-modules/internal/testtypes"
	"github.com/sectrean/di-modules/internal/testutils"
)

type EmbeddedFields struct {
	A *testtypes.StructA `di:""`
}

type EmbeddingTarget struct {
	*EmbeddedFields
}

func Test_Populate(t *testing.T) {
	ctx := context.Background()

	t.Run("fields set", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithModule(di.NewModule("ResourceModule",
				di.Imports(newRepositoryModule()),
				di.Provide(testtypes.NewResourceService),
				di.Exports[*testtypes.ResourceService](),
			)),
			di.WithService(&testtypes.StructA{Tag: "config"}, di.WithTag("config"), di.As[any]()),
		)
		require.NoError(t, err)

		var h testtypes.ResourceHandler
		err = di.Populate(ctx, c, &h)
		require.NoError(t, err)

		assert.NotNil(t, h.Service)
		assert.Equal(t, &testtypes.StructA{Tag: "config"}, h.Config)
		assert.Empty(t, h.Ignored)
	})

	t.Run("context and scope fields", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		var target struct {
			Ctx   context.Context `di:""`
			Scope di.Scope        `di:""`
		}
		err = di.Populate(ctx, c, &target)
		require.NoError(t, err)

		assert.Equal(t, ctx, target.Ctx)
		assert.Same(t, c, target.Scope)
	})

	t.Run("field not registered", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithService(&testtypes.StructA{Tag: "config"}, di.WithTag("config"), di.As[any]()),
		)
		require.NoError(t, err)

		var h testtypes.ResourceHandler
		err = di.Populate(ctx, c, &h)
		testutils.LogError(t, err)

		assert.ErrorIs(t, err, di.ErrTypeNotRegistered)

		var unknownErr *di.UnknownDependencyError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, di.InjectionFailure{
			Consumer:     "ResourceHandler",
			DeclaredType: "ResourceService",
			Dependencies: []string{"ResourceService", "config"},
			Field:        "Service",
		}, unknownErr.Failure)
		assert.EqualError(t, err, "di.Populate *testtypes.ResourceHandler: "+
			"di can't resolve dependencies of the ResourceHandler (ResourceService, config). "+
			`Please make sure that the "Service" field is available in the current context.`+"\n"+
			"\n"+
			"Potential solutions:\n"+
			"- Is current a valid di module?\n"+
			"- If ResourceService is a provider, is it part of the current current?\n"+
			"- If ResourceService is exported from a separate di.Module, is that module imported within current?\n")
	})

	t.Run("nil target", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		var h *testtypes.ResourceHandler
		err = di.Populate(ctx, c, h)
		testutils.LogError(t, err)

		assert.EqualError(t, err,
			"di.Populate *testtypes.ResourceHandler: target must be a non-nil pointer to a struct")
	})

	t.Run("not a struct", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		err = di.Populate(ctx, c, testtypes.ResourceHandler{})
		testutils.LogError(t, err)

		assert.EqualError(t, err,
			"di.Populate testtypes.ResourceHandler: target must be a non-nil pointer to a struct")
	})

	t.Run("invalid tag", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		var target struct {
			A testtypes.InterfaceA `di:"name=a"`
		}
		err = di.Populate(ctx, c, &target)
		testutils.LogError(t, err)

		assert.ErrorContains(t, err, `field A: invalid di tag "name=a"`)
	})

	t.Run("unexported field", func(t *testing.T) {
		c, err := di.NewContainer()
		require.NoError(t, err)

		var target struct {
			a testtypes.InterfaceA `di:""`
		}
		err = di.Populate(ctx, c, &target)
		testutils.LogError(t, err)

		assert.ErrorContains(t, err, "field a: field must be exported")
		assert.Nil(t, target.a)
	})

	t.Run("embedded pointer", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithService(&testtypes.StructA{Tag: "embedded"}),
		)
		require.NoError(t, err)

		target := EmbeddingTarget{EmbeddedFields: &EmbeddedFields{}}
		err = di.Populate(ctx, c, &target)
		require.NoError(t, err)

		assert.Equal(t, &testtypes.StructA{Tag: "embedded"}, target.A)
	})

	t.Run("nil embedded pointer", func(t *testing.T) {
		c, err := di.NewContainer(
			di.WithService(&testtypes.StructA{Tag: "embedded"}),
		)
		require.NoError(t, err)

		var target EmbeddingTarget
		assert.NotPanics(t, func() {
			err = di.Populate(ctx, c, &target)
		})
		testutils.LogError(t, err)

		assert.ErrorContains(t, err, "di.Populate *di_test.EmbeddingTarget: field A: "+
			"reflect: indirection through nil pointer to embedded struct")
		assert.Nil(t, target.EmbeddedFields)
	})

	t.Run("logs unknown dependency", func(t *testing.T) {
		var buf bytes.Buffer

		c, err := di.NewContainer(
			di.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
		)
		require.NoError(t, err)

		var h testtypes.ResourceHandler
		err = di.Populate(ctx, c, &h)
		require.Error(t, err)

		assert.Contains(t, buf.String(), `"msg":"unknown dependency"`)
		assert.Contains(t, buf.String(), `"consumer":"ResourceHandler"`)
		assert.Contains(t, buf.String(), `"field":"Service"`)
		assert.Contains(t, buf.String(), `"container":"`+c.ID().String()+`"`)
	})
}
