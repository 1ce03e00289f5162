package di_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/sectrean/di-modules"
	"github.com/sectrean/di-modules/internal/testtypes"
)

func ExampleFormatUnknownDependencyMessage() {
	index := 1
	msg := di.FormatUnknownDependencyMessage(di.InjectionFailure{
		Consumer:     "ResourceController",
		Index:        &index,
		DeclaredType: "ResourceService",
		Dependencies: []string{"ResourceRepository", "ResourceService"},
		Module:       "ResourceModule",
	})

	fmt.Print(msg)
	// Output:
	// di can't resolve dependencies of the ResourceController (ResourceRepository, ?). Please make sure that the argument ResourceService at index [1] is available in the ResourceModule context.
	//
	// Potential solutions:
	// - Is ResourceModule a valid di module?
	// - If ResourceService is a provider, is it part of the current ResourceModule?
	// - If ResourceService is exported from a separate di.Module, is that module imported within ResourceModule?
}

func ExampleUnknownDependencyError() {
	c, err := di.NewContainer(
		di.WithModule(di.NewModule("ResourceModule",
			di.Provide(testtypes.NewResourceRepository),
			di.Provide(testtypes.NewResourceService),
			di.Provide(testtypes.NewResourceController),
		)),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	_, err = di.Resolve[*testtypes.ResourceController](context.Background(), c)

	var unknownErr *di.UnknownDependencyError
	if errors.As(err, &unknownErr) {
		fmt.Println(unknownErr.Failure.Consumer, *unknownErr.Failure.Index, unknownErr.Failure.Untyped())
	}
	// Output:
	// ResourceController 1 true
}
