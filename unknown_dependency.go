package di

import (
	"strconv"
	"strings"
)

// InjectionFailure describes a dependency the [Container] could not supply to a consumer.
//
// Optional fields are absent when they hold their zero value, except Index which is absent
// when nil so that index 0 can be reported.
type InjectionFailure struct {
	// Consumer is the name of the service or function whose dependencies could not be resolved.
	Consumer string `yaml:"consumer"`

	// Index is the position of the unresolved constructor parameter.
	Index *int `yaml:"index,omitempty"`

	// DeclaredType is the name of the unresolved parameter's type.
	// It is empty when the parameter has no type the container can look up.
	DeclaredType string `yaml:"declaredType,omitempty"`

	// Dependencies holds the names of the consumer's dependencies, in parameter order.
	// An empty entry is a dependency with no type the container can look up.
	Dependencies []string `yaml:"dependencies,omitempty"`

	// Module is the name of the module the consumer is registered with.
	Module string `yaml:"module,omitempty"`

	// Field is the struct field being injected when the failure did not come from a
	// constructor parameter.
	Field string `yaml:"field,omitempty"`
}

// Untyped reports whether the failed parameter has no type the container can look up,
// which happens when a parameter is declared as any without a tag.
func (f InjectionFailure) Untyped() bool {
	if f.DeclaredType != "" || f.Index == nil || f.Dependencies == nil {
		return false
	}

	i := *f.Index
	return i < 0 || i >= len(f.Dependencies) || f.Dependencies[i] == ""
}

// FormatUnknownDependencyMessage renders the message for an [UnknownDependencyError].
func FormatUnknownDependencyMessage(f InjectionFailure) string {
	name := f.DeclaredType
	if name == "" {
		name = "dependency"
	}

	module := f.Module
	if module == "" {
		module = "current"
	}

	var b strings.Builder
	b.WriteString("di can't resolve dependencies of the ")
	b.WriteString(f.Consumer)
	b.WriteString(" (")
	b.WriteString(dependencyList(f))
	b.WriteString("). Please make sure that ")

	switch {
	case f.Index != nil:
		b.WriteString("the argument " + name + " at index [" + strconv.Itoa(*f.Index) + "]")
	case f.Field != "":
		b.WriteString(`the "` + f.Field + `" field`)
	default:
		b.WriteString("the argument " + name)
	}
	b.WriteString(" is available in the " + module + " context.\n\n")
	b.WriteString("Potential solutions:\n")

	if f.Untyped() {
		index := strconv.Itoa(*f.Index)
		b.WriteString("- The argument at index [" + index + "] has no type the container can look up\n")
		b.WriteString("- This usually means the parameter is declared as `any` (interface{}) without a di.WithTagged option\n")
		b.WriteString("- Check that the constructor does not take `any` for a dependency that needs to be injected\n")
		b.WriteString("- Change the parameter to the concrete service type, " +
			"or register the dependency with di.WithTag and select it with di.WithTagged[any]\n")
		return b.String()
	}

	b.WriteString("- Is " + module + " a valid di module?\n")
	b.WriteString("- If " + name + " is a provider, is it part of the current " + module + "?\n")
	b.WriteString("- If " + name + " is exported from a separate di.Module, is that module imported within " + module + "?\n")
	return b.String()
}

func dependencyList(f InjectionFailure) string {
	names := make([]string, len(f.Dependencies))
	for i, dep := range f.Dependencies {
		switch {
		case f.Index != nil && *f.Index == i:
			names[i] = "?"
		case dep == "":
			names[i] = "+"
		default:
			names[i] = dep
		}
	}

	return strings.Join(names, ", ")
}
