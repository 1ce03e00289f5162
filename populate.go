package di

import (
	"context"
	"reflect"
	"strings"

	"github.com/sectrean/di-modules/internal/errors"
)

// Populate sets the fields of the struct pointed to by target with services resolved from
// the provided Scope.
//
// Only fields with a di struct tag are set. The tag may name the tag of the service:
//
//	type Handler struct {
//		Store   *store.Store  `di:""`
//		Primary *db.DB        `di:"tag=primary"`
//		Config  any           `di:"tag=config"`
//	}
//
// Fields must be exported. Fields promoted through an embedded pointer are only set when
// the pointer is not nil. If a field's service is not registered, Populate returns an
// [*UnknownDependencyError] naming the field.
func Populate(ctx context.Context, s Scope, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return errors.Errorf("di.Populate %T: target must be a non-nil pointer to a struct", target)
	}

	v = v.Elem()
	t := v.Type()

	fields, err := injectableFields(t)
	if err != nil {
		return errors.Wrapf(err, "di.Populate %T", target)
	}

	keys := make([]serviceKey, len(fields))
	targets := make([]reflect.Value, len(fields))
	for i, f := range fields {
		keys[i] = f.key

		// Fields promoted through a nil embedded pointer can't be set
		targets[i], err = v.FieldByIndexErr(f.index)
		if err != nil {
			return errors.Wrapf(err, "di.Populate %T: field %s", target, f.name)
		}
	}

	for i, f := range fields {
		var val any
		var resolveErr error

		switch f.key.Type {
		case typeContext:
			val = ctx
		case typeScope:
			val = s
		default:
			val, resolveErr = s.Resolve(ctx, f.key.Type, WithTag(f.key.Tag))
		}

		if resolveErr != nil {
			if isUnregistered(resolveErr) {
				unknownErr := &UnknownDependencyError{
					Failure: InjectionFailure{
						Consumer:     typeName(t),
						DeclaredType: dependencyName(f.key),
						Dependencies: dependencyNames(keys),
						Field:        f.name,
					},
				}
				logUnknownDependency(ctx, s, f.key, unknownErr)
				resolveErr = unknownErr
			}

			return errors.Wrapf(resolveErr, "di.Populate %T", target)
		}

		targets[i].Set(safeReflectValue(f.key.Type, val))
	}

	return nil
}

type injectableField struct {
	name  string
	index []int
	key   serviceKey
}

func injectableFields(t reflect.Type) ([]injectableField, error) {
	var fields []injectableField
	for _, sf := range reflect.VisibleFields(t) {
		tag, ok := sf.Tag.Lookup("di")
		if !ok {
			continue
		}

		if !sf.IsExported() {
			return nil, errors.Errorf("field %s: field must be exported", sf.Name)
		}

		key := serviceKey{Type: sf.Type}
		if tag != "" {
			name, value, found := strings.Cut(tag, "=")
			if !found || name != "tag" {
				return nil, errors.Errorf("field %s: invalid di tag %q", sf.Name, tag)
			}
			key.Tag = value
		}

		fields = append(fields, injectableField{
			name:  sf.Name,
			index: sf.Index,
			key:   key,
		})
	}

	return fields, nil
}
