// Package validate provides ready-made field validators.
package validate

import (
	"github.com/pkg/errors"

	"github.com/tabuladb/tabula"
)

// IsTrue rejects values for which fn returns false.
func IsTrue(fn func(value any) bool, msg string) tabula.Validator {
	return func(value any) (any, error) {
		if !fn(value) {
			return nil, errors.New(msg)
		}
		return value, nil
	}
}

// IsFalse rejects values for which fn returns true.
func IsFalse(fn func(value any) bool, msg string) tabula.Validator {
	return IsTrue(func(value any) bool { return !fn(value) }, msg)
}

// IsType rejects values that are not of type T. NotSet always passes, so
// optional fields stay optional.
func IsType[T any](value any) (any, error) {
	if value == tabula.NotSet {
		return value, nil
	}
	if _, ok := value.(T); !ok {
		return nil, errors.Errorf("unexpected value type %T", value)
	}
	return value, nil
}

// SetType converts values to type T using fn, leaving NotSet and values
// already of type T alone.
func SetType[T any](fn func(value any) (T, error)) tabula.Validator {
	return func(value any) (any, error) {
		if value == tabula.NotSet {
			return value, nil
		}
		if v, ok := value.(T); ok {
			return v, nil
		}
		v, err := fn(value)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// OfTable rejects values that are not records of the given table, making a
// field a checked foreign reference. NotSet passes.
func OfTable(t *tabula.Table) tabula.Validator {
	return func(value any) (any, error) {
		if value == tabula.NotSet {
			return value, nil
		}
		r, ok := value.(*tabula.Record)
		if !ok {
			return nil, errors.Errorf("expected a %s record, got %T", t.Name(), value)
		}
		if r.Table() != t {
			return nil, errors.Errorf("expected a %s record, got one of %s", t.Name(), r.Table().Name())
		}
		return value, nil
	}
}
