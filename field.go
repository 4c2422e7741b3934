package tabula

import (
	"strings"

	"github.com/pkg/errors"
)

// Validator transforms a candidate cell value, or rejects it. Validators run
// in order and the first failure aborts the set.
type Validator func(value any) (any, error)

// FieldDef is the configuration used to declare a field in a schema.
// A nil Default means NotSet. A nil Key means DefaultKey.
type FieldDef struct {
	Default    any
	Unique     bool
	ReadOnly   bool
	Key        KeyFunc
	Validators []Validator
}

// Field is one column of a table. The name and owner are assigned when the
// table is built and never change afterwards.
type Field struct {
	name       string
	owner      *Table
	def        any
	unique     bool
	readonly   bool
	key        KeyFunc
	validators []Validator
}

func newField(name string, owner *Table, def FieldDef) *Field {
	f := &Field{
		name:       name,
		owner:      owner,
		def:        def.Default,
		unique:     def.Unique,
		readonly:   def.ReadOnly,
		key:        def.Key,
		validators: def.Validators,
	}
	if f.def == nil {
		f.def = NotSet
	}
	if f.key == nil {
		f.key = DefaultKey
	}
	return f
}

func (f *Field) Name() string   { return f.name }
func (f *Field) Owner() *Table  { return f.owner }
func (f *Field) Default() any   { return f.def }
func (f *Field) Unique() bool   { return f.unique }
func (f *Field) ReadOnly() bool { return f.readonly }

func (f *Field) String() string { return f.owner.name + "." + f.name }

func (f *Field) index() *Index { return f.owner.store.Index(f) }

// SetDefault changes the field default. Records that still rely on the old
// default are re-homed in the index before the new default takes effect.
func (f *Field) SetDefault(value any) error {
	if value == nil {
		value = NotSet
	}
	if valueEqual(value, f.def) {
		return nil
	}
	if err := f.owner.store.SetDefault(f, value); err != nil {
		return err
	}
	f.def = value
	return nil
}

// SetUnique toggles the uniqueness constraint. Enabling it scans the whole
// table first and fails atomically when duplicates already exist.
func (f *Field) SetUnique(unique bool) error {
	if unique == f.unique {
		return nil
	}
	if unique {
		// Formatted keys bucket the candidates; actual values decide.
		// Formatting alone would conflate e.g. int 1 and string "1".
		seen := map[string][][]any{}
		scan := append(f.owner.uniqueFields(), f)
	records:
		for _, fv := range f.owner.store.IterField(f) {
			tuple := make([]any, 0, len(scan))
			parts := make([]string, 0, len(scan))
			for _, uf := range scan {
				v := f.owner.store.Get(fv.Record, uf)
				if isNotSet(v) {
					continue records
				}
				tuple = append(tuple, v)
				parts = append(parts, formatIndexValue(v))
			}
			combined := strings.Join(parts, "\x1f")
			for _, prior := range seen[combined] {
				if tupleEqual(prior, tuple) {
					return errors.Wrapf(ErrNotUnique, "cannot make %s unique", f)
				}
			}
			seen[combined] = append(seen[combined], tuple)
		}
	}
	f.unique = unique
	return nil
}

// Eq returns a query for records whose value equals the given one. As the
// sole constraint it also carries the (table, {field: value}) context that
// makes Add possible.
func (f *Field) Eq(value any) *Query {
	q := newQuery(opName("eq"), []any{value}, func(args []any) (*RecordSet, error) {
		return setOf(f.index().IterEq(args[0])), nil
	})
	q.adder = newAdder(f.owner, Values{f.name: value})
	return q
}

func (f *Field) Ne(value any) *Query {
	return newQuery(opName("ne"), []any{value}, func(args []any) (*RecordSet, error) {
		return setOf(f.index().IterNe(args[0])), nil
	})
}

func (f *Field) Lt(value any) *Query {
	return f.rangeQuery("lt", value, (*Index).IterLt)
}

func (f *Field) Le(value any) *Query {
	return f.rangeQuery("le", value, (*Index).IterLe)
}

func (f *Field) Gt(value any) *Query {
	return f.rangeQuery("gt", value, (*Index).IterGt)
}

func (f *Field) Ge(value any) *Query {
	return f.rangeQuery("ge", value, (*Index).IterGe)
}

func (f *Field) rangeQuery(name string, value any, iter func(*Index, any) ([]*Record, error)) *Query {
	return newQuery(opName(name), []any{value}, func(args []any) (*RecordSet, error) {
		records, err := iter(f.index(), args[0])
		if err != nil {
			return nil, errors.Wrap(err, f.String())
		}
		return setOf(records), nil
	})
}

// In returns a query for records whose value equals any of the given ones.
func (f *Field) In(values ...any) *Query {
	operands := make([]any, len(values))
	copy(operands, values)
	return newQuery(opName("in"), operands, func(args []any) (*RecordSet, error) {
		result := newRecordSet()
		for _, v := range args {
			result = result.Union(setOf(f.index().IterEq(v)))
		}
		return result, nil
	})
}
