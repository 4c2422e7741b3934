package tabula

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tabuladb/tabula/internal/arena"
	"github.com/tabuladb/tabula/pkg"
)

// SchemaEntry declares one field or join of a table.
type SchemaEntry struct {
	name  string
	field *FieldDef
	join  *JoinDef
}

// F declares a field.
func F(name string, def FieldDef) SchemaEntry {
	return SchemaEntry{name: name, field: &def}
}

// J declares a join.
func J(name string, def JoinDef) SchemaEntry {
	return SchemaEntry{name: name, join: &def}
}

// Schema is the explicit declaration a table is built from. Entry order is
// preserved and becomes the field order of the table.
type Schema struct {
	entries []SchemaEntry
}

func NewSchema(entries ...SchemaEntry) *Schema {
	return &Schema{entries: entries}
}

// Option configures a table at construction time.
type Option func(*Table)

// WithBackend replaces the default in-memory engine.
func WithBackend(b Backend) Option {
	return func(t *Table) { t.store = b }
}

// WithValidate installs a hook that runs after every non-initializing field
// assignment. An error rolls the assignment back and surfaces as a
// validation error.
func WithValidate(fn func(*Record) error) Option {
	return func(t *Table) { t.validate = fn }
}

// WithValidateDelete installs a hook that runs before a record is deleted.
// An error aborts the deletion.
func WithValidateDelete(fn func(*Record) error) Option {
	return func(t *Table) { t.validateDelete = fn }
}

var tableIdTracker atomic.Uint32

// Table is a collection of records sharing a schema. Each table owns its
// storage engine and its record arena; nothing is shared through globals, so
// two databases can coexist in one process.
type Table struct {
	name string
	id   uint32

	store  Backend
	refs   *arena.Arena[*Record]
	fields *pkg.InsertSortMap[string, *Field]
	joins  *pkg.InsertSortMap[string, *Join]

	validate       func(*Record) error
	validateDelete func(*Record) error
	deleteHooks    []func(*Record) error
}

// NewTable builds a table from a schema. Tables meant to be referenced by
// deferred joins should be registered on a database afterwards, or created
// through Database.NewTable directly.
func NewTable(name string, schema *Schema, opts ...Option) (*Table, error) {
	t := &Table{
		name:   name,
		id:     tableIdTracker.Add(1),
		refs:   arena.New[*Record](),
		fields: pkg.NewInsertSortMap[string, *Field](),
		joins:  pkg.NewInsertSortMap[string, *Join](),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.store == nil {
		t.store = NewMemoryStore()
	}
	for _, entry := range schema.entries {
		if t.fields.Has(entry.name) || t.joins.Has(entry.name) {
			return nil, errors.Errorf("table %s: duplicate schema entry %q", name, entry.name)
		}
		switch {
		case entry.field != nil:
			f := newField(entry.name, t, *entry.field)
			t.fields.Push(entry.name, f)
			t.store.AddField(f)
		case entry.join != nil:
			t.joins.Push(entry.name, newJoin(entry.name, t, *entry.join))
		default:
			return nil, errors.Errorf("table %s: empty schema entry %q", name, entry.name)
		}
	}
	return t, nil
}

func (t *Table) Name() string { return t.name }

func (t *Table) String() string { return t.name }

// Field returns the named field, or nil.
func (t *Table) Field(name string) *Field {
	if !t.fields.Has(name) {
		return nil
	}
	return t.fields.Get(name)
}

// Fields returns the fields in declaration order.
func (t *Table) Fields() []*Field { return t.fields.Values() }

// Join returns the named join, or nil.
func (t *Table) Join(name string) *Join {
	if !t.joins.Has(name) {
		return nil
	}
	return t.joins.Get(name)
}

// Joins returns the joins in declaration order.
func (t *Table) Joins() []*Join { return t.joins.Values() }

// AddField adds a field to an existing table. Every current record takes
// the field default.
func (t *Table) AddField(name string, def FieldDef) (*Field, error) {
	if t.fields.Has(name) || t.joins.Has(name) {
		return nil, errors.Errorf("table %s: duplicate schema entry %q", t.name, name)
	}
	f := newField(name, t, def)
	t.fields.Push(name, f)
	t.store.AddField(f)
	return f, nil
}

// RemoveField drops a field and its index.
func (t *Table) RemoveField(name string) error {
	f := t.Field(name)
	if f == nil {
		return errors.Wrapf(ErrUnknownField, "%s.%s", t.name, name)
	}
	t.fields.Delete(name)
	t.store.RemoveField(f)
	return nil
}

func (t *Table) uniqueFields() []*Field {
	return pkg.Filter(t.fields.Values(), func(f *Field) bool { return f.unique })
}

// New creates a record, assigns the given values and indexes it. On any
// failure, validation or uniqueness alike, the record is removed again and
// the table is exactly as before.
func (t *Table) New(values Values) (*Record, error) {
	r := &Record{table: t, uid: uuid.New()}
	r.ref = t.refs.Alloc(r)
	t.store.AddRecord(r)

	rollback := func() {
		if err := t.store.RemoveRecord(r); err != nil {
			pkg.ErrorLog("rollback failed", err)
		}
		t.refs.Free(r.ref)
	}

	for _, name := range values.Keys() {
		f := t.Field(name)
		if f == nil {
			rollback()
			return nil, errors.Wrapf(ErrUnknownField, "%s.%s", t.name, name)
		}
		if err := t.setField(r, f, values.Get(name), true); err != nil {
			rollback()
			return nil, err
		}
	}
	if err := t.checkUnique(r); err != nil {
		rollback()
		return nil, err
	}
	if t.validate != nil {
		if err := t.validate(r); err != nil {
			rollback()
			return nil, asValidationError(err)
		}
	}
	pkg.DebugLog("created record in", t.name)
	return r, nil
}

// setField writes one cell. Validators run first, then the read-only check,
// then the index-synchronized write, then the combined uniqueness scan and
// the validate hook; a failure at any stage restores the previous value.
func (t *Table) setField(r *Record, f *Field, value any, initializing bool) error {
	if value == nil {
		value = NotSet
	}
	if f.readonly && !initializing && !isNotSet(t.store.Get(r, f)) {
		return errors.Wrap(ErrReadOnly, f.String())
	}
	for _, v := range f.validators {
		next, err := v(value)
		if err != nil {
			return asValidationError(errors.Wrap(err, f.String()))
		}
		value = next
	}

	old := t.store.Get(r, f)
	if err := t.store.Set(r, f, value); err != nil {
		return err
	}
	restore := func() {
		if err := t.store.Set(r, f, old); err != nil {
			pkg.ErrorLog("rollback failed", err)
		}
	}

	if !initializing {
		if f.unique || len(t.uniqueFields()) > 0 {
			if err := t.checkUnique(r); err != nil {
				restore()
				return err
			}
		}
		if t.validate != nil {
			if err := t.validate(r); err != nil {
				restore()
				return asValidationError(err)
			}
		}
	}
	return nil
}

// checkUnique scans for another record holding the same combination of
// unique field values. NotSet in any unique field exempts the record.
func (t *Table) checkUnique(r *Record) error {
	unique := t.uniqueFields()
	if len(unique) == 0 {
		return nil
	}
	mine := make([]any, len(unique))
	for i, f := range unique {
		mine[i] = t.store.Get(r, f)
		if isNotSet(mine[i]) {
			return nil
		}
	}
	for _, candidate := range t.store.Index(unique[0]).IterEq(mine[0]) {
		if candidate == r {
			continue
		}
		match := true
		for i, f := range unique[1:] {
			if !valueEqual(t.store.Get(candidate, f), mine[i+1]) {
				match = false
				break
			}
		}
		if match {
			return errors.Wrapf(ErrNotUnique, "%s%v", t.name, mine)
		}
	}
	return nil
}

// Has reports whether the record is currently in the table. Handles to
// deleted records report false.
func (t *Table) Has(r *Record) bool {
	return r != nil && r.table == t && t.refs.Has(r.ref) && t.store.HasRecord(r)
}

func (t *Table) Len() int { return t.store.RecordCount() }

// All returns a query over the whole table. Add on it creates an
// unconstrained record.
func (t *Table) All() *Query {
	q := newQuery("all", nil, func([]any) (*RecordSet, error) {
		return setOf(t.store.IterRecords()), nil
	})
	q.adder = newAdder(t, Values{})
	return q
}

// Iter returns a query for the records matching every given field value.
func (t *Table) Iter(values Values) *Query {
	q := t.All()
	for _, name := range values.Keys() {
		f := t.Field(name)
		if f == nil {
			return errQuery(errors.Wrapf(ErrUnknownField, "%s.%s", t.name, name))
		}
		q = q.And(f.Eq(values.Get(name)))
	}
	return q
}

// Get returns the single record matching the given field values.
func (t *Table) Get(values Values) (*Record, error) {
	return t.Iter(values).One()
}

// Contains reports whether any record matches the given field values.
func (t *Table) Contains(values Values) (bool, error) {
	return t.Iter(values).Exists()
}

// OnDelete registers a hook that runs whenever a record is removed, after
// the validate-delete hook has allowed the removal. Used for cascades.
func (t *Table) OnDelete(hook func(*Record) error) {
	t.deleteHooks = append(t.deleteHooks, hook)
}

// Delete removes a record from the table. Existing queries that already
// evaluated keep their handle to it; re-evaluation drops it.
func (t *Table) Delete(r *Record) error {
	if !t.Has(r) {
		return errors.Wrapf(ErrNotFound, "%s: record not in table", t.name)
	}
	if t.validateDelete != nil {
		if err := t.validateDelete(r); err != nil {
			return asValidationError(err)
		}
	}
	for _, hook := range t.deleteHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	if err := t.store.RemoveRecord(r); err != nil {
		return err
	}
	t.refs.Free(r.ref)
	pkg.DebugLog("deleted record from", t.name)
	return nil
}

// Clear removes every record. Arena slots are not reused, so handles held
// by old result sets stay distinguishable from new records.
func (t *Table) Clear() {
	t.refs.Each(func(ref arena.Ref, r *Record) bool {
		t.refs.Free(ref)
		return true
	})
	t.store.Clear()
}
