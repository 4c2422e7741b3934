package tabula

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tabuladb/tabula/internal/arena"
)

// Record is one row of a table. Records compare by identity: two handles are
// the same record iff they are the same pointer. A handle stays valid after
// the record is deleted, but the record is no longer present in its table.
type Record struct {
	table *Table
	ref   arena.Ref
	uid   uuid.UUID
}

func (r *Record) Table() *Table { return r.table }

// UID is a session-unique identity key, mainly for external serializers.
func (r *Record) UID() uuid.UUID { return r.uid }

// handle packs the owning table id and arena slot into the 64-bit key used
// by result-set bitmaps.
func (r *Record) handle() uint64 {
	return uint64(r.table.id)<<32 | uint64(r.ref.Index)
}

// Get returns the record's value for the field, or the field default when
// nothing has been assigned.
func (r *Record) Get(field *Field) any {
	return r.table.store.Get(r, field)
}

// Set assigns a field value, running validators, the read-only check, the
// uniqueness scan and the table's validate hook. On any failure the value
// and its index entries are rolled back exactly.
func (r *Record) Set(field *Field, value any) error {
	return r.table.setField(r, field, value, false)
}

// Value resolves a field or join by name. Fields yield their cell value,
// joins yield the query of related records.
func (r *Record) Value(name string) (any, error) {
	if field := r.table.Field(name); field != nil {
		return r.Get(field), nil
	}
	if join := r.table.Join(name); join != nil {
		return join.Of(r), nil
	}
	return nil, fmt.Errorf("%s.%s: %w", r.table.name, name, ErrUnknownField)
}

// SetValue resolves a field by name and assigns it.
func (r *Record) SetValue(name string, value any) error {
	field := r.table.Field(name)
	if field == nil {
		return fmt.Errorf("%s.%s: %w", r.table.name, name, ErrUnknownField)
	}
	return r.Set(field, value)
}

func (r *Record) String() string {
	names := make([]string, 0, r.table.fields.Len())
	names = append(names, r.table.fields.Sorted...)
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+formatCell(r.Get(r.table.fields.Get(name))))
	}
	return r.table.name + "(" + strings.Join(parts, ", ") + ")"
}

// formatCell abbreviates record-valued cells so that reference cycles
// cannot recurse.
func formatCell(v any) string {
	if nested, ok := v.(*Record); ok {
		return fmt.Sprintf("%s<%s>", nested.table.name, nested.uid.String()[:8])
	}
	return fmt.Sprintf("%v", v)
}
