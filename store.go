package tabula

import (
	"github.com/pkg/errors"
	"github.com/tabuladb/tabula/pkg"
	sorted "github.com/tobshub/go-sortedmap"
)

// FieldValue is one (record, value) pair yielded by a field scan.
type FieldValue struct {
	Record *Record
	Value  any
}

// Backend is the storage engine behind a table. It owns the cell data and
// the per-field indexes and keeps them in sync: every record appears in
// every field index exactly once, under its explicit value or, when no
// value was ever assigned, under the field default.
//
// The default engine is in-memory; alternative engines (persistent,
// copy-on-write) plug in through table options.
type Backend interface {
	AddField(f *Field)
	RemoveField(f *Field)

	AddRecord(r *Record)
	RemoveRecord(r *Record) error
	HasRecord(r *Record) bool

	// Get returns the cell value, falling back to the field default when
	// the record was never assigned one.
	Get(r *Record, f *Field) any
	// Set assigns a cell value and re-homes the record in the field index.
	Set(r *Record, f *Field, value any) error
	// SetDefault re-homes every record that has no explicit value for the
	// field from the old default to the new one.
	SetDefault(f *Field, value any) error

	Index(f *Field) *Index
	IterRecords() []*Record
	IterField(f *Field) []FieldValue
	RecordCount() int
	Clear()
}

// recordCells holds the explicitly assigned values of one record. Fields
// missing from the map are at their default.
type recordCells struct {
	record *Record
	values pkg.Map[string, any]
}

type memoryStore struct {
	cells   *sorted.SortedMap[uint32, *recordCells]
	fields  *pkg.InsertSortMap[string, *Field]
	indexes pkg.Map[string, *Index]
}

func cellSlotComparisonFunc(a, b *recordCells) bool {
	return a.record.ref.Index < b.record.ref.Index
}

// NewMemoryStore returns the default in-memory engine.
func NewMemoryStore() Backend {
	return &memoryStore{
		cells:   sorted.New[uint32, *recordCells](0, cellSlotComparisonFunc),
		fields:  pkg.NewInsertSortMap[string, *Field](),
		indexes: pkg.Map[string, *Index]{},
	}
}

func (s *memoryStore) AddField(f *Field) {
	if s.fields.Has(f.name) {
		return
	}
	s.fields.Push(f.name, f)
	idx := NewIndex(f.key)
	s.indexes.Set(f.name, idx)
	s.cells.IterFunc(false, func(rec sorted.Record[uint32, *recordCells]) bool {
		idx.Insert(f.def, rec.Val.record)
		return true
	})
}

func (s *memoryStore) RemoveField(f *Field) {
	if !s.fields.Has(f.name) {
		return
	}
	s.fields.Delete(f.name)
	s.indexes.Delete(f.name)
	s.cells.IterFunc(false, func(rec sorted.Record[uint32, *recordCells]) bool {
		rec.Val.values.Delete(f.name)
		return true
	})
}

func (s *memoryStore) AddRecord(r *Record) {
	if s.cells.Has(r.ref.Index) {
		return
	}
	s.cells.Insert(r.ref.Index, &recordCells{record: r, values: Values{}})
	for _, f := range s.fields.Values() {
		s.Index(f).Insert(f.def, r)
	}
}

func (s *memoryStore) RemoveRecord(r *Record) error {
	cells, ok := s.cells.Get(r.ref.Index)
	if !ok {
		return errors.WithStack(NewConsistencyError("store remove: record not present"))
	}
	for _, f := range s.fields.Values() {
		if err := s.Index(f).Remove(s.cellValue(cells, f), r); err != nil {
			return err
		}
	}
	s.cells.Delete(r.ref.Index)
	return nil
}

func (s *memoryStore) HasRecord(r *Record) bool {
	cells, ok := s.cells.Get(r.ref.Index)
	return ok && cells.record == r
}

func (s *memoryStore) cellValue(cells *recordCells, f *Field) any {
	if cells.values.Has(f.name) {
		return cells.values.Get(f.name)
	}
	return f.def
}

func (s *memoryStore) Get(r *Record, f *Field) any {
	cells, ok := s.cells.Get(r.ref.Index)
	if !ok {
		return f.def
	}
	return s.cellValue(cells, f)
}

func (s *memoryStore) Set(r *Record, f *Field, value any) error {
	cells, ok := s.cells.Get(r.ref.Index)
	if !ok {
		return errors.WithStack(NewConsistencyError("store set: record not present"))
	}
	old := s.cellValue(cells, f)
	if valueEqual(old, value) {
		// No cell write: a record at the implicit default stays implicit,
		// so SetDefault keeps re-homing it.
		return nil
	}
	idx := s.Index(f)
	if err := idx.Remove(old, r); err != nil {
		return err
	}
	idx.Insert(value, r)
	cells.values.Set(f.name, value)
	return nil
}

func (s *memoryStore) SetDefault(f *Field, value any) error {
	idx := s.Index(f)
	var err error
	s.cells.IterFunc(false, func(rec sorted.Record[uint32, *recordCells]) bool {
		if rec.Val.values.Has(f.name) {
			return true
		}
		if err = idx.Remove(f.def, rec.Val.record); err != nil {
			return false
		}
		idx.Insert(value, rec.Val.record)
		return true
	})
	return err
}

func (s *memoryStore) Index(f *Field) *Index {
	if !s.indexes.Has(f.name) {
		s.indexes.Set(f.name, NewIndex(f.key))
	}
	return s.indexes.Get(f.name)
}

func (s *memoryStore) IterRecords() []*Record {
	records := make([]*Record, 0, s.cells.Len())
	s.cells.IterFunc(false, func(rec sorted.Record[uint32, *recordCells]) bool {
		records = append(records, rec.Val.record)
		return true
	})
	return records
}

func (s *memoryStore) IterField(f *Field) []FieldValue {
	pairs := make([]FieldValue, 0, s.cells.Len())
	s.cells.IterFunc(false, func(rec sorted.Record[uint32, *recordCells]) bool {
		pairs = append(pairs, FieldValue{rec.Val.record, s.cellValue(rec.Val, f)})
		return true
	})
	return pairs
}

func (s *memoryStore) RecordCount() int { return s.cells.Len() }

func (s *memoryStore) Clear() {
	s.cells = sorted.New[uint32, *recordCells](0, cellSlotComparisonFunc)
	for _, name := range s.indexes.Keys() {
		s.indexes.Get(name).Clear()
	}
}
