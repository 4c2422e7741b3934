package tabula

import "github.com/pkg/errors"

// Group is a view of a table constrained to fixed field values. Records
// added through the group get the fixed values automatically, and lookups
// only ever see matching records.
type Group struct {
	table  *Table
	values Values
}

func NewGroup(t *Table, values Values) *Group {
	fixed := Values{}
	for _, name := range values.Keys() {
		fixed.Set(name, values.Get(name))
	}
	return &Group{table: t, values: fixed}
}

func (g *Group) Table() *Table { return g.table }

func (g *Group) merged(extra Values) Values {
	out := Values{}
	for _, name := range extra.Keys() {
		out.Set(name, extra.Get(name))
	}
	for _, name := range g.values.Keys() {
		out.Set(name, g.values.Get(name))
	}
	return out
}

// Iter returns a fresh query over the group, further constrained by extra.
func (g *Group) Iter(extra Values) *Query {
	return g.table.Iter(g.merged(extra))
}

func (g *Group) Get(extra Values) (*Record, error) {
	return g.Iter(extra).One()
}

func (g *Group) Contains(extra Values) (bool, error) {
	return g.Iter(extra).Exists()
}

func (g *Group) Len() (int, error) {
	return g.Iter(nil).Len()
}

// Add creates a record in the group. The fixed values win over extras.
func (g *Group) Add(extra Values) (*Record, error) {
	return g.table.New(g.merged(extra))
}

// Delete removes every matching record, isolating per-record failures.
func (g *Group) Delete(extra Values) (int, error) {
	return g.Iter(extra).Delete()
}

// HasRecord reports whether the record is live and matches every fixed
// value of the group.
func (g *Group) HasRecord(r *Record) bool {
	if r == nil || r.Table() != g.table || !g.table.Has(r) {
		return false
	}
	for _, name := range g.values.Keys() {
		f := g.table.Field(name)
		if f == nil || !valueEqual(r.Get(f), g.values.Get(name)) {
			return false
		}
	}
	return true
}

// Remove deletes the given records. A record outside the group makes the
// whole call fail before anything is deleted.
func (g *Group) Remove(records ...*Record) error {
	for _, r := range records {
		if r == nil || !g.HasRecord(r) {
			return errors.Errorf("cannot remove record: not in group on %s", g.table.name)
		}
	}
	for _, r := range records {
		if err := g.table.Delete(r); err != nil {
			return err
		}
	}
	return nil
}
