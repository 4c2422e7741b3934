package tabula

import (
	"github.com/pkg/errors"
	"github.com/tabuladb/tabula/pkg"
)

// Database is a named registry of tables. It exists so deferred joins can
// name tables that are declared later, and so a group of tables can be
// reset together. Tables work fine without one.
type Database struct {
	tables *pkg.InsertSortMap[string, *Table]
}

func NewDatabase() *Database {
	return &Database{tables: pkg.NewInsertSortMap[string, *Table]()}
}

// Add registers an existing table under its name.
func (db *Database) Add(t *Table) error {
	if db.tables.Has(t.name) {
		return errors.Errorf("database: duplicate table %q", t.name)
	}
	db.tables.Push(t.name, t)
	pkg.DebugLog("registered table", t.name)
	return nil
}

// NewTable builds a table and registers it.
func (db *Database) NewTable(name string, schema *Schema, opts ...Option) (*Table, error) {
	if db.tables.Has(name) {
		return nil, errors.Errorf("database: duplicate table %q", name)
	}
	t, err := NewTable(name, schema, opts...)
	if err != nil {
		return nil, err
	}
	db.tables.Push(name, t)
	return t, nil
}

// Get returns the named table, or nil.
func (db *Database) Get(name string) *Table {
	if !db.tables.Has(name) {
		return nil
	}
	return db.tables.Get(name)
}

func (db *Database) Has(name string) bool { return db.tables.Has(name) }

// Tables returns the tables in registration order.
func (db *Database) Tables() []*Table { return db.tables.Values() }

// Names returns the table names in registration order.
func (db *Database) Names() []string {
	return append([]string{}, db.tables.Sorted...)
}

// Reset deletes all records from all tables. Schemas stay intact.
func (db *Database) Reset() {
	for _, t := range db.tables.Values() {
		t.Clear()
	}
	pkg.DebugLog("database reset")
}
