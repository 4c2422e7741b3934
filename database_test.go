package tabula_test

import (
	"testing"

	. "github.com/tabuladb/tabula"
	"gotest.tools/assert"
)

func TestDatabase(t *testing.T) {
	db := NewDatabase()
	people, err := db.NewTable("person", NewSchema(F("name", FieldDef{})))
	assert.NilError(t, err)
	_, err = db.NewTable("pet", NewSchema(F("name", FieldDef{})))
	assert.NilError(t, err)

	assert.Equal(t, db.Get("person"), people)
	assert.Assert(t, db.Get("nope") == nil)
	assert.Assert(t, db.Has("pet"))
	assert.DeepEqual(t, db.Names(), []string{"person", "pet"})
	assert.Equal(t, len(db.Tables()), 2)

	t.Run("duplicate names", func(t *testing.T) {
		_, err := db.NewTable("person", NewSchema())
		assert.ErrorContains(t, err, "duplicate table")

		standalone, err := NewTable("pet", NewSchema())
		assert.NilError(t, err)
		assert.ErrorContains(t, db.Add(standalone), "duplicate table")
	})

	t.Run("add registers existing tables", func(t *testing.T) {
		standalone, err := NewTable("plant", NewSchema(F("name", FieldDef{})))
		assert.NilError(t, err)
		assert.NilError(t, db.Add(standalone))
		assert.Equal(t, db.Get("plant"), standalone)
	})

	t.Run("reset clears every table", func(t *testing.T) {
		_, err := people.New(Values{"name": "ada"})
		assert.NilError(t, err)
		db.Reset()
		assert.Equal(t, people.Len(), 0)
		assert.Assert(t, db.Has("person"))
	})
}
