package tabula_test

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/tabuladb/tabula"
	"gotest.tools/assert"
)

func seedPeople(t *testing.T) *Table {
	t.Helper()
	people := newPeople(t)
	for _, p := range []Values{
		{"name": "ada", "age": 36, "dept": "eng"},
		{"name": "bob", "age": 25, "dept": "eng"},
		{"name": "cat", "age": 41, "dept": "sales"},
		{"name": "dan", "age": 25, "dept": "sales"},
	} {
		_, err := people.New(p)
		assert.NilError(t, err)
	}
	return people
}

func TestQueryLazyAndSticky(t *testing.T) {
	people := seedPeople(t)
	q := people.Field("age").Gt(30)
	assert.Assert(t, !q.Evaluated())

	n, err := q.Len()
	assert.NilError(t, err)
	assert.Equal(t, n, 2)
	assert.Assert(t, q.Evaluated())

	_, err = people.New(Values{"name": "eve", "age": 50})
	assert.NilError(t, err)

	t.Run("cache survives table changes", func(t *testing.T) {
		n, err := q.Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 2)
	})

	t.Run("refresh recomputes", func(t *testing.T) {
		_, err := q.Refresh()
		assert.NilError(t, err)
		n, err := q.Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 3)
	})

	t.Run("refresh reaches subqueries", func(t *testing.T) {
		eng := people.Field("dept").Eq("eng")
		young := people.Field("age").Lt(30)
		combined := eng.And(young)
		n, err := combined.Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 1)

		_, err = people.New(Values{"name": "fin", "age": 22, "dept": "eng"})
		assert.NilError(t, err)
		_, err = combined.Refresh()
		assert.NilError(t, err)
		n, err = combined.Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 2)
	})
}

func TestQueryAlgebra(t *testing.T) {
	people := seedPeople(t)
	eng := people.Field("dept").Eq("eng")
	young := people.Field("age").Le(25)

	count := func(q *Query) int {
		t.Helper()
		n, err := q.Len()
		assert.NilError(t, err)
		return n
	}

	assert.Equal(t, count(eng.And(young)), 1)
	assert.Equal(t, count(eng.Or(young)), 3)
	assert.Equal(t, count(eng.Xor(young)), 2)
	assert.Equal(t, count(eng.Sub(young)), 1)

	t.Run("in", func(t *testing.T) {
		assert.Equal(t, count(people.Field("name").In("ada", "cat", "zed")), 2)
	})

	t.Run("contains", func(t *testing.T) {
		ada, err := people.Get(Values{"name": "ada"})
		assert.NilError(t, err)
		ok, err := eng.Contains(ada)
		assert.NilError(t, err)
		assert.Assert(t, ok)
		ok, err = young.Contains(ada)
		assert.NilError(t, err)
		assert.Assert(t, !ok)
	})

	t.Run("all", func(t *testing.T) {
		assert.Equal(t, count(people.All()), 4)
	})
}

func TestQueryOne(t *testing.T) {
	people := seedPeople(t)

	ada, err := people.Field("name").Eq("ada").One()
	assert.NilError(t, err)
	assert.Equal(t, ada.Get(people.Field("age")), 36)

	_, err = people.Field("name").Eq("zed").One()
	assert.Assert(t, errors.Is(err, ErrNotFound))

	got, err := people.Field("name").Eq("zed").OneOr(ada)
	assert.NilError(t, err)
	assert.Equal(t, got, ada)
}

func TestQueryRangeErrors(t *testing.T) {
	people := seedPeople(t)
	_, err := people.New(Values{"name": "odd", "age": "old"})
	assert.NilError(t, err)

	t.Run("unordered values are invisible to ranges", func(t *testing.T) {
		q := people.Field("age").Gt(30)
		records, err := q.Records()
		assert.NilError(t, err)
		for _, r := range records {
			assert.Assert(t, r.Get(people.Field("name")) != "odd")
		}
	})

	t.Run("unordered probe fails", func(t *testing.T) {
		_, err := people.Field("age").Gt("old").Records()
		assert.Assert(t, errors.Is(err, ErrUnordered))
		_, err = people.Field("age").Le(NotSet).Records()
		assert.Assert(t, errors.Is(err, ErrUnordered))
	})

	t.Run("equality still works", func(t *testing.T) {
		n, err := people.Field("age").Eq("old").Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 1)
	})
}

func TestQueryProjection(t *testing.T) {
	people := newPeople(t)
	ada, err := people.New(Values{"name": "ada"})
	assert.NilError(t, err)

	tasks, err := NewTable("task", NewSchema(
		F("title", FieldDef{}),
		F("owner", FieldDef{}),
	))
	assert.NilError(t, err)
	_, err = tasks.New(Values{"title": "write", "owner": ada})
	assert.NilError(t, err)
	_, err = tasks.New(Values{"title": "rest", "owner": 42})
	assert.NilError(t, err)
	_, err = tasks.New(Values{"title": "idle"})
	assert.NilError(t, err)

	t.Run("records pass, everything else drops", func(t *testing.T) {
		owners, err := tasks.All().Field("owner").Records()
		assert.NilError(t, err)
		assert.Equal(t, len(owners), 1)
		assert.Equal(t, owners[0], ada)
	})

	t.Run("unknown field drops silently", func(t *testing.T) {
		n, err := tasks.All().Field("nope").Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 0)
	})

	t.Run("add related fills the projected field", func(t *testing.T) {
		q := tasks.Field("title").Eq("plan").Field("owner")
		task, err := q.AddRelated(ada, nil)
		assert.NilError(t, err)
		assert.Equal(t, task.Get(tasks.Field("title")), "plan")
		assert.Equal(t, task.Get(tasks.Field("owner")), ada)

		owners, err := q.Records()
		assert.NilError(t, err)
		assert.Equal(t, len(owners), 1)
		assert.Equal(t, owners[0], ada)
	})

	t.Run("add related needs add metadata", func(t *testing.T) {
		_, err := tasks.All().Field("owner").Or(tasks.All().Field("owner")).AddRelated(ada, nil)
		assert.Assert(t, errors.Is(err, ErrNoAddContext))
	})
}

func TestQueryAdd(t *testing.T) {
	people := newPeople(t)

	t.Run("single constraint", func(t *testing.T) {
		q := people.Field("name").Eq("ada")
		n, err := q.Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 0)

		ada, err := q.Add(Values{"age": 36})
		assert.NilError(t, err)
		assert.Equal(t, ada.Get(people.Field("name")), "ada")
		assert.Equal(t, ada.Get(people.Field("age")), 36)

		n, err = q.Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 1)
	})

	t.Run("conjunction merges constraints", func(t *testing.T) {
		q := people.Field("name").Eq("bob").And(people.Field("age").Eq(25))
		bob, err := q.Add(nil)
		assert.NilError(t, err)
		assert.Equal(t, bob.Get(people.Field("age")), 25)
	})

	t.Run("colliding values are rejected", func(t *testing.T) {
		q := people.Field("name").Eq("cat")
		_, err := q.Add(Values{"name": "dog", "age": 3})
		assert.ErrorContains(t, err, "colliding values")
	})

	t.Run("conflicting constraints", func(t *testing.T) {
		q := people.Field("age").Eq(1).And(people.Field("age").Eq(2))
		_, err := q.Add(nil)
		assert.ErrorContains(t, err, "conflicting constraints")
	})

	t.Run("disjunction has no add context", func(t *testing.T) {
		q := people.Field("age").Eq(1).Or(people.Field("age").Eq(2))
		_, err := q.Add(nil)
		assert.Assert(t, errors.Is(err, ErrNoAddContext))
	})

	t.Run("cross table has no add context", func(t *testing.T) {
		other := newPeople(t)
		q := people.Field("age").Eq(1).And(other.Field("age").Eq(1))
		_, err := q.Add(nil)
		assert.Assert(t, errors.Is(err, ErrNoAddContext))
	})

	t.Run("add on all", func(t *testing.T) {
		before := people.Len()
		_, err := people.All().Add(Values{"name": "eve"})
		assert.NilError(t, err)
		assert.Equal(t, people.Len(), before+1)
	})
}

func TestQueryDelete(t *testing.T) {
	people := seedPeople(t)

	n, err := people.Field("dept").Eq("sales").Delete()
	assert.NilError(t, err)
	assert.Equal(t, n, 2)
	assert.Equal(t, people.Len(), 2)

	t.Run("failures are isolated", func(t *testing.T) {
		guarded := newPeople(t, WithValidateDelete(func(r *Record) error {
			if r.Get(r.Table().Field("name")) == "keep" {
				return errors.New("keep is permanent")
			}
			return nil
		}))
		for _, name := range []string{"keep", "x", "y"} {
			_, err := guarded.New(Values{"name": name})
			assert.NilError(t, err)
		}

		n, err := guarded.All().Delete()
		assert.Equal(t, n, 2)
		assert.ErrorContains(t, err, "keep is permanent")
		assert.Equal(t, guarded.Len(), 1)
	})

	t.Run("cascades do not trip the batch", func(t *testing.T) {
		pairs, err := NewTable("pairs", NewSchema(F("kind", FieldDef{})))
		assert.NilError(t, err)
		pairs.OnDelete(func(r *Record) error {
			if r.Get(pairs.Field("kind")) != "parent" {
				return nil
			}
			_, err := pairs.Iter(Values{"kind": "child"}).Delete()
			return err
		})
		_, err = pairs.New(Values{"kind": "parent"})
		assert.NilError(t, err)
		_, err = pairs.New(Values{"kind": "child"})
		assert.NilError(t, err)

		n, err := pairs.All().Delete()
		assert.NilError(t, err)
		assert.Equal(t, n, 1)
		assert.Equal(t, pairs.Len(), 0)
	})

	t.Run("deleted records stay in caches", func(t *testing.T) {
		q := people.Field("dept").Eq("eng")
		n, err := q.Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 2)

		_, err = people.Field("dept").Eq("eng").Delete()
		assert.NilError(t, err)
		assert.Equal(t, people.Len(), 0)

		n, err = q.Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 2)

		_, err = q.Refresh()
		assert.NilError(t, err)
		n, err = q.Len()
		assert.NilError(t, err)
		assert.Equal(t, n, 0)
	})
}

func TestQueryEach(t *testing.T) {
	people := seedPeople(t)
	seen := 0
	err := people.All().Each(func(r *Record) bool {
		seen++
		return seen < 2
	})
	assert.NilError(t, err)
	assert.Equal(t, seen, 2)
}
