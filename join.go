package tabula

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// JoinDef declares a join in a schema. Three forms exist:
//
//   - JoinQuery: an arbitrary query factory, evaluated per record.
//   - JoinTo(db, "child.parent"): the reverse side of a record-valued
//     field. The target is named, not referenced, so it may be declared
//     later on the same database.
//   - JoinTo(db, "other.join"): when the target member is itself a join
//     pointing back, the pair is many-to-many and a junction table is
//     created on first use.
type JoinDef struct {
	db        *Database
	target    string
	jointable string
	factory   func(*Record) *Query
}

// JoinQuery declares a join computed by an arbitrary query factory.
func JoinQuery(factory func(*Record) *Query) JoinDef {
	return JoinDef{factory: factory}
}

// JoinTo declares a join resolved through the database. The target has the
// form "table.member" where member is a field or a join of that table.
func JoinTo(db *Database, target string) JoinDef {
	return JoinDef{db: db, target: target}
}

// JoinVia is JoinTo with an explicit junction table name for the
// many-to-many form.
func JoinVia(db *Database, target, jointable string) JoinDef {
	return JoinDef{db: db, target: target, jointable: jointable}
}

// Join is a named, query-valued member of a table. Accessing it on a record
// yields a Query over the related records; when the relation pins a foreign
// field or runs through a junction table, Add on that query creates a
// properly linked record.
type Join struct {
	name  string
	owner *Table
	def   JoinDef

	jointable *Table
}

func newJoin(name string, owner *Table, def JoinDef) *Join {
	return &Join{name: name, owner: owner, def: def}
}

func (j *Join) Name() string  { return j.name }
func (j *Join) Owner() *Table { return j.owner }

func (j *Join) String() string { return j.owner.name + "." + j.name }

// Of returns the query of records related to r.
func (j *Join) Of(r *Record) *Query {
	if j.def.factory != nil {
		return j.def.factory(r)
	}
	table, member, err := j.resolveTarget()
	if err != nil {
		return errQuery(err)
	}
	if f := table.Field(member); f != nil {
		return f.Eq(r)
	}
	if reverse := table.Join(member); reverse != nil {
		return j.manyToMany(r, table, reverse)
	}
	return errQuery(errors.Wrapf(ErrUnknownField, "join %s: target %s", j, j.def.target))
}

func (j *Join) resolveTarget() (*Table, string, error) {
	tname, member, ok := strings.Cut(j.def.target, ".")
	if !ok {
		return nil, "", errors.Errorf("join %s: malformed target %q", j, j.def.target)
	}
	if j.def.db == nil {
		return nil, "", errors.Errorf("join %s: no database to resolve %q", j, j.def.target)
	}
	table := j.def.db.Get(tname)
	if table == nil {
		return nil, "", errors.Errorf("join %s: unknown table %q", j, tname)
	}
	return table, member, nil
}

func (j *Join) manyToMany(r *Record, target *Table, reverse *Join) *Query {
	jt, err := j.junction(target, reverse)
	if err != nil {
		return errQuery(err)
	}
	q := jt.Field(j.owner.name).Eq(r).Field(target.name)
	q.adder = nil
	q.addFn = func(values Values) (*Record, error) {
		added, err := target.New(values)
		if err != nil {
			return nil, err
		}
		if _, err := jt.New(Values{j.owner.name: r, target.name: added}); err != nil {
			if derr := target.Delete(added); derr != nil {
				return nil, errors.Wrap(derr, err.Error())
			}
			return nil, err
		}
		return added, nil
	}
	return q
}

// junction finds or creates the table linking both sides of a many-to-many
// join. Both sides must agree on its name; rows are removed automatically
// when either endpoint record is deleted.
func (j *Join) junction(target *Table, reverse *Join) (*Table, error) {
	if j.jointable != nil {
		return j.jointable, nil
	}
	if j.owner == target {
		return nil, errors.WithStack(NewConsistencyError(
			"join " + j.String() + ": many-to-many self joins are not supported"))
	}
	name, err := j.junctionName(target, reverse)
	if err != nil {
		return nil, err
	}
	db := j.def.db
	if existing := db.Get(name); existing != nil {
		j.jointable = existing
		return existing, nil
	}
	jt, err := db.NewTable(name, NewSchema(
		F(j.owner.name, FieldDef{}),
		F(target.name, FieldDef{}),
	))
	if err != nil {
		return nil, err
	}
	unlink := func(endpoint string) func(*Record) error {
		return func(deleted *Record) error {
			_, err := jt.Iter(Values{endpoint: deleted}).Delete()
			return err
		}
	}
	j.owner.OnDelete(unlink(j.owner.name))
	target.OnDelete(unlink(target.name))
	j.jointable = jt
	reverse.jointable = jt
	return jt, nil
}

func (j *Join) junctionName(target *Table, reverse *Join) (string, error) {
	mine, theirs := j.def.jointable, reverse.def.jointable
	switch {
	case mine != "" && theirs != "" && mine != theirs:
		return "", errors.WithStack(NewConsistencyError(
			"join " + j.String() + ": junction table named both " + mine + " and " + theirs))
	case mine != "":
		return mine, nil
	case theirs != "":
		return theirs, nil
	}
	names := []string{j.owner.name, target.name}
	sort.Strings(names)
	return "_" + strings.Join(names, "_"), nil
}

// errQuery defers a resolution error until the query is evaluated, keeping
// joins lazy.
func errQuery(err error) *Query {
	return newQuery("err", nil, func([]any) (*RecordSet, error) {
		return nil, err
	})
}
