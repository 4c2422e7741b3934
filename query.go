package tabula

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type opName string

// adder is the add-metadata carried by a query: the table and the
// field-equality constraints a record must be created with so that it
// matches the query. It survives conjunction with disjoint constraints on
// the same table and is lost silently on a table mismatch. A conjunction
// that constrains the same field twice keeps the adder but marks it
// conflicted, which turns Add into an error instead of a silent pick.
type adder struct {
	table    *Table
	values   Values
	conflict string
}

func newAdder(table *Table, values Values) *adder {
	return &adder{table: table, values: values}
}

func mergeAdders(a, b *adder) *adder {
	if a == nil || b == nil {
		return nil
	}
	if a.table != b.table {
		return nil
	}
	merged := newAdder(a.table, Values{})
	for _, name := range a.values.Keys() {
		merged.values.Set(name, a.values.Get(name))
	}
	conflict := a.conflict
	if conflict == "" {
		conflict = b.conflict
	}
	for _, name := range b.values.Keys() {
		if merged.values.Has(name) {
			conflict = name
		}
		merged.values.Set(name, b.values.Get(name))
	}
	merged.conflict = conflict
	return merged
}

// fieldAdder is the add-metadata of a field projection: new records are
// created in the source query's table with the projected field filled by
// the caller-supplied related record.
type fieldAdder struct {
	base *adder
	name string
}

// Query is a lazy, composable description of a record set. Nothing is
// computed until Force (or one of the accessors built on it) runs; the
// result is then cached and reused until Refresh recomputes it. Deleting or
// mutating records does not invalidate caches.
type Query struct {
	op     opName
	args   []any
	evalFn func(args []any) (*RecordSet, error)

	results    *RecordSet
	adder      *adder
	fieldAdder *fieldAdder
	addFn      func(Values) (*Record, error)
}

func newQuery(op opName, args []any, evalFn func(args []any) (*RecordSet, error)) *Query {
	return &Query{op: op, args: args, evalFn: evalFn}
}

// Force evaluates the query if it has no cached result yet and returns the
// result set.
func (q *Query) Force() (*RecordSet, error) {
	if q.results != nil {
		return q.results, nil
	}
	rs, err := q.evalFn(q.args)
	if err != nil {
		return nil, err
	}
	q.results = rs
	return rs, nil
}

// Refresh discards the cached results of this query and every subquery,
// then re-evaluates.
func (q *Query) Refresh() (*RecordSet, error) {
	q.invalidate()
	return q.Force()
}

func (q *Query) invalidate() {
	q.results = nil
	for _, arg := range q.args {
		if sub, ok := arg.(*Query); ok {
			sub.invalidate()
		}
	}
}

// Evaluated reports whether the query holds a cached result.
func (q *Query) Evaluated() bool { return q.results != nil }

func (q *Query) Records() ([]*Record, error) {
	rs, err := q.Force()
	if err != nil {
		return nil, err
	}
	return rs.Records(), nil
}

// Each calls fn for every result record, stopping early when fn returns
// false.
func (q *Query) Each(fn func(*Record) bool) error {
	rs, err := q.Force()
	if err != nil {
		return err
	}
	for _, r := range rs.Records() {
		if !fn(r) {
			return nil
		}
	}
	return nil
}

func (q *Query) Len() (int, error) {
	rs, err := q.Force()
	if err != nil {
		return 0, err
	}
	return rs.Len(), nil
}

func (q *Query) Contains(r *Record) (bool, error) {
	rs, err := q.Force()
	if err != nil {
		return false, err
	}
	return rs.Contains(r), nil
}

func (q *Query) Exists() (bool, error) {
	n, err := q.Len()
	return n > 0, err
}

// One returns the single first result, or ErrNotFound on an empty query.
func (q *Query) One() (*Record, error) {
	records, err := q.Records()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.WithStack(ErrNotFound)
	}
	return records[0], nil
}

// OneOr is One with a fallback for the empty case.
func (q *Query) OneOr(fallback *Record) (*Record, error) {
	r, err := q.One()
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	return r, err
}

func (q *Query) And(other *Query) *Query {
	out := newQuery("and", []any{q, other}, func(args []any) (*RecordSet, error) {
		a, b, err := forcePair(args)
		if err != nil {
			return nil, err
		}
		return a.Intersect(b), nil
	})
	out.adder = mergeAdders(q.adder, other.adder)
	return out
}

func (q *Query) Or(other *Query) *Query {
	return newQuery("or", []any{q, other}, func(args []any) (*RecordSet, error) {
		a, b, err := forcePair(args)
		if err != nil {
			return nil, err
		}
		return a.Union(b), nil
	})
}

func (q *Query) Xor(other *Query) *Query {
	return newQuery("xor", []any{q, other}, func(args []any) (*RecordSet, error) {
		a, b, err := forcePair(args)
		if err != nil {
			return nil, err
		}
		return a.SymmetricDifference(b), nil
	})
}

func (q *Query) Sub(other *Query) *Query {
	return newQuery("sub", []any{q, other}, func(args []any) (*RecordSet, error) {
		a, b, err := forcePair(args)
		if err != nil {
			return nil, err
		}
		return a.Difference(b), nil
	})
}

func forcePair(args []any) (*RecordSet, *RecordSet, error) {
	a, err := args[0].(*Query).Force()
	if err != nil {
		return nil, nil, err
	}
	b, err := args[1].(*Query).Force()
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// Field projects each result record onto the named field. Record values
// join the projection, query values (joins) contribute all their records,
// and anything else, including records that lack the field, is silently
// dropped. When the source query carries add-metadata, the projection
// supports AddRelated.
func (q *Query) Field(name string) *Query {
	out := q.fieldQuery(name)
	if q.adder != nil {
		out.fieldAdder = &fieldAdder{base: q.adder, name: name}
	}
	return out
}

func (q *Query) fieldQuery(name string) *Query {
	return newQuery("field", []any{q, name}, func(args []any) (*RecordSet, error) {
		src, err := args[0].(*Query).Force()
		if err != nil {
			return nil, err
		}
		out := newRecordSet()
		for _, r := range src.Records() {
			v, err := r.Value(name)
			if err != nil {
				continue
			}
			switch v := v.(type) {
			case *Record:
				out.add(v)
			case *Query:
				sub, err := v.Force()
				if err != nil {
					return nil, err
				}
				for _, j := range sub.Records() {
					out.add(j)
				}
			}
		}
		return out, nil
	})
}

// Delete removes every result record from its table. Records that a
// cascading hook already removed are skipped. A failure on one record does
// not stop the others; all failures are returned together with the count
// actually deleted.
func (q *Query) Delete() (int, error) {
	records, err := q.Records()
	if err != nil {
		return 0, err
	}
	deleted := 0
	var errs error
	for _, r := range records {
		if !r.table.Has(r) {
			continue
		}
		if err := r.table.Delete(r); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "delete %s", r))
			continue
		}
		deleted++
	}
	return deleted, errs
}

// Add creates a record that matches the query, merging the query's
// field-equality constraints with the given values. It fails when the query
// does not pin down a single table, when its constraints overlap each
// other, or when a given value collides with a constraint. The query's
// cache is dropped so the new record is visible on the next evaluation.
func (q *Query) Add(values Values) (*Record, error) {
	if q.addFn != nil {
		r, err := q.addFn(values)
		if err != nil {
			return nil, err
		}
		q.results = nil
		return r, nil
	}
	if q.adder == nil {
		return nil, errors.WithStack(ErrNoAddContext)
	}
	merged, err := q.adder.merge(values)
	if err != nil {
		return nil, err
	}
	r, err := q.adder.table.New(merged)
	if err != nil {
		return nil, err
	}
	q.results = nil
	return r, nil
}

// AddRelated creates a record in a field projection's source table, with
// the projected field set to related. Extra values fill the remaining
// fields the same way Add does.
func (q *Query) AddRelated(related *Record, extra Values) (*Record, error) {
	if q.fieldAdder == nil {
		return nil, errors.WithStack(ErrNoAddContext)
	}
	fa := q.fieldAdder
	merged, err := fa.base.merge(extra)
	if err != nil {
		return nil, err
	}
	if merged.Has(fa.name) {
		return nil, errors.Errorf("cannot add: colliding values for %s.%s",
			fa.base.table.name, fa.name)
	}
	merged.Set(fa.name, related)
	r, err := fa.base.table.New(merged)
	if err != nil {
		return nil, err
	}
	q.results = nil
	return r, nil
}

// merge combines caller values with the constraint values, rejecting
// colliding keys rather than picking one.
func (a *adder) merge(values Values) (Values, error) {
	if a.conflict != "" {
		return nil, errors.Errorf("cannot add: conflicting constraints on %s.%s",
			a.table.name, a.conflict)
	}
	merged := Values{}
	for _, name := range values.Keys() {
		merged.Set(name, values.Get(name))
	}
	for _, name := range a.values.Keys() {
		if merged.Has(name) {
			return nil, errors.Errorf("cannot add: colliding values for %s.%s",
				a.table.name, name)
		}
		merged.Set(name, a.values.Get(name))
	}
	return merged, nil
}

// Table returns the table new records would be added to, or nil when the
// query carries no add-metadata.
func (q *Query) Table() *Table {
	if q.adder == nil {
		return nil
	}
	return q.adder.table
}

func (q *Query) String() string {
	parts := make([]string, 0, len(q.args))
	for _, arg := range q.args {
		switch arg := arg.(type) {
		case *Query:
			parts = append(parts, "("+arg.String()+")")
		default:
			parts = append(parts, fmt.Sprintf("%v", arg))
		}
	}
	return string(q.op) + " " + strings.Join(parts, " ")
}
