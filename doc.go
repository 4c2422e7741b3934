// Package tabula is an in-process, in-memory record store.
//
// Tables are defined by an explicit schema of fields, every field is
// automatically indexed, and comparisons on a field handle produce lazy,
// composable set-algebra queries:
//
//	schema := tabula.NewSchema(
//		tabula.F("name", tabula.FieldDef{Unique: true}),
//		tabula.F("age", tabula.FieldDef{}),
//	)
//	people, _ := tabula.NewTable("people", schema)
//	people.New(tabula.Values{"name": "ada", "age": 36})
//
//	q := people.Field("age").Gt(30).And(people.Field("name").Ne("bob"))
//	recs, _ := q.Records()
//
// Queries are evaluated on first use and cached; call Refresh to re-evaluate
// after mutating the underlying tables. There is no persistence and no
// concurrency support: callers own serialization.
package tabula
