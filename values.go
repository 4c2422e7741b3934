package tabula

import (
	"fmt"
	"reflect"

	"github.com/tabuladb/tabula/pkg"
)

// Values maps field names to cell values, used for record construction and
// keyword-style filtering.
type Values = pkg.Map[string, any]

// formatIndexValue derives the hash bucket for an unordered index entry.
// Records bucket by identity so that mutating their fields cannot move them.
func formatIndexValue(v any) string {
	if r, ok := v.(*Record); ok {
		return "rec:" + r.uid.String()
	}
	return fmt.Sprintf("%v", v)
}

// valueEqual compares cell values. Records compare by identity, everything
// else by value; non-comparable values fall back to deep equality.
func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

func tupleEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valueEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
