package pkg_test

import (
	"testing"

	. "github.com/tabuladb/tabula/pkg"
)

func TestFilter(t *testing.T) {
	res := Filter([]int{1, 2, 3, 4, 5, 6}, func(i int) bool {
		return i%2 == 0
	})

	if len(res) != 3 {
		t.Errorf("Expected 3, got %d", len(res))
	}

	if res[0] != 2 || res[1] != 4 || res[2] != 6 {
		t.Errorf("Expected 2, 4, 6, got %d, %d, %d", res[0], res[1], res[2])
	}
}

func TestInsertSortMap(t *testing.T) {
	m := NewInsertSortMap[string, int]()
	m.Push("c", 3)
	m.Push("a", 1)
	m.Push("b", 2)

	if m.Len() != 3 {
		t.Errorf("Expected 3, got %d", m.Len())
	}

	values := m.Values()
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("Expected insertion order 3, 1, 2, got %v", values)
	}

	m.Delete("a")
	if m.Has("a") || m.Len() != 2 {
		t.Error("Expected a to be removed")
	}
}
