package tabula

const (
	rankNumber uint8 = iota
	rankString
	rankBytes
)

// Key is a totally ordered sort key derived from a cell value. Keys order by
// rank first, then by the rank's payload, so key functions can mix value
// kinds in one column without ever comparing a number to a string directly.
type Key struct {
	rank uint8
	num  float64
	str  string
}

func NumberKey(n float64) Key { return Key{rank: rankNumber, num: n} }

func StringKey(s string) Key { return Key{rank: rankString, str: s} }

func BytesKey(b []byte) Key { return Key{rank: rankBytes, str: string(b)} }

func (k Key) Compare(other Key) int {
	if k.rank != other.rank {
		if k.rank < other.rank {
			return -1
		}
		return 1
	}
	if k.rank == rankNumber {
		switch {
		case k.num < other.num:
			return -1
		case k.num > other.num:
			return 1
		}
		return 0
	}
	switch {
	case k.str < other.str:
		return -1
	case k.str > other.str:
		return 1
	}
	return 0
}

// KeyFunc maps a cell value to a sort key. Returning false routes the value
// to the index's unordered partition, where only equality lookups work.
type KeyFunc func(value any) (Key, bool)

// DefaultKey orders real numbers and reports everything else as unordered.
func DefaultKey(value any) (Key, bool) {
	switch v := value.(type) {
	case int:
		return NumberKey(float64(v)), true
	case int8:
		return NumberKey(float64(v)), true
	case int16:
		return NumberKey(float64(v)), true
	case int32:
		return NumberKey(float64(v)), true
	case int64:
		return NumberKey(float64(v)), true
	case uint:
		return NumberKey(float64(v)), true
	case uint8:
		return NumberKey(float64(v)), true
	case uint16:
		return NumberKey(float64(v)), true
	case uint32:
		return NumberKey(float64(v)), true
	case uint64:
		return NumberKey(float64(v)), true
	case float32:
		return NumberKey(float64(v)), true
	case float64:
		return NumberKey(v), true
	}
	return Key{}, false
}

// TypeRankedKey extends DefaultKey with strings and byte slices, ranked
// numbers < strings < bytes, for columns that mix those kinds.
func TypeRankedKey(value any) (Key, bool) {
	if k, ok := DefaultKey(value); ok {
		return k, true
	}
	switch v := value.(type) {
	case string:
		return StringKey(v), true
	case []byte:
		return BytesKey(v), true
	}
	return Key{}, false
}
