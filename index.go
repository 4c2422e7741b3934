package tabula

import (
	"sort"

	"github.com/pkg/errors"
)

type indexPair struct {
	value  any
	record *Record
}

// Index maps the values of one field to records. Entries are partitioned
// three ways: an unset bucket for NotSet, an ordered bucket of sorted
// parallel (key, record) slices for values the key function can rank, and
// unordered buckets keyed by the formatted value for everything else.
// Ordering queries only ever see the ordered bucket.
type Index struct {
	key KeyFunc

	unset     []*Record
	keys      []Key
	records   []*Record
	unordered map[string][]indexPair
}

func NewIndex(key KeyFunc) *Index {
	if key == nil {
		key = DefaultKey
	}
	idx := &Index{key: key}
	idx.Clear()
	return idx
}

func (idx *Index) Clear() {
	idx.unset = nil
	idx.keys = nil
	idx.records = nil
	idx.unordered = map[string][]indexPair{}
}

func (idx *Index) Len() int {
	n := len(idx.unset) + len(idx.records)
	for _, pairs := range idx.unordered {
		n += len(pairs)
	}
	return n
}

func (idx *Index) bisectLeft(k Key) int {
	return sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i].Compare(k) >= 0 })
}

func (idx *Index) bisectRight(k Key) int {
	return sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i].Compare(k) > 0 })
}

// Insert adds (value, record). Equal keys insert to the right of existing
// ones, so duplicates keep insertion order.
func (idx *Index) Insert(value any, record *Record) {
	if isNotSet(value) {
		idx.unset = append(idx.unset, record)
		return
	}
	k, ok := idx.key(value)
	if !ok {
		bucket := formatIndexValue(value)
		idx.unordered[bucket] = append(idx.unordered[bucket], indexPair{value, record})
		return
	}
	i := idx.bisectRight(k)
	idx.keys = append(idx.keys, Key{})
	copy(idx.keys[i+1:], idx.keys[i:])
	idx.keys[i] = k
	idx.records = append(idx.records, nil)
	copy(idx.records[i+1:], idx.records[i:])
	idx.records[i] = record
}

// Remove drops the first occurrence of (value, record), matching the record
// by identity. A miss means the index and the cell data disagree.
func (idx *Index) Remove(value any, record *Record) error {
	if isNotSet(value) {
		for i, r := range idx.unset {
			if r == record {
				idx.unset = append(idx.unset[:i], idx.unset[i+1:]...)
				return nil
			}
		}
		return errors.WithStack(NewConsistencyError("index remove: record not in unset bucket"))
	}
	k, ok := idx.key(value)
	if !ok {
		bucket := formatIndexValue(value)
		pairs := idx.unordered[bucket]
		for i, p := range pairs {
			if p.record == record && valueEqual(p.value, value) {
				idx.unordered[bucket] = append(pairs[:i], pairs[i+1:]...)
				if len(idx.unordered[bucket]) == 0 {
					delete(idx.unordered, bucket)
				}
				return nil
			}
		}
		return errors.WithStack(NewConsistencyError("index remove: record not in unordered bucket"))
	}
	i, j := idx.bisectLeft(k), idx.bisectRight(k)
	for x := i; x < j; x++ {
		if idx.records[x] == record {
			idx.keys = append(idx.keys[:x], idx.keys[x+1:]...)
			idx.records = append(idx.records[:x], idx.records[x+1:]...)
			return nil
		}
	}
	return errors.WithStack(NewConsistencyError("index remove: record not in ordered bucket"))
}

// IterEq returns the records whose value equals the given one. NotSet
// returns exactly the unset bucket.
func (idx *Index) IterEq(value any) []*Record {
	if isNotSet(value) {
		return append([]*Record{}, idx.unset...)
	}
	k, ok := idx.key(value)
	if !ok {
		found := []*Record{}
		for _, p := range idx.unordered[formatIndexValue(value)] {
			if valueEqual(p.value, value) {
				found = append(found, p.record)
			}
		}
		return found
	}
	i, j := idx.bisectLeft(k), idx.bisectRight(k)
	return append([]*Record{}, idx.records[i:j]...)
}

// IterNe returns every record except those IterEq would return.
func (idx *Index) IterNe(value any) []*Record {
	found := []*Record{}
	if isNotSet(value) {
		found = append(found, idx.records...)
		for _, pairs := range idx.unordered {
			for _, p := range pairs {
				found = append(found, p.record)
			}
		}
		return found
	}
	k, ok := idx.key(value)
	if !ok {
		found = append(found, idx.unset...)
		found = append(found, idx.records...)
		for _, pairs := range idx.unordered {
			for _, p := range pairs {
				if !valueEqual(p.value, value) {
					found = append(found, p.record)
				}
			}
		}
		return found
	}
	i, j := idx.bisectLeft(k), idx.bisectRight(k)
	found = append(found, idx.unset...)
	for _, pairs := range idx.unordered {
		for _, p := range pairs {
			found = append(found, p.record)
		}
	}
	found = append(found, idx.records[:i]...)
	found = append(found, idx.records[j:]...)
	return found
}

// Ordering comparisons are defined only over the ordered bucket; unset and
// unordered values never compare as ordered, and probing with an unorderable
// value is an error rather than a silent misorder.

func (idx *Index) IterLt(value any) ([]*Record, error) {
	k, err := idx.orderedKey(value)
	if err != nil {
		return nil, err
	}
	return append([]*Record{}, idx.records[:idx.bisectLeft(k)]...), nil
}

func (idx *Index) IterLe(value any) ([]*Record, error) {
	k, err := idx.orderedKey(value)
	if err != nil {
		return nil, err
	}
	return append([]*Record{}, idx.records[:idx.bisectRight(k)]...), nil
}

func (idx *Index) IterGt(value any) ([]*Record, error) {
	k, err := idx.orderedKey(value)
	if err != nil {
		return nil, err
	}
	return append([]*Record{}, idx.records[idx.bisectRight(k):]...), nil
}

func (idx *Index) IterGe(value any) ([]*Record, error) {
	k, err := idx.orderedKey(value)
	if err != nil {
		return nil, err
	}
	return append([]*Record{}, idx.records[idx.bisectLeft(k):]...), nil
}

func (idx *Index) orderedKey(value any) (Key, error) {
	if isNotSet(value) {
		return Key{}, errors.Wrap(ErrUnordered, "NotSet")
	}
	k, ok := idx.key(value)
	if !ok {
		return Key{}, errors.Wrapf(ErrUnordered, "%v", value)
	}
	return k, nil
}
