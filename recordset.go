package tabula

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// RecordSet is an evaluated query result. Membership is tracked in a bitmap
// of packed record handles; the handle map keeps the records themselves
// reachable for as long as the set lives, so cached results stay valid even
// after records are deleted from their tables.
type RecordSet struct {
	bits     *roaring64.Bitmap
	byHandle map[uint64]*Record
}

func newRecordSet() *RecordSet {
	return &RecordSet{
		bits:     roaring64.New(),
		byHandle: map[uint64]*Record{},
	}
}

func setOf(records []*Record) *RecordSet {
	s := newRecordSet()
	for _, r := range records {
		s.add(r)
	}
	return s
}

func (s *RecordSet) add(r *Record) {
	h := r.handle()
	s.bits.Add(h)
	s.byHandle[h] = r
}

func (s *RecordSet) Contains(r *Record) bool {
	if r == nil {
		return false
	}
	h := r.handle()
	return s.bits.Contains(h) && s.byHandle[h] == r
}

func (s *RecordSet) Len() int { return int(s.bits.GetCardinality()) }

// Records returns the members ordered by table then creation order.
func (s *RecordSet) Records() []*Record {
	records := make([]*Record, 0, s.Len())
	it := s.bits.Iterator()
	for it.HasNext() {
		records = append(records, s.byHandle[it.Next()])
	}
	return records
}

func (s *RecordSet) Union(other *RecordSet) *RecordSet {
	out := newRecordSet()
	out.bits = roaring64.Or(s.bits, other.bits)
	out.copyHandles(s, other)
	return out
}

func (s *RecordSet) Intersect(other *RecordSet) *RecordSet {
	out := newRecordSet()
	out.bits = roaring64.And(s.bits, other.bits)
	out.copyHandles(s, other)
	return out
}

func (s *RecordSet) Difference(other *RecordSet) *RecordSet {
	out := newRecordSet()
	out.bits = roaring64.AndNot(s.bits, other.bits)
	out.copyHandles(s, nil)
	return out
}

func (s *RecordSet) SymmetricDifference(other *RecordSet) *RecordSet {
	out := newRecordSet()
	out.bits = roaring64.Xor(s.bits, other.bits)
	out.copyHandles(s, other)
	return out
}

// copyHandles fills the handle map for every member bit, drawing from
// whichever source set knows the record.
func (out *RecordSet) copyHandles(sources ...*RecordSet) {
	it := out.bits.Iterator()
	for it.HasNext() {
		h := it.Next()
		for _, src := range sources {
			if src == nil {
				continue
			}
			if r, ok := src.byHandle[h]; ok {
				out.byHandle[h] = r
				break
			}
		}
	}
}
