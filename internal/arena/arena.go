// Package arena provides a generational slot arena.
//
// Slot ids are never reused, so a freed slot stays detectably stale: a Ref
// held by a caller after Free resolves to nothing instead of a newer value.
package arena

type Ref struct {
	Index uint32
	Gen   uint32
}

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

type Arena[T any] struct {
	slots []slot[T]
	gen   uint32
	count int
}

func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

func (a *Arena[T]) Alloc(value T) Ref {
	a.gen++
	a.slots = append(a.slots, slot[T]{value: value, gen: a.gen, live: true})
	a.count++
	return Ref{Index: uint32(len(a.slots) - 1), Gen: a.gen}
}

func (a *Arena[T]) Get(ref Ref) (T, bool) {
	var zero T
	if int(ref.Index) >= len(a.slots) {
		return zero, false
	}
	s := a.slots[ref.Index]
	if !s.live || s.gen != ref.Gen {
		return zero, false
	}
	return s.value, true
}

func (a *Arena[T]) Has(ref Ref) bool {
	_, ok := a.Get(ref)
	return ok
}

func (a *Arena[T]) Free(ref Ref) bool {
	if int(ref.Index) >= len(a.slots) {
		return false
	}
	s := &a.slots[ref.Index]
	if !s.live || s.gen != ref.Gen {
		return false
	}
	var zero T
	s.value = zero
	s.live = false
	s.gen++
	a.count--
	return true
}

func (a *Arena[T]) Len() int { return a.count }

// Each calls f for every live slot in allocation order until f returns false.
func (a *Arena[T]) Each(f func(Ref, T) bool) {
	for i := range a.slots {
		s := a.slots[i]
		if !s.live {
			continue
		}
		if !f(Ref{Index: uint32(i), Gen: s.gen}, s.value) {
			return
		}
	}
}

func (a *Arena[T]) Clear() {
	a.slots = nil
	a.count = 0
}
