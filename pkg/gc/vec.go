package gc

import "fmt"

// VecType describes a GC-allocated variable-length vector of E. Every
// element is converted and traced through the element payload shape,
// so a vector of union values participates fully in collection.
type VecType[E any] struct {
	name string
	elem rep
}

// NewVec declares a vector heap type with the given pool name and
// element shape.
func NewVec[E any](name string, elem PayloadSpec) *VecType[E] {
	if elem.rep == nil {
		panic("gc: nil element spec")
	}
	return &VecType[E]{name: name, elem: elem.rep}
}

// Name reports the vector type's pool name.
func (t *VecType[E]) Name() string { return t.name }

// Live reports the number of live vectors in t's pool.
func (t *VecType[E]) Live(s *Session) int {
	s.heap.checkOpen()
	if c, ok := s.heap.classOf[t]; ok {
		return s.heap.pools[c].live
	}
	return 0
}

func (t *VecType[E]) pool(h *Heap) *pool {
	return h.poolFor(t, t.name, t.traceStorage)
}

func (t *VecType[E]) traceStorage(h *Heap, v any) {
	for _, e := range v.(*storedVec).elems {
		t.elem.trace(h, e)
	}
}

// AllocVec copies elems into a fresh heap vector and returns its
// handle.
func AllocVec[E any](s *Session, t *VecType[E], elems []E) VecRef[E] {
	h := s.heap
	h.checkOpen()
	h.maybeCollect()
	sv := &storedVec{elems: make([]any, len(elems))}
	for i, e := range elems {
		sv.elems[i] = t.elem.intoHeap(e)
	}
	p := t.pool(h)
	idx := p.take(sv, h.policy.ChunkSize)
	h.sinceCollect++
	return VecRef[E]{heap: h, t: t, addr: address{class: p.class, index: idx}}
}

// VecRef is an opaque, copyable handle to one heap vector. Equality
// and validity follow the same rules as Ref.
type VecRef[E any] struct {
	heap *Heap
	t    *VecType[E]
	addr address
}

// IsZero reports whether r is the zero handle.
func (r VecRef[E]) IsZero() bool { return r.heap == nil }

func (r VecRef[E]) vec(s *Session) *storedVec {
	if r.heap == nil {
		panic("gc: use of zero vec ref")
	}
	if r.heap.closed {
		panic("gc: vec ref used after heap teardown")
	}
	if r.heap != s.heap {
		panic("gc: vec ref used outside the heap that minted it")
	}
	return s.heap.pools[r.addr.class].slots[r.addr.index].val.(*storedVec)
}

// Len reports the element count.
func (r VecRef[E]) Len(s *Session) int {
	return len(r.vec(s).elems)
}

// Get returns the i'th element in plain form. An out-of-range index is
// reported as *BoundsError, never as undefined behavior.
func (r VecRef[E]) Get(s *Session, i int) (E, error) {
	sv := r.vec(s)
	if i < 0 || i >= len(sv.elems) {
		var zero E
		return zero, &BoundsError{Index: i, Len: len(sv.elems)}
	}
	return r.t.elem.fromHeap(s.heap, sv.elems[i]).(E), nil
}

// Set overwrites the i'th element in place.
func (r VecRef[E]) Set(s *Session, i int, v E) error {
	sv := r.vec(s)
	if i < 0 || i >= len(sv.elems) {
		return &BoundsError{Index: i, Len: len(sv.elems)}
	}
	sv.elems[i] = r.t.elem.intoHeap(v)
	return nil
}

// Push appends an element; every handle to the vector observes the new
// length.
func (r VecRef[E]) Push(s *Session, v E) {
	sv := r.vec(s)
	sv.elems = append(sv.elems, r.t.elem.intoHeap(v))
}

func (r VecRef[E]) traceInto(h *Heap) {
	if r.heap != h {
		panic("gc: root handle from a different heap")
	}
	h.mark(r.addr)
}

// BoundsError reports an index outside a vector's length. It is always
// recoverable by the caller.
type BoundsError struct {
	Index int
	Len   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("index out of bounds (got %d, length %d)", e.Index, e.Len)
}
