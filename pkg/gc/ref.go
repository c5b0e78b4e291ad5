package gc

// Ref is an opaque, copyable handle to one heap record. Two refs are
// equal (==) iff they name the same slot in the same heap; field
// contents never participate in equality. A ref is valid only inside
// sessions of the heap that minted it: passing it to a foreign or
// closed heap's session is a programmer error and panics.
type Ref[P any] struct {
	heap *Heap
	t    *RecordType[P]
	addr address
}

// IsZero reports whether r is the zero handle (never allocated).
func (r Ref[P]) IsZero() bool { return r.heap == nil }

func (r Ref[P]) storage(s *Session) []any {
	if r.heap == nil {
		panic("gc: use of zero ref")
	}
	if r.heap.closed {
		panic("gc: ref used after heap teardown")
	}
	if r.heap != s.heap {
		panic("gc: ref used outside the heap that minted it")
	}
	return s.heap.pools[r.addr.class].slots[r.addr.index].val.([]any)
}

// Load materializes the whole record in plain form.
func (r Ref[P]) Load(s *Session) P {
	return r.t.fromHeap(s.heap, r.storage(s))
}

// Store overwrites every field of the record in place from a plain
// value. The handle, and any other handle to the same slot, observes
// the new contents.
func (r Ref[P]) Store(s *Session, v P) {
	copy(r.storage(s), r.t.intoHeap(v))
}

func (r Ref[P]) traceInto(h *Heap) {
	if r.heap != h {
		panic("gc: root handle from a different heap")
	}
	h.mark(r.addr)
}
