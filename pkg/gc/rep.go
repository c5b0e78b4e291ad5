package gc

// address locates one storage slot: the pool it lives in and the slot
// index within that pool. An address carries no type and no lifetime
// information; pairing it with a live heap happens at the handle
// boundary, never inside storage.
type address struct {
	class uint32
	index uint32
}

// rep is the conversion contract every heap-eligible payload shape
// satisfies. intoHeap and fromHeap are total, structural inverses;
// trace marks the payload's outgoing references. Reps are composed by
// the type derivation in derive.go and are never written per type by
// hand.
type rep interface {
	intoHeap(v any) any
	fromHeap(h *Heap, v any) any
	trace(h *Heap, v any)
}

// atomRep passes inline payloads (numbers, booleans, interned strings,
// host-side values) through unchanged. Atoms hold no heap references,
// so tracing one is a no-op.
type atomRep struct{}

func (atomRep) intoHeap(v any) any          { return v }
func (atomRep) fromHeap(_ *Heap, v any) any { return v }
func (atomRep) trace(_ *Heap, _ any)        {}

// refRep stores a typed record handle as its bare address and re-types
// the address on the way out against the current heap. The stored form
// deliberately forgets the handle's heap stamp: addresses are only
// meaningful inside the heap that holds them.
type refRep[P any] struct {
	target *RecordType[P]
}

func (r refRep[P]) intoHeap(v any) any {
	return v.(Ref[P]).addr
}

func (r refRep[P]) fromHeap(h *Heap, v any) any {
	return Ref[P]{heap: h, t: r.target, addr: v.(address)}
}

func (r refRep[P]) trace(h *Heap, v any) {
	h.mark(v.(address))
}

// vecRep is refRep's counterpart for vector handles.
type vecRep[E any] struct {
	target *VecType[E]
}

func (r vecRep[E]) intoHeap(v any) any {
	return v.(VecRef[E]).addr
}

func (r vecRep[E]) fromHeap(h *Heap, v any) any {
	return VecRef[E]{heap: h, t: r.target, addr: v.(address)}
}

func (r vecRep[E]) trace(h *Heap, v any) {
	h.mark(v.(address))
}

// unionRep embeds a tagged union by value inside another storage value.
// Unlike refRep there is no address indirection: conversion and tracing
// recurse into the union's own derived rules.
type unionRep[P any] struct {
	u *UnionType[P]
}

func (r unionRep[P]) intoHeap(v any) any {
	return r.u.intoHeap(v.(P))
}

func (r unionRep[P]) fromHeap(h *Heap, v any) any {
	return r.u.fromHeap(h, v.(storedUnion))
}

func (r unionRep[P]) trace(h *Heap, v any) {
	r.u.traceStored(h, v.(storedUnion))
}

// storedUnion is the in-heap form of a tagged union value: the variant
// tag plus each payload converted to its storage form.
type storedUnion struct {
	tag    int
	fields []any
}

// storedVec is the in-heap form of a variable-length vector. The slot
// holds a pointer so in-place growth is visible through every handle.
type storedVec struct {
	elems []any
}
