package gc

import "fmt"

// RecordType couples a plain Go record type P with its derived in-heap
// layout. Declaring a record is two-phase: NewRecord names the type,
// Fields binds the field layout. The split exists so mutually
// recursive shapes (a record holding a union that holds a reference
// back to the record) can be declared without an initialization cycle.
//
// The derivation emits everything a heap type needs: the storage
// layout, plain⇄storage conversion, the trace rule, and typed field
// accessors. Authors supply only field names and get/set closures;
// tracing code is never written per type.
type RecordType[P any] struct {
	name   string
	fields []recordField[P]
}

type recordField[P any] struct {
	name string
	rep  rep
	get  func(P) any
	set  func(*P, any)
}

// NewRecord declares a record heap type with the given pool name.
func NewRecord[P any](name string) *RecordType[P] {
	return &RecordType[P]{name: name}
}

// Fields binds the record's field layout. Shape problems (rebinding,
// empty or duplicate names) are derivation-time panics, not use-time
// errors.
func (t *RecordType[P]) Fields(fields ...FieldSpec[P]) *RecordType[P] {
	if t.fields != nil {
		panic(fmt.Sprintf("gc: record %s: fields already bound", t.name))
	}
	if len(fields) == 0 {
		panic(fmt.Sprintf("gc: record %s: at least one field required", t.name))
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.inner.name == "" {
			panic(fmt.Sprintf("gc: record %s: field with empty name", t.name))
		}
		if seen[f.inner.name] {
			panic(fmt.Sprintf("gc: record %s: duplicate field %q", t.name, f.inner.name))
		}
		seen[f.inner.name] = true
		t.fields = append(t.fields, f.inner)
	}
	return t
}

// Name reports the record's pool name.
func (t *RecordType[P]) Name() string { return t.name }

// Live reports the number of live slots in t's pool, zero when the
// heap has never allocated one.
func (t *RecordType[P]) Live(s *Session) int {
	s.heap.checkOpen()
	if c, ok := s.heap.classOf[t]; ok {
		return s.heap.pools[c].live
	}
	return 0
}

func (t *RecordType[P]) bound() {
	if t.fields == nil {
		panic(fmt.Sprintf("gc: record %s: used before Fields", t.name))
	}
}

func (t *RecordType[P]) pool(h *Heap) *pool {
	t.bound()
	return h.poolFor(t, t.name, t.traceStorage)
}

// intoHeap converts a plain record to its storage form, one field at a
// time. Total: it cannot fail for any constructible P.
func (t *RecordType[P]) intoHeap(p P) []any {
	out := make([]any, len(t.fields))
	for i, f := range t.fields {
		out[i] = f.rep.intoHeap(f.get(p))
	}
	return out
}

// fromHeap is the inverse structural conversion. Handles materialized
// for address fields are stamped with the current heap, not a token
// captured at storage time.
func (t *RecordType[P]) fromHeap(h *Heap, storage []any) P {
	var p P
	for i, f := range t.fields {
		f.set(&p, f.rep.fromHeap(h, storage[i]))
	}
	return p
}

func (t *RecordType[P]) traceStorage(h *Heap, v any) {
	storage := v.([]any)
	for i, f := range t.fields {
		f.rep.trace(h, storage[i])
	}
}

// FieldSpec declares one record field. Build them with AtomField,
// RefField, UnionField or VecField.
type FieldSpec[P any] struct {
	inner recordField[P]
}

// AtomField declares a field holding an inline payload with no heap
// references (numbers, booleans, strings).
func AtomField[P, F any](name string, get func(P) F, set func(*P, F)) FieldSpec[P] {
	return FieldSpec[P]{recordField[P]{
		name: name,
		rep:  atomRep{},
		get:  func(p P) any { return get(p) },
		set:  func(p *P, v any) { set(p, v.(F)) },
	}}
}

// RefField declares a field holding a handle to another heap record;
// it is stored as a bare address.
func RefField[P, Q any](name string, target *RecordType[Q], get func(P) Ref[Q], set func(*P, Ref[Q])) FieldSpec[P] {
	return FieldSpec[P]{recordField[P]{
		name: name,
		rep:  refRep[Q]{target: target},
		get:  func(p P) any { return get(p) },
		set:  func(p *P, v any) { set(p, v.(Ref[Q])) },
	}}
}

// UnionField declares a field holding a tagged union by value; the
// union's own derived conversion and tracing rules apply recursively.
func UnionField[P, U any](name string, u *UnionType[U], get func(P) U, set func(*P, U)) FieldSpec[P] {
	return FieldSpec[P]{recordField[P]{
		name: name,
		rep:  unionRep[U]{u: u},
		get:  func(p P) any { return get(p) },
		set:  func(p *P, v any) { set(p, v.(U)) },
	}}
}

// VecField declares a field holding a handle to a heap vector.
func VecField[P, E any](name string, target *VecType[E], get func(P) VecRef[E], set func(*P, VecRef[E])) FieldSpec[P] {
	return FieldSpec[P]{recordField[P]{
		name: name,
		rep:  vecRep[E]{target: target},
		get:  func(p P) any { return get(p) },
		set:  func(p *P, v any) { set(p, v.(VecRef[E])) },
	}}
}

// UnionType couples a plain Go union representation P (typically an
// interface whose implementations carry a tag) with its derived
// per-variant storage layout. Like records, declaration is two-phase:
// NewUnion names the type and supplies the tag function, Variants
// binds the variant shapes.
type UnionType[P any] struct {
	name     string
	tagOf    func(P) int
	variants map[int]*variantShape[P]
}

type variantShape[P any] struct {
	tag     int
	name    string
	payload []rep
	explode func(P) []any
	build   func([]any) P
}

// NewUnion declares a tagged union heap type. tagOf must return a
// stable tag for every constructible P.
func NewUnion[P any](name string, tagOf func(P) int) *UnionType[P] {
	return &UnionType[P]{name: name, tagOf: tagOf}
}

// Variants binds the union's variant shapes. One match arm per variant
// is derived for conversion and tracing, preserving the declared
// payload arity.
func (u *UnionType[P]) Variants(vs ...VariantSpec[P]) *UnionType[P] {
	if u.variants != nil {
		panic(fmt.Sprintf("gc: union %s: variants already bound", u.name))
	}
	if len(vs) == 0 {
		panic(fmt.Sprintf("gc: union %s: at least one variant required", u.name))
	}
	u.variants = make(map[int]*variantShape[P], len(vs))
	for _, v := range vs {
		if v.inner.name == "" {
			panic(fmt.Sprintf("gc: union %s: variant with empty name", u.name))
		}
		if _, dup := u.variants[v.inner.tag]; dup {
			panic(fmt.Sprintf("gc: union %s: duplicate variant tag %d", u.name, v.inner.tag))
		}
		shape := v.inner
		u.variants[shape.tag] = &shape
	}
	return u
}

// Name reports the union's declared name.
func (u *UnionType[P]) Name() string { return u.name }

func (u *UnionType[P]) variant(tag int) *variantShape[P] {
	if u.variants == nil {
		panic(fmt.Sprintf("gc: union %s: used before Variants", u.name))
	}
	vs, ok := u.variants[tag]
	if !ok {
		panic(fmt.Sprintf("gc: union %s: undeclared variant tag %d", u.name, tag))
	}
	return vs
}

func (u *UnionType[P]) intoHeap(p P) storedUnion {
	vs := u.variant(u.tagOf(p))
	payload := vs.explode(p)
	if len(payload) != len(vs.payload) {
		panic(fmt.Sprintf("gc: union %s: variant %s produced %d payloads, declared %d",
			u.name, vs.name, len(payload), len(vs.payload)))
	}
	fields := make([]any, len(payload))
	for i := range payload {
		fields[i] = vs.payload[i].intoHeap(payload[i])
	}
	return storedUnion{tag: vs.tag, fields: fields}
}

func (u *UnionType[P]) fromHeap(h *Heap, sv storedUnion) P {
	vs := u.variant(sv.tag)
	payload := make([]any, len(sv.fields))
	for i := range sv.fields {
		payload[i] = vs.payload[i].fromHeap(h, sv.fields[i])
	}
	return vs.build(payload)
}

func (u *UnionType[P]) traceStored(h *Heap, sv storedUnion) {
	vs := u.variant(sv.tag)
	for i := range sv.fields {
		vs.payload[i].trace(h, sv.fields[i])
	}
}

// VariantSpec declares one union variant. Build them with UnitVariant
// or Variant.
type VariantSpec[P any] struct {
	inner variantShape[P]
}

// UnitVariant declares a payload-free variant.
func UnitVariant[P any](tag int, name string, build func() P) VariantSpec[P] {
	return VariantSpec[P]{variantShape[P]{
		tag:     tag,
		name:    name,
		explode: func(P) []any { return nil },
		build:   func([]any) P { return build() },
	}}
}

// Variant declares a variant carrying one payload per PayloadSpec.
// explode must return the payloads in declaration order; build is its
// inverse.
func Variant[P any](tag int, name string, explode func(P) []any, build func([]any) P, payload ...PayloadSpec) VariantSpec[P] {
	return VariantSpec[P]{variantShape[P]{
		tag:     tag,
		name:    name,
		payload: payloadReps(payload),
		explode: explode,
		build:   build,
	}}
}

func payloadReps(specs []PayloadSpec) []rep {
	reps := make([]rep, len(specs))
	for i, p := range specs {
		if p.rep == nil {
			panic("gc: nil payload spec")
		}
		reps[i] = p.rep
	}
	return reps
}

// PayloadSpec declares the shape of one variant payload.
type PayloadSpec struct {
	rep rep
}

// AtomPayload declares an inline payload with no heap references.
func AtomPayload() PayloadSpec { return PayloadSpec{rep: atomRep{}} }

// RefPayload declares a payload holding a record handle, stored as a
// bare address. The plain payload value must be a Ref[Q].
func RefPayload[Q any](target *RecordType[Q]) PayloadSpec {
	return PayloadSpec{rep: refRep[Q]{target: target}}
}

// UnionPayload declares a payload holding another (or the same) tagged
// union by value.
func UnionPayload[U any](u *UnionType[U]) PayloadSpec {
	return PayloadSpec{rep: unionRep[U]{u: u}}
}

// VecPayload declares a payload holding a vector handle.
func VecPayload[E any](target *VecType[E]) PayloadSpec {
	return PayloadSpec{rep: vecRep[E]{target: target}}
}

// Accessor is the derived getter/setter pair for one record field.
// Get materializes the field in plain form; Set converts a plain value
// and writes it into the field in place.
type Accessor[P, F any] struct {
	t     *RecordType[P]
	index int
}

// FieldOf resolves the accessor for a declared field by name. An
// undeclared name is a derivation error and panics.
func FieldOf[P, F any](t *RecordType[P], name string) Accessor[P, F] {
	t.bound()
	for i, f := range t.fields {
		if f.name == name {
			return Accessor[P, F]{t: t, index: i}
		}
	}
	panic(fmt.Sprintf("gc: record %s has no field %q", t.name, name))
}

// Get reads the field through the handle.
func (a Accessor[P, F]) Get(s *Session, r Ref[P]) F {
	storage := r.storage(s)
	f := a.t.fields[a.index]
	return f.rep.fromHeap(s.heap, storage[a.index]).(F)
}

// Set writes the field through the handle.
func (a Accessor[P, F]) Set(s *Session, r Ref[P], v F) {
	storage := r.storage(s)
	f := a.t.fields[a.index]
	storage[a.index] = f.rep.intoHeap(v)
}
