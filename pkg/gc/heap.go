package gc

import (
	"fmt"
	"math"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Default pool growth and collection trigger settings.
const (
	DefaultChunkSize        = 64
	DefaultCollectThreshold = 4096
)

// Policy controls how pools grow and when allocation triggers a
// collection cycle: a pool grows by ChunkSize slots at a time, and a
// collection runs once CollectThreshold slots have been allocated
// since the previous cycle.
type Policy struct {
	ChunkSize        int
	CollectThreshold int
}

func (p Policy) withDefaults() Policy {
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.CollectThreshold <= 0 {
		p.CollectThreshold = DefaultCollectThreshold
	}
	return p
}

// Heap owns one allocation pool per bound heap type. A heap is created
// explicitly with NewHeap and torn down explicitly with Close; there
// is no ambient process-wide heap. All allocation and mutation happens
// through the Session handed out by Enter.
type Heap struct {
	logger log.Logger
	policy Policy

	pools   []*pool
	classOf map[any]uint32

	rootSources []func(visit func(Root))
	pins        []Root

	sinceCollect int
	entered      bool
	closed       bool
}

// Option configures a Heap at construction time.
type Option func(*Heap)

// WithLogger attaches a structured logger; collection cycles log their
// stats at debug level.
func WithLogger(logger log.Logger) Option {
	return func(h *Heap) { h.logger = logger }
}

// WithPolicy overrides the growth and collection trigger policy.
func WithPolicy(p Policy) Option {
	return func(h *Heap) { h.policy = p }
}

// NewHeap creates an empty heap.
func NewHeap(opts ...Option) *Heap {
	h := &Heap{
		logger:  log.NewNopLogger(),
		classOf: make(map[any]uint32),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.policy = h.policy.withDefaults()
	return h
}

// Close tears the heap down. Every handle and session minted from it
// becomes invalid; further use panics.
func (h *Heap) Close() {
	h.pools = nil
	h.classOf = nil
	h.rootSources = nil
	h.pins = nil
	h.closed = true
}

// Enter runs fn with the session that mediates every heap operation
// for the duration of the call. Only one session exists at a time;
// nesting is a programmer error.
func (h *Heap) Enter(fn func(*Session) error) error {
	h.checkOpen()
	if h.entered {
		panic("gc: nested Enter on the same heap")
	}
	h.entered = true
	defer func() { h.entered = false }()
	return fn(&Session{heap: h})
}

// AddRootSource registers an enumerator the heap consults when a
// collection is triggered by allocation pressure. The embedding
// program must enumerate every value it considers live; omitting one
// is a correctness bug, not a detected error.
func (h *Heap) AddRootSource(src func(visit func(Root))) {
	h.checkOpen()
	h.rootSources = append(h.rootSources, src)
}

func (h *Heap) checkOpen() {
	if h.closed {
		panic("gc: use of closed heap")
	}
}

// poolFor returns the pool bound to the descriptor key, creating it on
// first use.
func (h *Heap) poolFor(key any, name string, trace func(*Heap, any)) *pool {
	if c, ok := h.classOf[key]; ok {
		return h.pools[c]
	}
	p := &pool{
		name:     name,
		class:    uint32(len(h.pools)),
		traceVal: trace,
	}
	h.classOf[key] = p.class
	h.pools = append(h.pools, p)
	return p
}

// mark sets the referent's mark bit and traces its outgoing
// references. Re-visiting a marked slot is a no-op, which is what
// bounds the walk on cyclic and shared structure.
func (h *Heap) mark(a address) {
	p := h.pools[a.class]
	s := &p.slots[a.index]
	if s.marked || !s.inUse {
		return
	}
	s.marked = true
	p.traceVal(h, s.val)
}

// maybeCollect runs a threshold-triggered collection using the
// registered root sources.
func (h *Heap) maybeCollect() {
	if h.sinceCollect >= h.policy.CollectThreshold {
		h.collect(nil)
	}
}

// collect is one stop-the-world mark-and-sweep pass: clear every mark
// bit, trace from the explicit roots, every registered root source and
// every active pin, then sweep each pool, returning unmarked slots to
// its free list.
func (h *Heap) collect(roots []Root) {
	for _, p := range h.pools {
		for i := range p.slots {
			p.slots[i].marked = false
		}
	}

	for _, r := range roots {
		if r != nil {
			r.traceInto(h)
		}
	}
	for _, src := range h.rootSources {
		src(func(r Root) {
			if r != nil {
				r.traceInto(h)
			}
		})
	}
	for _, r := range h.pins {
		if r != nil {
			r.traceInto(h)
		}
	}

	var live, swept int
	for _, p := range h.pools {
		for i := range p.slots {
			s := &p.slots[i]
			if s.inUse && !s.marked {
				s.val = nil
				s.inUse = false
				p.free = append(p.free, uint32(i))
				p.live--
				swept++
			}
		}
		live += p.live
	}
	h.sinceCollect = 0

	level.Debug(h.logger).Log(
		"msg", "collection cycle complete",
		"pools", len(h.pools),
		"live", live,
		"swept", swept,
	)
}

// slot is one storage cell: the storage value, its mark bit, and
// whether the cell is currently allocated.
type slot struct {
	val    any
	marked bool
	inUse  bool
}

// pool holds every allocated and free slot of one concrete storage
// type. It grows by fixed-size chunks and never shrinks or moves
// slots, so addresses stay stable for the life of the heap.
type pool struct {
	name     string
	class    uint32
	slots    []slot
	free     []uint32
	live     int
	traceVal func(h *Heap, storage any)
}

// take installs a storage value in a free slot, growing the pool by
// one chunk when the free list is empty. Exhaustion of the address
// space is fatal.
func (p *pool) take(storage any, chunkSize int) uint32 {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		p.slots[idx] = slot{val: storage, inUse: true}
		p.live++
		return idx
	}

	base := len(p.slots)
	if base+chunkSize > math.MaxUint32 {
		panic(fmt.Sprintf("gc: pool %s exhausted (%d slots)", p.name, base))
	}
	p.slots = append(p.slots, make([]slot, chunkSize)...)
	for i := base + chunkSize - 1; i > base; i-- {
		p.free = append(p.free, uint32(i))
	}
	p.slots[base] = slot{val: storage, inUse: true}
	p.live++
	return uint32(base)
}

// Session is the sole gateway to allocation, mutation and collection.
// Sessions are only obtainable through (*Heap).Enter, which is what
// binds every handle they produce to the heap's lifetime.
type Session struct {
	heap *Heap
}

// Heap exposes the owning heap (read-only uses such as Live counts).
func (s *Session) Heap() *Heap { return s.heap }

// Collect runs one stop-the-world collection from the given roots plus
// every registered root source.
func (s *Session) Collect(roots ...Root) {
	s.heap.checkOpen()
	s.heap.collect(roots)
}

// Pin registers a temporary root for a value that exists only in host
// locals while a compound operation is in flight. Pins are scoped:
// capture PinMark before the operation and restore it with PopPins
// once the result is reachable from a durable root.
func (s *Session) Pin(r Root) {
	s.heap.checkOpen()
	s.heap.pins = append(s.heap.pins, r)
}

// PinMark returns the current pin stack depth.
func (s *Session) PinMark() int {
	return len(s.heap.pins)
}

// PopPins releases every pin added since the given mark.
func (s *Session) PopPins(mark int) {
	s.heap.pins = s.heap.pins[:mark]
}

// Root is anything the embedding program can hand to Collect as a
// starting point for the trace: record handles, vector handles, and
// plain union values wrapped with UnionRoot.
type Root interface {
	traceInto(h *Heap)
}

type unionRoot[P any] struct {
	u *UnionType[P]
	v P
}

func (r unionRoot[P]) traceInto(h *Heap) {
	// Converting to storage form reduces the plain value to addresses,
	// which the union's derived trace rule then marks.
	r.u.traceStored(h, r.u.intoHeap(r.v))
}

// UnionRoot wraps a plain union value so it can serve as a GC root.
func UnionRoot[P any](u *UnionType[P], v P) Root {
	return unionRoot[P]{u: u, v: v}
}

// Alloc converts a plain record to storage form and installs it in the
// type's pool, collecting first once the policy threshold is reached.
// The returned handle is stamped with the session's heap. Allocation
// never fails under normal operation; exhaustion even after collection
// panics.
func Alloc[P any](s *Session, t *RecordType[P], plain P) Ref[P] {
	h := s.heap
	h.checkOpen()
	h.maybeCollect()
	p := t.pool(h)
	idx := p.take(t.intoHeap(plain), h.policy.ChunkSize)
	h.sinceCollect++
	return Ref[P]{heap: h, t: t, addr: address{class: p.class, index: idx}}
}
