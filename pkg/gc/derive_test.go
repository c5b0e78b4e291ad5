package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test shapes: a pair record holding a tagged union in each field, the
// union covering a unit variant, two atomic variants and a reference
// variant back to the pair record.

const (
	tagNull = iota
	tagInt
	tagStr
	tagPair
	tagVec
)

type tVal interface{ tag() int }

type tNull struct{}

func (tNull) tag() int { return tagNull }

type tInt struct{ N int64 }

func (tInt) tag() int { return tagInt }

type tStr struct{ S string }

func (tStr) tag() int { return tagStr }

type tCons struct{ P Ref[tPair] }

func (tCons) tag() int { return tagPair }

type tVec struct{ V VecRef[tVal] }

func (tVec) tag() int { return tagVec }

type tPair struct {
	Head tVal
	Tail tVal
}

var (
	tPairType = NewRecord[tPair]("test-pair")
	tValType  = NewUnion[tVal]("test-value", func(v tVal) int { return v.tag() })
	tVecType  *VecType[tVal]
	tHead     Accessor[tPair, tVal]
	tTail     Accessor[tPair, tVal]
)

func init() {
	tVecType = NewVec[tVal]("test-vector", UnionPayload(tValType))
	tPairType.Fields(
		UnionField[tPair]("head", tValType,
			func(p tPair) tVal { return p.Head },
			func(p *tPair, v tVal) { p.Head = v },
		),
		UnionField[tPair]("tail", tValType,
			func(p tPair) tVal { return p.Tail },
			func(p *tPair, v tVal) { p.Tail = v },
		),
	)
	tValType.Variants(
		UnitVariant[tVal](tagNull, "null", func() tVal { return tNull{} }),
		Variant[tVal](tagInt, "int",
			func(v tVal) []any { return []any{v.(tInt).N} },
			func(args []any) tVal { return tInt{N: args[0].(int64)} },
			AtomPayload(),
		),
		Variant[tVal](tagStr, "str",
			func(v tVal) []any { return []any{v.(tStr).S} },
			func(args []any) tVal { return tStr{S: args[0].(string)} },
			AtomPayload(),
		),
		Variant[tVal](tagPair, "pair",
			func(v tVal) []any { return []any{v.(tCons).P} },
			func(args []any) tVal { return tCons{P: args[0].(Ref[tPair])} },
			RefPayload(tPairType),
		),
		Variant[tVal](tagVec, "vec",
			func(v tVal) []any { return []any{v.(tVec).V} },
			func(args []any) tVal { return tVec{V: args[0].(VecRef[tVal])} },
			VecPayload(tVecType),
		),
	)
	tHead = FieldOf[tPair, tVal](tPairType, "head")
	tTail = FieldOf[tPair, tVal](tPairType, "tail")
}

func withSession(t *testing.T, fn func(s *Session)) {
	t.Helper()
	h := NewHeap()
	t.Cleanup(h.Close)
	require.NoError(t, h.Enter(func(s *Session) error {
		fn(s)
		return nil
	}))
}

func TestRoundTripRecord(t *testing.T) {
	withSession(t, func(s *Session) {
		inner := Alloc(s, tPairType, tPair{Head: tInt{1}, Tail: tNull{}})
		p := Alloc(s, tPairType, tPair{
			Head: tStr{"hello"},
			Tail: tCons{P: inner},
		})

		got := p.Load(s)
		require.Equal(t, tStr{"hello"}, got.Head)
		require.Equal(t, tCons{P: inner}, got.Tail)

		innerGot := got.Tail.(tCons).P.Load(s)
		assert.Equal(t, tPair{Head: tInt{1}, Tail: tNull{}}, innerGot)
	})
}

func TestRoundTripEveryVariant(t *testing.T) {
	withSession(t, func(s *Session) {
		ref := Alloc(s, tPairType, tPair{Head: tNull{}, Tail: tNull{}})
		vec := AllocVec(s, tVecType, []tVal{tInt{7}})

		for _, v := range []tVal{
			tNull{},
			tInt{42},
			tStr{"s"},
			tCons{P: ref},
			tVec{V: vec},
		} {
			p := Alloc(s, tPairType, tPair{Head: v, Tail: tNull{}})
			assert.Equal(t, v, p.Load(s).Head, "variant tag %d", v.tag())
		}
	})
}

func TestFieldAccessors(t *testing.T) {
	withSession(t, func(s *Session) {
		p := Alloc(s, tPairType, tPair{Head: tInt{1}, Tail: tNull{}})

		require.Equal(t, tInt{1}, tHead.Get(s, p))
		require.Equal(t, tNull{}, tTail.Get(s, p))

		tTail.Set(s, p, tInt{2})
		assert.Equal(t, tInt{2}, tTail.Get(s, p))
		// The other field is untouched.
		assert.Equal(t, tInt{1}, tHead.Get(s, p))
	})
}

func TestHandleIdentity(t *testing.T) {
	withSession(t, func(s *Session) {
		a := Alloc(s, tPairType, tPair{Head: tInt{1}, Tail: tNull{}})
		b := Alloc(s, tPairType, tPair{Head: tInt{1}, Tail: tNull{}})

		// Structurally equal plains still allocate distinct slots.
		assert.NotEqual(t, a, b)

		parent := Alloc(s, tPairType, tPair{Head: tCons{P: a}, Tail: tNull{}})
		first := tHead.Get(s, parent).(tCons).P
		second := tHead.Get(s, parent).(tCons).P
		assert.Equal(t, first, second)
		assert.Equal(t, a, first)
	})
}

func TestStoreOverwritesInPlace(t *testing.T) {
	withSession(t, func(s *Session) {
		p := Alloc(s, tPairType, tPair{Head: tInt{1}, Tail: tInt{2}})
		q := p // copy of the handle, same slot

		p.Store(s, tPair{Head: tStr{"x"}, Tail: tNull{}})
		assert.Equal(t, tPair{Head: tStr{"x"}, Tail: tNull{}}, q.Load(s))
	})
}

func TestFieldOfUndeclaredPanics(t *testing.T) {
	require.Panics(t, func() {
		FieldOf[tPair, tVal](tPairType, "nope")
	})
}

func TestDuplicateFieldPanics(t *testing.T) {
	rt := NewRecord[tPair]("dup-fields")
	require.Panics(t, func() {
		rt.Fields(
			AtomField[tPair, int64]("n", func(tPair) int64 { return 0 }, func(*tPair, int64) {}),
			AtomField[tPair, int64]("n", func(tPair) int64 { return 0 }, func(*tPair, int64) {}),
		)
	})
}
