package lisp

import (
	"fmt"

	"gclisp/gclisp-go/pkg/gc"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindString
	KindSymbol
	KindPair
	KindVector
	KindBuiltin
	KindLambda
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindPair:
		return "pair"
	case KindVector:
		return "vector"
	case KindBuiltin:
		return "builtin"
	case KindLambda:
		return "lambda"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values. Atomic
// variants compare by payload, pair and vector variants by heap
// address.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Atoms
//-----------------------------------------------------------------------------

type NilValue struct{}

func (NilValue) Kind() Kind { return KindNil }

type BoolValue struct {
	Val bool
}

func (BoolValue) Kind() Kind { return KindBool }

type IntValue struct {
	Val int64
}

func (IntValue) Kind() Kind { return KindInt }

type StringValue struct {
	Val string
}

func (StringValue) Kind() Kind { return KindString }

type SymbolValue struct {
	Name string
}

func (SymbolValue) Kind() Kind { return KindSymbol }

//-----------------------------------------------------------------------------
// Heap-allocated composites
//-----------------------------------------------------------------------------

// Pair is the plain form of a cons cell; both fields hold owned
// values. The in-heap layout, handle accessors and tracing rules are
// derived in heaptypes.go.
type Pair struct {
	First Value
	Rest  Value
}

// PairValue wraps the handle to one heap-allocated pair.
type PairValue struct {
	Ref gc.Ref[Pair]
}

func (PairValue) Kind() Kind { return KindPair }

// First reads the pair's first field.
func (v PairValue) First(s *gc.Session) Value { return pairFirst.Get(s, v.Ref) }

// Rest reads the pair's rest field.
func (v PairValue) Rest(s *gc.Session) Value { return pairRest.Get(s, v.Ref) }

// SetFirst overwrites the pair's first field in place.
func (v PairValue) SetFirst(s *gc.Session, x Value) { pairFirst.Set(s, v.Ref, x) }

// SetRest overwrites the pair's rest field in place.
func (v PairValue) SetRest(s *gc.Session, x Value) { pairRest.Set(s, v.Ref, x) }

// VectorValue wraps the handle to one heap-allocated vector.
type VectorValue struct {
	Ref gc.VecRef[Value]
}

func (VectorValue) Kind() Kind { return KindVector }

//-----------------------------------------------------------------------------
// Procedures
//-----------------------------------------------------------------------------

// BuiltinFunc is the primitive calling convention: a primitive
// allocates exclusively through the supplied session and never caches
// handles across session boundaries.
type BuiltinFunc func(*gc.Session, []Value) (Value, error)

type BuiltinValue struct {
	Name string
	Impl BuiltinFunc
}

func (BuiltinValue) Kind() Kind { return KindBuiltin }

// LambdaValue is a user procedure: parameter list and body live in the
// heap; the captured environment is host-side state the interpreter
// enumerates as a root source.
type LambdaValue struct {
	Params Value // list of symbols
	Body   Value // list of body forms
	Env    *Environment
}

func (LambdaValue) Kind() Kind { return KindLambda }

//-----------------------------------------------------------------------------
// Equivalence
//-----------------------------------------------------------------------------

// Eqv implements eqv?-style equivalence: same variant, payload
// equality for atoms, address identity for pairs and vectors.
func Eqv(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case NilValue:
		return true
	case BoolValue:
		return av.Val == b.(BoolValue).Val
	case IntValue:
		return av.Val == b.(IntValue).Val
	case StringValue:
		return av.Val == b.(StringValue).Val
	case SymbolValue:
		return av.Name == b.(SymbolValue).Name
	case PairValue:
		return av.Ref == b.(PairValue).Ref
	case VectorValue:
		return av.Ref == b.(VectorValue).Ref
	case BuiltinValue:
		return av.Name == b.(BuiltinValue).Name
	case LambdaValue:
		bv := b.(LambdaValue)
		return av.Env == bv.Env && Eqv(av.Params, bv.Params) && Eqv(av.Body, bv.Body)
	default:
		return false
	}
}
