package lisp

import "gclisp/gclisp-go/pkg/gc"

// Heap type declarations for the value model. The pair record and the
// value union are mutually recursive, so their shapes are bound in
// init rather than at declaration.
var (
	pairType   = gc.NewRecord[Pair]("pair")
	valueType  = gc.NewUnion[Value]("value", func(v Value) int { return int(v.Kind()) })
	vectorType *gc.VecType[Value]

	pairFirst gc.Accessor[Pair, Value]
	pairRest  gc.Accessor[Pair, Value]
)

func init() {
	vectorType = gc.NewVec[Value]("vector", gc.UnionPayload(valueType))

	pairType.Fields(
		gc.UnionField[Pair]("first", valueType,
			func(p Pair) Value { return p.First },
			func(p *Pair, v Value) { p.First = v },
		),
		gc.UnionField[Pair]("rest", valueType,
			func(p Pair) Value { return p.Rest },
			func(p *Pair, v Value) { p.Rest = v },
		),
	)
	pairFirst = gc.FieldOf[Pair, Value](pairType, "first")
	pairRest = gc.FieldOf[Pair, Value](pairType, "rest")

	valueType.Variants(
		gc.UnitVariant[Value](int(KindNil), "nil", func() Value { return NilValue{} }),
		gc.Variant[Value](int(KindBool), "boolean",
			func(v Value) []any { return []any{v.(BoolValue).Val} },
			func(args []any) Value { return BoolValue{Val: args[0].(bool)} },
			gc.AtomPayload(),
		),
		gc.Variant[Value](int(KindInt), "integer",
			func(v Value) []any { return []any{v.(IntValue).Val} },
			func(args []any) Value { return IntValue{Val: args[0].(int64)} },
			gc.AtomPayload(),
		),
		gc.Variant[Value](int(KindString), "string",
			func(v Value) []any { return []any{v.(StringValue).Val} },
			func(args []any) Value { return StringValue{Val: args[0].(string)} },
			gc.AtomPayload(),
		),
		gc.Variant[Value](int(KindSymbol), "symbol",
			func(v Value) []any { return []any{v.(SymbolValue).Name} },
			func(args []any) Value { return SymbolValue{Name: args[0].(string)} },
			gc.AtomPayload(),
		),
		gc.Variant[Value](int(KindPair), "pair",
			func(v Value) []any { return []any{v.(PairValue).Ref} },
			func(args []any) Value { return PairValue{Ref: args[0].(gc.Ref[Pair])} },
			gc.RefPayload(pairType),
		),
		gc.Variant[Value](int(KindVector), "vector",
			func(v Value) []any { return []any{v.(VectorValue).Ref} },
			func(args []any) Value { return VectorValue{Ref: args[0].(gc.VecRef[Value])} },
			gc.VecPayload(vectorType),
		),
		gc.Variant[Value](int(KindBuiltin), "builtin",
			func(v Value) []any { return []any{v.(BuiltinValue)} },
			func(args []any) Value { return args[0].(BuiltinValue) },
			gc.AtomPayload(),
		),
		gc.Variant[Value](int(KindLambda), "lambda",
			func(v Value) []any {
				l := v.(LambdaValue)
				return []any{l.Params, l.Body, l.Env}
			},
			func(args []any) Value {
				return LambdaValue{
					Params: args[0].(Value),
					Body:   args[1].(Value),
					Env:    args[2].(*Environment),
				}
			},
			gc.UnionPayload(valueType),
			gc.UnionPayload(valueType),
			gc.AtomPayload(),
		),
	)
}

// Cons allocates a fresh pair.
func Cons(s *gc.Session, first, rest Value) PairValue {
	return PairValue{Ref: gc.Alloc(s, pairType, Pair{First: first, Rest: rest})}
}

// NewVector allocates a fresh vector holding elems.
func NewVector(s *gc.Session, elems ...Value) VectorValue {
	return VectorValue{Ref: gc.AllocVec(s, vectorType, elems)}
}

// List builds a proper list from vals, last cons first. The pending
// values and the growing chain are pinned so a collection triggered by
// one of the conses cannot reclaim them.
func List(s *gc.Session, vals ...Value) Value {
	mark := s.PinMark()
	defer s.PopPins(mark)
	for _, v := range vals {
		s.Pin(ValueRoot(v))
	}
	var out Value = NilValue{}
	for i := len(vals) - 1; i >= 0; i-- {
		out = Cons(s, vals[i], out)
		s.Pin(ValueRoot(out))
	}
	return out
}

// ValueRoot wraps a plain value for use as an explicit GC root.
func ValueRoot(v Value) gc.Root {
	return gc.UnionRoot(valueType, v)
}

// listSlice materializes a proper list as a slice. Improper lists are
// reported as a type error against op.
func listSlice(s *gc.Session, op string, v Value) ([]Value, error) {
	var out []Value
	for {
		switch cur := v.(type) {
		case NilValue:
			return out, nil
		case PairValue:
			out = append(out, cur.First(s))
			v = cur.Rest(s)
		default:
			return nil, &TypeError{Op: op, Want: "proper list", Got: v.Kind()}
		}
	}
}
