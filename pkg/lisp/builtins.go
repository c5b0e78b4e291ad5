package lisp

import (
	"fmt"
	"io"
	"os"

	"gclisp/gclisp-go/pkg/gc"
)

// Stdout receives the output of the print builtin. Overridable for
// tests and the REPL.
var Stdout io.Writer = os.Stdout

// builtins is the primitive procedure library. Every entry follows the
// BuiltinFunc calling convention and reports bad arguments as typed
// error values, never as panics.
var builtins = map[string]BuiltinFunc{
	"boolean?":      booleanQ,
	"eq?":           eqQ,
	"eqv?":          eqvQ,
	"pair?":         pairQ,
	"cons":          consFn,
	"car":           carFn,
	"cdr":           cdrFn,
	"set-car!":      setCarFn,
	"set-cdr!":      setCdrFn,
	"null?":         nullQ,
	"symbol?":       symbolQ,
	"list":          listFn,
	"+":             addFn,
	"-":             subFn,
	"*":             mulFn,
	"vector?":       vectorQ,
	"vector":        vectorFn,
	"vector-length": vectorLengthFn,
	"vector-ref":    vectorRefFn,
	"vector-set!":   vectorSetFn,
	"print":         printFn,
	"assert":        assertFn,
}

func simplePredicate(op string, args []Value, f func(Value) bool) (Value, error) {
	if len(args) != 1 {
		return nil, &ArityError{Op: op, Want: "exactly 1", Got: len(args)}
	}
	return BoolValue{Val: f(args[0])}, nil
}

// Booleans.

func booleanQ(_ *gc.Session, args []Value) (Value, error) {
	return simplePredicate("boolean?", args, func(v Value) bool { return v.Kind() == KindBool })
}

// Equivalence predicates.

func eqQ(_ *gc.Session, args []Value) (Value, error) {
	if len(args) == 0 {
		return BoolValue{Val: true}, nil
	}
	first := args[0]
	for _, arg := range args[1:] {
		if !Eqv(first, arg) {
			return BoolValue{Val: false}, nil
		}
	}
	return BoolValue{Val: true}, nil
}

func eqvQ(_ *gc.Session, args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, &ArityError{Op: "eqv?", Want: "exactly 2", Got: len(args)}
	}
	return BoolValue{Val: Eqv(args[0], args[1])}, nil
}

// Pairs and lists.

func pairQ(_ *gc.Session, args []Value) (Value, error) {
	return simplePredicate("pair?", args, func(v Value) bool { return v.Kind() == KindPair })
}

func consFn(s *gc.Session, args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, &ArityError{Op: "cons", Want: "exactly 2", Got: len(args)}
	}
	return Cons(s, args[0], args[1]), nil
}

func carFn(s *gc.Session, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, &ArityError{Op: "car", Want: "exactly 1", Got: len(args)}
	}
	p, ok := args[0].(PairValue)
	if !ok {
		return nil, &TypeError{Op: "car", Want: "pair", Got: args[0].Kind()}
	}
	return p.First(s), nil
}

func cdrFn(s *gc.Session, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, &ArityError{Op: "cdr", Want: "exactly 1", Got: len(args)}
	}
	p, ok := args[0].(PairValue)
	if !ok {
		return nil, &TypeError{Op: "cdr", Want: "pair", Got: args[0].Kind()}
	}
	return p.Rest(s), nil
}

func setCarFn(s *gc.Session, args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, &ArityError{Op: "set-car!", Want: "exactly 2", Got: len(args)}
	}
	p, ok := args[0].(PairValue)
	if !ok {
		return nil, &TypeError{Op: "set-car!", Want: "pair", Got: args[0].Kind()}
	}
	p.SetFirst(s, args[1])
	return NilValue{}, nil
}

func setCdrFn(s *gc.Session, args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, &ArityError{Op: "set-cdr!", Want: "exactly 2", Got: len(args)}
	}
	p, ok := args[0].(PairValue)
	if !ok {
		return nil, &TypeError{Op: "set-cdr!", Want: "pair", Got: args[0].Kind()}
	}
	p.SetRest(s, args[1])
	return NilValue{}, nil
}

func nullQ(_ *gc.Session, args []Value) (Value, error) {
	return simplePredicate("null?", args, func(v Value) bool { return v.Kind() == KindNil })
}

func symbolQ(_ *gc.Session, args []Value) (Value, error) {
	return simplePredicate("symbol?", args, func(v Value) bool { return v.Kind() == KindSymbol })
}

func listFn(s *gc.Session, args []Value) (Value, error) {
	return List(s, args...), nil
}

// Numbers.

func addFn(_ *gc.Session, args []Value) (Value, error) {
	var total int64
	for _, v := range args {
		n, ok := v.(IntValue)
		if !ok {
			return nil, &TypeError{Op: "+", Want: "integer", Got: v.Kind()}
		}
		total += n.Val
	}
	return IntValue{Val: total}, nil
}

func mulFn(_ *gc.Session, args []Value) (Value, error) {
	var total int64 = 1
	for _, v := range args {
		n, ok := v.(IntValue)
		if !ok {
			return nil, &TypeError{Op: "*", Want: "integer", Got: v.Kind()}
		}
		total *= n.Val
	}
	return IntValue{Val: total}, nil
}

func subFn(_ *gc.Session, args []Value) (Value, error) {
	if len(args) == 0 {
		return nil, &ArityError{Op: "-", Want: "at least 1", Got: 0}
	}
	first, ok := args[0].(IntValue)
	if !ok {
		return nil, &TypeError{Op: "-", Want: "integer", Got: args[0].Kind()}
	}
	if len(args) == 1 {
		return IntValue{Val: -first.Val}, nil
	}
	total := first.Val
	for _, v := range args[1:] {
		n, ok := v.(IntValue)
		if !ok {
			return nil, &TypeError{Op: "-", Want: "integer", Got: v.Kind()}
		}
		total -= n.Val
	}
	return IntValue{Val: total}, nil
}

// Vectors.

func vectorQ(_ *gc.Session, args []Value) (Value, error) {
	return simplePredicate("vector?", args, func(v Value) bool { return v.Kind() == KindVector })
}

func vectorFn(s *gc.Session, args []Value) (Value, error) {
	return NewVector(s, args...), nil
}

func asVector(op string, v Value) (VectorValue, error) {
	vec, ok := v.(VectorValue)
	if !ok {
		return VectorValue{}, &TypeError{Op: op, Want: "vector", Got: v.Kind()}
	}
	return vec, nil
}

func asIndex(op string, v Value) (int, error) {
	n, ok := v.(IntValue)
	if !ok || n.Val < 0 {
		return 0, &TypeError{Op: op, Want: "non-negative integer", Got: v.Kind()}
	}
	return int(n.Val), nil
}

func vectorLengthFn(s *gc.Session, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, &ArityError{Op: "vector-length", Want: "exactly 1", Got: len(args)}
	}
	vec, err := asVector("vector-length", args[0])
	if err != nil {
		return nil, err
	}
	return IntValue{Val: int64(vec.Ref.Len(s))}, nil
}

func vectorRefFn(s *gc.Session, args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, &ArityError{Op: "vector-ref", Want: "exactly 2", Got: len(args)}
	}
	vec, err := asVector("vector-ref", args[0])
	if err != nil {
		return nil, err
	}
	i, err := asIndex("vector-ref", args[1])
	if err != nil {
		return nil, err
	}
	v, err := vec.Ref.Get(s, i)
	if err != nil {
		return nil, fmt.Errorf("vector-ref: %w", err)
	}
	return v, nil
}

func vectorSetFn(s *gc.Session, args []Value) (Value, error) {
	if len(args) != 3 {
		return nil, &ArityError{Op: "vector-set!", Want: "exactly 3", Got: len(args)}
	}
	vec, err := asVector("vector-set!", args[0])
	if err != nil {
		return nil, err
	}
	i, err := asIndex("vector-set!", args[1])
	if err != nil {
		return nil, err
	}
	if err := vec.Ref.Set(s, i, args[2]); err != nil {
		return nil, fmt.Errorf("vector-set!: %w", err)
	}
	return NilValue{}, nil
}

// Extensions.

func printFn(s *gc.Session, args []Value) (Value, error) {
	for _, v := range args {
		if err := Fprint(Stdout, s, v); err != nil {
			return nil, err
		}
		fmt.Fprintln(Stdout)
	}
	return NilValue{}, nil
}

func assertFn(s *gc.Session, args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, &ArityError{Op: "assert", Want: "1 or 2", Got: len(args)}
	}
	b, ok := args[0].(BoolValue)
	if !ok {
		return nil, &TypeError{Op: "assert", Want: "boolean", Got: args[0].Kind()}
	}
	if b.Val {
		return NilValue{}, nil
	}
	if len(args) == 2 {
		return nil, fmt.Errorf("assert: assertion failed: %s", Sprint(s, args[1]))
	}
	return nil, fmt.Errorf("assert: assertion failed")
}
