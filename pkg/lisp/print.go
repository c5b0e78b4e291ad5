package lisp

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gclisp/gclisp-go/pkg/gc"
)

// Fprint writes v to w in external notation: lists as (a b c), dotted
// pairs as (a . b), vectors as #(a b c). Cyclic structure (reachable
// through set-car!, set-cdr! or vector-set!) is cut off with #<cycle>
// instead of recursing forever; shared acyclic structure prints in
// full at every occurrence.
func Fprint(w io.Writer, s *gc.Session, v Value) error {
	return fprint(w, s, v, make(map[any]bool))
}

// onPath holds the pair and vector handles on the current print path.
func fprint(w io.Writer, s *gc.Session, v Value, onPath map[any]bool) error {
	switch val := v.(type) {
	case NilValue:
		_, err := io.WriteString(w, "()")
		return err
	case BoolValue:
		out := "#f"
		if val.Val {
			out = "#t"
		}
		_, err := io.WriteString(w, out)
		return err
	case IntValue:
		_, err := io.WriteString(w, strconv.FormatInt(val.Val, 10))
		return err
	case StringValue:
		_, err := io.WriteString(w, strconv.Quote(val.Val))
		return err
	case SymbolValue:
		_, err := io.WriteString(w, val.Name)
		return err
	case PairValue:
		if onPath[val.Ref] {
			_, err := io.WriteString(w, "#<cycle>")
			return err
		}
		return printPair(w, s, val, onPath)
	case VectorValue:
		if onPath[val.Ref] {
			_, err := io.WriteString(w, "#<cycle>")
			return err
		}
		onPath[val.Ref] = true
		defer delete(onPath, val.Ref)
		if _, err := io.WriteString(w, "#("); err != nil {
			return err
		}
		n := val.Ref.Len(s)
		for i := 0; i < n; i++ {
			if i > 0 {
				if _, err := io.WriteString(w, " "); err != nil {
					return err
				}
			}
			elem, err := val.Ref.Get(s, i)
			if err != nil {
				return err
			}
			if err := fprint(w, s, elem, onPath); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, ")")
		return err
	case BuiltinValue:
		_, err := fmt.Fprintf(w, "#<builtin %s>", val.Name)
		return err
	case LambdaValue:
		_, err := io.WriteString(w, "#<lambda>")
		return err
	default:
		_, err := fmt.Fprintf(w, "#<%s>", v.Kind())
		return err
	}
}

func printPair(w io.Writer, s *gc.Session, p PairValue, onPath map[any]bool) error {
	var spine []gc.Ref[Pair]
	defer func() {
		for _, r := range spine {
			delete(onPath, r)
		}
	}()
	if _, err := io.WriteString(w, "("); err != nil {
		return err
	}
	for {
		onPath[p.Ref] = true
		spine = append(spine, p.Ref)
		if err := fprint(w, s, p.First(s), onPath); err != nil {
			return err
		}
		switch rest := p.Rest(s).(type) {
		case NilValue:
			_, err := io.WriteString(w, ")")
			return err
		case PairValue:
			if onPath[rest.Ref] {
				_, err := io.WriteString(w, " . #<cycle>)")
				return err
			}
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
			p = rest
		default:
			if _, err := io.WriteString(w, " . "); err != nil {
				return err
			}
			if err := fprint(w, s, rest, onPath); err != nil {
				return err
			}
			_, err := io.WriteString(w, ")")
			return err
		}
	}
}

// Sprint renders v as a string.
func Sprint(s *gc.Session, v Value) string {
	var b strings.Builder
	if err := Fprint(&b, s, v); err != nil {
		return fmt.Sprintf("#<print error: %v>", err)
	}
	return b.String()
}
