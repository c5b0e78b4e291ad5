package lisp

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gclisp/gclisp-go/pkg/gc"
)

// reader scans s-expression text into heap values. Pairs and vectors
// are allocated through the session as they are read, so parsed
// programs are ordinary heap data from the start.
type reader struct {
	src []rune
	pos int
}

// ReadAll parses every datum in src. Parsed data are pinned until the
// call returns, so collections triggered by later data cannot reclaim
// earlier ones; the caller must root the results before its next
// allocation.
func ReadAll(s *gc.Session, src string) ([]Value, error) {
	r := &reader{src: []rune(src)}
	mark := s.PinMark()
	defer s.PopPins(mark)
	var out []Value
	for {
		r.skipSpace()
		if r.eof() {
			return out, nil
		}
		v, err := r.readDatum(s)
		if err != nil {
			return nil, err
		}
		s.Pin(ValueRoot(v))
		out = append(out, v)
	}
}

// ReadOne parses exactly one datum and rejects trailing input.
func ReadOne(s *gc.Session, src string) (Value, error) {
	vals, err := ReadAll(s, src)
	if err != nil {
		return nil, err
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("read: expected one datum, got %d", len(vals))
	}
	return vals[0], nil
}

func (r *reader) eof() bool { return r.pos >= len(r.src) }

func (r *reader) peek() rune { return r.src[r.pos] }

func (r *reader) next() rune {
	c := r.src[r.pos]
	r.pos++
	return c
}

func (r *reader) skipSpace() {
	for !r.eof() {
		c := r.peek()
		switch {
		case unicode.IsSpace(c):
			r.pos++
		case c == ';':
			for !r.eof() && r.peek() != '\n' {
				r.pos++
			}
		default:
			return
		}
	}
}

func isDelimiter(c rune) bool {
	return unicode.IsSpace(c) || c == '(' || c == ')' || c == '"' || c == ';'
}

func (r *reader) readDatum(s *gc.Session) (Value, error) {
	r.skipSpace()
	if r.eof() {
		return nil, fmt.Errorf("read: unexpected end of input")
	}
	switch c := r.peek(); {
	case c == '(':
		r.pos++
		return r.readList(s)
	case c == ')':
		return nil, fmt.Errorf("read: unexpected ')'")
	case c == '\'':
		r.pos++
		quoted, err := r.readDatum(s)
		if err != nil {
			return nil, err
		}
		return List(s, SymbolValue{Name: "quote"}, quoted), nil
	case c == '"':
		r.pos++
		return r.readString()
	case c == '#':
		return r.readHash(s)
	default:
		return r.readAtom()
	}
}

func (r *reader) readList(s *gc.Session) (Value, error) {
	// Elements and the partially built chain live only in these
	// locals until the closing paren; pin them against collections
	// triggered by nested allocations.
	mark := s.PinMark()
	defer s.PopPins(mark)

	var items []Value
	var tail Value = NilValue{}
	for {
		r.skipSpace()
		if r.eof() {
			return nil, fmt.Errorf("read: unterminated list")
		}
		if r.peek() == ')' {
			r.pos++
			break
		}
		if r.peek() == '.' && r.dotFollowedByDelimiter() {
			r.pos++
			v, err := r.readDatum(s)
			if err != nil {
				return nil, err
			}
			tail = v
			s.Pin(ValueRoot(tail))
			r.skipSpace()
			if r.eof() || r.peek() != ')' {
				return nil, fmt.Errorf("read: expected ')' after dotted tail")
			}
			r.pos++
			break
		}
		v, err := r.readDatum(s)
		if err != nil {
			return nil, err
		}
		s.Pin(ValueRoot(v))
		items = append(items, v)
	}
	out := tail
	for i := len(items) - 1; i >= 0; i-- {
		out = Cons(s, items[i], out)
		s.Pin(ValueRoot(out))
	}
	return out, nil
}

func (r *reader) dotFollowedByDelimiter() bool {
	return r.pos+1 >= len(r.src) || isDelimiter(r.src[r.pos+1])
}

func (r *reader) readString() (Value, error) {
	var b strings.Builder
	for {
		if r.eof() {
			return nil, fmt.Errorf("read: unterminated string")
		}
		c := r.next()
		switch c {
		case '"':
			return StringValue{Val: b.String()}, nil
		case '\\':
			if r.eof() {
				return nil, fmt.Errorf("read: unterminated escape")
			}
			switch esc := r.next(); esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case '"', '\\':
				b.WriteRune(esc)
			default:
				return nil, fmt.Errorf("read: unknown escape '\\%c'", esc)
			}
		default:
			b.WriteRune(c)
		}
	}
}

func (r *reader) readHash(s *gc.Session) (Value, error) {
	r.pos++ // consume '#'
	if r.eof() {
		return nil, fmt.Errorf("read: unexpected end of input after '#'")
	}
	switch c := r.next(); c {
	case 't':
		return BoolValue{Val: true}, nil
	case 'f':
		return BoolValue{Val: false}, nil
	case '(':
		mark := s.PinMark()
		defer s.PopPins(mark)
		list, err := r.readList(s)
		if err != nil {
			return nil, err
		}
		// Pinned so the vector allocation cannot sweep the elements.
		s.Pin(ValueRoot(list))
		elems, err := listSlice(s, "read", list)
		if err != nil {
			return nil, err
		}
		return NewVector(s, elems...), nil
	default:
		return nil, fmt.Errorf("read: unknown '#%c' syntax", c)
	}
}

func (r *reader) readAtom() (Value, error) {
	start := r.pos
	for !r.eof() && !isDelimiter(r.peek()) {
		r.pos++
	}
	token := string(r.src[start:r.pos])
	if token == "" {
		return nil, fmt.Errorf("read: empty token")
	}
	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		return IntValue{Val: n}, nil
	}
	return SymbolValue{Name: token}, nil
}
