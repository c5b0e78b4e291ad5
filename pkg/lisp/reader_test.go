package lisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gclisp/gclisp-go/pkg/gc"
)

func TestReadAtoms(t *testing.T) {
	withSession(t, func(s *gc.Session) {
		cases := map[string]Value{
			"42":      IntValue{42},
			"-7":      IntValue{-7},
			"#t":      BoolValue{true},
			"#f":      BoolValue{false},
			`"hi"`:    StringValue{"hi"},
			"foo":     SymbolValue{"foo"},
			"-":       SymbolValue{"-"},
			"vector?": SymbolValue{"vector?"},
		}
		for src, want := range cases {
			got, err := ReadOne(s, src)
			require.NoError(t, err, "source %q", src)
			assert.Equal(t, want, got, "source %q", src)
		}
	})
}

func TestReadList(t *testing.T) {
	withSession(t, func(s *gc.Session) {
		v, err := ReadOne(s, "(+ 1 (list 2 3))")
		require.NoError(t, err)
		assert.Equal(t, "(+ 1 (list 2 3))", Sprint(s, v))
	})
}

func TestReadDottedPair(t *testing.T) {
	withSession(t, func(s *gc.Session) {
		v, err := ReadOne(s, "(1 . 2)")
		require.NoError(t, err)
		p, ok := v.(PairValue)
		require.True(t, ok)
		assert.Equal(t, IntValue{1}, p.First(s))
		assert.Equal(t, IntValue{2}, p.Rest(s))
	})
}

func TestReadQuote(t *testing.T) {
	withSession(t, func(s *gc.Session) {
		v, err := ReadOne(s, "'(1 2)")
		require.NoError(t, err)
		assert.Equal(t, "(quote (1 2))", Sprint(s, v))
	})
}

func TestReadVector(t *testing.T) {
	withSession(t, func(s *gc.Session) {
		v, err := ReadOne(s, "#(1 2 3)")
		require.NoError(t, err)
		vec, ok := v.(VectorValue)
		require.True(t, ok)
		assert.Equal(t, 3, vec.Ref.Len(s))
	})
}

func TestReadStringEscapes(t *testing.T) {
	withSession(t, func(s *gc.Session) {
		v, err := ReadOne(s, `"a\n\"b\""`)
		require.NoError(t, err)
		assert.Equal(t, StringValue{"a\n\"b\""}, v)
	})
}

func TestReadComments(t *testing.T) {
	withSession(t, func(s *gc.Session) {
		vals, err := ReadAll(s, "; leading comment\n1 ; trailing\n2\n")
		require.NoError(t, err)
		require.Len(t, vals, 2)
		assert.Equal(t, IntValue{1}, vals[0])
		assert.Equal(t, IntValue{2}, vals[1])
	})
}

// An aggressive collection policy makes every allocation run a cycle,
// so partially built lists and vectors inside the reader must be
// reachable through the pin stack or they come back corrupted.
func TestReadSurvivesTriggeredCollections(t *testing.T) {
	h := gc.NewHeap(gc.WithPolicy(gc.Policy{ChunkSize: 4, CollectThreshold: 1}))
	t.Cleanup(h.Close)
	require.NoError(t, h.Enter(func(s *gc.Session) error {
		v, err := ReadOne(s, `((1 2) (3 4) #(5 6) "s" . (7))`)
		require.NoError(t, err)
		assert.Equal(t, `((1 2) (3 4) #(5 6) "s" 7)`, Sprint(s, v))

		vals, err := ReadAll(s, "(a b c) (d e f) (g h i)")
		require.NoError(t, err)
		require.Len(t, vals, 3)
		assert.Equal(t, "(a b c)", Sprint(s, vals[0]))
		assert.Equal(t, "(g h i)", Sprint(s, vals[2]))
		return nil
	}))
}

func TestReadErrors(t *testing.T) {
	withSession(t, func(s *gc.Session) {
		for _, src := range []string{"(1 2", `"open`, ")", "(1 . 2 3)", "#x"} {
			_, err := ReadOne(s, src)
			assert.Error(t, err, "source %q", src)
		}
	})
}
