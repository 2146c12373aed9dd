package graph

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenMap_FirstWriteWins(t *testing.T) {
	m := NewTokenMap()

	assert.True(t, m.Set("p1", "Function"))
	assert.True(t, m.Set("p2", "main"))
	assert.False(t, m.Set("p1", "Var"))

	tok, ok := m.Get("p1")
	require.True(t, ok)
	assert.Equal(t, Token("Function"), tok)
	assert.Equal(t, []Pointer{"p1", "p2"}, m.Keys())
}

func TestAdjacency_OrderAndDuplicates(t *testing.T) {
	a := NewAdjacency[Pointer]()
	a.Append("b", "x")
	a.Append("a", "y")
	a.Append("b", "x")

	assert.Equal(t, []Pointer{"b", "a"}, a.Keys())
	assert.Equal(t, []Pointer{"x", "x"}, a.Get("b"))
	assert.Equal(t, 3, a.EdgeCount())
	assert.False(t, a.Has("x"))
}

func TestGraph_JSONKeepsKeyOrder(t *testing.T) {
	g := New()
	g.Tokens.Set("z", "Function")
	g.Tokens.Set("a", "main")
	g.AST.Append("z", "a")
	g.CFG.Append("z", "a")
	g.DFG.Append("z", Single("a"))
	g.DFG.Append("z", Fanout([]Pointer{"a", "z"}))

	var buf bytes.Buffer
	require.NoError(t, g.WriteJSON(&buf, false))

	out := buf.String()
	assert.Contains(t, out, `"tokens":{"z":"Function","a":"main"}`)
	assert.Contains(t, out, `"DFG":{"z":["a",["a","z"]]}`)

	decoded, err := Decode(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, []Pointer{"z", "a"}, decoded.Tokens.Keys())

	targets := decoded.DFG.Get("z")
	require.Len(t, targets, 2)
	assert.False(t, targets[0].IsList())
	assert.Equal(t, Pointer("a"), targets[0].Pointer)
	assert.True(t, targets[1].IsList())
	assert.Equal(t, []Pointer{"a", "z"}, targets[1].Pointers())
}

func TestDecode_MissingSections(t *testing.T) {
	g, err := Decode(strings.NewReader(`{"tokens":{"p":"Var"}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, g.Tokens.Len())
	assert.Equal(t, 0, g.AST.Len())
	assert.Equal(t, 0, g.DFG.Len())
}

func TestDecode_RejectsBadTarget(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"DFG":{"p":[42]}}`))
	assert.Error(t, err)
}
