// Package graph defines the intermediate program-representation graph: a
// token map plus AST, CFG and DFG adjacency, all kept in first-seen order.
package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Pointer is an opaque identifier for a syntax or statement object, as emitted
// by the fact tool. It is only stable within one run.
type Pointer string

// Token is the spelling class of a Pointer (statement kind, operator, declared type).
type Token string

// FunctionToken marks the callee side of a call edge in the CFG.
const FunctionToken Token = "Function"

// TokenMap maps pointers to tokens in first-seen order. The first token
// registered for a pointer wins; later registrations are ignored.
type TokenMap struct {
	order  []Pointer
	tokens map[Pointer]Token
}

// NewTokenMap creates an empty TokenMap.
func NewTokenMap() *TokenMap {
	return &TokenMap{tokens: make(map[Pointer]Token)}
}

// Set registers tok for p unless p already has a token. It reports whether p was new.
func (m *TokenMap) Set(p Pointer, tok Token) bool {
	if m.tokens == nil {
		m.tokens = make(map[Pointer]Token)
	}
	if _, ok := m.tokens[p]; ok {
		return false
	}
	m.tokens[p] = tok
	m.order = append(m.order, p)
	return true
}

// Get returns the token of p.
func (m *TokenMap) Get(p Pointer) (Token, bool) {
	tok, ok := m.tokens[p]
	return tok, ok
}

// Keys returns the pointers in first-seen order.
func (m *TokenMap) Keys() []Pointer {
	return m.order
}

// Len returns the number of registered pointers.
func (m *TokenMap) Len() int {
	return len(m.order)
}

// MarshalJSON encodes the map as a JSON object preserving first-seen order.
func (m *TokenMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, p); err != nil {
			return nil, err
		}
		val, err := json.Marshal(string(m.tokens[p]))
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (m *TokenMap) UnmarshalJSON(data []byte) error {
	*m = TokenMap{tokens: make(map[Pointer]Token)}
	return decodeObject(data, func(key Pointer, dec *json.Decoder) error {
		var tok string
		if err := dec.Decode(&tok); err != nil {
			return err
		}
		m.Set(key, Token(tok))
		return nil
	})
}

// Target is one DFG adjacency value: either a single pointer or a fan-out list
// of pointers produced by def-use linking.
type Target struct {
	Pointer Pointer
	Fanout  []Pointer
}

// Single returns a scalar Target.
func Single(p Pointer) Target {
	return Target{Pointer: p}
}

// Fanout returns a list-valued Target.
func Fanout(ps []Pointer) Target {
	if ps == nil {
		ps = []Pointer{}
	}
	return Target{Fanout: ps}
}

// IsList reports whether the target is list-valued.
func (t Target) IsList() bool {
	return t.Fanout != nil
}

// Pointers returns every pointer the target refers to.
func (t Target) Pointers() []Pointer {
	if t.IsList() {
		return t.Fanout
	}
	return []Pointer{t.Pointer}
}

// MarshalJSON encodes a scalar target as a string and a fan-out as an array.
func (t Target) MarshalJSON() ([]byte, error) {
	if t.IsList() {
		return json.Marshal(t.Fanout)
	}
	return json.Marshal(string(t.Pointer))
}

// UnmarshalJSON accepts either a string or an array of strings.
func (t *Target) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var ps []Pointer
		if err := json.Unmarshal(data, &ps); err != nil {
			return err
		}
		if ps == nil {
			ps = []Pointer{}
		}
		*t = Target{Fanout: ps}
		return nil
	}
	var p string
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("DFG target must be a string or a list: %w", err)
	}
	*t = Target{Pointer: Pointer(p)}
	return nil
}

// Graph is the intermediate graph object handed from the builder to the encoder.
type Graph struct {
	Tokens *TokenMap           `json:"tokens"`
	AST    *Adjacency[Pointer] `json:"AST"`
	CFG    *Adjacency[Pointer] `json:"CFG"`
	DFG    *Adjacency[Target]  `json:"DFG"`
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		Tokens: NewTokenMap(),
		AST:    NewAdjacency[Pointer](),
		CFG:    NewAdjacency[Pointer](),
		DFG:    NewAdjacency[Target](),
	}
}

// WriteJSON writes the graph as a JSON document.
func (g *Graph) WriteJSON(w io.Writer, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(g)
}

// Decode reads a graph JSON document.
func Decode(r io.Reader) (*Graph, error) {
	g := New()
	if err := json.NewDecoder(r).Decode(g); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	if g.Tokens == nil {
		g.Tokens = NewTokenMap()
	}
	if g.AST == nil {
		g.AST = NewAdjacency[Pointer]()
	}
	if g.CFG == nil {
		g.CFG = NewAdjacency[Pointer]()
	}
	if g.DFG == nil {
		g.DFG = NewAdjacency[Target]()
	}
	return g, nil
}
