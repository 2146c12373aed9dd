package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Adjacency is an insertion-ordered multimap from a pointer to its neighbours.
// Keys keep the order in which they were first appended to, values keep their
// append order, and duplicates are allowed.
type Adjacency[V any] struct {
	order []Pointer
	edges map[Pointer][]V
}

// NewAdjacency creates an empty Adjacency.
func NewAdjacency[V any]() *Adjacency[V] {
	return &Adjacency[V]{edges: make(map[Pointer][]V)}
}

// Append adds v to the neighbour list of from.
func (a *Adjacency[V]) Append(from Pointer, v V) {
	a.ensure(from)
	a.edges[from] = append(a.edges[from], v)
}

func (a *Adjacency[V]) ensure(from Pointer) {
	if a.edges == nil {
		a.edges = make(map[Pointer][]V)
	}
	if _, ok := a.edges[from]; !ok {
		a.edges[from] = []V{}
		a.order = append(a.order, from)
	}
}

// Get returns the neighbours of from.
func (a *Adjacency[V]) Get(from Pointer) []V {
	return a.edges[from]
}

// Has reports whether from has an entry.
func (a *Adjacency[V]) Has(from Pointer) bool {
	_, ok := a.edges[from]
	return ok
}

// Keys returns the source pointers in first-seen order.
func (a *Adjacency[V]) Keys() []Pointer {
	return a.order
}

// Len returns the number of source pointers.
func (a *Adjacency[V]) Len() int {
	return len(a.order)
}

// EdgeCount returns the total number of stored values.
func (a *Adjacency[V]) EdgeCount() int {
	n := 0
	for _, vs := range a.edges {
		n += len(vs)
	}
	return n
}

// MarshalJSON encodes the adjacency as a JSON object in key order.
func (a *Adjacency[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, from := range a.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, from); err != nil {
			return nil, err
		}
		val, err := json.Marshal(a.edges[from])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of lists, keeping the document's key order.
func (a *Adjacency[V]) UnmarshalJSON(data []byte) error {
	*a = Adjacency[V]{edges: make(map[Pointer][]V)}
	return decodeObject(data, func(key Pointer, dec *json.Decoder) error {
		var values []V
		if err := dec.Decode(&values); err != nil {
			return err
		}
		a.ensure(key)
		for _, v := range values {
			a.Append(key, v)
		}
		return nil
	})
}

func writeKey(buf *bytes.Buffer, p Pointer) error {
	key, err := json.Marshal(string(p))
	if err != nil {
		return err
	}
	buf.Write(key)
	buf.WriteByte(':')
	return nil
}

// decodeObject walks a JSON object in document order, handing each key to fn
// with the decoder positioned at the value.
func decodeObject(data []byte, fn func(key Pointer, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if err := fn(Pointer(key), dec); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
	}
	_, err = dec.Token()
	return err
}
