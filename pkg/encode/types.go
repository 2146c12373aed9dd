// Package encode turns a program graph into its numeric form: dense canonical
// node ids, one-hot node features and AST/CFG/DFG edge-pair lists.
package encode

import (
	"fmt"

	"github.com/l3aro/go-program-graph/pkg/graph"
)

// EdgeKind names one of the three edge sets.
type EdgeKind string

const (
	EdgeAST EdgeKind = "AST"
	EdgeCFG EdgeKind = "CFG"
	EdgeDFG EdgeKind = "DFG"
)

// Edge is a pair of canonical ids.
type Edge [2]int64

// Matrix is a dense row-major int64 matrix.
type Matrix struct {
	Rows int     `msgpack:"rows" json:"rows"`
	Cols int     `msgpack:"cols" json:"cols"`
	Data []int64 `msgpack:"data" json:"data"`
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]int64, rows*cols)}
}

// At returns the element at row i, column j.
func (m Matrix) At(i, j int) int64 {
	return m.Data[i*m.Cols+j]
}

// Row returns row i.
func (m Matrix) Row(i int) []int64 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// Artifact is the numeric representation of one program graph.
type Artifact struct {
	// Nodes maps canonical id to pointer.
	Nodes    []graph.Pointer `msgpack:"nodes" json:"nodes"`
	Features Matrix          `msgpack:"node_rep" json:"node_rep"`
	AST      []Edge          `msgpack:"ast" json:"AST"`
	CFG      []Edge          `msgpack:"cfg" json:"CFG"`
	DFG      []Edge          `msgpack:"dfg" json:"DFG"`
	// Skipped counts DFG edges dropped because an endpoint had no canonical id.
	Skipped int `msgpack:"skipped" json:"skipped"`
}

// Edges returns the edge list of the given kind.
func (a *Artifact) Edges(kind EdgeKind) []Edge {
	switch kind {
	case EdgeAST:
		return a.AST
	case EdgeCFG:
		return a.CFG
	default:
		return a.DFG
	}
}

// EncodingError reports an AST or CFG edge whose endpoint was never given a
// canonical id, which means the graph is internally inconsistent.
type EncodingError struct {
	Kind    EdgeKind
	From    graph.Pointer
	To      graph.Pointer
	Missing graph.Pointer
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s edge %s -> %s references pointer %q with no token", e.Kind, e.From, e.To, e.Missing)
}
