// Package cfg holds the intraprocedural control-flow view of a program graph:
// forward and backward successor maps, statement groups and the entry statement.
package cfg

import (
	"github.com/l3aro/go-program-graph/pkg/graph"
)

// EntryLabel is the CFG label whose successor is the analysis entry statement.
const EntryLabel = "main"

// StmtID is a statement number as emitted by the fact tool. Gen/Kill, Ref and
// reach sets are keyed by it.
type StmtID string

// Flow is the control-flow structure accumulated from CFG facts.
type Flow struct {
	// Forward maps a statement pointer to its control successors.
	Forward *graph.Adjacency[graph.Pointer]
	// Backward maps a statement pointer to its predecessors. Call edges are
	// never recorded; the caller is attached to the statement after the call.
	Backward *graph.Adjacency[graph.Pointer]
	// Groups maps a statement pointer to the statement ids it owns.
	Groups *graph.Adjacency[StmtID]

	entry    graph.Pointer
	hasEntry bool

	held    graph.Pointer
	holding bool
}

// NewFlow creates an empty Flow.
func NewFlow() *Flow {
	return &Flow{
		Forward:  graph.NewAdjacency[graph.Pointer](),
		Backward: graph.NewAdjacency[graph.Pointer](),
		Groups:   graph.NewAdjacency[StmtID](),
	}
}

// AddEdge records a CFG fact. toCall reports whether the successor is a callee
// (its token is "Function"): the source is then held and becomes the
// predecessor of the next non-call edge's successor, replacing that edge's own source.
func (f *Flow) AddEdge(stmt StmtID, from graph.Pointer, label string, to graph.Pointer, toCall bool) {
	f.Forward.Append(from, to)

	switch {
	case toCall:
		f.held, f.holding = from, true
	case f.holding:
		f.Backward.Append(to, f.held)
		f.held, f.holding = "", false
	default:
		f.Backward.Append(to, from)
	}

	f.Groups.Append(from, stmt)

	if label == EntryLabel {
		f.entry, f.hasEntry = to, true
	}
}

// Entry returns the designated entry statement, if one was recorded.
func (f *Flow) Entry() (graph.Pointer, bool) {
	return f.entry, f.hasEntry
}

// Successors returns the forward CFG successors of p.
func (f *Flow) Successors(p graph.Pointer) []graph.Pointer {
	return f.Forward.Get(p)
}

// Predecessors returns the backward CFG predecessors of p.
func (f *Flow) Predecessors(p graph.Pointer) []graph.Pointer {
	return f.Backward.Get(p)
}

// Members returns the statement ids grouped under p.
func (f *Flow) Members(p graph.Pointer) []StmtID {
	return f.Groups.Get(p)
}

// Isolated reports whether p appears in neither the forward nor the backward map.
func (f *Flow) Isolated(p graph.Pointer) bool {
	return !f.Forward.Has(p) && !f.Backward.Has(p)
}

// Statements returns every distinct statement id in first-seen order.
func (f *Flow) Statements() []StmtID {
	seen := make(map[StmtID]struct{})
	var ids []StmtID
	for _, p := range f.Groups.Keys() {
		for _, id := range f.Groups.Get(p) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
