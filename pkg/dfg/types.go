// Package dfg computes the data flow of a program graph. ReachingDefsAnalyzer
// solves reaching definitions over a cfg.Flow as a bounded fixpoint, and Link
// turns the reach sets and per-statement use bindings into def-use edges that
// Merge folds into the graph's DFG adjacency.
package dfg

import (
	"maps"
	"slices"

	"github.com/l3aro/go-program-graph/pkg/cfg"
	"github.com/l3aro/go-program-graph/pkg/graph"
)

// Binding ties a variable name to the site that defines or reads it.
type Binding struct {
	Site graph.Pointer `json:"site"`
	Var  string        `json:"var"`
}

// Bindings holds per-statement binding lists in first-seen statement order.
// It stores both Gen/Kill facts (definitions) and Ref facts (uses).
type Bindings struct {
	order []cfg.StmtID
	byID  map[cfg.StmtID][]Binding
}

// NewBindings creates an empty Bindings.
func NewBindings() *Bindings {
	return &Bindings{byID: make(map[cfg.StmtID][]Binding)}
}

// Add appends b to the list of stmt.
func (b *Bindings) Add(stmt cfg.StmtID, bind Binding) {
	if b.byID == nil {
		b.byID = make(map[cfg.StmtID][]Binding)
	}
	if _, ok := b.byID[stmt]; !ok {
		b.order = append(b.order, stmt)
	}
	b.byID[stmt] = append(b.byID[stmt], bind)
}

// Get returns the bindings of stmt.
func (b *Bindings) Get(stmt cfg.StmtID) []Binding {
	return b.byID[stmt]
}

// Statements returns statement ids in first-seen order.
func (b *Bindings) Statements() []cfg.StmtID {
	return b.order
}

// Len returns the number of statements with bindings.
func (b *Bindings) Len() int {
	return len(b.order)
}

// DefSet is a sorted set of definition sites.
type DefSet []graph.Pointer

// NewDefSet builds a DefSet from sites in any order.
func NewDefSet(sites ...graph.Pointer) DefSet {
	s := slices.Clone(sites)
	slices.Sort(s)
	return DefSet(slices.Compact(s))
}

// Union returns the sites present in either set. Neither input is modified.
func (d DefSet) Union(other DefSet) DefSet {
	out := make(DefSet, 0, len(d)+len(other))
	i, j := 0, 0
	for i < len(d) && j < len(other) {
		switch {
		case d[i] < other[j]:
			out = append(out, d[i])
			i++
		case d[i] > other[j]:
			out = append(out, other[j])
			j++
		default:
			out = append(out, d[i])
			i++
			j++
		}
	}
	out = append(out, d[i:]...)
	return append(out, other[j:]...)
}

// Contains reports whether site is in the set.
func (d DefSet) Contains(site graph.Pointer) bool {
	_, found := slices.BinarySearch(d, site)
	return found
}

// ReachSet maps a variable to the definitions that may reach a statement.
// A variable that is present always maps to a non-empty set.
type ReachSet map[string]DefSet

// Clone returns a copy whose map can be modified independently. DefSets are
// shared; they are never mutated in place.
func (r ReachSet) Clone() ReachSet {
	return maps.Clone(r)
}

// Equal reports whether both sets hold the same definitions for every variable.
func (r ReachSet) Equal(other ReachSet) bool {
	return maps.EqualFunc(r, other, func(a, b DefSet) bool {
		return slices.Equal(a, b)
	})
}

// Vars returns the variable names in sorted order.
func (r ReachSet) Vars() []string {
	return slices.Sorted(maps.Keys(r))
}

// DataflowEdge connects a definition site to a use site of the same variable.
type DataflowEdge struct {
	Def  graph.Pointer `json:"def"`  // definition site
	Use  graph.Pointer `json:"use"`  // use site
	Var  string        `json:"var"`  // variable being tracked
	Stmt cfg.StmtID    `json:"stmt"` // statement containing the use
}
