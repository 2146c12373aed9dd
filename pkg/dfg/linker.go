package dfg

import (
	"github.com/l3aro/go-program-graph/pkg/cfg"
	"github.com/l3aro/go-program-graph/pkg/graph"
)

// Link connects every use to the definitions of its variable that reach the
// use's statement. Statements with an empty reach set contribute nothing.
func Link(reach map[cfg.StmtID]ReachSet, refs *Bindings) []DataflowEdge {
	var edges []DataflowEdge
	for _, stmt := range refs.Statements() {
		reaching := reach[stmt]
		if len(reaching) == 0 {
			continue
		}
		for _, use := range refs.Get(stmt) {
			for _, def := range reaching[use.Var] {
				edges = append(edges, DataflowEdge{Def: def, Use: use.Site, Var: use.Var, Stmt: stmt})
			}
		}
	}
	return edges
}

// FanOut groups edges by definition site, keeping first-seen order of both
// definitions and uses.
func FanOut(edges []DataflowEdge) *graph.Adjacency[graph.Pointer] {
	out := graph.NewAdjacency[graph.Pointer]()
	for _, e := range edges {
		out.Append(e.Def, e.Use)
	}
	return out
}

// Merge appends each definition's use list to dfg as a single fan-out target,
// leaving direct DFG facts in place.
func Merge(dfg *graph.Adjacency[graph.Target], links *graph.Adjacency[graph.Pointer]) {
	for _, def := range links.Keys() {
		dfg.Append(def, graph.Fanout(links.Get(def)))
	}
}
