package cfg

import (
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/l3aro/go-program-graph/pkg/graph"
)

// MinPasses is the pass count of an acyclic CFG: one pass to compute and one
// to observe that nothing changed.
const MinPasses = 2

// ReversePostorder returns the statements reachable from the entry, each
// listed after all of its forward predecessors except along back edges.
func (f *Flow) ReversePostorder() []graph.Pointer {
	if !f.hasEntry {
		return nil
	}

	type frame struct {
		node graph.Pointer
		next int
	}

	seen := map[graph.Pointer]struct{}{f.entry: {}}
	stack := []frame{{node: f.entry}}
	var post []graph.Pointer

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := f.Forward.Get(top.node)
		if top.next < len(succs) {
			next := succs[top.next]
			top.next++
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				stack = append(stack, frame{node: next})
			}
			continue
		}
		post = append(post, top.node)
		stack = stack[:len(stack)-1]
	}

	slices.Reverse(post)
	return post
}

// PassBound derives a pass cap from the shape of the forward CFG: MinPasses
// for an acyclic graph, plus one pass per statement that lies on a cycle.
func (f *Flow) PassBound() int {
	g := simple.NewDirectedGraph()
	ids := make(map[graph.Pointer]int64)
	nodeID := func(p graph.Pointer) int64 {
		if id, ok := ids[p]; ok {
			return id
		}
		id := int64(len(ids))
		ids[p] = id
		g.AddNode(simple.Node(id))
		return id
	}

	cyclic := make(map[int64]struct{})
	for _, from := range f.Forward.Keys() {
		u := nodeID(from)
		for _, to := range f.Forward.Get(from) {
			v := nodeID(to)
			if u == v {
				// simple graphs reject self edges
				cyclic[u] = struct{}{}
				continue
			}
			if !g.HasEdgeFromTo(u, v) {
				g.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
			}
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		for _, n := range scc {
			cyclic[n.ID()] = struct{}{}
		}
	}

	return MinPasses + len(cyclic)
}
