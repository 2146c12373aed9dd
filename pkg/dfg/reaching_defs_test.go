package dfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-program-graph/pkg/cfg"
	"github.com/l3aro/go-program-graph/pkg/graph"
)

type fixture struct {
	flow *cfg.Flow
	gen  *Bindings
	refs *Bindings
}

func newFixture(entry graph.Pointer) *fixture {
	f := &fixture{flow: cfg.NewFlow(), gen: NewBindings(), refs: NewBindings()}
	f.flow.AddEdge("0", "start", cfg.EntryLabel, entry, false)
	return f
}

func (f *fixture) edge(stmt cfg.StmtID, from, to graph.Pointer) *fixture {
	f.flow.AddEdge(stmt, from, "", to, false)
	return f
}

func (f *fixture) call(stmt cfg.StmtID, from, callee graph.Pointer) *fixture {
	f.flow.AddEdge(stmt, from, "", callee, true)
	return f
}

func (f *fixture) def(stmt cfg.StmtID, site graph.Pointer, v string) *fixture {
	f.gen.Add(stmt, Binding{Site: site, Var: v})
	return f
}

func (f *fixture) use(stmt cfg.StmtID, site graph.Pointer, v string) *fixture {
	f.refs.Add(stmt, Binding{Site: site, Var: v})
	return f
}

func (f *fixture) solve(t *testing.T, opts Options) *Solution {
	t.Helper()
	sol, err := NewReachingDefsAnalyzer(f.flow, f.gen, opts).Solve()
	require.NoError(t, err)
	return sol
}

func TestSolve_KillCorrectness(t *testing.T) {
	f := newFixture("s1").
		edge("1", "s1", "s2").
		edge("2", "s2", "s3").
		def("1", "d1", "x")

	sol := f.solve(t, DefaultOptions())

	assert.Equal(t, NewDefSet("d1"), sol.Reach["2"]["x"])
	assert.Equal(t, NewDefSet("d1"), sol.Reach["1"]["x"])
}

func TestSolve_KillOverwrite(t *testing.T) {
	f := newFixture("s1").
		edge("1", "s1", "s2").
		edge("2", "s2", "s3").
		edge("3", "s3", "s4").
		def("1", "d1", "x").
		def("2", "d2", "x")

	sol := f.solve(t, DefaultOptions())

	assert.Equal(t, NewDefSet("d2"), sol.Reach["3"]["x"])
}

func TestSolve_LastDefinitionInGroupWins(t *testing.T) {
	f := newFixture("s1").
		edge("1", "s1", "s2").
		edge("2", "s2", "s3").
		def("1", "d1", "x").
		def("1", "d1b", "x")

	sol := f.solve(t, DefaultOptions())

	assert.Equal(t, NewDefSet("d1b"), sol.Reach["2"]["x"])
}

func TestSolve_MergeModes(t *testing.T) {
	build := func() *fixture {
		return newFixture("e").
			edge("1", "e", "a").
			edge("1", "e", "b").
			edge("2", "a", "j").
			edge("3", "b", "j").
			edge("4", "j", "end").
			def("2", "da", "x").
			def("3", "db", "x")
	}

	tests := []struct {
		name  string
		merge MergeMode
		want  DefSet
	}{
		{"union keeps both branches", MergeUnion, NewDefSet("da", "db")},
		{"first keeps first predecessor", MergeFirst, NewDefSet("da")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol := build().solve(t, Options{MaxPasses: DefaultMaxPasses, Merge: tt.merge})
			assert.Equal(t, tt.want, sol.Reach["4"]["x"])
		})
	}
}

func TestSolve_AcyclicStopsAfterTwoPasses(t *testing.T) {
	f := newFixture("e").
		edge("1", "e", "a").
		edge("1", "e", "b").
		edge("2", "a", "j").
		edge("3", "b", "j").
		edge("4", "j", "end").
		def("1", "d1", "y").
		def("2", "da", "x")

	sol := f.solve(t, DefaultOptions())

	assert.True(t, sol.Converged)
	assert.Equal(t, 2, sol.Passes)
	assert.Equal(t, DefaultMaxPasses, sol.Bound)
}

func TestSolve_Loop(t *testing.T) {
	f := newFixture("e").
		edge("1", "e", "h").
		edge("2", "h", "body").
		edge("2", "h", "exit").
		edge("3", "body", "h").
		edge("4", "exit", "end").
		def("1", "d1", "x").
		def("3", "d3", "x")

	sol := f.solve(t, DefaultOptions())

	assert.True(t, sol.Converged)
	assert.Equal(t, 3, sol.Passes)
	assert.Equal(t, NewDefSet("d1", "d3"), sol.Reach["2"]["x"])
	assert.Equal(t, NewDefSet("d1", "d3"), sol.Reach["4"]["x"])
	assert.Equal(t, NewDefSet("d3"), sol.Reach["3"]["x"])
}

func TestSolve_DerivedBound(t *testing.T) {
	f := newFixture("e").
		edge("1", "e", "h").
		edge("2", "h", "body").
		edge("3", "body", "h")

	sol := f.solve(t, Options{MaxPasses: 0})

	assert.Equal(t, f.flow.PassBound(), sol.Bound)
	assert.True(t, sol.Converged)
}

func TestSolve_PassCapReached(t *testing.T) {
	f := newFixture("e").
		edge("1", "e", "h").
		edge("2", "h", "body").
		edge("3", "body", "h").
		def("1", "d1", "x").
		def("3", "d3", "x")

	sol := f.solve(t, Options{MaxPasses: 1})

	assert.Equal(t, 1, sol.Passes)
	assert.False(t, sol.Converged)
}

func TestSolve_UnreachableStatement(t *testing.T) {
	f := newFixture("s1").
		edge("1", "s1", "s2").
		edge("9", "island", "other").
		def("9", "d9", "x").
		use("9", "u9", "x")

	sol := f.solve(t, DefaultOptions())

	require.Contains(t, sol.Reach, cfg.StmtID("9"))
	assert.Empty(t, sol.Reach["9"])
	assert.Empty(t, Link(sol.Reach, f.refs))
}

func TestSolve_CallEdgeDoesNotLeakCalleeDefinitions(t *testing.T) {
	f := newFixture("caller").
		call("1", "caller", "fn").
		edge("6", "fexit", "after").
		edge("5", "fn", "fexit").
		edge("2", "after", "end").
		def("1", "dc", "x").
		def("6", "dk", "x")

	sol := f.solve(t, DefaultOptions())

	assert.Equal(t, NewDefSet("dc"), sol.Reach["2"]["x"])
	assert.Equal(t, NewDefSet("dk"), sol.Reach["6"]["x"])
	assert.Empty(t, sol.Reach["5"])
}

func TestSolve_NoEntry(t *testing.T) {
	flow := cfg.NewFlow()
	flow.AddEdge("1", "a", "", "b", false)

	_, err := NewReachingDefsAnalyzer(flow, nil, DefaultOptions()).Solve()
	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestLink(t *testing.T) {
	f := newFixture("s1").
		edge("1", "s1", "s2").
		edge("2", "s2", "s3").
		edge("3", "s3", "s4").
		def("1", "d1", "x").
		def("1", "dy", "y").
		use("2", "u2", "x").
		use("3", "u3", "x").
		use("3", "u3y", "y").
		use("3", "uz", "z")

	sol := f.solve(t, DefaultOptions())
	edges := Link(sol.Reach, f.refs)

	assert.Equal(t, []DataflowEdge{
		{Def: "d1", Use: "u2", Var: "x", Stmt: "2"},
		{Def: "d1", Use: "u3", Var: "x", Stmt: "3"},
		{Def: "dy", Use: "u3y", Var: "y", Stmt: "3"},
	}, edges)

	links := FanOut(edges)
	assert.Equal(t, []graph.Pointer{"d1", "dy"}, links.Keys())
	assert.Equal(t, []graph.Pointer{"u2", "u3"}, links.Get("d1"))

	dfg := graph.NewAdjacency[graph.Target]()
	dfg.Append("d1", graph.Single("direct"))
	Merge(dfg, links)

	targets := dfg.Get("d1")
	require.Len(t, targets, 2)
	assert.Equal(t, graph.Pointer("direct"), targets[0].Pointer)
	assert.Equal(t, []graph.Pointer{"u2", "u3"}, targets[1].Fanout)
}

func TestDefSet(t *testing.T) {
	a := NewDefSet("c", "a", "a")
	b := NewDefSet("b", "c")

	assert.Equal(t, DefSet{"a", "c"}, a)
	assert.Equal(t, DefSet{"a", "b", "c"}, a.Union(b))
	assert.Equal(t, DefSet{"a", "c"}, a, "union must not modify its receiver")
	assert.True(t, a.Contains("c"))
	assert.False(t, a.Contains("b"))
}
