package pdg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-program-graph/pkg/dfg"
	"github.com/l3aro/go-program-graph/pkg/encode"
	"github.com/l3aro/go-program-graph/pkg/facts"
	"github.com/l3aro/go-program-graph/pkg/graph"
	"github.com/l3aro/go-program-graph/pkg/vocab"
)

// straightLine is a three statement function: s1 declares x at p3, s2 reads x at p4.
var straightLine = []string{
	"AST,fn,Function,s1,DeclStmt",
	"AST,s1,DeclStmt,p3,VarDecl",
	"AST,fn,Function,s2,BinaryOperator",
	"AST,s2,BinaryOperator,p4,DeclRefExpr",
	"AST,fn,Function,s3,ReturnStmt",
	"CFG,0,fn,main,s1",
	"CFG,1,s1,_,s2",
	"CFG,2,s2,_,s3",
	"Gen/Kill,1,p3,x",
	"Ref,2,_,p4,x",
}

func build(t *testing.T, lines []string, opts dfg.Options) *Program {
	t.Helper()
	stream, err := facts.ParseLines(lines)
	require.NoError(t, err)

	b := NewBuilder()
	b.AddAll(stream.Records)
	prog, err := b.Build(opts)
	require.NoError(t, err)
	return prog
}

func TestBuilder_RegistersFacts(t *testing.T) {
	b := NewBuilder()
	b.AddAll([]facts.Record{
		facts.ASTFact{Outer: "p1", OuterToken: "Function", Inner: "p2", InnerToken: "CompoundStmt"},
		facts.ASTFact{Outer: "p1", OuterToken: "Ignored", Inner: "p3", InnerToken: "ReturnStmt"},
		facts.CFGFact{Stmt: "1", From: "p2", Label: "main", To: "p3"},
		facts.DFGFact{Source: "p2", Target: "p3"},
	})

	g := b.Graph()
	assert.Equal(t, []graph.Pointer{"p1", "p2", "p3"}, g.Tokens.Keys())
	tok, _ := g.Tokens.Get("p1")
	assert.Equal(t, graph.Token("Function"), tok, "first token wins")

	assert.Equal(t, []graph.Pointer{"p2", "p3"}, g.AST.Get("p1"))
	assert.Equal(t, []graph.Pointer{"p3"}, g.CFG.Get("p2"))
	assert.Equal(t, []graph.Target{graph.Single("p3")}, g.DFG.Get("p2"))

	entry, ok := b.Flow().Entry()
	require.True(t, ok)
	assert.Equal(t, graph.Pointer("p3"), entry)
}

func TestBuilder_CallEdgeExcludedFromBackwardCFG(t *testing.T) {
	b := NewBuilder()
	b.AddAll([]facts.Record{
		facts.ASTFact{Outer: "fn", OuterToken: "Function", Inner: "s1", InnerToken: "CallExpr"},
		facts.ASTFact{Outer: "fn", OuterToken: "Function", Inner: "s2", InnerToken: "CallExpr"},
		facts.ASTFact{Outer: "fn", OuterToken: "Function", Inner: "s3", InnerToken: "ReturnStmt"},
		facts.CFGFact{Stmt: "1", From: "s1", Label: "_", To: "fn"},
		facts.CFGFact{Stmt: "2", From: "s2", Label: "_", To: "s3"},
	})

	flow := b.Flow()
	assert.Equal(t, []graph.Pointer{"s1"}, flow.Predecessors("s3"), "held caller replaces the edge's own source")
	assert.Empty(t, flow.Predecessors("fn"))
	assert.Equal(t, []graph.Pointer{"fn"}, flow.Successors("s1"), "forward CFG keeps the call")
}

func TestBuilder_TargetWithoutTokenIsNotACall(t *testing.T) {
	b := NewBuilder()
	b.Add(facts.CFGFact{Stmt: "1", From: "s1", Label: "_", To: "unknown"})
	b.Add(facts.CFGFact{Stmt: "2", From: "s2", Label: "_", To: "s3"})

	assert.Equal(t, []graph.Pointer{"s1"}, b.Flow().Predecessors("unknown"))
	assert.Equal(t, []graph.Pointer{"s2"}, b.Flow().Predecessors("s3"))
}

func TestBuild_NoEntry(t *testing.T) {
	stream, err := facts.ParseLines([]string{"CFG,1,s1,_,s2", "Gen/Kill,1,p1,x"})
	require.NoError(t, err)

	b := NewBuilder()
	b.AddAll(stream.Records)
	prog, err := b.Build(dfg.DefaultOptions())
	require.Error(t, err)
	assert.Nil(t, prog)

	var aerr *AnalysisError
	require.True(t, errors.As(err, &aerr))
	assert.True(t, errors.Is(err, dfg.ErrNoEntry))
}

func TestBuild_Twice(t *testing.T) {
	stream, err := facts.ParseLines(straightLine)
	require.NoError(t, err)

	b := NewBuilder()
	b.AddAll(stream.Records)
	_, err = b.Build(dfg.DefaultOptions())
	require.NoError(t, err)

	_, err = b.Build(dfg.DefaultOptions())
	assert.Error(t, err)
}

func TestBuild_EndToEnd(t *testing.T) {
	prog := build(t, straightLine, dfg.DefaultOptions())

	assert.Equal(t, []dfg.DataflowEdge{{Def: "p3", Use: "p4", Var: "x", Stmt: "2"}}, prog.DefUse)
	assert.Equal(t, []graph.Target{graph.Fanout([]graph.Pointer{"p4"})}, prog.Graph.DFG.Get("p3"))

	assert.Equal(t, 2, prog.Solution.Passes)
	assert.True(t, prog.Solution.Converged)
	assert.Equal(t, dfg.NewDefSet("p3"), prog.Solution.Reach["2"]["x"])
	assert.Empty(t, prog.Solution.Reach["0"], "entry's predecessor is never visited")

	v, err := vocab.Default()
	require.NoError(t, err)
	art, err := encode.NewEncoder(v, encode.Options{}).Encode(prog.Graph)
	require.NoError(t, err)

	canon := encode.NewCanon(prog.Graph.Tokens)
	def, ok := canon.ID("p3")
	require.True(t, ok)
	use, ok := canon.ID("p4")
	require.True(t, ok)
	assert.Contains(t, art.DFG, encode.Edge{def, use})
	assert.Zero(t, art.Skipped)
}

func TestBuild_Deterministic(t *testing.T) {
	var first []byte
	for i := 0; i < 5; i++ {
		prog := build(t, straightLine, dfg.DefaultOptions())
		var buf bytes.Buffer
		require.NoError(t, prog.Graph.WriteJSON(&buf, false))
		if first == nil {
			first = buf.Bytes()
			continue
		}
		assert.Equal(t, string(first), buf.String())
	}
}

func TestDependences(t *testing.T) {
	lines := append([]string{"DFG,p4,_,s2"}, straightLine...)
	prog := build(t, lines, dfg.DefaultOptions())

	assert.Equal(t, []Dependence{
		{From: "fn", To: "s1", Type: DepTypeControl},
		{From: "s1", To: "s2", Type: DepTypeControl},
		{From: "s2", To: "s3", Type: DepTypeControl},
		{From: "p4", To: "s2", Type: DepTypeData},
		{From: "p3", To: "p4", Type: DepTypeData, Var: "x"},
	}, prog.Dependences())
}

func TestSlices(t *testing.T) {
	prog := build(t, straightLine, dfg.DefaultOptions())

	tests := []struct {
		name     string
		slice    func(*Program, graph.Pointer, string) []graph.Pointer
		start    graph.Pointer
		variable string
		want     []graph.Pointer
	}{
		{"backward data", BackwardSlice, "p4", "", []graph.Pointer{"p4", "p3"}},
		{"backward control", BackwardSlice, "s3", "", []graph.Pointer{"s3", "s2", "s1", "fn"}},
		{"backward filtered", BackwardSlice, "p4", "y", []graph.Pointer{"p4"}},
		{"forward data", ForwardSlice, "p3", "x", []graph.Pointer{"p3", "p4"}},
		{"forward control", ForwardSlice, "s2", "", []graph.Pointer{"s2", "s3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.slice(prog, tt.start, tt.variable))
		})
	}

	assert.Nil(t, BackwardSlice(nil, "p4", ""))
	assert.Nil(t, ForwardSlice(nil, "p4", ""))
}

func TestGetDependencies(t *testing.T) {
	prog := build(t, straightLine, dfg.DefaultOptions())

	info := GetDependencies(prog, "s2")
	assert.Len(t, info.ControlIn, 1)
	assert.Len(t, info.ControlOut, 1)
	assert.Empty(t, info.DataIn)

	info = GetDependencies(prog, "p4")
	require.Len(t, info.DataIn, 1)
	assert.Equal(t, "x", info.DataIn[0].Var)

	assert.Equal(t, DependencyInfo{}, GetDependencies(nil, "p4"))
}
