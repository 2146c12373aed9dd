package pdg

import (
	"errors"

	"github.com/l3aro/go-program-graph/pkg/cfg"
	"github.com/l3aro/go-program-graph/pkg/dfg"
	"github.com/l3aro/go-program-graph/pkg/facts"
	"github.com/l3aro/go-program-graph/pkg/graph"
)

// errBuilt is returned when Build is called twice on the same Builder.
var errBuilt = errors.New("builder already built")

// Builder accumulates fact records into a program graph. A Builder owns all
// of its maps and handles exactly one fact stream.
type Builder struct {
	graph   *graph.Graph
	flow    *cfg.Flow
	genKill *dfg.Bindings
	refs    *dfg.Bindings
	built   bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		graph:   graph.New(),
		flow:    cfg.NewFlow(),
		genKill: dfg.NewBindings(),
		refs:    dfg.NewBindings(),
	}
}

// AddAll adds records in order.
func (b *Builder) AddAll(records []facts.Record) {
	for _, rec := range records {
		b.Add(rec)
	}
}

// Add applies one record.
func (b *Builder) Add(rec facts.Record) {
	switch r := rec.(type) {
	case facts.ASTFact:
		b.graph.Tokens.Set(r.Outer, r.OuterToken)
		b.graph.Tokens.Set(r.Inner, r.InnerToken)
		b.graph.AST.Append(r.Outer, r.Inner)
	case facts.CFGFact:
		b.graph.CFG.Append(r.From, r.To)
		b.flow.AddEdge(cfg.StmtID(r.Stmt), r.From, r.Label, r.To, b.isCallee(r.To))
	case facts.DFGFact:
		b.graph.DFG.Append(r.Source, graph.Single(r.Target))
	case facts.GenKillFact:
		b.genKill.Add(cfg.StmtID(r.Stmt), dfg.Binding{Site: r.Def, Var: r.Var})
	case facts.RefFact:
		b.refs.Add(cfg.StmtID(r.Stmt), dfg.Binding{Site: r.Use, Var: r.Var})
	}
}

// isCallee reports whether p is a function, i.e. a CFG edge into p is a call.
// Pointers without a token are treated as ordinary statements.
func (b *Builder) isCallee(p graph.Pointer) bool {
	tok, ok := b.graph.Tokens.Get(p)
	return ok && tok == graph.FunctionToken
}

// Graph returns the graph accumulated so far.
func (b *Builder) Graph() *graph.Graph {
	return b.graph
}

// Flow returns the control-flow view accumulated so far.
func (b *Builder) Flow() *cfg.Flow {
	return b.flow
}

// Build solves reaching definitions, links definitions to uses and merges
// the result into the DFG. It fails with *AnalysisError when no entry
// statement was recorded.
func (b *Builder) Build(opts dfg.Options) (*Program, error) {
	if b.built {
		return nil, errBuilt
	}
	if _, ok := b.flow.Entry(); !ok {
		return nil, &AnalysisError{Reason: `no CFG edge labeled "` + cfg.EntryLabel + `"`, Err: dfg.ErrNoEntry}
	}

	sol, err := dfg.NewReachingDefsAnalyzer(b.flow, b.genKill, opts).Solve()
	if err != nil {
		return nil, &AnalysisError{Reason: "reaching definitions", Err: err}
	}

	edges := dfg.Link(sol.Reach, b.refs)
	dfg.Merge(b.graph.DFG, dfg.FanOut(edges))
	b.built = true

	return &Program{
		Graph:    b.graph,
		Flow:     b.flow,
		GenKill:  b.genKill,
		Refs:     b.refs,
		Solution: sol,
		DefUse:   edges,
	}, nil
}
