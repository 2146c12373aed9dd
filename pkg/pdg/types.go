// Package pdg builds the program dependence graph of one fact stream: the
// syntax tree, the control-flow graph and the data-flow graph, with data-flow
// enriched by reaching-definitions def-use edges.
package pdg

import (
	"fmt"

	"github.com/l3aro/go-program-graph/pkg/cfg"
	"github.com/l3aro/go-program-graph/pkg/dfg"
	"github.com/l3aro/go-program-graph/pkg/graph"
)

// Program is a fully built program graph.
type Program struct {
	Graph    *graph.Graph
	Flow     *cfg.Flow
	GenKill  *dfg.Bindings
	Refs     *dfg.Bindings
	Solution *dfg.Solution
	// DefUse holds the edges derived from reaching definitions, already merged into Graph.DFG.
	DefUse []dfg.DataflowEdge
}

// AnalysisError reports a graph that cannot be analyzed.
type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis failed: %s: %v", e.Reason, e.Err)
	}
	return "analysis failed: " + e.Reason
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
