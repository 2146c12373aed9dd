package dfg

import (
	"errors"
	"maps"

	"github.com/l3aro/go-program-graph/pkg/cfg"
	"github.com/l3aro/go-program-graph/pkg/graph"
)

// DefaultMaxPasses caps the number of fixpoint passes.
const DefaultMaxPasses = 8

// ErrNoEntry is returned when the CFG has no entry statement to seed the analysis.
var ErrNoEntry = errors.New("no entry statement recorded")

// MergeMode selects how predecessor reach sets are combined.
type MergeMode string

const (
	// MergeUnion takes the set union of every predecessor's definitions.
	MergeUnion MergeMode = "union"
	// MergeFirst keeps the definitions of the first predecessor that has the
	// variable and ignores the rest.
	MergeFirst MergeMode = "first"
)

// Valid reports whether m is a known merge mode.
func (m MergeMode) Valid() bool {
	return m == MergeUnion || m == MergeFirst
}

// Options configures the reaching definitions analysis.
type Options struct {
	// MaxPasses caps the outer passes. Zero or less derives the cap from the CFG.
	MaxPasses int
	Merge     MergeMode
}

// DefaultOptions returns the standard 8-pass union analysis.
func DefaultOptions() Options {
	return Options{MaxPasses: DefaultMaxPasses, Merge: MergeUnion}
}

// Solution is the result of the analysis.
type Solution struct {
	// Reach maps every statement id to the definitions reaching it. Statements
	// never visited keep an empty set.
	Reach     map[cfg.StmtID]ReachSet
	Passes    int  // passes actually run
	Bound     int  // pass cap in effect
	Converged bool // the last pass changed nothing
}

// ReachingDefsAnalyzer performs reaching definitions analysis on a control flow graph.
// Each pass walks the statements reachable from the entry in reverse postorder,
// so an acyclic CFG is stable after one pass and confirmed by the second.
type ReachingDefsAnalyzer struct {
	flow    *cfg.Flow
	genKill *Bindings
	opts    Options
}

// NewReachingDefsAnalyzer creates a new ReachingDefsAnalyzer.
func NewReachingDefsAnalyzer(flow *cfg.Flow, genKill *Bindings, opts Options) *ReachingDefsAnalyzer {
	if opts.Merge == "" {
		opts.Merge = MergeUnion
	}
	if genKill == nil {
		genKill = NewBindings()
	}
	return &ReachingDefsAnalyzer{flow: flow, genKill: genKill, opts: opts}
}

// Solve runs the bounded fixpoint and returns the reach set of every statement.
func (r *ReachingDefsAnalyzer) Solve() (*Solution, error) {
	if _, ok := r.flow.Entry(); !ok {
		return nil, ErrNoEntry
	}

	bound := r.opts.MaxPasses
	if bound <= 0 {
		bound = r.flow.PassBound()
	}

	reach := make(map[cfg.StmtID]ReachSet)
	for _, id := range r.flow.Statements() {
		reach[id] = ReachSet{}
	}

	sol := &Solution{Reach: reach, Bound: bound}
	order := r.flow.ReversePostorder()

	var prev map[cfg.StmtID]ReachSet
	for pass := 1; pass <= bound; pass++ {
		sol.Passes = pass
		for _, stmt := range order {
			if r.flow.Isolated(stmt) {
				continue
			}
			members := r.flow.Members(stmt)

			out := r.in(reach, stmt)
			for _, def := range r.localDefs(members) {
				out[def.Var] = DefSet{def.Site}
			}

			// Stored sets are replaced, never mutated, so sharing out is safe.
			for _, id := range members {
				reach[id] = out
			}
		}

		if prev != nil && snapshotsEqual(prev, reach) {
			sol.Converged = true
			break
		}
		prev = maps.Clone(reach)
	}

	return sol, nil
}

// in merges the reach sets of every statement id grouped under each predecessor.
func (r *ReachingDefsAnalyzer) in(reach map[cfg.StmtID]ReachSet, stmt graph.Pointer) ReachSet {
	result := ReachSet{}
	for _, pred := range r.flow.Predecessors(stmt) {
		for _, id := range r.flow.Members(pred) {
			for v, defs := range reach[id] {
				existing, ok := result[v]
				switch {
				case !ok:
					result[v] = defs
				case r.opts.Merge == MergeUnion:
					result[v] = existing.Union(defs)
				}
			}
		}
	}
	return result
}

// localDefs collects the Gen/Kill bindings of every id in a statement group, in fact order.
func (r *ReachingDefsAnalyzer) localDefs(members []cfg.StmtID) []Binding {
	var defs []Binding
	seen := make(map[cfg.StmtID]struct{}, len(members))
	for _, id := range members {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		defs = append(defs, r.genKill.Get(id)...)
	}
	return defs
}

// snapshotsEqual checks if two pass snapshots hold equal reach sets.
func snapshotsEqual(a, b map[cfg.StmtID]ReachSet) bool {
	return maps.EqualFunc(a, b, func(x, y ReachSet) bool {
		return x.Equal(y)
	})
}
