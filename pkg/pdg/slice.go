package pdg

import (
	"container/list"

	"github.com/l3aro/go-program-graph/pkg/graph"
)

// DepType is the kind of a dependence edge.
type DepType string

const (
	DepTypeControl DepType = "control"
	DepTypeData    DepType = "data"
)

// Dependence is one edge of the program dependence view. Var is set only for
// data edges derived from reaching definitions; direct DFG facts carry no variable.
type Dependence struct {
	From graph.Pointer `json:"from"`
	To   graph.Pointer `json:"to"`
	Type DepType       `json:"type"`
	Var  string        `json:"var,omitempty"`
}

// DependencyInfo contains the control and data dependencies of one pointer.
type DependencyInfo struct {
	ControlIn  []Dependence `json:"control_in"`
	ControlOut []Dependence `json:"control_out"`
	DataIn     []Dependence `json:"data_in"`
	DataOut    []Dependence `json:"data_out"`
}

// Dependences lists the control edges of the forward CFG followed by the data
// edges: direct DFG facts first, then def-use edges labeled with their variable.
func (p *Program) Dependences() []Dependence {
	var deps []Dependence
	for _, from := range p.Graph.CFG.Keys() {
		for _, to := range p.Graph.CFG.Get(from) {
			deps = append(deps, Dependence{From: from, To: to, Type: DepTypeControl})
		}
	}

	// Fan-out targets were appended from DefUse; only scalar targets are direct facts.
	for _, from := range p.Graph.DFG.Keys() {
		for _, target := range p.Graph.DFG.Get(from) {
			if target.IsList() {
				continue
			}
			deps = append(deps, Dependence{From: from, To: target.Pointer, Type: DepTypeData})
		}
	}
	for _, e := range p.DefUse {
		deps = append(deps, Dependence{From: e.Def, To: e.Use, Type: DepTypeData, Var: e.Var})
	}
	return deps
}

func buildEdgeMaps(deps []Dependence) (incoming, outgoing map[graph.Pointer][]Dependence) {
	incoming = make(map[graph.Pointer][]Dependence)
	outgoing = make(map[graph.Pointer][]Dependence)
	for _, d := range deps {
		outgoing[d.From] = append(outgoing[d.From], d)
		incoming[d.To] = append(incoming[d.To], d)
	}
	return
}

// BackwardSlice returns every pointer that start may depend on, start
// included, in breadth-first order. When variable is non-empty, labeled data
// edges of other variables are not followed.
func BackwardSlice(p *Program, start graph.Pointer, variable string) []graph.Pointer {
	if p == nil {
		return nil
	}
	incoming, _ := buildEdgeMaps(p.Dependences())
	return walk(start, variable, func(n graph.Pointer) []Dependence { return incoming[n] },
		func(d Dependence) graph.Pointer { return d.From })
}

// ForwardSlice returns every pointer that may depend on start, start included.
func ForwardSlice(p *Program, start graph.Pointer, variable string) []graph.Pointer {
	if p == nil {
		return nil
	}
	_, outgoing := buildEdgeMaps(p.Dependences())
	return walk(start, variable, func(n graph.Pointer) []Dependence { return outgoing[n] },
		func(d Dependence) graph.Pointer { return d.To })
}

func walk(start graph.Pointer, variable string, edges func(graph.Pointer) []Dependence, next func(Dependence) graph.Pointer) []graph.Pointer {
	visited := map[graph.Pointer]bool{start: true}
	queue := list.New()
	queue.PushBack(start)

	var result []graph.Pointer
	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(graph.Pointer)
		result = append(result, current)

		for _, d := range edges(current) {
			if variable != "" && d.Type == DepTypeData && d.Var != "" && d.Var != variable {
				continue
			}
			n := next(d)
			if visited[n] {
				continue
			}
			visited[n] = true
			queue.PushBack(n)
		}
	}
	return result
}

// GetDependencies returns the edges touching ptr, split by direction and type.
func GetDependencies(p *Program, ptr graph.Pointer) DependencyInfo {
	var info DependencyInfo
	if p == nil {
		return info
	}
	incoming, outgoing := buildEdgeMaps(p.Dependences())
	for _, d := range incoming[ptr] {
		if d.Type == DepTypeControl {
			info.ControlIn = append(info.ControlIn, d)
		} else {
			info.DataIn = append(info.DataIn, d)
		}
	}
	for _, d := range outgoing[ptr] {
		if d.Type == DepTypeControl {
			info.ControlOut = append(info.ControlOut, d)
		} else {
			info.DataOut = append(info.DataOut, d)
		}
	}
	return info
}
