package encode

import (
	"github.com/l3aro/go-program-graph/pkg/graph"
	"github.com/l3aro/go-program-graph/pkg/vocab"
)

// Options configures the encoder.
type Options struct {
	// Reverse emits edge pairs as (target, source) instead of (source, target).
	Reverse bool
}

// Canon assigns canonical ids: each pointer gets the next integer the first
// time it is seen, so ids are dense and follow the token map's order.
type Canon struct {
	ids   map[graph.Pointer]int64
	order []graph.Pointer
}

// NewCanon numbers the pointers of tokens in first-seen order.
func NewCanon(tokens *graph.TokenMap) *Canon {
	c := &Canon{ids: make(map[graph.Pointer]int64, tokens.Len())}
	for _, p := range tokens.Keys() {
		c.add(p)
	}
	return c
}

func (c *Canon) add(p graph.Pointer) {
	if _, ok := c.ids[p]; ok {
		return
	}
	c.ids[p] = int64(len(c.order))
	c.order = append(c.order, p)
}

// ID returns the canonical id of p.
func (c *Canon) ID(p graph.Pointer) (int64, bool) {
	id, ok := c.ids[p]
	return id, ok
}

// Pointers returns pointers indexed by canonical id.
func (c *Canon) Pointers() []graph.Pointer {
	return c.order
}

// Encoder builds artifacts against a fixed vocabulary.
type Encoder struct {
	vocab *vocab.Vocabulary
	opts  Options
}

// NewEncoder creates an Encoder.
func NewEncoder(v *vocab.Vocabulary, opts Options) *Encoder {
	return &Encoder{vocab: v, opts: opts}
}

// Encode converts g into an Artifact. AST and CFG edges must reference known
// pointers; DFG edges that do not are skipped.
func (e *Encoder) Encode(g *graph.Graph) (*Artifact, error) {
	canon := NewCanon(g.Tokens)
	nodes := canon.Pointers()

	features := NewMatrix(len(nodes), e.vocab.Width())
	for i, p := range nodes {
		tok, _ := g.Tokens.Get(p)
		features.Data[i*features.Cols+e.vocab.Index(string(tok))] = 1
	}

	ast, err := e.structural(EdgeAST, g.AST, canon)
	if err != nil {
		return nil, err
	}
	cfg, err := e.structural(EdgeCFG, g.CFG, canon)
	if err != nil {
		return nil, err
	}
	dfg, skipped := e.dataflow(g.DFG, canon)

	return &Artifact{
		Nodes:    nodes,
		Features: features,
		AST:      ast,
		CFG:      cfg,
		DFG:      dfg,
		Skipped:  skipped,
	}, nil
}

func (e *Encoder) structural(kind EdgeKind, adj *graph.Adjacency[graph.Pointer], canon *Canon) ([]Edge, error) {
	edges := make([]Edge, 0, adj.EdgeCount())
	for _, from := range adj.Keys() {
		for _, to := range adj.Get(from) {
			src, ok := canon.ID(from)
			if !ok {
				return nil, &EncodingError{Kind: kind, From: from, To: to, Missing: from}
			}
			dst, ok := canon.ID(to)
			if !ok {
				return nil, &EncodingError{Kind: kind, From: from, To: to, Missing: to}
			}
			edges = append(edges, e.pair(src, dst))
		}
	}
	return edges, nil
}

func (e *Encoder) dataflow(adj *graph.Adjacency[graph.Target], canon *Canon) ([]Edge, int) {
	edges := make([]Edge, 0, adj.EdgeCount())
	skipped := 0
	for _, from := range adj.Keys() {
		src, srcOK := canon.ID(from)
		for _, target := range adj.Get(from) {
			for _, to := range target.Pointers() {
				dst, ok := canon.ID(to)
				if !srcOK || !ok {
					skipped++
					continue
				}
				edges = append(edges, e.pair(src, dst))
			}
		}
	}
	return edges, skipped
}

func (e *Encoder) pair(src, dst int64) Edge {
	if e.opts.Reverse {
		return Edge{dst, src}
	}
	return Edge{src, dst}
}
