// Package pipeline runs the full transformation of one fact stream: parse,
// build the program graph, solve reaching definitions, link def-use edges
// and encode the numeric artifact.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/viant/afs"

	"github.com/l3aro/go-program-graph/internal/log"
	"github.com/l3aro/go-program-graph/pkg/cache"
	"github.com/l3aro/go-program-graph/pkg/dfg"
	"github.com/l3aro/go-program-graph/pkg/encode"
	"github.com/l3aro/go-program-graph/pkg/facts"
	"github.com/l3aro/go-program-graph/pkg/pdg"
	"github.com/l3aro/go-program-graph/pkg/vocab"
)

// Options configures one pipeline run.
type Options struct {
	Analysis dfg.Options
	Encode   encode.Options
	// Vocab is required.
	Vocab *vocab.Vocabulary
	// Logger receives stage diagnostics at debug level. Nil discards them.
	Logger log.Logger
}

func (o Options) logger() log.Logger {
	if o.Logger == nil {
		return log.Nop()
	}
	return o.Logger
}

// Result holds every intermediate product of a run.
type Result struct {
	Stream   *facts.Stream
	Program  *pdg.Program
	Artifact *encode.Artifact
}

// Run parses lines and runs the pipeline on them.
func Run(lines []string, opts Options) (*Result, error) {
	stream, err := facts.ParseLines(lines)
	if err != nil {
		return nil, err
	}
	return RunStream(stream, opts)
}

// RunStream runs the pipeline on an already parsed stream.
func RunStream(stream *facts.Stream, opts Options) (*Result, error) {
	if opts.Vocab == nil {
		return nil, fmt.Errorf("pipeline: no vocabulary")
	}
	logger := opts.logger()
	if len(stream.Dropped) > 0 {
		logger.Debug("dropped fact lines with unknown tags", "count", len(stream.Dropped))
	}

	prog, err := BuildProgram(stream, opts.Analysis)
	if err != nil {
		return nil, err
	}
	logger.Debug("reaching definitions solved",
		"passes", prog.Solution.Passes,
		"bound", prog.Solution.Bound,
		"converged", prog.Solution.Converged,
		"def_use", len(prog.DefUse))

	a, err := encode.NewEncoder(opts.Vocab, opts.Encode).Encode(prog.Graph)
	if err != nil {
		return nil, err
	}
	if a.Skipped > 0 {
		logger.Debug("skipped DFG edges with unknown endpoints", "count", a.Skipped)
	}
	logger.Debug("encoded artifact",
		"nodes", len(a.Nodes),
		"ast", len(a.AST),
		"cfg", len(a.CFG),
		"dfg", len(a.DFG))

	return &Result{Stream: stream, Program: prog, Artifact: a}, nil
}

// BuildProgram builds and analyzes the program graph of stream without encoding it.
func BuildProgram(stream *facts.Stream, opts dfg.Options) (*pdg.Program, error) {
	b := pdg.NewBuilder()
	b.AddAll(stream.Records)
	return b.Build(opts)
}

// ReadFacts reads a fact stream from a local path or an afs URL. "-" reads stdin.
func ReadFacts(ctx context.Context, location string, stdin io.Reader) (*facts.Stream, error) {
	if location == "-" {
		return facts.Parse(stdin)
	}
	data, err := afs.New().DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("reading facts %s: %w", location, err)
	}
	stream, err := facts.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return stream, nil
}

// Key derives the cache key of running opts on lines. Every input that can
// change the artifact is part of the key.
func Key(lines []string, opts Options) (string, error) {
	h, err := cache.NewHasher()
	if err != nil {
		return "", err
	}
	h.WriteString(strconv.Itoa(len(lines)))
	for _, l := range lines {
		h.WriteString(l)
	}
	if opts.Vocab != nil {
		h.Write(opts.Vocab.Fingerprint())
	}
	h.WriteString(strconv.Itoa(opts.Analysis.MaxPasses))
	h.WriteString(string(opts.Analysis.Merge))
	h.WriteString(strconv.FormatBool(opts.Encode.Reverse))
	return h.Key(), nil
}
