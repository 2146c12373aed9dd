package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-program-graph/internal/scanner"
	"github.com/l3aro/go-program-graph/internal/tool"
	"github.com/l3aro/go-program-graph/pkg/artifact"
	"github.com/l3aro/go-program-graph/pkg/cache"
	"github.com/l3aro/go-program-graph/pkg/dirty"
	"github.com/l3aro/go-program-graph/pkg/encode"
)

// FactSource produces the fact stream of a source file.
type FactSource interface {
	Run(ctx context.Context, source string) ([]string, error)
}

var _ FactSource = (*tool.Runner)(nil)

// Builder turns source files into stored artifacts.
type Builder struct {
	Tool    FactSource
	Options Options
	// Cache is optional.
	Cache *cache.ArtifactCache
	// Store is required by Save and Batch.
	Store *artifact.Store
	// OutputDir is where artifacts are written, a local path or afs URL.
	OutputDir string
	// ToolID identifies the tool configuration, such as its path and
	// arguments. Incremental batches rebuild every source when it changes.
	ToolID string
}

// Build is the outcome of building one source.
type Build struct {
	Source string
	// Output is where the artifact was written; empty if it was not saved.
	Output   string
	Artifact *encode.Artifact
	// Result is nil on a cache hit.
	Result *Result
	Cached bool
	// Unchanged is set when an incremental batch skipped the source; Artifact is nil.
	Unchanged bool
	Err       error
}

// BuildSource runs the tool on source and the pipeline on its output,
// reusing a cached artifact when the facts and options are unchanged.
func (b *Builder) BuildSource(ctx context.Context, source string) (*Build, error) {
	logger := b.Options.logger()

	lines, err := b.Tool.Run(ctx, source)
	if err != nil {
		return nil, err
	}
	logger.Debug("tool finished", "source", source, "lines", len(lines))

	var key string
	if b.Cache != nil {
		key, err = Key(lines, b.Options)
		if err != nil {
			return nil, err
		}
		if a, ok := b.Cache.Get(key); ok {
			logger.Debug("artifact cache hit", "source", source, "key", key)
			return &Build{Source: source, Artifact: a, Cached: true}, nil
		}
	}

	res, err := Run(lines, b.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	if b.Cache != nil {
		if err := b.Cache.Set(key, res.Artifact); err != nil {
			logger.Warn("caching artifact failed", "source", source, "error", err)
		}
	}
	return &Build{Source: source, Artifact: res.Artifact, Result: res}, nil
}

// Save builds source and writes its artifact to output. An empty output
// names the artifact after the source inside OutputDir.
func (b *Builder) Save(ctx context.Context, source, output string) (*Build, error) {
	if b.Store == nil {
		return nil, errors.New("pipeline: no artifact store")
	}
	build, err := b.BuildSource(ctx, source)
	if err != nil {
		return nil, err
	}
	if output == "" {
		output = artifact.OutputPath(b.OutputDir, source, b.Store.Format())
	}
	if err := b.Store.Save(ctx, output, build.Artifact); err != nil {
		return nil, err
	}
	build.Output = output
	return build, nil
}

// BatchOptions configures Batch.
type BatchOptions struct {
	// Workers bounds the number of files built at once. Values below one mean one.
	Workers int
	// FailFast cancels the remaining files after the first failure.
	FailFast bool
	// Progress, when set, is called after each file finishes. It may be
	// called from several goroutines.
	Progress func(done, total int, b *Build)
	// Tracker, when set, makes the batch incremental: sources whose content,
	// settings and output are unchanged since their last successful build
	// are skipped, and successful builds are recorded.
	Tracker *dirty.Tracker
}

// BatchReport summarizes a batch.
type BatchReport struct {
	// Builds is in the order of the input files.
	Builds    []*Build
	Failed    int
	Cached    int
	Unchanged int
}

// Errors returns the per-file failures.
func (r *BatchReport) Errors() []error {
	var errs []error
	for _, b := range r.Builds {
		if b.Err != nil {
			errs = append(errs, b.Err)
		}
	}
	return errs
}

// Batch builds every file and writes each artifact to OutputDir, mirroring
// the file's directory relative to the scan root. Per-file failures are
// recorded in the report; the returned error is set only when the batch was
// cut short by FailFast or by ctx.
func (b *Builder) Batch(ctx context.Context, files []scanner.FileInfo, opts BatchOptions) (*BatchReport, error) {
	if b.Store == nil {
		return nil, errors.New("pipeline: no artifact store")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var settings string
	if opts.Tracker != nil {
		var err error
		if settings, err = b.settings(); err != nil {
			return nil, err
		}
	}

	report := &BatchReport{Builds: make([]*Build, len(files))}
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			build, err := b.batchOne(gctx, f, opts.Tracker, settings)
			if err != nil {
				build = &Build{Source: f.FullPath, Err: fmt.Errorf("%s: %w", f.Path, err)}
			}
			report.Builds[i] = build

			if opts.Progress != nil {
				opts.Progress(int(done.Add(1)), len(files), build)
			}
			if build.Err != nil && opts.FailFast {
				return build.Err
			}
			return nil
		})
	}
	err := g.Wait()

	for _, build := range report.Builds {
		if build.Err != nil {
			report.Failed++
		}
		if build.Cached {
			report.Cached++
		}
		if build.Unchanged {
			report.Unchanged++
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return report, err
}

func (b *Builder) batchOne(ctx context.Context, f scanner.FileInfo, tracker *dirty.Tracker, settings string) (*Build, error) {
	// Files queued behind a failure are not started.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	output := artifact.OutputPath(outputDir(b.OutputDir, f.Path), f.Path, b.Store.Format())
	if tracker == nil {
		return b.Save(ctx, f.FullPath, output)
	}

	hash, changed, err := tracker.Check(f.Path, f.FullPath, settings)
	if err != nil {
		return nil, err
	}
	if !changed {
		if prev, _ := tracker.Get(f.Path); prev.Output == output {
			if exists, err := b.Store.Exists(ctx, output); err == nil && exists {
				return &Build{Source: f.FullPath, Output: output, Unchanged: true}, nil
			}
		}
	}

	build, err := b.Save(ctx, f.FullPath, output)
	if err != nil {
		tracker.Remove(f.Path)
		return nil, err
	}
	tracker.Record(f.Path, hash, settings, output)
	return build, nil
}

// settings fingerprints everything besides the source that shapes an artifact.
func (b *Builder) settings() (string, error) {
	return Key([]string{b.ToolID, string(b.Store.Format())}, b.Options)
}

// outputDir places the artifact of rel below root, keeping rel's directory.
func outputDir(root, rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return root
	}
	if root == "" {
		return dir
	}
	return strings.TrimSuffix(root, "/") + "/" + dir
}
