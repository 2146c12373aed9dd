package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-program-graph/internal/config"
	"github.com/l3aro/go-program-graph/internal/log"
	"github.com/l3aro/go-program-graph/internal/scanner"
	"github.com/l3aro/go-program-graph/pkg/dirty"
	"github.com/l3aro/go-program-graph/pkg/pipeline"
)

// BatchOutput represents the output of the batch command
type BatchOutput struct {
	RootDir   string        `json:"root_dir"`
	Files     int           `json:"files"`
	Built     int           `json:"built"`
	Cached    int           `json:"cached"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	Results   []BuildOutput `json:"results"`
	Errors    []string      `json:"errors,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch [dir] [--workers N] [--include GLOB]... [--exclude GLOB]... [--fail-fast] [--json]",
	Short: "Build artifacts for every source below a directory",
	Long: `Scans the directory for sources matching batch.include (C files and
preprocessed units by default), skipping hidden and build directories and
anything listed in .pgraphignore files, and builds their artifacts in parallel.

Artifacts are written below output.dir, mirroring the source tree. With
--incremental, sources whose content and settings are unchanged since their
last successful build are skipped; the state lives in .pgraph/ under the root.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		workers, _ := cmd.Flags().GetInt("workers")
		if workers <= 0 {
			workers = cfg.Batch.Workers
		}
		include, _ := cmd.Flags().GetStringSlice("include")
		if len(include) == 0 {
			include = cfg.Batch.Include
		}
		exclude, _ := cmd.Flags().GetStringSlice("exclude")
		exclude = append(append([]string(nil), cfg.Batch.Exclude...), exclude...)
		formatFlag, _ := cmd.Flags().GetString("format")
		noCache, _ := cmd.Flags().GetBool("no-cache")
		failFast, _ := cmd.Flags().GetBool("fail-fast")
		incremental, _ := cmd.Flags().GetBool("incremental")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		opts := scanner.DefaultOptions()
		opts.Include = include
		opts.Exclude = exclude
		sc, err := scanner.New(opts)
		if err != nil {
			return err
		}
		files, err := sc.Scan(root)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no sources found in %s", root)
		}
		logger.Debug("scanned sources", "root", root, "files", len(files))

		format, err := outputFormat(formatFlag, "")
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		b, err := newBuilder(ctx, format, !noCache)
		if err != nil {
			return err
		}

		var tracker *dirty.Tracker
		if incremental {
			tracker, err = dirty.Open(filepath.Join(root, config.Dir, dirty.DefaultFile))
			if err != nil {
				return err
			}
			keep := make([]string, len(files))
			for i, f := range files {
				keep[i] = f.Path
			}
			if n := tracker.Prune(keep); n > 0 {
				logger.Debug("forgot deleted sources", "count", n)
			}
		}

		var spinner *log.ProgressSpinner
		if !jsonOutput && log.IsTTY(os.Stderr) {
			spinner = log.NewProgressSpinner(os.Stderr, fmt.Sprintf("Building 0/%d", len(files)))
			spinner.Start()
		}
		report, err := b.Batch(ctx, files, pipeline.BatchOptions{
			Workers:  workers,
			FailFast: failFast,
			Tracker:  tracker,
			Progress: func(done, total int, build *pipeline.Build) {
				if spinner != nil {
					spinner.Message(fmt.Sprintf("Building %d/%d", done, total))
				}
				switch {
				case build.Err != nil:
					logger.Debug("build failed", "source", build.Source, "error", build.Err)
				case build.Unchanged:
					logger.Debug("unchanged", "source", build.Source, "output", build.Output)
				default:
					logger.Debug("built", "source", build.Source, "output", build.Output, "cached", build.Cached)
				}
			},
		})
		if spinner != nil {
			spinner.Stop()
		}
		if report == nil {
			return err
		}
		if b.Cache != nil {
			st := b.Cache.Stats()
			logger.Debug("artifact cache", "hits", st.Hits, "disk_hits", st.DiskHits, "misses", st.Misses, "hit_rate", st.HitRate())
		}
		if tracker != nil {
			if serr := tracker.Save(); serr != nil {
				logger.Warn("saving incremental state failed", "path", tracker.Path(), "error", serr)
			}
		}

		out := BatchOutput{
			RootDir:   root,
			Files:     len(files),
			Cached:    report.Cached,
			Unchanged: report.Unchanged,
			Failed:    report.Failed,
		}
		for _, build := range report.Builds {
			if build.Err != nil || build.Unchanged {
				continue
			}
			out.Built++
			out.Results = append(out.Results, newBuildOutput(build))
		}
		for _, e := range report.Errors() {
			out.Errors = append(out.Errors, e.Error())
		}

		if jsonOutput {
			if perr := printJSON(out); perr != nil {
				return perr
			}
		} else {
			printBatchOutput(out)
		}

		if err != nil {
			return err
		}
		if out.Failed > 0 {
			return fmt.Errorf("%d of %d sources failed", out.Failed, out.Files)
		}
		return nil
	},
}

func printBatchOutput(out BatchOutput) {
	fmt.Printf("=== Batch: %s ===\n", out.RootDir)
	fmt.Printf("Sources: %d\n", out.Files)
	fmt.Printf("Built: %d (%d from cache)\n", out.Built, out.Cached)
	if out.Unchanged > 0 {
		fmt.Printf("Unchanged: %d\n", out.Unchanged)
	}
	for _, r := range out.Results {
		fmt.Printf("  %s -> %s (%d nodes)\n", r.Source, r.Output, r.Nodes)
	}
	if out.Failed > 0 {
		fmt.Printf("Failed: %d\n", out.Failed)
		for _, e := range out.Errors {
			fmt.Printf("  %s\n", e)
		}
	}
}

func init() {
	batchCmd.Flags().IntP("workers", "w", 0, "Sources built at once (default from config)")
	batchCmd.Flags().StringSlice("include", nil, "Glob a source must match (repeatable, default from config)")
	batchCmd.Flags().StringSlice("exclude", nil, "Glob that drops a source (repeatable)")
	batchCmd.Flags().String("format", "", "Artifact format: npz or msgpack (default from config)")
	batchCmd.Flags().Bool("no-cache", false, "Do not read or write the artifact cache")
	batchCmd.Flags().Bool("fail-fast", false, "Stop at the first failing source")
	batchCmd.Flags().Bool("incremental", false, "Skip sources unchanged since their last build")
	batchCmd.Flags().BoolP("json", "j", false, "Output as JSON")

	RootCmd.AddCommand(batchCmd)
}
