package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-program-graph/pkg/pipeline"
)

// BuildOutput represents the output of the build and encode commands
type BuildOutput struct {
	Source  string `json:"source"`
	Output  string `json:"output"`
	Nodes   int    `json:"nodes"`
	Width   int    `json:"width"`
	AST     int    `json:"ast_edges"`
	CFG     int    `json:"cfg_edges"`
	DFG     int    `json:"dfg_edges"`
	Skipped int    `json:"skipped_dfg_edges"`
	Passes  int    `json:"passes,omitempty"`
	DefUse  int    `json:"def_use_edges,omitempty"`
	Cached  bool   `json:"cached"`
	Dropped int    `json:"dropped_lines,omitempty"`
}

func newBuildOutput(b *pipeline.Build) BuildOutput {
	out := BuildOutput{
		Source:  b.Source,
		Output:  b.Output,
		Nodes:   len(b.Artifact.Nodes),
		Width:   b.Artifact.Features.Cols,
		AST:     len(b.Artifact.AST),
		CFG:     len(b.Artifact.CFG),
		DFG:     len(b.Artifact.DFG),
		Skipped: b.Artifact.Skipped,
		Cached:  b.Cached,
	}
	if b.Result != nil {
		out.Passes = b.Result.Program.Solution.Passes
		out.DefUse = len(b.Result.Program.DefUse)
		out.Dropped = len(b.Result.Stream.Dropped)
	}
	return out
}

func printBuildOutput(out BuildOutput) {
	fmt.Printf("Wrote %s\n", out.Output)
	fmt.Printf("  Nodes: %d x %d\n", out.Nodes, out.Width)
	fmt.Printf("  Edges: AST %d, CFG %d, DFG %d", out.AST, out.CFG, out.DFG)
	if out.Skipped > 0 {
		fmt.Printf(" (%d skipped)", out.Skipped)
	}
	fmt.Println()
	switch {
	case out.Cached:
		fmt.Println("  Analysis: cached")
	case out.Passes > 0:
		fmt.Printf("  Analysis: %d passes, %d def-use edges\n", out.Passes, out.DefUse)
	}
}

var buildCmd = &cobra.Command{
	Use:   "build <source> [-o output] [--format npz|msgpack] [--no-cache] [--json]",
	Short: "Build the artifact of a C source file",
	Long: `Runs the configured front end on the source file, builds its program graph,
solves reaching definitions and writes the encoded artifact.

The output defaults to the source's base name inside output.dir. It may be a
local path or any URL the storage layer supports (s3://, gs://, mem://...).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		output, _ := cmd.Flags().GetString("output")
		formatFlag, _ := cmd.Flags().GetString("format")
		noCache, _ := cmd.Flags().GetBool("no-cache")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		format, err := outputFormat(formatFlag, output)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		b, err := newBuilder(ctx, format, !noCache)
		if err != nil {
			return err
		}

		build, err := b.Save(ctx, source, output)
		if err != nil {
			return err
		}

		out := newBuildOutput(build)
		if jsonOutput {
			return printJSON(out)
		}
		printBuildOutput(out)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "Artifact path or URL")
	buildCmd.Flags().String("format", "", "Artifact format: npz or msgpack (default from output extension or config)")
	buildCmd.Flags().Bool("no-cache", false, "Do not read or write the artifact cache")
	buildCmd.Flags().BoolP("json", "j", false, "Output as JSON")

	RootCmd.AddCommand(buildCmd)
}
