package commands

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-program-graph/pkg/dfg"
	"github.com/l3aro/go-program-graph/pkg/pdg"
	"github.com/l3aro/go-program-graph/pkg/pipeline"
)

// loadProgram reads a fact stream and builds its analyzed program graph.
func loadProgram(ctx context.Context, location string, stdin io.Reader) (*pdg.Program, error) {
	stream, err := pipeline.ReadFacts(ctx, location, stdin)
	if err != nil {
		return nil, err
	}
	if len(stream.Dropped) > 0 {
		logger.Debug("dropped fact lines with unknown tags", "count", len(stream.Dropped))
	}
	return pipeline.BuildProgram(stream, dfg.Options{
		MaxPasses: cfg.Analysis.MaxPasses,
		Merge:     dfg.MergeMode(cfg.Analysis.Merge),
	})
}

var graphCmd = &cobra.Command{
	Use:   "graph <facts|-> [--compact] [--raw]",
	Short: "Print the intermediate JSON graph of a fact stream",
	Long: `Prints the program graph as JSON: {"tokens", "AST", "CFG", "DFG"}, keys in
the order they were first seen. DFG includes the def-use edges found by
reaching definitions unless --raw is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		compact, _ := cmd.Flags().GetBool("compact")
		raw, _ := cmd.Flags().GetBool("raw")

		ctx := cmd.Context()
		if raw {
			stream, err := pipeline.ReadFacts(ctx, args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			b := pdg.NewBuilder()
			b.AddAll(stream.Records)
			return b.Graph().WriteJSON(os.Stdout, !compact)
		}

		prog, err := loadProgram(ctx, args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		return prog.Graph.WriteJSON(os.Stdout, !compact)
	},
}

func init() {
	graphCmd.Flags().Bool("compact", false, "Print without indentation")
	graphCmd.Flags().Bool("raw", false, "Print the graph as read, before reaching definitions")

	RootCmd.AddCommand(graphCmd)
}
