package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/l3aro/go-program-graph/pkg/artifact"
	"github.com/l3aro/go-program-graph/pkg/encode"
	"github.com/l3aro/go-program-graph/pkg/graph"
	"github.com/l3aro/go-program-graph/pkg/pipeline"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <facts|-> [-o output] [--format npz|msgpack] [--json]",
	Short: "Encode a saved fact stream",
	Long: `Reads a fact stream from a file, a URL or stdin ("-") and writes its
artifact, without running the front end.

With --graph the input is an intermediate JSON graph, as printed by
"pgraph graph", and is encoded as is.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		location := args[0]
		output, _ := cmd.Flags().GetString("output")
		formatFlag, _ := cmd.Flags().GetString("format")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		fromGraph, _ := cmd.Flags().GetBool("graph")

		format, err := outputFormat(formatFlag, output)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		opts, err := pipelineOptions(ctx)
		if err != nil {
			return err
		}
		build := &pipeline.Build{Source: location}
		if fromGraph {
			g, err := readGraph(ctx, location, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if build.Artifact, err = encode.NewEncoder(opts.Vocab, opts.Encode).Encode(g); err != nil {
				return err
			}
		} else {
			stream, err := pipeline.ReadFacts(ctx, location, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if build.Result, err = pipeline.RunStream(stream, opts); err != nil {
				return err
			}
			build.Artifact = build.Result.Artifact
		}

		if output == "" {
			name := location
			if name == "-" {
				name = "stdin"
			}
			output = artifact.OutputPath(cfg.Output.Dir, name, format)
		}
		if err := artifact.NewStore(format).Save(ctx, output, build.Artifact); err != nil {
			return err
		}
		build.Output = output

		out := newBuildOutput(build)
		if jsonOutput {
			return printJSON(out)
		}
		printBuildOutput(out)
		return nil
	},
}

func init() {
	encodeCmd.Flags().StringP("output", "o", "", "Artifact path or URL")
	encodeCmd.Flags().String("format", "", "Artifact format: npz or msgpack (default from output extension or config)")
	encodeCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	encodeCmd.Flags().Bool("graph", false, "Input is a JSON graph instead of a fact stream")

	RootCmd.AddCommand(encodeCmd)
}

// readGraph reads an intermediate JSON graph from a path, a URL or stdin ("-").
func readGraph(ctx context.Context, location string, stdin io.Reader) (*graph.Graph, error) {
	if location == "-" {
		return graph.Decode(stdin)
	}
	data, err := afs.New().DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("reading graph %s: %w", location, err)
	}
	return graph.Decode(bytes.NewReader(data))
}
