// Package commands provides the CLI commands for pgraph.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-program-graph/internal/config"
	"github.com/l3aro/go-program-graph/internal/log"
	"github.com/l3aro/go-program-graph/internal/tool"
	"github.com/l3aro/go-program-graph/pkg/artifact"
	"github.com/l3aro/go-program-graph/pkg/cache"
	"github.com/l3aro/go-program-graph/pkg/dfg"
	"github.com/l3aro/go-program-graph/pkg/encode"
	"github.com/l3aro/go-program-graph/pkg/pipeline"
	"github.com/l3aro/go-program-graph/pkg/vocab"
)

// configOptional marks commands that still run when the config cannot be loaded.
const configOptional = "config-optional"

var (
	cfg        *config.Config
	configPath string // config file in effect, empty when only defaults apply
	logger     = log.Default()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "pgraph",
	Short: "pgraph - program graphs and GNN artifacts from C sources",
	Long: `pgraph builds program graphs (syntax tree, control flow and data flow)
from the fact stream of a C front end, computes reaching definitions and
encodes the result as a numeric artifact for graph neural networks.

Commands:
  build       Run the front end on a source file and write its artifact
  encode      Encode a saved fact stream
  graph       Print the intermediate JSON graph of a fact stream
  reach       Print reaching definitions per statement
  slice       Backward or forward dependence slice from a node
  batch       Build artifacts for every source below a directory
  vocab       Show the token vocabulary
  doctor      Check the tool, vocabulary and cache
  init        Create a configuration file interactively

Use "pgraph [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		logger.Error("command failed", "error", err)
	}
	return err
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file (default: ./.pgraph/config.yaml, then ~/.pgraph/config.yaml)")
	RootCmd.PersistentFlags().Bool("verbose", false, "Log pipeline stages at debug level")
	RootCmd.PersistentFlags().Bool("json-log", false, "Log as JSON")
}

func setup(cmd *cobra.Command) error {
	explicit, _ := cmd.Flags().GetString("config")

	var err error
	cfg, configPath, err = loadConfig(explicit)
	if err != nil {
		if cmd.Annotations[configOptional] == "" {
			return err
		}
		cfg = config.DefaultConfig()
		logger.Warn("using default config", "error", err)
	}

	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Verbose = true
	}
	if v, _ := cmd.Flags().GetBool("json-log"); v {
		cfg.JSONLog = true
	}

	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	logger = log.New(log.LoggerConfig{
		Level:      level,
		JSONOutput: cfg.JSONLog,
		Output:     os.Stderr,
		Colors:     log.IsTTY(os.Stderr),
	})
	if configPath != "" {
		logger.Debug("loaded config", "path", configPath)
	}
	return nil
}

// loadConfig loads the explicit file when given, the merged global and
// project config otherwise. It also reports which file is in effect.
func loadConfig(explicit string) (*config.Config, string, error) {
	if explicit != "" {
		c, err := config.LoadFromFile(explicit)
		if err != nil {
			return nil, "", err
		}
		return c, explicit, nil
	}

	c, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return c, effectiveConfigPath(), nil
}

func effectiveConfigPath() string {
	for _, p := range []string{config.ProjectConfigPath(), config.GlobalConfigPath()} {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// pipelineOptions turns the loaded config into pipeline options.
func pipelineOptions(ctx context.Context) (pipeline.Options, error) {
	v, err := vocab.Load(ctx, cfg.Vocabulary)
	if err != nil {
		return pipeline.Options{}, err
	}
	logger.Debug("loaded vocabulary", "source", v.Source(), "width", v.Width())

	return pipeline.Options{
		Analysis: dfg.Options{
			MaxPasses: cfg.Analysis.MaxPasses,
			Merge:     dfg.MergeMode(cfg.Analysis.Merge),
		},
		Encode: encode.Options{Reverse: cfg.Encoding.ReverseEdges},
		Vocab:  v,
		Logger: logger,
	}, nil
}

// newBuilder wires the tool, cache and store of the config into a pipeline.Builder.
func newBuilder(ctx context.Context, format artifact.Format, useCache bool) (*pipeline.Builder, error) {
	opts, err := pipelineOptions(ctx)
	if err != nil {
		return nil, err
	}

	b := &pipeline.Builder{
		Tool: &tool.Runner{
			Path:    cfg.Tool.Path,
			Args:    cfg.Tool.Args,
			Timeout: cfg.Tool.Timeout,
		},
		Options:   opts,
		Store:     artifact.NewStore(format),
		OutputDir: cfg.Output.Dir,
		ToolID:    strings.TrimSpace(cfg.Tool.Path + " " + strings.Join(cfg.Tool.Args, " ")),
	}
	if useCache && cfg.Cache.Enabled {
		c, err := cache.New(cache.Options{Size: cfg.Cache.Size, Dir: cfg.Cache.Dir})
		if err != nil {
			return nil, err
		}
		b.Cache = c
	}
	return b, nil
}

// outputFormat picks the artifact format: the flag, then the output
// extension, then the config.
func outputFormat(flag, output string) (artifact.Format, error) {
	format := artifact.Format(flag)
	switch {
	case flag != "":
	case output != "":
		format = artifact.FormatFromPath(output)
	default:
		format = artifact.Format(cfg.Output.Format)
	}
	if !format.Valid() {
		return "", fmt.Errorf("unknown artifact format %q (use 'npz' or 'msgpack')", format)
	}
	return format, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
