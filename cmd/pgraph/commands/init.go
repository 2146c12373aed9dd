package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-program-graph/internal/config"
	"github.com/l3aro/go-program-graph/internal/healthcheck"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize pgraph configuration interactively",
	Long: `Guides you through setting up pgraph configuration step by step.
Creates a config file with the front end tool, vocabulary, analysis and
output settings, then runs a health check against it.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{configOptional: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd)
	},
}

func runInit(cmd *cobra.Command) error {
	// Start from whatever is in effect so re-running init edits it.
	newCfg := *cfg

	// === SECTION 1: Front end ===
	toolArgs := strings.Join(newCfg.Tool.Args, " ")
	timeout := newCfg.Tool.Timeout.String()
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Front end tool").
				Description("Binary that prints the fact stream of a C file").
				Placeholder(newCfg.Tool.Path).
				Value(&newCfg.Tool.Path).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("tool path is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Tool arguments (optional, press Enter to skip)").
				Description("Passed before the source file").
				Value(&toolArgs),
			huh.NewInput().
				Title("Tool timeout").
				Placeholder("60s").
				Value(&timeout).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	newCfg.Tool.Args = strings.Fields(toolArgs)
	newCfg.Tool.Timeout, _ = time.ParseDuration(timeout)

	// === SECTION 2: Analysis and encoding ===
	maxPasses := strconv.Itoa(newCfg.Analysis.MaxPasses)
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Vocabulary (optional, press Enter for the built-in C table)").
				Description("Path or URL of a JSON, YAML or TOML spelling->index map").
				Value(&newCfg.Vocabulary),
			huh.NewSelect[string]().
				Title("Merge of predecessor definitions").
				Options(
					huh.NewOption("Union of every predecessor", "union"),
					huh.NewOption("First predecessor only (legacy)", "first"),
				).
				Value(&newCfg.Analysis.Merge),
			huh.NewInput().
				Title("Maximum fixpoint passes").
				Description("0 derives the bound from the CFG's loops").
				Value(&maxPasses).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 0 {
						return fmt.Errorf("enter a non-negative number")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Edge pair order").
				Affirmative("(target, source)").
				Negative("(source, target)").
				Value(&newCfg.Encoding.ReverseEdges),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	newCfg.Analysis.MaxPasses, _ = strconv.Atoi(maxPasses)

	// === SECTION 3: Output ===
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Artifact format").
				Options(
					huh.NewOption("NumPy archive (.npz)", "npz"),
					huh.NewOption("MessagePack (.msgpack)", "msgpack"),
				).
				Value(&newCfg.Output.Format),
			huh.NewInput().
				Title("Output directory").
				Description("Local path or storage URL").
				Placeholder(".").
				Value(&newCfg.Output.Dir),
			huh.NewConfirm().
				Title("Cache analyzed artifacts?").
				Affirmative("Yes").
				Negative("No").
				Value(&newCfg.Cache.Enabled),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 4: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.pgraph/config.yaml)", "global"),
					huh.NewOption("Project (./.pgraph/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	savePath := config.ProjectConfigPath()
	if saveLocationChoice == "global" {
		savePath = config.GlobalConfigPath()
	}

	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Show config preview
	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", savePath)
	fmt.Printf("Tool: %s %s (timeout %s)\n", newCfg.Tool.Path, strings.Join(newCfg.Tool.Args, " "), newCfg.Tool.Timeout)
	if newCfg.Vocabulary != "" {
		fmt.Printf("Vocabulary: %s\n", newCfg.Vocabulary)
	} else {
		fmt.Println("Vocabulary: built-in")
	}
	fmt.Printf("Analysis: %s merge, max passes %d\n", newCfg.Analysis.Merge, newCfg.Analysis.MaxPasses)
	fmt.Printf("Output: %s in %s\n", newCfg.Output.Format, newCfg.Output.Dir)
	fmt.Printf("Cache: %v\n", newCfg.Cache.Enabled)
	fmt.Println("================================")

	if err := newCfg.Save(savePath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", savePath)

	// === SECTION 5: Health Check ===
	fmt.Println("\n=== Running Health Check ===")

	loadedCfg, err := config.LoadFromFile(savePath)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}

	result, err := healthcheck.Check(cmd.Context(), loadedCfg, savePath, effectiveConfigPath())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Printf("\nConfig Scope: %s\n", result.SavedScope)
	if result.SavedScope == "global" {
		fmt.Printf("Config Path: %s\n", savePath)
	} else {
		absPath, _ := filepath.Abs(savePath)
		fmt.Printf("Config Path: %s\n", absPath)
	}
	if result.EffectivePath != "" && result.EffectivePath != savePath {
		fmt.Printf("Note: %s (%s) takes precedence in this directory\n", result.EffectivePath, result.EffectiveScope)
	}

	for _, c := range result.Components() {
		fmt.Printf("\n%s: %s\n", c.Name, c.Status)
		if c.Detail != "" {
			fmt.Printf("  %s\n", c.Detail)
		}
		if c.Error != "" {
			fmt.Printf("  Error: %s\n", c.Error)
		}
	}

	fmt.Println("\n=== Initialization Complete ===")
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
