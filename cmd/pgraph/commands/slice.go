package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-program-graph/pkg/graph"
	"github.com/l3aro/go-program-graph/pkg/pdg"
)

var sliceCmd = &cobra.Command{
	Use:   "slice <facts|-> <pointer> [--backward|--forward] [--var NAME] [--json]",
	Short: "Perform backward or forward slice analysis from a node",
	Long: `Perform slice analysis on a program graph to find data and control dependencies.

Backward slice: Find all nodes that may affect the value at the target node.
Forward slice: Find all nodes that may be affected by the value at the source node.

Control dependencies follow CFG edges; data dependencies follow DFG facts and
the def-use edges found by reaching definitions.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := graph.Pointer(args[1])

		backward, _ := cmd.Flags().GetBool("backward")
		forward, _ := cmd.Flags().GetBool("forward")
		if backward && forward {
			return fmt.Errorf("--backward and --forward are mutually exclusive")
		}
		// Default to backward if neither specified
		backward = !forward

		variable, _ := cmd.Flags().GetString("var")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		showDeps, _ := cmd.Flags().GetBool("deps")

		prog, err := loadProgram(cmd.Context(), args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		if _, ok := prog.Graph.Tokens.Get(start); !ok {
			return fmt.Errorf("pointer %s not found in %s", start, args[0])
		}

		var nodes []graph.Pointer
		if backward {
			nodes = pdg.BackwardSlice(prog, start, variable)
		} else {
			nodes = pdg.ForwardSlice(prog, start, variable)
		}
		if nodes == nil {
			nodes = []graph.Pointer{}
		}

		direction := "backward"
		if !backward {
			direction = "forward"
		}

		if jsonOutput {
			output := struct {
				Pointer      graph.Pointer       `json:"pointer"`
				Direction    string              `json:"direction"`
				Variable     string              `json:"variable,omitempty"`
				Slice        []graph.Pointer     `json:"slice"`
				Dependencies *pdg.DependencyInfo `json:"dependencies,omitempty"`
			}{
				Pointer:   start,
				Direction: direction,
				Variable:  variable,
				Slice:     nodes,
			}
			if showDeps {
				deps := pdg.GetDependencies(prog, start)
				output.Dependencies = &deps
			}
			return printJSON(output)
		}

		fmt.Printf("=== Slice from %s (%s) ===\n", start, direction)
		if variable != "" {
			fmt.Printf("Variable filter: %s\n", variable)
		}
		fmt.Printf("\nSlice nodes (%d):\n", len(nodes))
		for _, p := range nodes {
			tok, _ := prog.Graph.Tokens.Get(p)
			marker := ""
			if p == start {
				marker = " >>>"
			}
			fmt.Printf("  %s%s %s\n", p, marker, tok)
		}

		if showDeps {
			printDependencies(pdg.GetDependencies(prog, start))
		}
		return nil
	},
}

func printDependencies(info pdg.DependencyInfo) {
	fmt.Println("\nDependencies:")
	for _, group := range []struct {
		name string
		deps []pdg.Dependence
	}{
		{"control in", info.ControlIn},
		{"control out", info.ControlOut},
		{"data in", info.DataIn},
		{"data out", info.DataOut},
	} {
		if len(group.deps) == 0 {
			continue
		}
		fmt.Printf("  %s:\n", group.name)
		for _, d := range group.deps {
			line := fmt.Sprintf("    %s -> %s", d.From, d.To)
			if d.Var != "" {
				line += " (" + d.Var + ")"
			}
			fmt.Println(line)
		}
	}
}

func init() {
	sliceCmd.Flags().BoolP("backward", "b", false, "Backward slice (default)")
	sliceCmd.Flags().BoolP("forward", "f", false, "Forward slice")
	sliceCmd.Flags().StringP("var", "v", "", "Variable name to filter (optional)")
	sliceCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	sliceCmd.Flags().Bool("deps", false, "Also list the direct dependencies of the node")

	RootCmd.AddCommand(sliceCmd)
}
