package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-program-graph/pkg/vocab"
)

// VocabLookup is the index of one spelling.
type VocabLookup struct {
	Spelling string `json:"spelling"`
	Index    int    `json:"index"`
	Known    bool   `json:"known"`
}

// VocabOutput represents the output of the vocab command
type VocabOutput struct {
	Source  string        `json:"source"`
	Entries int           `json:"entries"`
	Width   int           `json:"width"`
	Unknown int           `json:"unknown_index"`
	Lookups []VocabLookup `json:"lookups,omitempty"`
}

var vocabCmd = &cobra.Command{
	Use:   "vocab [spelling...] [--file PATH] [--json]",
	Short: "Show the token vocabulary",
	Long: `Loads the configured vocabulary (or --file) and prints its size and feature
width. Any spellings given are looked up; spellings outside the table map to
the reserved unknown index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		location, _ := cmd.Flags().GetString("file")
		if location == "" {
			location = cfg.Vocabulary
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")

		v, err := vocab.Load(cmd.Context(), location)
		if err != nil {
			return err
		}

		out := VocabOutput{
			Source:  v.Source(),
			Entries: v.Len(),
			Width:   v.Width(),
			Unknown: v.Unknown(),
		}
		for _, s := range args {
			idx, ok := v.Lookup(s)
			if !ok {
				idx = v.Unknown()
			}
			out.Lookups = append(out.Lookups, VocabLookup{Spelling: s, Index: idx, Known: ok})
		}

		if jsonOutput {
			return printJSON(out)
		}

		fmt.Printf("Vocabulary: %s\n", out.Source)
		fmt.Printf("  Entries: %d\n", out.Entries)
		fmt.Printf("  Width: %d (unknown spellings -> %d)\n", out.Width, out.Unknown)
		for _, l := range out.Lookups {
			note := ""
			if !l.Known {
				note = " (unknown)"
			}
			fmt.Printf("  %s -> %d%s\n", l.Spelling, l.Index, note)
		}
		return nil
	},
}

func init() {
	vocabCmd.Flags().String("file", "", "Vocabulary path or URL (default from config)")
	vocabCmd.Flags().BoolP("json", "j", false, "Output as JSON")

	RootCmd.AddCommand(vocabCmd)
}
