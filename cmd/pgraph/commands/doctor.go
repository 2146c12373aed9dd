package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-program-graph/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration, tool and vocabulary",
	Long: `Checks the configuration and verifies that the front end binary can be
found, the vocabulary loads and the cache directory is writable.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{configOptional: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := healthcheck.Check(cmd.Context(), cfg, configPath, configPath)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(result)

		if !result.Healthy() {
			return fmt.Errorf("health check failed: one or more components are not usable")
		}
		return nil
	},
}

func displayDoctorResult(result *healthcheck.HealthCheckResult) {
	if result.EffectivePath != "" {
		fmt.Printf("Using config: %s (%s)\n\n", result.EffectivePath, result.EffectiveScope)
	} else {
		fmt.Print("Using config: defaults (run 'pgraph init' to create one)\n\n")
	}

	for _, c := range result.Components() {
		fmt.Printf("%s:\n", c.Name)
		if c.Detail != "" {
			fmt.Printf("  Detail: %s\n", c.Detail)
		}
		printComponentStatus(c.Status, c.Error)
	}
}

func printComponentStatus(status string, errMsg string) {
	icon := formatStatusIcon(status)
	fmt.Printf("  Status: %s %s\n", icon, status)
	if errMsg != "" && status == healthcheck.StatusError {
		fmt.Printf("  Error: %s\n", errMsg)
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case healthcheck.StatusReady:
		return "✓"
	case healthcheck.StatusDisabled:
		return "-"
	case healthcheck.StatusError:
		return "✗"
	default:
		return "?"
	}
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
