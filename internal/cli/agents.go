package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// agentsCmd represents the agents command
var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List registered platform collectors",
	Long: `Display every registered collector with its platform, detection
patterns, and base confidence. Collectors are listed in selection
order: specialists first, the Universal fallback last.`,
	RunE: runAgents,
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	for _, info := range orch.ListAgents() {
		fmt.Printf("%s (%s)\n", info.Name, info.Indicators.Platform)
		fmt.Printf("  %s\n", info.Description)
		if len(info.Indicators.URLPatterns) > 0 {
			fmt.Printf("  URL patterns:  %s\n", strings.Join(info.Indicators.URLPatterns, ", "))
		}
		if len(info.Indicators.APIEndpoints) > 0 {
			fmt.Printf("  API endpoints: %s\n", strings.Join(info.Indicators.APIEndpoints, ", "))
		}
		fmt.Printf("  Base confidence: %.2f\n\n", info.Indicators.BaseConfidence)
	}

	return nil
}
