package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var analyzeTimeout time.Duration

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Report which collector would handle a URL, without collecting",
	Long: `Analyze runs platform detection only: every registered collector
estimates its confidence for the URL and the selection outcome is
reported. No verification probes or collection requests are made
beyond what confidence estimation itself needs.

Useful for diagnosing platform coverage and tuning detection.

Example:
  hindsite analyze https://example.substack.com`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 30*time.Second, "analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	cfg := loadConfig()
	cfg.Output.Verbose = verbose

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	report := orch.AnalyzeOnly(ctx, url)

	fmt.Printf("URL: %s\n\n", report.URL)
	fmt.Printf("%-14s %-12s %s\n", "AGENT", "CONFIDENCE", "CAN HANDLE")
	for _, a := range report.AnalysisResults.AgentsAnalyzed {
		fmt.Printf("%-14s %-12.2f %v\n", a.Name, a.Confidence, a.CanHandle)
	}

	fmt.Printf("\nRecommendation: %s\n", report.Recommendation)
	if report.NeedsSpecializedAgent {
		fmt.Println("A specialized collector for this platform would improve coverage.")
	}

	return nil
}
