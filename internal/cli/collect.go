package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okhval/hindsite/internal/model"
)

var (
	outJSON     string
	timeout     time.Duration
	userAgent   string
	maxBytes    int64
	maxPages    int
	noCache     bool
	noRobots    bool
	insecureTLS bool
	showAll     bool
	llmEnabled  bool
	llmModel    string
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect <url>",
	Short: "Collect the historical article archive behind a URL",
	Long: `Collect detects the publishing platform behind a URL, picks the best
collector for it, and harvests the complete posting history through
feeds, sitemaps, content APIs, and paginated archive pages.

Example:
  hindsite collect https://example.ghost.io
  hindsite collect https://stratechery.com --json articles.json
  hindsite collect https://someblog.example.com --llm --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	// Output flags
	collectCmd.Flags().StringVar(&outJSON, "json", "", "write the full result as JSON to this path")
	collectCmd.Flags().BoolVar(&showAll, "all", false, "list every collected article, not just the newest 20")

	// HTTP flags
	collectCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "overall collection timeout")
	collectCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent override")
	collectCmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "max response bytes to read (0 = configured default)")
	collectCmd.Flags().IntVar(&maxPages, "max-pages", 0, "pagination page cap (0 = configured default)")
	collectCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetches)")
	collectCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip robots.txt checks for crawl-style methods")
	collectCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification")

	// LLM flags
	collectCmd.Flags().BoolVar(&llmEnabled, "llm", false, "ask an LLM for a platform hint when no agent recognizes the URL")
	collectCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// applyFlags overlays command-line flags on the loaded configuration.
func applyFlags(cfg *model.Config) {
	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	if maxBytes > 0 {
		cfg.HTTP.MaxBodyBytes = maxBytes
	}
	if maxPages > 0 {
		cfg.Collection.MaxPages = maxPages
	}
	cfg.HTTP.InsecureTLS = insecureTLS
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noRobots {
		cfg.Robots.Respect = false
	}
	cfg.Output.Verbose = verbose

	if llmEnabled {
		cfg.LLM.Provider = "openai"
		if llmModel != "" {
			cfg.LLM.Model = llmModel
		}
	}
}

func runCollect(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg := loadConfig()
	applyFlags(cfg)

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Collecting: %s\n", url)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n\n", timeout)
	}

	result := orch.Collect(ctx, url)

	printResult(result)

	if outJSON != "" {
		if err := writeResultJSON(result, outJSON); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		fmt.Printf("\n✓ Wrote JSON: %s\n", outJSON)
	}

	if !result.Success {
		return fmt.Errorf("collection found no articles (agent: %s)", result.AgentUsed)
	}
	return nil
}

func printResult(result *model.OrchestrationResult) {
	fmt.Printf("Agent:      %s\n", result.AgentUsed)
	if result.AnalysisResults != nil {
		fmt.Printf("Selection:  %s\n", result.AnalysisResults.SelectionReason)
	}
	if result.Metadata != nil {
		fmt.Printf("Platform:   %s\n", result.Metadata.PlatformDetected)
		fmt.Printf("Methods:    %v\n", result.Metadata.MethodsUsed)
		fmt.Printf("Duration:   %dms\n", result.Metadata.TotalTimeMs)
	}
	fmt.Printf("Articles:   %d\n", result.ArticlesFound)

	if len(result.Errors) > 0 && verbose {
		fmt.Printf("\nNon-fatal errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	if result.NeedsAttention != nil {
		fmt.Printf("\n⚠ Needs attention: %s\n", result.NeedsAttention.Reason)
		fmt.Printf("  Analysis: %s\n", result.NeedsAttention.PlatformAnalysis)
		for _, s := range result.NeedsAttention.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}

	limit := 20
	if showAll || len(result.Articles) < limit {
		limit = len(result.Articles)
	}
	if limit > 0 {
		fmt.Println()
	}
	for _, article := range result.Articles[:limit] {
		fmt.Printf("%s  %s\n", article.PublishedDate.Format("2006-01-02"), article.Title)
		fmt.Printf("            %s\n", article.URL)
	}
	if limit < len(result.Articles) {
		fmt.Printf("… and %d more (use --all or --json)\n", len(result.Articles)-limit)
	}
}

func writeResultJSON(result *model.OrchestrationResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
