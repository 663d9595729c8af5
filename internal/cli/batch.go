package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okhval/hindsite/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Collect archives for multiple URLs from a file in parallel",
	Long: `Batch reads source URLs from a file (one per line, # comments
allowed) and collects each archive concurrently. One JSON result file
is written per URL.

Example:
  hindsite batch blogs.txt
  hindsite batch blogs.txt --concurrency 8 --output-dir ./archives`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of concurrent collections")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./hindsite-archives", "output directory for result JSON files")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the whole batch")

	batchCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent override")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetches)")
	batchCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip robots.txt checks for crawl-style methods")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg := loadConfig()
	applyFlags(cfg)
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Reading URLs from %s...\n", file)

	processor := worker.NewBatchProcessor(orch, cfg.Concurrency.Workers)
	outcomes, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Processed %d URLs with %d workers\n\n", len(outcomes), cfg.Concurrency.Workers)

	successCount := 0
	failureCount := 0

	for _, outcome := range outcomes {
		if outcome.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", outcome.URL, outcome.Error)
			continue
		}

		result := outcome.Result
		jsonPath := filepath.Join(outputDir, resultFilename(outcome.URL))
		if err := writeResultJSON(result, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: write JSON: %v\n", outcome.URL, err)
			continue
		}

		if result.Success {
			successCount++
			fmt.Fprintf(os.Stderr, "✓ %s: %d articles via %s\n", outcome.URL, result.ArticlesFound, result.AgentUsed)
		} else {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: no articles (agent: %s)\n", outcome.URL, result.AgentUsed)
		}
	}

	fmt.Fprintf(os.Stderr, "\nTotal: %d  Success: %d  Failures: %d  Output: %s\n",
		len(outcomes), successCount, failureCount, outputDir)

	return nil
}

// resultFilename derives a stable, filesystem-safe name from a source
// URL.
func resultFilename(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		name = u.Host + strings.ReplaceAll(u.Path, "/", "_")
	}

	replacer := strings.NewReplacer(
		"://", "_", "/", "_", ":", "_", "?", "_", "&", "_", "=", "_", " ", "-",
	)
	name = strings.Trim(replacer.Replace(name), "_-")

	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		name = "result"
	}
	return name + ".json"
}
