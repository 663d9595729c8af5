package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/okhval/hindsite/internal/model"
)

// Collector runs one orchestrated collection. Satisfied by
// *orchestrator.Orchestrator.
type Collector interface {
	Collect(ctx context.Context, url string) *model.OrchestrationResult
}

// CollectJob is one source URL queued for batch collection.
type CollectJob struct {
	URL       string
	Collector Collector
}

// Execute runs the collection. The orchestrator contract guarantees a
// result, so the only job-level error is cancellation.
func (j *CollectJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &CollectOutcome{URL: j.URL, Error: err}
	}
	return &CollectOutcome{
		URL:    j.URL,
		Result: j.Collector.Collect(ctx, j.URL),
	}
}

// CollectOutcome pairs a source URL with its orchestration result.
type CollectOutcome struct {
	URL    string
	Result *model.OrchestrationResult
	Error  error
}

// GetError returns the job-level error, if any.
func (o *CollectOutcome) GetError() error {
	return o.Error
}

// BatchProcessor collects multiple source URLs concurrently on a
// worker pool. One outcome is returned per input URL.
type BatchProcessor struct {
	collector   Collector
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(collector Collector, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		collector:   collector,
		concurrency: concurrency,
	}
}

// ProcessURLs collects every URL and returns outcomes in completion
// order.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*CollectOutcome {
	if len(urls) == 0 {
		return []*CollectOutcome{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, url := range urls {
		pool.Submit(&CollectJob{URL: url, Collector: b.collector})
	}

	results := pool.Wait()

	outcomes := make([]*CollectOutcome, 0, len(results))
	for _, result := range results {
		outcomes = append(outcomes, result.(*CollectOutcome))
	}
	return outcomes
}

// ProcessFile reads URLs from a file (one per line) and collects them.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CollectOutcome, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}
	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads one URL per line, skipping blanks, comments,
// and duplicates.
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
