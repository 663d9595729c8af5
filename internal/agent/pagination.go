package agent

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPaginationDone is returned by a page callback to stop the loop
// cleanly (API signalled exhaustion, e.g. a short page or HTTP 400).
var ErrPaginationDone = errors.New("pagination exhausted")

// paginationSleepFunc is the inter-page politeness sleep (injectable
// for tests).
var paginationSleepFunc = func(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// PaginationPolicy is the shared bounded-retry policy for
// pagination-by-guessing: platforms without a documented pagination
// API get common page parameters appended until a run of consecutive
// empty pages or a hard page cap stops the loop. The inter-page delay
// keeps collection under anti-scraping thresholds and must stay on.
type PaginationPolicy struct {
	MaxPages      int
	EmptyRunLimit int
	Delay         time.Duration
}

// Run invokes fetchPage for pages 1..MaxPages. fetchPage reports how
// many articles the page yielded; errors are recorded and count as
// empty pages. Returns the per-page error strings.
func (p PaginationPolicy) Run(ctx context.Context, fetchPage func(page int) (int, error)) []string {
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	emptyLimit := p.EmptyRunLimit
	if emptyLimit <= 0 {
		emptyLimit = 3
	}

	var errs []string
	emptyRun := 0

	for page := 1; page <= maxPages; page++ {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Sprintf("page %d: %v", page, ctx.Err()))
			break
		}

		if page > 1 {
			paginationSleepFunc(ctx, p.Delay)
		}

		found, err := fetchPage(page)
		if errors.Is(err, ErrPaginationDone) {
			break
		}

		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("page %d: %v", page, err))
			emptyRun++
		case found == 0:
			emptyRun++
		default:
			emptyRun = 0
		}

		if emptyRun >= emptyLimit {
			break
		}
	}

	return errs
}
