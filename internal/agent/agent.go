package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okhval/hindsite/internal/feed"
	"github.com/okhval/hindsite/internal/fetch"
	"github.com/okhval/hindsite/internal/model"
	"github.com/okhval/hindsite/internal/util"
)

// Agent is the platform collector contract. EstimateConfidence is
// cheap (URL heuristics, at most one probe fetch); Verify is a deeper
// network-bound confirmation; Collect runs the platform's full
// historical-archive strategy. Verify and Collect never panic through
// to callers: internal failures become a false verdict or entries in
// the result's Errors list.
type Agent interface {
	Name() string
	EstimateConfidence(ctx context.Context, url string) float64
	Verify(ctx context.Context, url string) bool
	Collect(ctx context.Context, url string) *model.AgentResult
	PlatformIndicators() model.PlatformIndicators
}

// ContentFetcher is the fetch capability agents consume. Satisfied by
// *fetch.Fetcher; tests substitute fakes.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
	FetchWithRetry(ctx context.Context, url string) (*fetch.Result, error)
}

// Deps are the collaborators injected into every agent.
type Deps struct {
	Fetcher ContentFetcher
	Feeds   *feed.Parser
	Robots  *util.RobotsChecker
	Config  *model.Config
}

func (d Deps) withDefaults() Deps {
	if d.Feeds == nil {
		d.Feeds = feed.NewParser()
	}
	if d.Config == nil {
		d.Config = model.DefaultConfig()
	}
	return d
}

// base carries the shared building blocks each platform agent composes
// its methods from.
type base struct {
	deps Deps
}

func newBase(deps Deps) base {
	return base{deps: deps.withDefaults()}
}

func (b *base) cfg() *model.Config {
	return b.deps.Config
}

// policy returns the configured bounded-pagination policy.
func (b *base) policy() PaginationPolicy {
	c := b.cfg()
	return PaginationPolicy{
		MaxPages:      c.Collection.MaxPages,
		EmptyRunLimit: c.Collection.EmptyPageCooldown,
		Delay:         c.RateLimit.PolitenessDelay,
	}
}

// fetchText fetches a document with the per-feed timeout applied, so a
// single unresponsive page fails fast instead of stalling the method
// loop.
func (b *base) fetchText(ctx context.Context, url string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, b.cfg().Collection.FeedTimeout)
	defer cancel()

	result, err := b.deps.Fetcher.Fetch(fetchCtx, url)
	if err != nil {
		return "", err
	}
	return result.Body, nil
}

// allowedByRobots gates crawl-style methods. Feed and API endpoints
// are fetched regardless.
func (b *base) allowedByRobots(ctx context.Context, url string) bool {
	if b.deps.Robots == nil || !b.cfg().Robots.Respect {
		return true
	}
	return b.deps.Robots.IsAllowed(ctx, url)
}

// feedArticles fetches and parses one feed URL into articles.
func (b *base) feedArticles(ctx context.Context, feedURL, sourceURL string) ([]model.HistoricalArticle, error) {
	body, err := b.fetchText(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	items := b.deps.Feeds.Parse(body)
	return b.articlesFromItems(items, sourceURL), nil
}

// articlesFromItems converts feed items to articles, applying the
// fallback chain: missing dates default to now, missing authors fall
// back to the source hostname.
func (b *base) articlesFromItems(items []feed.Item, sourceURL string) []model.HistoricalArticle {
	host := HostOf(sourceURL)
	articles := make([]model.HistoricalArticle, 0, len(items))

	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		link := ResolveURL(sourceURL, item.Link)
		if link == "" {
			continue
		}
		if title == "" {
			title = TitleFromSlug(link)
		}
		if title == "" {
			continue
		}

		published := item.Published
		if published.IsZero() {
			published = time.Now()
		}

		author := item.Author
		if author == "" {
			author = host
		}

		articles = append(articles, model.HistoricalArticle{
			Title:         title,
			URL:           link,
			PublishedDate: published,
			Description:   Truncate(StripHTML(item.Description), 500),
			Author:        author,
		})
	}

	return articles
}

// firstFeedArticles tries candidate feed paths in order and returns
// the first non-empty harvest.
func (b *base) firstFeedArticles(ctx context.Context, sourceURL string, paths []string) ([]model.HistoricalArticle, error) {
	origin := Origin(sourceURL)
	if origin == "" {
		return nil, fmt.Errorf("no origin in %q", sourceURL)
	}

	var lastErr error
	for _, path := range paths {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		feedURL := path
		if strings.HasPrefix(path, "/") {
			feedURL = origin + path
		}

		articles, err := b.feedArticles(ctx, feedURL, sourceURL)
		if err != nil {
			lastErr = err
			continue
		}
		if len(articles) > 0 {
			return articles, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("no feed yielded articles: %w", lastErr)
	}
	return nil, nil
}

// pagedScrape walks successive listing pages under the pagination
// policy, extracting articles from each. Crawl-style, so robots-gated
// per page.
func (b *base) pagedScrape(ctx context.Context, pageURL func(page int) string, extract func(body, baseURL string) []model.HistoricalArticle) ([]model.HistoricalArticle, []string) {
	var articles []model.HistoricalArticle

	errs := b.policy().Run(ctx, func(page int) (int, error) {
		target := pageURL(page)
		if !b.allowedByRobots(ctx, target) {
			return 0, ErrPaginationDone
		}

		body, err := b.fetchText(ctx, target)
		if err != nil {
			return 0, err
		}

		found := extract(body, target)
		articles = append(articles, found...)
		return len(found), nil
	})

	return articles, errs
}

// collection accumulates the output of a collector's method loop. Each
// method's failure is caught and recorded; the loop always continues.
type collection struct {
	strategy string
	start    time.Time
	articles []model.HistoricalArticle
	methods  []string
	errors   []string
}

func newCollection(strategy string) *collection {
	return &collection{
		strategy: strategy,
		start:    time.Now(),
	}
}

// run executes one acquisition method, recovering panics and recording
// failures as non-fatal errors.
func (c *collection) run(method string, fn func() ([]model.HistoricalArticle, error)) {
	defer func() {
		if r := recover(); r != nil {
			c.errors = append(c.errors, fmt.Sprintf("%s: panic: %v", method, r))
		}
	}()

	articles, err := fn()
	if err != nil {
		c.errors = append(c.errors, fmt.Sprintf("%s: %v", method, err))
		return
	}

	if len(articles) > 0 {
		c.articles = append(c.articles, articles...)
		c.methods = append(c.methods, method)
	}
}

// addErrors records method-internal sub-errors (e.g. individual page
// failures inside a pagination loop).
func (c *collection) addErrors(method string, errs []string) {
	for _, e := range errs {
		c.errors = append(c.errors, fmt.Sprintf("%s: %s", method, e))
	}
}

// count returns the current pooled article count (pre-dedup).
func (c *collection) count() int {
	return len(c.articles)
}

// result deduplicates by URL, sorts by descending publish date, and
// freezes the AgentResult.
func (c *collection) result(confidence float64, platform string) *model.AgentResult {
	articles := DedupAndSort(c.articles)

	return &model.AgentResult{
		Success:       len(articles) > 0,
		Articles:      articles,
		ArticlesFound: len(articles),
		Strategy:      c.strategy,
		Confidence:    confidence,
		Errors:        c.errors,
		Metadata: &model.ResultMetadata{
			PlatformDetected: platform,
			MethodsUsed:      c.methods,
			TotalTimeMs:      time.Since(c.start).Milliseconds(),
		},
	}
}
