package agent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/okhval/hindsite/internal/fetch"
	"github.com/okhval/hindsite/internal/model"
)

const universalAgentName = "Universal"

// UniversalAgent is the platform-agnostic fallback. It carries no
// platform knowledge, only web-wide conventions: feed path guessing,
// feed autodiscovery from the home page, sitemap guessing, and a
// last-resort listing scrape. Its confidence never competes with a
// platform match, which keeps it at the bottom of every selection.
type UniversalAgent struct {
	base
}

// NewUniversalAgent creates the fallback collector.
func NewUniversalAgent(deps Deps) *UniversalAgent {
	return &UniversalAgent{base: newBase(deps)}
}

// Name returns the agent label.
func (a *UniversalAgent) Name() string { return universalAgentName }

// EstimateConfidence is a fixed floor for any plausible web URL. A URL
// that does not even parse as http(s) scores below the handling
// threshold, which routes it to the needs-attention path instead.
func (a *UniversalAgent) EstimateConfidence(_ context.Context, rawURL string) float64 {
	if plausibleWebURL(rawURL) {
		return 0.3
	}
	return 0.05
}

func plausibleWebURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" && strings.Contains(u.Host, ".")
}

// Verify accepts any plausible web URL. The fallback has nothing to
// verify against; collection itself determines whether anything is
// there.
func (a *UniversalAgent) Verify(_ context.Context, rawURL string) bool {
	return plausibleWebURL(rawURL)
}

// universalFeedPaths are the conventional feed locations, ordered from
// most to least common. Category and podcast variants included.
var universalFeedPaths = []string{
	"/feed",
	"/feed/",
	"/rss",
	"/rss/",
	"/feed.xml",
	"/rss.xml",
	"/atom.xml",
	"/index.xml",
	"/feed.atom",
	"/feed.rss",
	"/feeds/posts/default",
	"/blog/feed",
	"/blog/feed/",
	"/blog/rss",
	"/blog/atom.xml",
	"/blog/index.xml",
	"/blog.xml",
	"/news/feed",
	"/news/rss",
	"/articles/feed",
	"/podcast/feed",
	"/podcast.xml",
	"/episodes/feed",
	"/category/blog/feed",
	"/?feed=rss2",
}

// specialCaseFeeds maps hosts whose archive lives at a well-known
// off-site feed. paulgraham.com has no feed of its own; the
// long-running community mirror carries the complete essay list.
var specialCaseFeeds = map[string]string{
	"paulgraham.com": "http://www.aaronsw.com/2002/feeds/pgessays.rss",
}

// universalSitemapPaths are the conventional sitemap locations.
var universalSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/sitemap1.xml",
	"/sitemap-posts.xml",
	"/post-sitemap.xml",
	"/page-sitemap.xml",
	"/wp-sitemap.xml",
	"/blog/sitemap.xml",
	"/sitemaps/sitemap.xml",
	"/sitemap/sitemap.xml",
	"/news-sitemap.xml",
}

// Collect runs the generic strategy chain.
func (a *UniversalAgent) Collect(ctx context.Context, rawURL string) *model.AgentResult {
	c := newCollection(universalAgentName)

	c.run("special-case-feed", func() ([]model.HistoricalArticle, error) {
		feedURL, ok := specialCaseFeeds[HostOf(rawURL)]
		if !ok {
			return nil, nil
		}
		return a.feedArticles(ctx, feedURL, rawURL)
	})

	c.run("feed-guess", func() ([]model.HistoricalArticle, error) {
		articles, errs := a.collectGuessedFeeds(ctx, rawURL)
		c.addErrors("feed-guess", errs)
		return articles, nil
	})

	if c.count() == 0 {
		c.run("feed-discovery", func() ([]model.HistoricalArticle, error) {
			return a.collectDiscoveredFeeds(ctx, rawURL)
		})
	}

	c.run("sitemap-guess", func() ([]model.HistoricalArticle, error) {
		return a.firstSitemapArticles(ctx, rawURL, universalSitemapPaths)
	})

	if c.count() < a.cfg().Collection.MinArticleThreshold {
		c.run("listing-scrape", func() ([]model.HistoricalArticle, error) {
			return a.scrapeListing(ctx, rawURL)
		})
	}

	return c.result(0.3, "unknown")
}

// collectGuessedFeeds probes the conventional feed paths and paginates
// the first hit with a ?page=N guess.
func (a *UniversalAgent) collectGuessedFeeds(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, []string) {
	origin := Origin(sourceURL)
	if origin == "" {
		return nil, []string{fmt.Sprintf("no origin in %q", sourceURL)}
	}

	var workingURL string
	var articles []model.HistoricalArticle

	for _, path := range universalFeedPaths {
		if ctx.Err() != nil {
			return articles, nil
		}

		found, err := a.feedArticles(ctx, origin+path, sourceURL)
		if err != nil || len(found) == 0 {
			continue
		}
		workingURL = origin + path
		articles = found
		break
	}

	if workingURL == "" {
		return nil, nil
	}

	return a.paginateFeed(ctx, workingURL, sourceURL, articles)
}

// collectDiscoveredFeeds parses the home page for alternate-feed link
// tags, the autodiscovery convention.
func (a *UniversalAgent) collectDiscoveredFeeds(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, error) {
	body, err := a.fetchText(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	for _, feedURL := range discoverFeedLinks(body, sourceURL) {
		if ctx.Err() != nil {
			break
		}
		articles, err := a.feedArticles(ctx, feedURL, sourceURL)
		if err != nil {
			continue
		}
		if len(articles) > 0 {
			return articles, nil
		}
	}
	return nil, nil
}

// paginateFeed guesses ?page=N on a working feed URL. Feeds that
// ignore the parameter repeat their content, so an all-duplicate page
// counts as empty and the cooldown ends the walk.
func (a *UniversalAgent) paginateFeed(ctx context.Context, feedURL, sourceURL string, seed []model.HistoricalArticle) ([]model.HistoricalArticle, []string) {
	articles := seed
	seen := make(map[string]bool, len(seed))
	for _, art := range seed {
		seen[CanonicalURL(art.URL)] = true
	}

	sep := "?"
	if strings.Contains(feedURL, "?") {
		sep = "&"
	}

	errs := a.policy().Run(ctx, func(page int) (int, error) {
		if page == 1 {
			return len(seed), nil
		}

		found, err := a.feedArticles(ctx, fmt.Sprintf("%s%spage=%d", feedURL, sep, page), sourceURL)
		if err != nil {
			var statusErr *fetch.StatusError
			if errors.As(err, &statusErr) {
				return 0, ErrPaginationDone
			}
			return 0, err
		}

		fresh := 0
		for _, art := range found {
			key := CanonicalURL(art.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			articles = append(articles, art)
			fresh++
		}
		return fresh, nil
	})

	return articles, errs
}

// scrapeListing pulls the page itself and harvests article-shaped
// anchors. Only reached when the structured routes came up short.
func (a *UniversalAgent) scrapeListing(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, error) {
	if !a.allowedByRobots(ctx, sourceURL) {
		return nil, fmt.Errorf("disallowed by robots.txt: %s", sourceURL)
	}

	body, err := a.fetchText(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return extractArticleAnchors(body, sourceURL), nil
}

// PlatformIndicators describes the fallback surface.
func (a *UniversalAgent) PlatformIndicators() model.PlatformIndicators {
	return model.PlatformIndicators{
		Platform:          "unknown",
		Description:       "Generic collector using feed conventions, autodiscovery, and sitemap guessing",
		URLPatterns:       []string{"http://", "https://"},
		ContentSignatures: nil,
		BaseConfidence:    0.3,
	}
}
