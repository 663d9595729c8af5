package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okhval/hindsite/internal/model"
)

const zerohedgeAgentName = "ZeroHedge"

// ZeroHedgeAgent collects headlines from the ZeroHedge financial-news
// portal. The site publishes at a high cadence behind aggressive
// anti-bot infrastructure, so the full-content feed comes first and
// every crawl-style method runs with a longer politeness delay.
type ZeroHedgeAgent struct {
	base
}

// NewZeroHedgeAgent creates the ZeroHedge collector.
func NewZeroHedgeAgent(deps Deps) *ZeroHedgeAgent {
	return &ZeroHedgeAgent{base: newBase(deps)}
}

// Name returns the agent label.
func (a *ZeroHedgeAgent) Name() string { return zerohedgeAgentName }

// EstimateConfidence matches the zerohedge.com host only.
func (a *ZeroHedgeAgent) EstimateConfidence(_ context.Context, url string) float64 {
	host := HostOf(url)
	if host == "zerohedge.com" || strings.HasSuffix(host, ".zerohedge.com") {
		return 0.95
	}
	return 0
}

var zerohedgeSignatures = []string{
	"zerohedge.com",
	"zh-wrapper",
	"fullrss2.xml",
	`content="ZeroHedge`,
	"tyler durden",
}

// Verify requires two signatures or a working full feed.
func (a *ZeroHedgeAgent) Verify(ctx context.Context, url string) bool {
	body, err := a.fetchText(ctx, url)
	if err == nil && countSignatures(strings.ToLower(body), zerohedgeSignatures) >= 2 {
		return true
	}

	probe, err := a.fetchText(ctx, Origin(url)+"/fullrss2.xml")
	if err != nil {
		return false
	}
	return strings.Contains(probe, "<rss") || strings.Contains(probe, "<item")
}

// policy widens the page cap and stretches the delay: news archives
// run deep, and the site throttles fast crawlers hard.
func (a *ZeroHedgeAgent) newsPolicy() PaginationPolicy {
	p := a.policy()
	p.MaxPages *= 2
	if p.Delay < 2*time.Second {
		p.Delay = 2 * time.Second
	}
	return p
}

// Collect runs the ZeroHedge strategy chain.
func (a *ZeroHedgeAgent) Collect(ctx context.Context, url string) *model.AgentResult {
	c := newCollection(zerohedgeAgentName)

	c.run("full-feed", func() ([]model.HistoricalArticle, error) {
		return a.firstFeedArticles(ctx, url, []string{"/fullrss2.xml", "/rss.xml", "/feed"})
	})

	c.run("news-sitemap", func() ([]model.HistoricalArticle, error) {
		return a.firstSitemapArticles(ctx, url, []string{"/sitemap.xml", "/sitemap_index.xml"})
	})

	if c.count() == 0 {
		c.run("listing-scrape", func() ([]model.HistoricalArticle, error) {
			articles, errs := a.scrapeListings(ctx, url)
			c.addErrors("listing-scrape", errs)
			return articles, nil
		})
	}

	return c.result(0.85, "zerohedge")
}

// scrapeListings pages the markets section, the densest listing of
// recent headlines.
func (a *ZeroHedgeAgent) scrapeListings(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, []string) {
	origin := Origin(sourceURL)
	var articles []model.HistoricalArticle

	errs := a.newsPolicy().Run(ctx, func(page int) (int, error) {
		target := origin + "/markets"
		if page > 1 {
			target = fmt.Sprintf("%s/markets?page=%d", origin, page-1)
		}
		if !a.allowedByRobots(ctx, target) {
			return 0, ErrPaginationDone
		}

		body, err := a.fetchText(ctx, target)
		if err != nil {
			return 0, err
		}

		found := extractArticleAnchors(body, target)
		articles = append(articles, found...)
		return len(found), nil
	})

	return articles, errs
}

// PlatformIndicators describes the ZeroHedge detection surface.
func (a *ZeroHedgeAgent) PlatformIndicators() model.PlatformIndicators {
	return model.PlatformIndicators{
		Platform:          "zerohedge",
		Description:       "ZeroHedge financial news via the full-content feed, news sitemaps, and section listings",
		URLPatterns:       []string{"zerohedge.com"},
		ContentSignatures: zerohedgeSignatures,
		BaseConfidence:    0.85,
	}
}
