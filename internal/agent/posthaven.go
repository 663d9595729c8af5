package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/okhval/hindsite/internal/model"
)

const posthavenAgentName = "Posthaven"

// PosthavenAgent collects archives from Posthaven blogs. Posthaven has
// no public API and its feed only returns recent posts, so paging the
// home page with ?page=N is the primary strategy.
type PosthavenAgent struct {
	base
}

// NewPosthavenAgent creates the Posthaven collector.
func NewPosthavenAgent(deps Deps) *PosthavenAgent {
	return &PosthavenAgent{base: newBase(deps)}
}

// Name returns the agent label.
func (a *PosthavenAgent) Name() string { return posthavenAgentName }

// EstimateConfidence matches posthaven.com subdomains; custom domains
// are caught by Verify's signature scan when another agent defers.
func (a *PosthavenAgent) EstimateConfidence(_ context.Context, url string) float64 {
	host := HostOf(url)
	if strings.HasSuffix(host, ".posthaven.com") {
		return 0.95
	}
	return 0
}

var posthavenSignatures = []string{
	"posthaven.com",
	"posthaven-post",
	`content="Posthaven`,
	"posthaven_",
	"/posts.atom",
}

// Verify requires two signatures or a working posts.atom feed.
func (a *PosthavenAgent) Verify(ctx context.Context, url string) bool {
	body, err := a.fetchText(ctx, url)
	if err == nil && countSignatures(body, posthavenSignatures) >= 2 {
		return true
	}

	probe, err := a.fetchText(ctx, Origin(url)+"/posts.atom")
	if err != nil {
		return false
	}
	return strings.Contains(probe, "<feed") || strings.Contains(probe, "<entry")
}

// posthavenPatterns match the themed post listing markup before the
// generic anchor pass runs.
var posthavenPatterns = []SelectorPattern{
	{Name: "post-body", Container: "div.post", Title: "h2 a, h1 a", Link: "h2 a, h1 a", Date: "time"},
	{Name: "article", Container: "article", Title: "h2 a, h1 a", Link: "h2 a, h1 a", Date: "time"},
}

// Collect runs the Posthaven strategy chain: paged home scraping
// first, then the atom feed to enrich whatever the scrape found.
func (a *PosthavenAgent) Collect(ctx context.Context, url string) *model.AgentResult {
	c := newCollection(posthavenAgentName)

	c.run("paged-home", func() ([]model.HistoricalArticle, error) {
		origin := Origin(url)
		articles, errs := a.pagedScrape(ctx, func(page int) string {
			if page == 1 {
				return origin + "/"
			}
			return fmt.Sprintf("%s/?page=%d", origin, page)
		}, a.extractPosts)
		c.addErrors("paged-home", errs)
		return articles, nil
	})

	c.run("atom-feed", func() ([]model.HistoricalArticle, error) {
		return a.firstFeedArticles(ctx, url, []string{"/posts.atom", "/feed"})
	})

	return c.result(0.85, "posthaven")
}

// extractPosts applies the listing patterns, then falls back to the
// generic anchor pass for heavily customized themes.
func (a *PosthavenAgent) extractPosts(body, baseURL string) []model.HistoricalArticle {
	if articles, _ := extractWithSelectors(body, baseURL, posthavenPatterns); len(articles) > 0 {
		return articles
	}
	return extractArticleAnchors(body, baseURL)
}

// PlatformIndicators describes the Posthaven detection surface.
func (a *PosthavenAgent) PlatformIndicators() model.PlatformIndicators {
	return model.PlatformIndicators{
		Platform:          "posthaven",
		Description:       "Posthaven blogs via paged home-page scraping and the posts.atom feed",
		URLPatterns:       []string{".posthaven.com"},
		ContentSignatures: posthavenSignatures,
		BaseConfidence:    0.85,
	}
}
