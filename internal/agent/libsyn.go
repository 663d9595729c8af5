package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/okhval/hindsite/internal/model"
)

const libsynAgentName = "Libsyn"

// LibsynAgent collects podcast episode archives from Libsyn-hosted
// shows. The show RSS feed usually carries the complete back catalog;
// the /webpage archive pagination covers shows whose feed is capped.
type LibsynAgent struct {
	base
}

// NewLibsynAgent creates the Libsyn collector.
func NewLibsynAgent(deps Deps) *LibsynAgent {
	return &LibsynAgent{base: newBase(deps)}
}

// Name returns the agent label.
func (a *LibsynAgent) Name() string { return libsynAgentName }

// EstimateConfidence matches libsyn.com show subdomains.
func (a *LibsynAgent) EstimateConfidence(_ context.Context, url string) float64 {
	host := HostOf(url)
	switch {
	case strings.HasSuffix(host, ".libsyn.com"):
		return 0.95
	case strings.Contains(strings.ToLower(url), "libsyn"):
		return 0.5
	default:
		return 0
	}
}

var libsynSignatures = []string{
	"libsyn.com",
	"libsynpro",
	"html5-player.libsyn.com",
	"libsyn-item",
	"podcast-episode",
}

// Verify requires two signatures or an RSS feed with enclosures.
func (a *LibsynAgent) Verify(ctx context.Context, url string) bool {
	body, err := a.fetchText(ctx, url)
	if err == nil && countSignatures(body, libsynSignatures) >= 2 {
		return true
	}

	probe, err := a.fetchText(ctx, Origin(url)+"/rss")
	if err != nil {
		return false
	}
	return strings.Contains(probe, "<enclosure") || strings.Contains(probe, "<rss")
}

// Collect runs the Libsyn strategy chain.
func (a *LibsynAgent) Collect(ctx context.Context, url string) *model.AgentResult {
	c := newCollection(libsynAgentName)

	c.run("rss", func() ([]model.HistoricalArticle, error) {
		return a.firstFeedArticles(ctx, url, []string{"/rss", "/rss/", "/feed"})
	})

	c.run("webpage-archive", func() ([]model.HistoricalArticle, error) {
		origin := Origin(url)
		articles, errs := a.pagedScrape(ctx, func(page int) string {
			if page == 1 {
				return origin + "/webpage"
			}
			return fmt.Sprintf("%s/webpage/page/%d", origin, page)
		}, extractArticleAnchors)
		c.addErrors("webpage-archive", errs)
		return articles, nil
	})

	if c.count() == 0 {
		c.run("sitemap", func() ([]model.HistoricalArticle, error) {
			return a.firstSitemapArticles(ctx, url, []string{"/sitemap.xml"})
		})
	}

	return c.result(0.85, "libsyn")
}

// PlatformIndicators describes the Libsyn detection surface.
func (a *LibsynAgent) PlatformIndicators() model.PlatformIndicators {
	return model.PlatformIndicators{
		Platform:          "libsyn",
		Description:       "Libsyn-hosted podcasts via the show RSS feed and webpage archive pages",
		URLPatterns:       []string{".libsyn.com"},
		ContentSignatures: libsynSignatures,
		BaseConfidence:    0.85,
	}
}
