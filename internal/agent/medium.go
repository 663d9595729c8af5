package agent

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/okhval/hindsite/internal/model"
)

const mediumAgentName = "Medium"

// MediumAgent collects archives for Medium users and publications.
// Medium exposes recent posts over RSS only, so the archive-page year
// index is the main route into deep history.
type MediumAgent struct {
	base
}

// NewMediumAgent creates the Medium collector.
func NewMediumAgent(deps Deps) *MediumAgent {
	return &MediumAgent{base: newBase(deps)}
}

// Name returns the agent label.
func (a *MediumAgent) Name() string { return mediumAgentName }

// EstimateConfidence matches medium.com and its publication
// subdomains.
func (a *MediumAgent) EstimateConfidence(_ context.Context, rawURL string) float64 {
	host := HostOf(rawURL)
	switch {
	case host == "medium.com":
		return 0.95
	case strings.HasSuffix(host, ".medium.com"):
		return 0.9
	default:
		return 0
	}
}

var mediumSignatures = []string{
	"medium.com",
	"cdn-client.medium.com",
	"miro.medium.com",
	`"__APOLLO_STATE__"`,
	"data-rh=",
}

// Verify requires two Medium signatures on the page.
func (a *MediumAgent) Verify(ctx context.Context, rawURL string) bool {
	body, err := a.fetchText(ctx, rawURL)
	if err != nil {
		return false
	}
	return countSignatures(body, mediumSignatures) >= 2
}

// Collect runs the Medium strategy chain.
func (a *MediumAgent) Collect(ctx context.Context, rawURL string) *model.AgentResult {
	c := newCollection(mediumAgentName)

	c.run("feed", func() ([]model.HistoricalArticle, error) {
		return a.feedArticles(ctx, a.feedURL(rawURL), rawURL)
	})

	c.run("archive-years", func() ([]model.HistoricalArticle, error) {
		articles, errs := a.collectArchiveYears(ctx, rawURL)
		c.addErrors("archive-years", errs)
		return articles, nil
	})

	c.run("sitemap", func() ([]model.HistoricalArticle, error) {
		return a.firstSitemapArticles(ctx, rawURL, []string{"/sitemap/sitemap.xml", "/sitemap.xml"})
	})

	return c.result(0.8, "medium")
}

// feedURL maps a profile or publication URL to its feed. Medium's
// scheme: medium.com/@user feeds at /feed/@user, publication paths at
// /feed/<pub>, subdomains at /feed.
func (a *MediumAgent) feedURL(rawURL string) string {
	origin := Origin(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return origin + "/feed"
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return origin + "/feed"
	}

	first := strings.Split(path, "/")[0]
	if strings.HasPrefix(first, "@") || HostOf(rawURL) == "medium.com" {
		return origin + "/feed/" + first
	}
	return origin + "/feed"
}

var mediumYearLinkRe = regexp.MustCompile(`href="([^"]*/archive/(?:19|20)\d{2}[^"]*)"`)

// collectArchiveYears walks the /archive year index: the index page
// links each year with posts, and each year page lists articles.
func (a *MediumAgent) collectArchiveYears(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, []string) {
	archiveURL := a.profileBase(sourceURL) + "/archive"

	if !a.allowedByRobots(ctx, archiveURL) {
		return nil, []string{fmt.Sprintf("disallowed by robots.txt: %s", archiveURL)}
	}

	body, err := a.fetchText(ctx, archiveURL)
	if err != nil {
		return nil, []string{fmt.Sprintf("archive index: %v", err)}
	}

	articles := extractArticleAnchors(body, archiveURL)

	yearURLs := a.yearLinks(body, archiveURL)
	var errs []string

	for i, yearURL := range yearURLs {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			paginationSleepFunc(ctx, a.policy().Delay)
		}

		yearBody, err := a.fetchText(ctx, yearURL)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", yearURL, err))
			continue
		}
		articles = append(articles, extractArticleAnchors(yearBody, yearURL)...)
	}

	return articles, errs
}

// profileBase keeps the /@user or publication segment so archive URLs
// resolve under the right namespace.
func (a *MediumAgent) profileBase(rawURL string) string {
	origin := Origin(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return origin
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return origin
	}

	first := strings.Split(path, "/")[0]
	if first == "" || strings.Contains(first, ".") {
		return origin
	}
	return origin + "/" + first
}

// yearLinks extracts deduplicated year archive URLs, bounded by the
// pagination cap so a long-lived publication cannot run the collector
// unbounded.
func (a *MediumAgent) yearLinks(body, baseURL string) []string {
	matches := mediumYearLinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]bool)
	var urls []string

	for _, m := range matches {
		link := ResolveURL(baseURL, m[1])
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		urls = append(urls, link)
		if len(urls) >= a.policy().MaxPages {
			break
		}
	}

	return urls
}

// PlatformIndicators describes the Medium detection surface.
func (a *MediumAgent) PlatformIndicators() model.PlatformIndicators {
	return model.PlatformIndicators{
		Platform:          "medium",
		Description:       "Medium profiles and publications via RSS and the archive year index",
		URLPatterns:       []string{"medium.com", ".medium.com"},
		ContentSignatures: mediumSignatures,
		BaseConfidence:    0.8,
	}
}
