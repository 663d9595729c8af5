package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/okhval/hindsite/internal/fetch"
	"github.com/okhval/hindsite/internal/model"
)

const substackAgentName = "Substack"

const substackArchivePageSize = 12

// SubstackAgent collects newsletter archives. The archive API is the
// primary route; feed variants with pagination guesses, sitemap slugs,
// and structural archive-page patterns cover custom-domain publications
// that hide the API.
type SubstackAgent struct {
	base
}

// NewSubstackAgent creates the Substack collector.
func NewSubstackAgent(deps Deps) *SubstackAgent {
	return &SubstackAgent{base: newBase(deps)}
}

// Name returns the agent label.
func (a *SubstackAgent) Name() string { return substackAgentName }

var substackSignatures = []string{
	"substack.com",
	"substackcdn.com",
	"window._preloads",
	"substack-post-embed",
	"cover_photo_url",
}

// EstimateConfidence matches the hosted domain cheaply. Custom-domain
// publications are indistinguishable by URL, so an ambiguous URL gets
// one probe fetch to look for branding strings.
func (a *SubstackAgent) EstimateConfidence(ctx context.Context, url string) float64 {
	host := HostOf(url)
	if strings.HasSuffix(host, ".substack.com") {
		return 0.95
	}

	// Custom domains: only worth probing for hosts that plausibly
	// front a newsletter
	if host == "" {
		return 0
	}

	body, err := a.fetchText(ctx, url)
	if err != nil {
		return 0
	}

	switch n := countSignatures(body, substackSignatures); {
	case n >= 2:
		return 0.8
	case n == 1:
		return 0.45
	default:
		return 0
	}
}

// Verify requires two signatures on the page or a well-shaped archive
// API response.
func (a *SubstackAgent) Verify(ctx context.Context, url string) bool {
	body, err := a.fetchText(ctx, url)
	if err == nil && countSignatures(body, substackSignatures) >= 2 {
		return true
	}

	probe, err := a.fetchText(ctx, Origin(url)+"/api/v1/archive?sort=new&limit=1")
	if err != nil {
		return false
	}
	return strings.Contains(probe, `"canonical_url"`)
}

type substackPost struct {
	Title        string `json:"title"`
	CanonicalURL string `json:"canonical_url"`
	PostDate     string `json:"post_date"`
	Subtitle     string `json:"subtitle"`
	Bylines      []struct {
		Name string `json:"name"`
	} `json:"publishedBylines"`
}

// Collect runs the Substack strategy chain.
func (a *SubstackAgent) Collect(ctx context.Context, url string) *model.AgentResult {
	c := newCollection(substackAgentName)

	c.run("archive-api", func() ([]model.HistoricalArticle, error) {
		articles, errs, err := a.collectArchiveAPI(ctx, url)
		c.addErrors("archive-api", errs)
		return articles, err
	})

	c.run("feed", func() ([]model.HistoricalArticle, error) {
		articles, errs := a.collectFeedWithPagination(ctx, url)
		c.addErrors("feed", errs)
		return articles, nil
	})

	c.run("sitemap", func() ([]model.HistoricalArticle, error) {
		return a.firstSitemapArticles(ctx, url, []string{"/sitemap.xml"})
	})

	if c.count() == 0 {
		c.run("archive-scrape", func() ([]model.HistoricalArticle, error) {
			return a.scrapeArchivePage(ctx, url)
		})
	}

	return c.result(0.85, "substack")
}

// collectArchiveAPI pages /api/v1/archive by offset until a short page.
func (a *SubstackAgent) collectArchiveAPI(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, []string, error) {
	origin := Origin(sourceURL)
	if origin == "" {
		return nil, nil, fmt.Errorf("no origin in %q", sourceURL)
	}

	host := HostOf(sourceURL)
	var articles []model.HistoricalArticle
	var firstErr error

	errs := a.policy().Run(ctx, func(page int) (int, error) {
		offset := (page - 1) * substackArchivePageSize
		apiURL := fmt.Sprintf("%s/api/v1/archive?sort=new&search=&offset=%d&limit=%d",
			origin, offset, substackArchivePageSize)

		body, err := a.fetchText(ctx, apiURL)
		if err != nil {
			var statusErr *fetch.StatusError
			if page == 1 {
				firstErr = err
				return 0, ErrPaginationDone
			}
			if errors.As(err, &statusErr) {
				return 0, ErrPaginationDone
			}
			return 0, err
		}

		var posts []substackPost
		if err := json.Unmarshal([]byte(body), &posts); err != nil {
			if page == 1 {
				firstErr = fmt.Errorf("decode archive: %w", err)
				return 0, ErrPaginationDone
			}
			return 0, fmt.Errorf("decode archive: %w", err)
		}

		for _, post := range posts {
			link := ResolveURL(origin, post.CanonicalURL)
			title := strings.TrimSpace(post.Title)
			if link == "" || title == "" {
				continue
			}

			author := host
			if len(post.Bylines) > 0 && post.Bylines[0].Name != "" {
				author = post.Bylines[0].Name
			}

			articles = append(articles, model.HistoricalArticle{
				Title:         title,
				URL:           link,
				PublishedDate: ParseDateOrNow(post.PostDate),
				Description:   Truncate(StripHTML(post.Subtitle), 500),
				Author:        author,
			})
		}

		if len(posts) < substackArchivePageSize {
			return len(posts), ErrPaginationDone
		}
		return len(posts), nil
	})

	if len(articles) == 0 && firstErr != nil {
		return nil, errs, firstErr
	}
	return articles, errs, nil
}

// substackFeedPaths are the feed variants publications expose.
var substackFeedPaths = []string{"/feed", "/feed.xml", "/rss"}

// collectFeedWithPagination finds a working feed variant, then guesses
// page parameters on top of it for deeper history.
func (a *SubstackAgent) collectFeedWithPagination(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, []string) {
	origin := Origin(sourceURL)
	var allErrs []string

	var workingPath string
	var articles []model.HistoricalArticle
	for _, path := range substackFeedPaths {
		found, err := a.feedArticles(ctx, origin+path, sourceURL)
		if err != nil {
			allErrs = append(allErrs, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		if len(found) > 0 {
			workingPath = path
			articles = found
			break
		}
	}

	if workingPath == "" {
		return articles, allErrs
	}

	seen := make(map[string]bool, len(articles))
	for _, art := range articles {
		seen[CanonicalURL(art.URL)] = true
	}

	errs := a.policy().Run(ctx, func(page int) (int, error) {
		if page == 1 {
			// Base feed already harvested
			return len(articles), nil
		}

		found, err := a.feedArticles(ctx, fmt.Sprintf("%s%s?page=%d", origin, workingPath, page), sourceURL)
		if err != nil {
			var statusErr *fetch.StatusError
			if errors.As(err, &statusErr) {
				return 0, ErrPaginationDone
			}
			return 0, err
		}

		// Feeds that ignore the page parameter repeat themselves;
		// treat an all-duplicate page as empty
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

	return articles, append(allErrs, errs...)
}

// substackArchivePatterns are tried in priority order; the first
// pattern that yields matches wins.
var substackArchivePatterns = []SelectorPattern{
	{Name: "post-preview", Container: "div.post-preview", Title: ".post-preview-title", Link: "a[href*='/p/']", Date: "time"},
	{Name: "portable-archive", Container: "div[class*='portable-archive'] div[class*='post']", Link: "a[href*='/p/']", Date: "time"},
	{Name: "heading-links", Container: "h2, h3", Link: "a[href*='/p/']"},
	{Name: "any-post-link", Container: "article", Link: "a[href*='/p/']", Date: "time"},
}

var substackLinkPatterns = []LinkPattern{
	{Name: "p-links", Re: regexp.MustCompile(`(?is)<a[^>]+href="([^"]*/p/[^"]+)"[^>]*>(.*?)</a>`)},
}

// scrapeArchivePage pulls the /archive listing and applies structural
// patterns, falling back to a raw regex pass.
func (a *SubstackAgent) scrapeArchivePage(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, error) {
	origin := Origin(sourceURL)
	archiveURL := origin + "/archive"

	if !a.allowedByRobots(ctx, archiveURL) {
		return nil, fmt.Errorf("disallowed by robots.txt: %s", archiveURL)
	}

	body, err := a.fetchText(ctx, archiveURL)
	if err != nil {
		return nil, err
	}

	if articles, _ := extractWithSelectors(body, archiveURL, substackArchivePatterns); len(articles) > 0 {
		return articles, nil
	}

	articles, _ := extractByPatterns(body, archiveURL, substackLinkPatterns)
	return articles, nil
}

// PlatformIndicators describes the Substack detection surface.
func (a *SubstackAgent) PlatformIndicators() model.PlatformIndicators {
	return model.PlatformIndicators{
		Platform:          "substack",
		Description:       "Substack newsletters via the archive API, feed variants, and archive-page patterns",
		URLPatterns:       []string{".substack.com"},
		ContentSignatures: substackSignatures,
		APIEndpoints:      []string{"/api/v1/archive"},
		BaseConfidence:    0.85,
	}
}
