package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/okhval/hindsite/internal/fetch"
	"github.com/okhval/hindsite/internal/model"
)

const ghostAgentName = "Ghost"

const ghostAPIPageSize = 15

// GhostAgent collects archives from Ghost-powered blogs. Primary
// strategy is Content API pagination; RSS, sitemap, and archive
// scraping back it up for sites that lock the API down.
type GhostAgent struct {
	base
}

// NewGhostAgent creates the Ghost collector.
func NewGhostAgent(deps Deps) *GhostAgent {
	return &GhostAgent{base: newBase(deps)}
}

// Name returns the agent label.
func (a *GhostAgent) Name() string { return ghostAgentName }

// EstimateConfidence matches on Ghost's hosted domain and admin path.
// Self-hosted Ghost sites without either are left to verification via
// other routes.
func (a *GhostAgent) EstimateConfidence(_ context.Context, url string) float64 {
	host := HostOf(url)
	switch {
	case strings.HasSuffix(host, ".ghost.io"):
		return 0.95
	case strings.Contains(url, "/ghost/"):
		return 0.85
	default:
		return 0
	}
}

var ghostSignatures = []string{
	"ghost.io",
	"ghost-head",
	`content="Ghost`,
	"/ghost/api/",
	"ghost-sdk",
	"gh-head",
}

// Verify fetches the page and requires two platform signatures, or a
// Content API response with the expected shape.
func (a *GhostAgent) Verify(ctx context.Context, url string) bool {
	body, err := a.fetchText(ctx, url)
	if err == nil && countSignatures(body, ghostSignatures) >= 2 {
		return true
	}

	probe, err := a.fetchText(ctx, Origin(url)+"/ghost/api/content/posts/?limit=1")
	if err != nil {
		return false
	}
	return strings.Contains(probe, `"posts"`)
}

type ghostPostsResponse struct {
	Posts []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		PublishedAt   string `json:"published_at"`
		CustomExcerpt string `json:"custom_excerpt"`
		Excerpt       string `json:"excerpt"`
		PrimaryAuthor *struct {
			Name string `json:"name"`
		} `json:"primary_author"`
	} `json:"posts"`
	Meta struct {
		Pagination struct {
			Page  int `json:"page"`
			Pages int `json:"pages"`
		} `json:"pagination"`
	} `json:"meta"`
}

// Collect runs the Ghost strategy chain.
func (a *GhostAgent) Collect(ctx context.Context, url string) *model.AgentResult {
	c := newCollection(ghostAgentName)

	c.run("content-api", func() ([]model.HistoricalArticle, error) {
		articles, errs, err := a.collectContentAPI(ctx, url)
		c.addErrors("content-api", errs)
		return articles, err
	})

	c.run("rss", func() ([]model.HistoricalArticle, error) {
		return a.firstFeedArticles(ctx, url, []string{"/rss/", "/feed/", "/rss.xml"})
	})

	c.run("sitemap", func() ([]model.HistoricalArticle, error) {
		return a.firstSitemapArticles(ctx, url, []string{"/sitemap-posts.xml", "/sitemap.xml"})
	})

	if c.count() == 0 {
		c.run("archive-scrape", func() ([]model.HistoricalArticle, error) {
			origin := Origin(url)
			articles, errs := a.pagedScrape(ctx, func(page int) string {
				if page == 1 {
					return origin + "/"
				}
				return fmt.Sprintf("%s/page/%d/", origin, page)
			}, extractArticleAnchors)
			c.addErrors("archive-scrape", errs)
			return articles, nil
		})
	}

	return c.result(0.9, "ghost")
}

// collectContentAPI paginates the public Content API until a short
// page or an error status signals exhaustion.
func (a *GhostAgent) collectContentAPI(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, []string, error) {
	origin := Origin(sourceURL)
	if origin == "" {
		return nil, nil, fmt.Errorf("no origin in %q", sourceURL)
	}

	host := HostOf(sourceURL)
	var articles []model.HistoricalArticle
	var firstErr error

	errs := a.policy().Run(ctx, func(page int) (int, error) {
		apiURL := fmt.Sprintf("%s/ghost/api/content/posts/?limit=%d&page=%d&fields=title,url,published_at,custom_excerpt,excerpt&include=authors",
			origin, ghostAPIPageSize, page)

		body, err := a.fetchText(ctx, apiURL)
		if err != nil {
			var statusErr *fetch.StatusError
			if page == 1 {
				// API unreachable or key-protected: give up on the method
				firstErr = err
				return 0, ErrPaginationDone
			}
			if errors.As(err, &statusErr) {
				return 0, ErrPaginationDone
			}
			return 0, err
		}

		var resp ghostPostsResponse
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			if page == 1 {
				firstErr = fmt.Errorf("decode posts: %w", err)
				return 0, ErrPaginationDone
			}
			return 0, fmt.Errorf("decode posts: %w", err)
		}

		for _, post := range resp.Posts {
			link := ResolveURL(origin, post.URL)
			title := strings.TrimSpace(post.Title)
			if link == "" || title == "" {
				continue
			}

			author := host
			if post.PrimaryAuthor != nil && post.PrimaryAuthor.Name != "" {
				author = post.PrimaryAuthor.Name
			}

			excerpt := post.CustomExcerpt
			if excerpt == "" {
				excerpt = post.Excerpt
			}

			articles = append(articles, model.HistoricalArticle{
				Title:         title,
				URL:           link,
				PublishedDate: ParseDateOrNow(post.PublishedAt),
				Description:   Truncate(StripHTML(excerpt), 500),
				Author:        author,
			})
		}

		if len(resp.Posts) < ghostAPIPageSize {
			return len(resp.Posts), ErrPaginationDone
		}
		if resp.Meta.Pagination.Pages > 0 && page >= resp.Meta.Pagination.Pages {
			return len(resp.Posts), ErrPaginationDone
		}
		return len(resp.Posts), nil
	})

	if len(articles) == 0 && firstErr != nil {
		return nil, errs, firstErr
	}
	return articles, errs, nil
}

// PlatformIndicators describes the Ghost detection surface.
func (a *GhostAgent) PlatformIndicators() model.PlatformIndicators {
	return model.PlatformIndicators{
		Platform:          "ghost",
		Description:       "Ghost blogs (hosted and self-hosted) via Content API, RSS, and sitemaps",
		URLPatterns:       []string{".ghost.io", "/ghost/"},
		ContentSignatures: ghostSignatures,
		APIEndpoints:      []string{"/ghost/api/content/posts/"},
		BaseConfidence:    0.9,
	}
}
