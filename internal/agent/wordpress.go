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

const wordpressAgentName = "WordPress"

const wordpressAPIPageSize = 50

// WordPressAgent collects archives from WordPress sites (wordpress.com
// hosted and self-hosted). The wp-json REST API is the richest route;
// paged RSS, sitemaps, and archive scraping cover sites with the API
// disabled.
type WordPressAgent struct {
	base
}

// NewWordPressAgent creates the WordPress collector.
func NewWordPressAgent(deps Deps) *WordPressAgent {
	return &WordPressAgent{base: newBase(deps)}
}

// Name returns the agent label.
func (a *WordPressAgent) Name() string { return wordpressAgentName }

// EstimateConfidence matches the hosted domain and the wp-* URL
// artifacts self-hosted installs leak.
func (a *WordPressAgent) EstimateConfidence(_ context.Context, url string) float64 {
	host := HostOf(url)
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(host, ".wordpress.com"):
		return 0.95
	case strings.Contains(lower, "/wp-content") || strings.Contains(lower, "/wp-json") || strings.Contains(lower, "/wp-includes"):
		return 0.85
	case strings.Contains(lower, "?p="):
		return 0.4
	default:
		return 0
	}
}

var wordpressSignatures = []string{
	"wp-content",
	"wp-includes",
	`content="WordPress`,
	"wp-json",
	"wp-block-",
	"wpemoji",
}

// Verify probes the REST API first, then falls back to counting page
// signatures.
func (a *WordPressAgent) Verify(ctx context.Context, url string) bool {
	probe, err := a.fetchText(ctx, Origin(url)+"/wp-json/wp/v2/posts?per_page=1")
	if err == nil && strings.HasPrefix(strings.TrimSpace(probe), "[") && strings.Contains(probe, `"link"`) {
		return true
	}

	body, err := a.fetchText(ctx, url)
	if err != nil {
		return false
	}
	return countSignatures(body, wordpressSignatures) >= 2
}

type wordpressPost struct {
	Link  string `json:"link"`
	Date  string `json:"date"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Excerpt struct {
		Rendered string `json:"rendered"`
	} `json:"excerpt"`
}

// Collect runs the WordPress strategy chain.
func (a *WordPressAgent) Collect(ctx context.Context, url string) *model.AgentResult {
	c := newCollection(wordpressAgentName)

	c.run("rest-api", func() ([]model.HistoricalArticle, error) {
		articles, errs, err := a.collectRESTAPI(ctx, url)
		c.addErrors("rest-api", errs)
		return articles, err
	})

	if c.count() == 0 {
		c.run("rss-paged", func() ([]model.HistoricalArticle, error) {
			articles, errs := a.collectPagedFeed(ctx, url)
			c.addErrors("rss-paged", errs)
			return articles, nil
		})
	}

	c.run("sitemap", func() ([]model.HistoricalArticle, error) {
		return a.firstSitemapArticles(ctx, url, []string{
			"/wp-sitemap.xml",
			"/sitemap_index.xml",
			"/sitemap.xml",
		})
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

	return c.result(0.9, "wordpress")
}

// collectRESTAPI paginates /wp-json/wp/v2/posts. WordPress signals the
// end of the collection with HTTP 400 (rest_post_invalid_page_number).
func (a *WordPressAgent) collectRESTAPI(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, []string, error) {
	origin := Origin(sourceURL)
	if origin == "" {
		return nil, nil, fmt.Errorf("no origin in %q", sourceURL)
	}

	host := HostOf(sourceURL)
	var articles []model.HistoricalArticle
	var firstErr error

	errs := a.policy().Run(ctx, func(page int) (int, error) {
		apiURL := fmt.Sprintf("%s/wp-json/wp/v2/posts?per_page=%d&page=%d&_fields=link,date,title,excerpt",
			origin, wordpressAPIPageSize, page)

		body, err := a.fetchText(ctx, apiURL)
		if err != nil {
			var statusErr *fetch.StatusError
			if errors.As(err, &statusErr) && statusErr.Code == 400 {
				// Past the last page
				return 0, ErrPaginationDone
			}
			if page == 1 {
				firstErr = err
				return 0, ErrPaginationDone
			}
			return 0, err
		}

		var posts []wordpressPost
		if err := json.Unmarshal([]byte(body), &posts); err != nil {
			if page == 1 {
				firstErr = fmt.Errorf("decode posts: %w", err)
				return 0, ErrPaginationDone
			}
			return 0, fmt.Errorf("decode posts: %w", err)
		}

		for _, post := range posts {
			link := ResolveURL(origin, post.Link)
			title := StripHTML(post.Title.Rendered)
			if link == "" || title == "" {
				continue
			}

			articles = append(articles, model.HistoricalArticle{
				Title:         title,
				URL:           link,
				PublishedDate: ParseDateOrNow(post.Date),
				Description:   Truncate(StripHTML(post.Excerpt.Rendered), 500),
				Author:        host,
			})
		}

		if len(posts) < wordpressAPIPageSize {
			return len(posts), ErrPaginationDone
		}
		return len(posts), nil
	})

	if len(articles) == 0 && firstErr != nil {
		return nil, errs, firstErr
	}
	return articles, errs, nil
}

// collectPagedFeed walks /feed/?paged=N, the classic WordPress feed
// pagination.
func (a *WordPressAgent) collectPagedFeed(ctx context.Context, sourceURL string) ([]model.HistoricalArticle, []string) {
	origin := Origin(sourceURL)
	var articles []model.HistoricalArticle

	errs := a.policy().Run(ctx, func(page int) (int, error) {
		feedURL := origin + "/feed/"
		if page > 1 {
			feedURL = fmt.Sprintf("%s/feed/?paged=%d", origin, page)
		}

		found, err := a.feedArticles(ctx, feedURL, sourceURL)
		if err != nil {
			var statusErr *fetch.StatusError
			if errors.As(err, &statusErr) {
				return 0, ErrPaginationDone
			}
			return 0, err
		}

		articles = append(articles, found...)
		return len(found), nil
	})

	return articles, errs
}

// PlatformIndicators describes the WordPress detection surface.
func (a *WordPressAgent) PlatformIndicators() model.PlatformIndicators {
	return model.PlatformIndicators{
		Platform:          "wordpress",
		Description:       "WordPress sites via the wp-json REST API, paged RSS, and sitemaps",
		URLPatterns:       []string{".wordpress.com", "/wp-content", "/wp-json", "?p="},
		ContentSignatures: wordpressSignatures,
		APIEndpoints:      []string{"/wp-json/wp/v2/posts"},
		BaseConfidence:    0.9,
	}
}
