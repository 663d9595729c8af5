package agent

import (
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/okhval/hindsite/internal/model"
)

type sitemapIndexDoc struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlsetDoc struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc     string `xml:"loc"`
		LastMod string `xml:"lastmod"`
	} `xml:"url"`
}

type sitemapEntry struct {
	loc     string
	lastMod string
}

var locRe = regexp.MustCompile(`(?is)<loc>\s*([^<\s][^<]*?)\s*</loc>`)

// parseSitemap splits a sitemap document into child sitemap URLs (for
// index files) and page entries (for urlsets). Malformed XML falls
// back to a plain <loc> scan.
func parseSitemap(raw string) (children []string, entries []sitemapEntry) {
	var index sitemapIndexDoc
	if err := xml.Unmarshal([]byte(raw), &index); err == nil && len(index.Sitemaps) > 0 {
		for _, sm := range index.Sitemaps {
			if loc := strings.TrimSpace(sm.Loc); loc != "" {
				children = append(children, loc)
			}
		}
		return children, nil
	}

	var set urlsetDoc
	if err := xml.Unmarshal([]byte(raw), &set); err == nil && len(set.URLs) > 0 {
		for _, u := range set.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				entries = append(entries, sitemapEntry{loc: loc, lastMod: strings.TrimSpace(u.LastMod)})
			}
		}
		return nil, entries
	}

	// Loose fallback for sitemaps strict XML parsing rejects
	for _, m := range locRe.FindAllStringSubmatch(raw, -1) {
		loc := strings.TrimSpace(m[1])
		if loc == "" {
			continue
		}
		if strings.Contains(strings.ToLower(loc), ".xml") {
			children = append(children, loc)
		} else {
			entries = append(entries, sitemapEntry{loc: loc})
		}
	}
	return children, entries
}

// sitemapArticles fetches a sitemap, recursively expanding index files
// into their child sitemaps, and converts probable content URLs into
// articles. Titles fall back to the URL slug; dates use the sitemap's
// lastmod when present.
func (b *base) sitemapArticles(ctx context.Context, sitemapURL, sourceURL string) ([]model.HistoricalArticle, error) {
	if !b.allowedByRobots(ctx, sitemapURL) {
		return nil, fmt.Errorf("disallowed by robots.txt: %s", sitemapURL)
	}
	return b.sitemapArticlesDepth(ctx, sitemapURL, sourceURL, 0)
}

func (b *base) sitemapArticlesDepth(ctx context.Context, sitemapURL, sourceURL string, depth int) ([]model.HistoricalArticle, error) {
	body, err := b.fetchText(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	children, entries := parseSitemap(body)

	var articles []model.HistoricalArticle
	host := HostOf(sourceURL)
	origin := Origin(sourceURL)

	for _, entry := range entries {
		loc := ResolveURL(origin, entry.loc)
		if loc == "" || !LooksLikeArticle(loc) {
			continue
		}

		title := TitleFromSlug(loc)
		if title == "" {
			continue
		}

		articles = append(articles, model.HistoricalArticle{
			Title:         title,
			URL:           loc,
			PublishedDate: ParseDateOrNow(entry.lastMod),
			Author:        host,
		})
	}

	if depth < b.cfg().Collection.SitemapMaxDepth {
		for _, child := range children {
			if ctx.Err() != nil {
				break
			}
			childURL := ResolveURL(origin, child)
			if childURL == "" {
				continue
			}
			childArticles, err := b.sitemapArticlesDepth(ctx, childURL, sourceURL, depth+1)
			if err != nil {
				// One unreadable child sitemap does not fail the walk
				continue
			}
			articles = append(articles, childArticles...)
		}
	}

	return articles, nil
}

// firstSitemapArticles tries candidate sitemap paths in order and
// returns the first non-empty harvest.
func (b *base) firstSitemapArticles(ctx context.Context, sourceURL string, paths []string) ([]model.HistoricalArticle, error) {
	origin := Origin(sourceURL)
	if origin == "" {
		return nil, fmt.Errorf("no origin in %q", sourceURL)
	}

	var lastErr error
	for _, path := range paths {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		articles, err := b.sitemapArticles(ctx, origin+path, sourceURL)
		if err != nil {
			lastErr = err
			continue
		}
		if len(articles) > 0 {
			return articles, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("no sitemap yielded articles: %w", lastErr)
	}
	return nil, nil
}
