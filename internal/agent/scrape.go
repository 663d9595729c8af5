package agent

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/okhval/hindsite/internal/model"
)

// LinkPattern is one regex extraction strategy for listing HTML.
// Capture group 1 is the href, group 2 the title. Patterns are tried
// in priority order; the first that yields matches wins.
type LinkPattern struct {
	Name string
	Re   *regexp.Regexp
}

// SelectorPattern is one goquery structural extraction strategy:
// repeated article containers with title/link/date inside.
type SelectorPattern struct {
	Name      string
	Container string
	Title     string
	Link      string
	Date      string
}

// noiseTitles reject navigation anchors that pattern extraction
// inevitably picks up on listing pages.
var noiseTitles = map[string]bool{
	"home": true, "about": true, "contact": true, "archive": true,
	"subscribe": true, "sign in": true, "sign up": true, "log in": true,
	"login": true, "next": true, "previous": true, "older": true,
	"newer": true, "menu": true, "search": true, "share": true,
	"comments": true, "read more": true, "continue reading": true,
	"rss": true, "more": true,
}

func validListingTitle(title string) bool {
	title = strings.TrimSpace(title)
	if len(title) < 3 || len(title) > 200 {
		return false
	}
	return !noiseTitles[strings.ToLower(title)]
}

// extractByPatterns runs regex strategies in priority order against
// listing HTML and returns the first pattern's harvest plus its name.
func extractByPatterns(body, baseURL string, patterns []LinkPattern) ([]model.HistoricalArticle, string) {
	host := HostOf(baseURL)

	for _, pattern := range patterns {
		matches := pattern.Re.FindAllStringSubmatch(body, -1)
		if len(matches) == 0 {
			continue
		}

		var articles []model.HistoricalArticle
		for _, m := range matches {
			if len(m) < 3 {
				continue
			}
			link := ResolveURL(baseURL, m[1])
			title := StripHTML(m[2])
			if link == "" || !validListingTitle(title) {
				continue
			}
			articles = append(articles, model.HistoricalArticle{
				Title:         title,
				URL:           link,
				PublishedDate: time.Now(),
				Author:        host,
			})
		}

		if len(articles) > 0 {
			return articles, pattern.Name
		}
	}

	return nil, ""
}

// extractWithSelectors runs goquery structural strategies in priority
// order and returns the first pattern's harvest plus its name.
func extractWithSelectors(body, baseURL string, patterns []SelectorPattern) ([]model.HistoricalArticle, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, ""
	}

	host := HostOf(baseURL)

	for _, pattern := range patterns {
		linkSel := pattern.Link
		if linkSel == "" {
			linkSel = "a"
		}

		var articles []model.HistoricalArticle
		doc.Find(pattern.Container).Each(func(_ int, s *goquery.Selection) {
			anchor := s.Find(linkSel).First()
			href, ok := anchor.Attr("href")
			if !ok {
				return
			}
			link := ResolveURL(baseURL, href)
			if link == "" {
				return
			}

			title := strings.Join(strings.Fields(anchor.Text()), " ")
			if pattern.Title != "" {
				if t := strings.Join(strings.Fields(s.Find(pattern.Title).First().Text()), " "); t != "" {
					title = t
				}
			}
			if title == "" {
				title = TitleFromSlug(link)
			}
			if !validListingTitle(title) {
				return
			}

			published := time.Now()
			if pattern.Date != "" {
				dateSel := s.Find(pattern.Date).First()
				dateText := strings.TrimSpace(dateSel.Text())
				if dt, ok := dateSel.Attr("datetime"); ok {
					dateText = dt
				}
				if dateText != "" {
					published = ParseDateOrNow(dateText)
				}
			}

			articles = append(articles, model.HistoricalArticle{
				Title:         title,
				URL:           link,
				PublishedDate: published,
				Author:        host,
			})
		})

		if len(articles) > 0 {
			return articles, pattern.Name
		}
	}

	return nil, ""
}

// extractArticleAnchors is the loosest strategy: every anchor on the
// page whose target looks like an article. Used when structural
// patterns find nothing.
func extractArticleAnchors(body, baseURL string) []model.HistoricalArticle {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	host := HostOf(baseURL)
	var articles []model.HistoricalArticle

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := ResolveURL(baseURL, href)
		if link == "" || !LooksLikeArticle(link) {
			return
		}
		// Same-host links only; listing pages link out constantly
		if HostOf(link) != host {
			return
		}

		title := strings.Join(strings.Fields(s.Text()), " ")
		if title == "" {
			title = TitleFromSlug(link)
		}
		if !validListingTitle(title) {
			return
		}

		articles = append(articles, model.HistoricalArticle{
			Title:         title,
			URL:           link,
			PublishedDate: time.Now(),
			Author:        host,
		})
	})

	return articles
}

// discoverFeedLinks finds <link rel="alternate"> feed declarations in
// page head markup.
func discoverFeedLinks(body, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var feeds []string
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !strings.Contains(typ, "rss") && !strings.Contains(typ, "atom") {
			return
		}
		if href, ok := s.Attr("href"); ok {
			if link := ResolveURL(baseURL, href); link != "" {
				feeds = append(feeds, link)
			}
		}
	})

	return feeds
}
