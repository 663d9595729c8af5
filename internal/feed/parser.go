package feed

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

// Item is one entry from a parsed feed. Published is the zero time
// when the feed carried no usable date; callers apply their own
// fallback.
type Item struct {
	Title        string
	Link         string
	Description  string
	Author       string
	Published    time.Time
	Categories   []string
	EnclosureURL string
}

// Parser turns raw feed XML into items. It handles RSS 2.0 and Atom
// via gofeed and falls back to a loose scan for malformed documents
// (e.g. item elements without a channel wrapper).
type Parser struct {
	fp *gofeed.Parser
}

// NewParser creates a feed parser.
func NewParser() *Parser {
	return &Parser{fp: gofeed.NewParser()}
}

// Parse extracts items from raw XML. It never fails: unrecognizable
// input yields an empty list.
func (p *Parser) Parse(raw string) []Item {
	if strings.TrimSpace(raw) == "" {
		return []Item{}
	}

	feed, err := p.fp.ParseString(raw)
	if err == nil && len(feed.Items) > 0 {
		return convertFeed(feed)
	}

	return parseLoose(raw)
}

func convertFeed(feed *gofeed.Feed) []Item {
	items := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := Item{
			Title:       strings.TrimSpace(it.Title),
			Link:        strings.TrimSpace(it.Link),
			Description: strings.TrimSpace(it.Description),
			Categories:  it.Categories,
		}

		if it.Author != nil && it.Author.Name != "" {
			item.Author = it.Author.Name
		} else if len(it.Authors) > 0 && it.Authors[0].Name != "" {
			item.Author = it.Authors[0].Name
		} else if it.DublinCoreExt != nil && len(it.DublinCoreExt.Creator) > 0 {
			item.Author = it.DublinCoreExt.Creator[0]
		}

		if it.PublishedParsed != nil {
			item.Published = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			item.Published = *it.UpdatedParsed
		}

		if len(it.Enclosures) > 0 {
			item.EnclosureURL = it.Enclosures[0].URL
		}

		if item.Link != "" {
			items = append(items, item)
		}
	}
	return items
}

var (
	itemBlockRe  = regexp.MustCompile(`(?is)<(?:item|entry)[\s>].*?</(?:item|entry)>`)
	titleRe      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	linkTextRe   = regexp.MustCompile(`(?is)<link[^>]*>([^<]+)</link>`)
	linkHrefRe   = regexp.MustCompile(`(?is)<link[^>]*href=["']([^"']+)["']`)
	dateRe       = regexp.MustCompile(`(?is)<(?:pubDate|published|updated|dc:date)[^>]*>(.*?)</(?:pubDate|published|updated|dc:date)>`)
	descRe       = regexp.MustCompile(`(?is)<(?:description|summary|content)[^>]*>(.*?)</(?:description|summary|content)>`)
	authorRe     = regexp.MustCompile(`(?is)<(?:author|dc:creator)[^>]*>(.*?)</(?:author|dc:creator)>`)
	authorNameRe = regexp.MustCompile(`(?is)<name[^>]*>(.*?)</name>`)
	cdataRe      = regexp.MustCompile(`(?is)<!\[CDATA\[(.*?)\]\]>`)
	tagRe        = regexp.MustCompile(`(?s)<[^>]*>`)
)

// parseLoose scans for item/entry blocks directly, tolerating missing
// wrappers and broken nesting that trip strict XML parsers.
func parseLoose(raw string) []Item {
	blocks := itemBlockRe.FindAllString(raw, -1)
	items := make([]Item, 0, len(blocks))

	for _, block := range blocks {
		item := Item{
			Title:       cleanFragment(firstGroup(titleRe, block)),
			Description: cleanFragment(firstGroup(descRe, block)),
		}

		if link := firstGroup(linkTextRe, block); strings.TrimSpace(link) != "" {
			item.Link = strings.TrimSpace(cleanFragment(link))
		} else if href := firstGroup(linkHrefRe, block); href != "" {
			item.Link = strings.TrimSpace(href)
		}

		if author := cleanFragment(firstGroup(authorRe, block)); author != "" {
			// Atom nests <name> inside <author>
			if name := cleanFragment(firstGroup(authorNameRe, block)); name != "" {
				author = name
			}
			item.Author = author
		}

		if dateText := cleanFragment(firstGroup(dateRe, block)); dateText != "" {
			if t, err := dateparse.ParseAny(dateText); err == nil {
				item.Published = t
			}
		}

		if item.Link != "" {
			items = append(items, item)
		}
	}

	return items
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// cleanFragment unwraps CDATA, strips markup, and decodes entities.
func cleanFragment(s string) string {
	if m := cdataRe.FindStringSubmatch(s); len(m) == 2 {
		s = m[1]
	}
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}
