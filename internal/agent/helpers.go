package agent

import (
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"github.com/okhval/hindsite/internal/model"
)

// DedupAndSort is the single deduplication point for all collectors:
// first occurrence of a URL wins, output is ordered by descending
// publish date. Matching is canonical-URL-exact; near-duplicate
// detection is out of scope.
func DedupAndSort(articles []model.HistoricalArticle) []model.HistoricalArticle {
	seen := make(map[string]bool, len(articles))
	out := make([]model.HistoricalArticle, 0, len(articles))

	for _, a := range articles {
		key := CanonicalURL(a.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedDate.After(out[j].PublishedDate)
	})

	return out
}

// trackingParams are stripped before URLs are compared for identity.
var trackingParams = map[string]bool{
	"ref":      true,
	"source":   true,
	"fbclid":   true,
	"gclid":    true,
	"mc_cid":   true,
	"mc_eid":   true,
	"utm_term": true,
}

// CanonicalURL normalizes a URL for deduplication: lowercased
// scheme/host, fragment dropped, tracking query parameters removed,
// trailing slash trimmed. Returns "" for unparseable input.
func CanonicalURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for param := range q {
			if trackingParams[param] || strings.HasPrefix(param, "utm_") {
				q.Del(param)
			}
		}
		u.RawQuery = q.Encode()
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

var yearSegmentRe = regexp.MustCompile(`^(19|20)\d{2}$`)

// articlePathHints are path segments that mark probable content pages.
var articlePathHints = map[string]bool{
	"post":     true,
	"posts":    true,
	"blog":     true,
	"article":  true,
	"articles": true,
	"essay":    true,
	"essays":   true,
	"story":    true,
	"stories":  true,
	"news":     true,
	"p":        true,
	"entry":    true,
}

// navigationSegments mark listing/navigation pages that sitemaps mix
// in with content.
var navigationSegments = map[string]bool{
	"tag":        true,
	"tags":       true,
	"category":   true,
	"categories": true,
	"author":     true,
	"authors":    true,
	"page":       true,
	"about":      true,
	"contact":    true,
	"privacy":    true,
	"terms":      true,
	"search":     true,
	"feed":       true,
	"rss":        true,
	"sitemap":    true,
	"login":      true,
	"signup":     true,
	"subscribe":  true,
	"static":     true,
	"assets":     true,
	"wp-content": true,
	"wp-admin":   true,
	"cdn-cgi":    true,
}

var skipExtensions = map[string]bool{
	".xml": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".svg": true, ".css": true, ".js": true, ".pdf": true, ".ico": true,
	".webp": true, ".mp3": true, ".mp4": true, ".zip": true,
}

// LooksLikeArticle filters sitemap and listing URLs down to probable
// content pages: an article path hint, a 4-digit year segment, or a
// trailing hyphenated slug qualifies; navigation segments and asset
// extensions disqualify.
func LooksLikeArticle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return false
	}

	if idx := strings.LastIndex(path, "."); idx >= 0 {
		if skipExtensions[strings.ToLower(path[idx:])] {
			return false
		}
	}

	segments := strings.Split(path, "/")
	last := len(segments) - 1
	hint := false
	for i, seg := range segments {
		lower := strings.ToLower(seg)
		if navigationSegments[lower] {
			// A hint segment followed by a slug still counts
			// (/blog/my-post); a bare navigation page does not.
			if !articlePathHints[lower] || i == last {
				return false
			}
		}
		// A bare hint segment (/news, /p) is a listing, not a post
		if articlePathHints[lower] && i != last {
			hint = true
		}
		if yearSegmentRe.MatchString(seg) {
			hint = true
		}
	}

	if hint {
		return true
	}

	// Trailing slug: a last segment like "my-great-post"
	slug := segments[last]
	return strings.Count(slug, "-") >= 2 && len(slug) >= 10
}

var monthYearLayouts = []string{
	"January 2006",
	"Jan 2006",
	"January, 2006",
}

// ParseDateOrNow attempts lenient date parsing, then a Month-Year
// partial-date fallback, then defaults to the current time. The
// default-now behavior biases undated articles toward appearing
// recent; callers accept that trade-off.
func ParseDateOrNow(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now()
	}

	if t, err := dateparse.ParseAny(s); err == nil {
		return t
	}

	for _, layout := range monthYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Now()
}

// TitleFromSlug derives a human-readable title from the URL's last
// path segment when no richer title is available.
func TitleFromSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}

	segments := strings.Split(path, "/")
	slug := segments[len(segments)-1]

	if idx := strings.LastIndex(slug, "."); idx > 0 {
		slug = slug[:idx]
	}

	slug = strings.ReplaceAll(slug, "-", " ")
	slug = strings.ReplaceAll(slug, "_", " ")

	words := strings.Fields(slug)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}

	return strings.Join(words, " ")
}

// ResolveURL resolves a possibly-relative reference against a base,
// returning "" when neither yields an absolute URL.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.IsAbs() {
		return refURL.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return ""
	}

	return baseURL.ResolveReference(refURL).String()
}

// Origin returns the scheme://host root of a URL, or "" when the URL
// has no host.
func Origin(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host
}

// HostOf returns the hostname without a www prefix.
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

var htmlTagRe = regexp.MustCompile(`(?s)<[^>]*>`)

// StripHTML removes markup, decodes entities, and collapses
// whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// Truncate limits s to max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// countSignatures counts how many signature substrings appear in the
// body; verification requires at least two matches.
func countSignatures(body string, signatures []string) int {
	lower := strings.ToLower(body)
	count := 0
	for _, sig := range signatures {
		if strings.Contains(lower, strings.ToLower(sig)) {
			count++
		}
	}
	return count
}
