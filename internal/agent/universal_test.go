package agent

import (
	"context"
	"fmt"
	"testing"
)

func TestUniversalEstimateConfidence(t *testing.T) {
	deps, _ := testDeps(nil)
	a := NewUniversalAgent(deps)
	ctx := context.Background()

	if got := a.EstimateConfidence(ctx, "https://any-blog.example.com/posts"); got != 0.3 {
		t.Errorf("plausible URL: got %v, want 0.3", got)
	}

	// Garbage must score below the handling threshold so the
	// unknown-platform path stays reachable
	for _, bad := range []string{"not a url", "ftp://example.com/x", "https://nohost", ""} {
		if got := a.EstimateConfidence(ctx, bad); got > 0.1 {
			t.Errorf("EstimateConfidence(%q) = %v, want <= 0.1", bad, got)
		}
	}
}

func TestUniversalVerify_AlwaysPassesForWebURLs(t *testing.T) {
	deps, _ := testDeps(nil)
	a := NewUniversalAgent(deps)

	if !a.Verify(context.Background(), "https://unknown-platform.example.com") {
		t.Error("fallback must pass verification for plausible URLs")
	}
	if a.Verify(context.Background(), "garbage") {
		t.Error("unparseable input should not verify")
	}
}

func TestUniversalCollect_FeedGuessing(t *testing.T) {
	silencePaginationSleep(t)
	origin := "https://custom.example.com"

	deps, fetcher := testDeps(map[string]string{
		origin + "/atom.xml": `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><title>Guessed</title><link href="` + origin + `/guessed-post-entry"/>
  <updated>2023-02-01T00:00:00Z</updated></entry>
</feed>`,
	})
	a := NewUniversalAgent(deps)

	result := a.Collect(context.Background(), origin)
	if !result.Success {
		t.Fatalf("expected feed guessing to succeed, errors: %v", result.Errors)
	}
	if result.Articles[0].Title != "Guessed" {
		t.Errorf("unexpected article: %+v", result.Articles[0])
	}
	if result.Confidence != 0.3 {
		t.Errorf("fallback confidence must stay fixed at 0.3, got %v", result.Confidence)
	}
	// Earlier conventional paths were probed before the hit
	if !fetcher.requested(origin + "/feed") {
		t.Error("expected /feed to be probed first")
	}
}

func TestUniversalCollect_SpecialCaseFeed(t *testing.T) {
	silencePaginationSleep(t)

	deps, _ := testDeps(map[string]string{
		"http://www.aaronsw.com/2002/feeds/pgessays.rss": `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>Great Hackers</title><link>http://www.paulgraham.com/gh.html</link></item>
</channel></rss>`,
	})
	a := NewUniversalAgent(deps)

	result := a.Collect(context.Background(), "http://paulgraham.com")
	if !result.Success {
		t.Fatalf("expected special-case feed to succeed, errors: %v", result.Errors)
	}
	if result.Articles[0].Title != "Great Hackers" {
		t.Errorf("unexpected article: %+v", result.Articles[0])
	}
}

func TestUniversalCollect_ListingScrapeOnlyUnderThreshold(t *testing.T) {
	silencePaginationSleep(t)
	origin := "https://rich.example.com"

	// Enough feed articles to clear the threshold
	var feedItems string
	for i := 0; i < 15; i++ {
		feedItems += fmt.Sprintf(`<item><title>Post %d</title><link>%s/post/number-%d-entry</link></item>`, i, origin, i)
	}

	deps, fetcher := testDeps(map[string]string{
		origin + "/feed": `<?xml version="1.0"?><rss version="2.0"><channel>` + feedItems + `</channel></rss>`,
		origin:           `<html><a href="` + origin + `/post/should-not-be-seen">x</a></html>`,
	})
	a := NewUniversalAgent(deps)

	result := a.Collect(context.Background(), origin)
	if result.ArticlesFound < 15 {
		t.Fatalf("expected 15+ articles, got %d", result.ArticlesFound)
	}
	for _, m := range result.Metadata.MethodsUsed {
		if m == "listing-scrape" {
			t.Error("listing scrape must not run once the threshold is met")
		}
	}
	_ = fetcher
}

func TestUniversalCollect_FeedDiscovery(t *testing.T) {
	silencePaginationSleep(t)
	origin := "https://discover.example.com"

	deps, _ := testDeps(map[string]string{
		origin: `<html><head>
<link rel="alternate" type="application/rss+xml" href="/secret/feed.rss">
</head><body></body></html>`,
		origin + "/secret/feed.rss": `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>Discovered</title><link>` + origin + `/discovered-post-item</link></item>
</channel></rss>`,
	})
	a := NewUniversalAgent(deps)

	result := a.Collect(context.Background(), origin)
	if !result.Success {
		t.Fatalf("expected autodiscovery to succeed, errors: %v", result.Errors)
	}

	found := false
	for _, article := range result.Articles {
		if article.Title == "Discovered" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected discovered feed article, got %+v", result.Articles)
	}
}
