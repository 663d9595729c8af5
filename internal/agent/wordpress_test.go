package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
)

func wpAPIPage(origin string, page, count int) string {
	posts := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		posts = append(posts, map[string]any{
			"link":    fmt.Sprintf("%s/%d/post-%d-%d/", origin, 2020+page, page, i),
			"date":    fmt.Sprintf("2020-03-%02dT08:00:00", (i%27)+1),
			"title":   map[string]any{"rendered": fmt.Sprintf("WP Post %d-%d", page, i)},
			"excerpt": map[string]any{"rendered": "<p>excerpt</p>"},
		})
	}
	body, _ := json.Marshal(posts)
	return string(body)
}

func wpAPIURL(origin string, page int) string {
	return fmt.Sprintf("%s/wp-json/wp/v2/posts?per_page=%d&page=%d&_fields=link,date,title,excerpt",
		origin, wordpressAPIPageSize, page)
}

func TestWordPressEstimateConfidence(t *testing.T) {
	deps, _ := testDeps(nil)
	a := NewWordPressAgent(deps)
	ctx := context.Background()

	tests := []struct {
		url  string
		want float64
	}{
		{"https://myblog.wordpress.com", 0.95},
		{"https://example.com/wp-content/uploads/x.png", 0.85},
		{"https://example.com/wp-json/", 0.85},
		{"https://example.com/?p=123", 0.4},
		{"https://example.com", 0},
	}
	for _, tt := range tests {
		if got := a.EstimateConfidence(ctx, tt.url); got != tt.want {
			t.Errorf("EstimateConfidence(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestWordPressCollect_RESTAPIStopsOn400(t *testing.T) {
	silencePaginationSleep(t)
	origin := "https://blog.example.com"

	deps, fetcher := testDeps(map[string]string{
		wpAPIURL(origin, 1): wpAPIPage(origin, 1, wordpressAPIPageSize),
	})
	// rest_post_invalid_page_number: WordPress signals exhaustion with 400
	fetcher.statuses[wpAPIURL(origin, 2)] = 400

	a := NewWordPressAgent(deps)
	result := a.Collect(context.Background(), origin)

	if !result.Success {
		t.Fatalf("expected success, errors: %v", result.Errors)
	}
	if result.ArticlesFound != wordpressAPIPageSize {
		t.Errorf("expected %d articles, got %d", wordpressAPIPageSize, result.ArticlesFound)
	}
	if fetcher.requested(wpAPIURL(origin, 3)) {
		t.Error("status error on page 2 should have stopped pagination")
	}
}

func TestWordPressCollect_TitleHTMLStripped(t *testing.T) {
	silencePaginationSleep(t)
	origin := "https://blog.example.com"

	posts, _ := json.Marshal([]map[string]any{{
		"link":    origin + "/2021/some-titled-post/",
		"date":    "2021-06-01T00:00:00",
		"title":   map[string]any{"rendered": "Hello &amp; <em>Goodbye</em>"},
		"excerpt": map[string]any{"rendered": ""},
	}})

	deps, _ := testDeps(map[string]string{wpAPIURL(origin, 1): string(posts)})
	a := NewWordPressAgent(deps)

	result := a.Collect(context.Background(), origin)
	if !result.Success {
		t.Fatalf("expected success, errors: %v", result.Errors)
	}
	if got := result.Articles[0].Title; got != "Hello & Goodbye" {
		t.Errorf("expected entities decoded and tags stripped, got %q", got)
	}
}

func TestWordPressCollect_PagedFeedWhenAPIDisabled(t *testing.T) {
	silencePaginationSleep(t)
	origin := "https://blog.example.com"

	deps, _ := testDeps(map[string]string{
		origin + "/feed/": `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>Feed Post</title><link>` + origin + `/2022/feed-post-one/</link>
  <pubDate>Tue, 05 Apr 2022 00:00:00 GMT</pubDate></item>
</channel></rss>`,
	})
	a := NewWordPressAgent(deps)

	result := a.Collect(context.Background(), origin)
	if !result.Success {
		t.Fatalf("expected paged-feed fallback to succeed, errors: %v", result.Errors)
	}
	if result.Articles[0].Title != "Feed Post" {
		t.Errorf("unexpected article: %+v", result.Articles[0])
	}
}
