package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/thermoculture/internal/model"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Climate Desk</title>
    <item>
      <title>Energy bills set to rise</title>
      <link>https://example.com/energy-bills</link>
      <description>Regulators confirmed the price cap will increase in October.</description>
      <author>desk@example.com (Climate Desk)</author>
      <pubDate>Thu, 20 Aug 2026 08:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Untitled entry</title>
      <link></link>
    </item>
  </channel>
</rss>`

func newTestRSSCollector(t *testing.T) *RSSCollector {
	t.Helper()
	f := NewFetcher(&http.Client{}, time.Millisecond, "ThermocultureResearchBot/1.0", testLogger())
	f.backoff = func(int) time.Duration { return 0 }
	return NewRSSCollector(f, passSanitizer{}, testLogger())
}

// TestRSSCollector_MapsItems はフィード項目がCandidateDocumentに変換されることを検証する。
func TestRSSCollector_MapsItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody))
	}))
	defer server.Close()

	c := newTestRSSCollector(t)
	source := &model.Source{ID: "src-1", URL: server.URL, Type: model.SourceTypeNewsRSS}

	docs, err := c.Collect(context.Background(), source, nil)
	if err != nil {
		t.Fatalf("Collect に失敗: %v", err)
	}

	// リンクなしの項目は除外される
	if len(docs) != 1 {
		t.Fatalf("文書数 = %d, want 1", len(docs))
	}
	doc := docs[0]
	if doc.Title != "Energy bills set to rise" {
		t.Errorf("Title = %q, want %q", doc.Title, "Energy bills set to rise")
	}
	if doc.Content != "Regulators confirmed the price cap will increase in October." {
		t.Errorf("Content = %q, descriptionが使われるべき", doc.Content)
	}
	if doc.SourceURL != "https://example.com/energy-bills" {
		t.Errorf("SourceURL = %q", doc.SourceURL)
	}
	if doc.PublishedAt == nil {
		t.Error("PublishedAt が設定されるべき")
	}
	if doc.RawMetadata["feed_title"] != "Climate Desk" {
		t.Errorf("feed_title = %v, want Climate Desk", doc.RawMetadata["feed_title"])
	}
}

// TestRSSCollector_MultipleFeedURLs はソース設定のfeed_urlsが使われることを検証する。
func TestRSSCollector_MultipleFeedURLs(t *testing.T) {
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Write([]byte(rssBody))
	}))
	defer server.Close()

	c := newTestRSSCollector(t)
	source := &model.Source{
		ID:   "src-1",
		Type: model.SourceTypeNewsRSS,
		Config: map[string]any{
			"feed_urls": []any{server.URL + "/uk", server.URL + "/world"},
		},
	}

	docs, err := c.Collect(context.Background(), source, nil)
	if err != nil {
		t.Fatalf("Collect に失敗: %v", err)
	}
	if fetches != 2 {
		t.Errorf("フィード取得回数 = %d, want 2", fetches)
	}
	// 同一リンクはフィードをまたいで1件にまとめられる
	if len(docs) != 1 {
		t.Errorf("文書数 = %d, want 1", len(docs))
	}
}

// TestRSSCollector_EmptyFeed は空フィードの場合にno_documentsを返すことを検証する。
func TestRSSCollector_EmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`))
	}))
	defer server.Close()

	c := newTestRSSCollector(t)
	source := &model.Source{ID: "src-1", URL: server.URL, Type: model.SourceTypeNewsRSS}

	_, err := c.Collect(context.Background(), source, nil)

	var emptyErr *EmptyResultError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("EmptyResultError を返すべき, got %v", err)
	}
	if emptyErr.Reason != ReasonNoDocuments {
		t.Errorf("Reason = %q, want %q", emptyErr.Reason, ReasonNoDocuments)
	}
}

// TestRegistry_ForSource はソース種別に応じたコレクター選択を検証する。
func TestRegistry_ForSource(t *testing.T) {
	f := NewFetcher(&http.Client{}, time.Millisecond, "ua", testLogger())
	gate := NewRobotsGate(&http.Client{}, "ua", testLogger())
	registry := NewRegistry(
		NewNewsAPICollector(f, "key", false, testLogger()),
		NewScrapeCollector(f, gate, passSanitizer{}, testLogger()),
		NewRSSCollector(f, passSanitizer{}, testLogger()),
	)

	if _, err := registry.ForSource(&model.Source{Type: model.SourceTypeNewsAPI}); err != nil {
		t.Errorf("news_api はコレクターを返すべき: %v", err)
	}
	if _, err := registry.ForSource(&model.Source{Type: model.SourceTypeNewsScrape}); err != nil {
		t.Errorf("news_scrape はコレクターを返すべき: %v", err)
	}
	if _, err := registry.ForSource(&model.Source{Type: model.SourceTypeNewsRSS}); err != nil {
		t.Errorf("news_rss はコレクターを返すべき: %v", err)
	}
	if _, err := registry.ForSource(&model.Source{Type: model.SourceTypeReddit}); err == nil {
		t.Error("reddit は未対応エラーを返すべき")
	}
	if _, err := registry.ForSource(&model.Source{Type: model.SourceTypeManual}); err == nil {
		t.Error("manual は未対応エラーを返すべき")
	}
}
