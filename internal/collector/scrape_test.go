package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/thermoculture/internal/model"
)

// passSanitizer はテスト用のサニタイザ（素通し）。
type passSanitizer struct{}

func (passSanitizer) SanitizeText(s string) string { return s }

func newTestScrapeCollector(t *testing.T, client *http.Client) *ScrapeCollector {
	t.Helper()
	f := NewFetcher(client, time.Millisecond, "ThermocultureResearchBot/1.0", testLogger())
	f.backoff = func(int) time.Duration { return 0 }
	gate := NewRobotsGate(client, "ThermocultureResearchBot/1.0", testLogger())
	return NewScrapeCollector(f, gate, passSanitizer{}, testLogger())
}

const articleBody = "Residents across the region reported rising water levels after days of heavy rainfall, with local councils urging households to prepare for further flooding through the weekend."

func articleHTML(title string) string {
	return fmt.Sprintf(`<html><head>
		<meta property="article:published_time" content="2026-08-20T10:00:00Z">
	</head><body>
		<h1>%s</h1>
		<article><p>%s</p></article>
	</body></html>`, title, articleBody)
}

// TestScrapeCollector_ExtractsArticles は検索→記事抽出の一連の流れを検証する。
func TestScrapeCollector_ExtractsArticles(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow:\n"))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<a href="/news/flood-warning">Flood warning</a>
			<a href="/news/flood-warning">Flood warning dup</a>
			<a href="https://other.example.com/news/external">External</a>
		</body></html>`)
	})
	mux.HandleFunc("/news/flood-warning", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML("Flood warning issued")))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	c := newTestScrapeCollector(t, server.Client())
	source := &model.Source{ID: "src-1", URL: server.URL, Type: model.SourceTypeNewsScrape}

	docs, err := c.Collect(context.Background(), source, []string{"flooding"})
	if err != nil {
		t.Fatalf("Collect に失敗: %v", err)
	}

	if len(docs) != 1 {
		t.Fatalf("文書数 = %d, want 1（重複リンクと外部リンクは除外されるべき）", len(docs))
	}
	doc := docs[0]
	if doc.Title != "Flood warning issued" {
		t.Errorf("Title = %q, want %q", doc.Title, "Flood warning issued")
	}
	if !strings.Contains(doc.Content, "rising water levels") {
		t.Errorf("Content に本文が含まれるべき: %q", doc.Content)
	}
	if doc.PublishedAt == nil {
		t.Fatal("PublishedAt が抽出されるべき")
	}
	if doc.PublishedAt.Format(time.RFC3339) != "2026-08-20T10:00:00Z" {
		t.Errorf("PublishedAt = %v, want 2026-08-20T10:00:00Z", doc.PublishedAt)
	}
	if doc.RawMetadata["search_term"] != "flooding" {
		t.Errorf("search_term = %v, want flooding", doc.RawMetadata["search_term"])
	}
}

// TestScrapeCollector_SkipsShortBody は本文が短すぎる記事をスキップすることを検証する。
func TestScrapeCollector_SkipsShortBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow:\n"))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<a href="/news/short">Short</a>`)
	})
	mux.HandleFunc("/news/short", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<h1>Short</h1><article><p>too short</p></article>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestScrapeCollector(t, server.Client())
	source := &model.Source{ID: "src-1", URL: server.URL, Type: model.SourceTypeNewsScrape}

	_, err := c.Collect(context.Background(), source, []string{"flooding"})

	var emptyErr *EmptyResultError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("EmptyResultError を返すべき, got %v", err)
	}
	if emptyErr.Reason != ReasonNoDocuments {
		t.Errorf("Reason = %q, want %q", emptyErr.Reason, ReasonNoDocuments)
	}
}

// TestScrapeCollector_ComplianceBlocked はrobots.txtで全拒否された場合に
// compliance_blockedの理由コードが返り、コンテンツへのアクセスが発生しないことを検証する。
func TestScrapeCollector_ComplianceBlocked(t *testing.T) {
	contentRequests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		contentRequests++
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestScrapeCollector(t, server.Client())
	source := &model.Source{ID: "src-1", URL: server.URL, Type: model.SourceTypeNewsScrape}

	_, err := c.Collect(context.Background(), source, []string{"flooding", "heatwave"})

	var emptyErr *EmptyResultError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("EmptyResultError を返すべき, got %v", err)
	}
	if emptyErr.Reason != ReasonComplianceBlocked {
		t.Errorf("Reason = %q, want %q", emptyErr.Reason, ReasonComplianceBlocked)
	}
	if contentRequests != 0 {
		t.Errorf("拒否対象へのリクエストが %d 回発生（0であるべき）", contentRequests)
	}
}

// TestScrapeCollector_InvalidSourceURL はソースURLが不正な場合にエラーを返すことを検証する。
func TestScrapeCollector_InvalidSourceURL(t *testing.T) {
	c := newTestScrapeCollector(t, &http.Client{})
	source := &model.Source{ID: "src-1", URL: "not-a-url", Type: model.SourceTypeNewsScrape}

	if _, err := c.Collect(context.Background(), source, nil); err == nil {
		t.Fatal("不正なソースURLはエラーを返すべき")
	}
}
