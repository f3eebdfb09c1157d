package collector

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/thermoculture/internal/model"
)

const (
	// minBodyLength は本文として採用する最小文字数。
	// これ未満の抽出結果はナビゲーション断片とみなして捨てる。
	minBodyLength = 100
	// defaultMaxResultsPerTerm は検索語1件あたりの最大記事数。
	defaultMaxResultsPerTerm = 10
)

// TextSanitizer は抽出テキストからHTMLタグを除去するインターフェース。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// ScrapeCollector はニュースサイトの検索ページをスクレイプして文書を収集するコレクター。
// 検索ページから記事リンクを抽出し、各記事ページから本文を取り出す。
// 全てのアクセスはrobots.txtの判定を通す。
type ScrapeCollector struct {
	fetcher   *Fetcher
	robots    *RobotsGate
	sanitizer TextSanitizer
	logger    *slog.Logger
}

// NewScrapeCollector はScrapeCollectorを生成する。
func NewScrapeCollector(fetcher *Fetcher, robots *RobotsGate, sanitizer TextSanitizer, logger *slog.Logger) *ScrapeCollector {
	return &ScrapeCollector{
		fetcher:   fetcher,
		robots:    robots,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Collect は検索語ごとに検索ページをスクレイプして文書を収集する。
// robots.txtにより全アクセスが拒否されて0件になった場合は
// compliance_blocked、抽出結果が0件の場合はno_documentsを返す。
func (c *ScrapeCollector) Collect(ctx context.Context, source *model.Source, terms []string) ([]model.CandidateDocument, error) {
	base, err := url.Parse(source.URL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("ソースURLが不正です: %q", source.URL)
	}

	var docs []model.CandidateDocument
	seen := map[string]struct{}{}
	blocked := 0
	attempted := 0

	for _, term := range searchTerms(source, terms) {
		searchURL := c.buildSearchURL(base, source, term)

		attempted++
		if !c.robots.Allowed(ctx, searchURL) {
			blocked++
			c.logger.Info("robots.txtにより検索ページへのアクセスをスキップします",
				slog.String("url", searchURL),
			)
			continue
		}

		links, err := c.extractResultLinks(ctx, base, searchURL, source)
		if err != nil {
			c.logger.Warn("検索ページの取得に失敗、次の検索語に進みます",
				slog.String("url", searchURL),
				slog.String("error", err.Error()),
			)
			continue
		}

		count := 0
		for _, link := range links {
			if count >= c.maxResults(source) {
				break
			}
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}

			attempted++
			if !c.robots.Allowed(ctx, link) {
				blocked++
				continue
			}

			doc, err := c.extractArticle(ctx, link, term)
			if err != nil {
				c.logger.Warn("記事の抽出に失敗、次の記事に進みます",
					slog.String("url", link),
					slog.String("error", err.Error()),
				)
				continue
			}
			if doc == nil {
				continue
			}

			docs = append(docs, *doc)
			count++
		}
	}

	if len(docs) == 0 {
		if blocked > 0 && blocked == attempted {
			return nil, &EmptyResultError{
				Reason: ReasonComplianceBlocked,
				Detail: "robots.txtにより全てのアクセスが拒否されました",
			}
		}
		return nil, &EmptyResultError{
			Reason: ReasonNoDocuments,
			Detail: "記事を抽出できませんでした",
		}
	}

	return docs, nil
}

// buildSearchURL は検索語から検索ページのURLを組み立てる。
// ソース設定のsearch_pathが指定されていればそれを使用する（デフォルト: /search）。
func (c *ScrapeCollector) buildSearchURL(base *url.URL, source *model.Source, term string) string {
	searchPath := "/search"
	if p, ok := source.Config["search_path"].(string); ok && p != "" {
		searchPath = p
	}

	u := *base
	u.Path = strings.TrimSuffix(u.Path, "/") + searchPath
	q := u.Query()
	q.Set("q", term)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *ScrapeCollector) maxResults(source *model.Source) int {
	if n, ok := source.Config["max_results"].(float64); ok && n > 0 {
		return int(n)
	}
	return defaultMaxResultsPerTerm
}

// extractResultLinks は検索ページから記事リンクを抽出する。
// ソース設定のresult_selectorが指定されていればそれを使用する。
func (c *ScrapeCollector) extractResultLinks(ctx context.Context, base *url.URL, searchURL string, source *model.Source) ([]string, error) {
	body, err := c.fetcher.Get(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("検索ページのパースに失敗しました: %w", err)
	}

	selector := `a[href*="/news/"]`
	if s, ok := source.Config["result_selector"].(string); ok && s != "" {
		selector = s
	}

	var links []string
	doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists || href == "" {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		// 外部サイトへのリンクは対象外
		if resolved.Host != base.Host {
			return
		}
		resolved.Fragment = ""
		links = append(links, resolved.String())
	})

	return links, nil
}

// extractArticle は記事ページからタイトル・本文・メタデータを抽出する。
// タイトルが取れない、または本文が短すぎる場合はnilを返してスキップする。
func (c *ScrapeCollector) extractArticle(ctx context.Context, articleURL, term string) (*model.CandidateDocument, error) {
	body, err := c.fetcher.Get(ctx, articleURL)
	if err != nil {
		return nil, err
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("記事ページのパースに失敗しました: %w", err)
	}

	title := strings.TrimSpace(page.Find("h1").First().Text())
	if title == "" {
		title, _ = page.Find(`meta[property="og:title"]`).First().Attr("content")
		title = strings.TrimSpace(title)
	}
	if title == "" {
		return nil, nil
	}

	var paragraphs []string
	page.Find("article p").Each(func(i int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	content := c.sanitizer.SanitizeText(strings.Join(paragraphs, "\n\n"))
	if len(content) < minBodyLength {
		return nil, nil
	}

	doc := &model.CandidateDocument{
		Title:     c.sanitizer.SanitizeText(title),
		Content:   content,
		SourceURL: articleURL,
		RawMetadata: map[string]any{
			"search_term": term,
		},
	}

	if published := c.extractPublishedAt(page); published != nil {
		doc.PublishedAt = published
	}

	return doc, nil
}

// extractPublishedAt は記事ページから公開日時を抽出する。
// time要素のdatetime属性を優先し、無ければogメタタグを参照する。
func (c *ScrapeCollector) extractPublishedAt(page *goquery.Document) *time.Time {
	if datetime, ok := page.Find("time[datetime]").First().Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, datetime); err == nil {
			return &parsed
		}
	}
	if content, ok := page.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok {
		if parsed, err := time.Parse(time.RFC3339, content); err == nil {
			return &parsed
		}
	}
	return nil
}

// compile-time interface check
var _ Collector = (*ScrapeCollector)(nil)
