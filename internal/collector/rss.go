package collector

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/thermoculture/internal/model"
)

// RSSCollector はRSS/Atomフィードから文書を収集するコレクター。
// ソース設定のfeed_urls、無ければソースURL自体をフィードとして扱う。
type RSSCollector struct {
	fetcher   *Fetcher
	sanitizer TextSanitizer
	parser    *gofeed.Parser
	logger    *slog.Logger
}

// NewRSSCollector はRSSCollectorを生成する。
func NewRSSCollector(fetcher *Fetcher, sanitizer TextSanitizer, logger *slog.Logger) *RSSCollector {
	return &RSSCollector{
		fetcher:   fetcher,
		sanitizer: sanitizer,
		parser:    gofeed.NewParser(),
		logger:    logger,
	}
}

// Collect は各フィードをパースして文書を収集する。
// RSSは検索語によるフィルタを行わない（フィード自体が主題で絞られている前提）。
func (c *RSSCollector) Collect(ctx context.Context, source *model.Source, terms []string) ([]model.CandidateDocument, error) {
	var docs []model.CandidateDocument
	seen := map[string]struct{}{}

	for _, feedURL := range c.feedURLs(source) {
		body, err := c.fetcher.Get(ctx, feedURL)
		if err != nil {
			c.logger.Warn("フィードの取得に失敗、次のフィードに進みます",
				slog.String("url", feedURL),
				slog.String("error", err.Error()),
			)
			continue
		}

		feed, err := c.parser.Parse(bytes.NewReader(body))
		if err != nil {
			c.logger.Warn("フィードのパースに失敗、次のフィードに進みます",
				slog.String("url", feedURL),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, item := range feed.Items {
			if item.Link == "" || item.Title == "" {
				continue
			}
			if _, ok := seen[item.Link]; ok {
				continue
			}
			seen[item.Link] = struct{}{}

			doc := c.toDocument(item, feed.Title, feedURL)
			if doc == nil {
				continue
			}
			docs = append(docs, *doc)
		}
	}

	if len(docs) == 0 {
		return nil, &EmptyResultError{
			Reason: ReasonNoDocuments,
			Detail: "フィードから記事を取得できませんでした",
		}
	}

	return docs, nil
}

func (c *RSSCollector) feedURLs(source *model.Source) []string {
	if raw, ok := source.Config["feed_urls"].([]any); ok {
		var urls []string
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
		if len(urls) > 0 {
			return urls
		}
	}
	return []string{source.URL}
}

func (c *RSSCollector) toDocument(item *gofeed.Item, feedTitle, feedURL string) *model.CandidateDocument {
	content := item.Content
	if content == "" {
		content = item.Description
	}
	content = strings.TrimSpace(c.sanitizer.SanitizeText(content))
	if content == "" {
		return nil
	}

	doc := &model.CandidateDocument{
		Title:       strings.TrimSpace(c.sanitizer.SanitizeText(item.Title)),
		Content:     content,
		SourceURL:   item.Link,
		PublishedAt: item.PublishedParsed,
		RawMetadata: map[string]any{
			"feed_title": feedTitle,
			"feed_url":   feedURL,
		},
	}

	if item.Author != nil {
		doc.Author = item.Author.Name
	}

	return doc
}

// compile-time interface check
var _ Collector = (*RSSCollector)(nil)
