package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/thermoculture/internal/model"
)

const (
	// defaultNewsAPIEndpoint はニュース検索APIのエンドポイント。
	defaultNewsAPIEndpoint = "https://newsapi.org/v2/everything"
	// defaultPageSize は通常キーでの1リクエストあたりの取得件数。
	defaultPageSize = 50
	// trialPageSize は試用キーでの1リクエストあたりの取得件数。
	trialPageSize = 10
)

// NewsAPICollector はニュース検索APIから文書を収集するコレクター。
type NewsAPICollector struct {
	fetcher  *Fetcher
	apiKey   string
	pageSize int
	logger   *slog.Logger
	endpoint string // テスト用にエンドポイントを差し替え可能
}

// NewNewsAPICollector はNewsAPICollectorを生成する。
// trialModeがtrueの場合は取得件数を縮小して動作する。
func NewNewsAPICollector(fetcher *Fetcher, apiKey string, trialMode bool, logger *slog.Logger) *NewsAPICollector {
	pageSize := defaultPageSize
	if trialMode {
		pageSize = trialPageSize
	}
	return &NewsAPICollector{
		fetcher:  fetcher,
		apiKey:   apiKey,
		pageSize: pageSize,
		logger:   logger,
		endpoint: defaultNewsAPIEndpoint,
	}
}

// newsAPIResponse はニュース検索APIのレスポンス。
type newsAPIResponse struct {
	Status   string           `json:"status"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Collect は検索語ごとにAPIを呼び出して文書を収集する。
func (c *NewsAPICollector) Collect(ctx context.Context, source *model.Source, terms []string) ([]model.CandidateDocument, error) {
	var docs []model.CandidateDocument
	seen := map[string]struct{}{}

	for _, term := range searchTerms(source, terms) {
		articles, err := c.search(ctx, term)
		if err != nil {
			c.logger.Warn("検索語の取得に失敗、次の検索語に進みます",
				slog.String("term", term),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, a := range articles {
			if a.URL == "" || a.Title == "" {
				continue
			}
			if _, ok := seen[a.URL]; ok {
				continue
			}
			seen[a.URL] = struct{}{}
			docs = append(docs, c.toDocument(a, term))
		}
	}

	if len(docs) == 0 {
		return nil, &EmptyResultError{
			Reason: ReasonNoDocuments,
			Detail: "ニュースAPIから文書を取得できませんでした",
		}
	}

	return docs, nil
}

func (c *NewsAPICollector) search(ctx context.Context, term string) ([]newsAPIArticle, error) {
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("q", term)
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	q.Set("apiKey", c.apiKey)
	reqURL.RawQuery = q.Encode()

	body, err := c.fetcher.Get(ctx, reqURL.String())
	if err != nil {
		return nil, err
	}

	var result newsAPIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("ニュースAPIがエラーステータスを返しました: %s", result.Status)
	}

	return result.Articles, nil
}

func (c *NewsAPICollector) toDocument(a newsAPIArticle, term string) model.CandidateDocument {
	content := a.Content
	if content == "" {
		content = a.Description
	}

	doc := model.CandidateDocument{
		Title:     a.Title,
		Content:   content,
		SourceURL: a.URL,
		Author:    a.Author,
		RawMetadata: map[string]any{
			"api_source":  a.Source.Name,
			"search_term": term,
		},
	}

	if a.PublishedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			doc.PublishedAt = &parsed
		}
	}

	return doc
}

// compile-time interface check
var _ Collector = (*NewsAPICollector)(nil)
