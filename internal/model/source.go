// Package model はドメインモデルを定義する。
package model

import "time"

// Source は収集対象のソースを表す。
type Source struct {
	ID        string
	Name      string
	Type      SourceType
	URL       string
	Config    map[string]any // ソース固有の設定（フィードURL一覧、検索エンドポイント等）
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SourceType はソースの収集方式を表す。
type SourceType string

const (
	// SourceTypeNewsAPI はニュース検索APIから収集するソース。
	SourceTypeNewsAPI SourceType = "news_api"
	// SourceTypeNewsScrape はニュースサイトのHTMLをスクレイプして収集するソース。
	SourceTypeNewsScrape SourceType = "news_scrape"
	// SourceTypeNewsRSS はRSS/Atomフィードから収集するソース。
	SourceTypeNewsRSS SourceType = "news_rss"
	// SourceTypeReddit はReddit由来のソース（収集は未対応）。
	SourceTypeReddit SourceType = "reddit"
	// SourceTypeForum はフォーラム由来のソース（収集は未対応）。
	SourceTypeForum SourceType = "forum"
	// SourceTypeSocialMedia はSNS由来のソース（収集は未対応）。
	SourceTypeSocialMedia SourceType = "social_media"
	// SourceTypeManual は手動登録のソース。
	SourceTypeManual SourceType = "manual"
)

// ValidSourceType は既知のソース種別かどうかを返す。
func ValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeNewsAPI, SourceTypeNewsScrape, SourceTypeNewsRSS,
		SourceTypeReddit, SourceTypeForum, SourceTypeSocialMedia, SourceTypeManual:
		return true
	}
	return false
}
