// Package model はドメインモデルを定義する。
package model

import "time"

// DiscourseSample は収集・正規化済みの言説サンプルを表す。
type DiscourseSample struct {
	ID            string
	SourceID      string
	Title         string // 最大512文字
	Content       string // 正規化済み本文
	ContentHash   string // 正規化本文のMD5ハッシュ（16進）
	SourceURL     string // 最大2048文字
	Author        string // 最大255文字
	PublishedAt   *time.Time
	CollectedAt   time.Time
	LocationHints []string
	RawMetadata   map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CandidateDocument はコレクターが取得した保存前の文書を表す。
// 取り込みパイプラインで正規化・重複排除された後にDiscourseSampleになる。
type CandidateDocument struct {
	Title         string
	Content       string
	SourceURL     string
	Author        string
	PublishedAt   *time.Time
	LocationHints []string
	RawMetadata   map[string]any
}
