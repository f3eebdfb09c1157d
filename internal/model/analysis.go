// Package model はドメインモデルを定義する。
package model

import "time"

// SentimentLabel は感情分析の離散ラベルを表す。
type SentimentLabel string

const (
	// SentimentVeryNegative はスコア -0.6 未満。
	SentimentVeryNegative SentimentLabel = "very_negative"
	// SentimentNegative はスコア -0.2 未満。
	SentimentNegative SentimentLabel = "negative"
	// SentimentNeutral はスコア 0.2 以下。
	SentimentNeutral SentimentLabel = "neutral"
	// SentimentPositive はスコア 0.6 以下。
	SentimentPositive SentimentLabel = "positive"
	// SentimentVeryPositive はスコア 0.6 超。
	SentimentVeryPositive SentimentLabel = "very_positive"
)

// SentimentAnalysis はサンプル1件の感情分析結果を表す。
type SentimentAnalysis struct {
	ID         string
	SampleID   string
	Score      float64 // [-1, 1] 小数第4位まで
	Label      SentimentLabel
	Confidence float64 // [0.3, 1.0]
	CreatedAt  time.Time
}

// ClassificationType は言説の分類カテゴリを表す。
type ClassificationType string

const (
	// ClassificationPracticalAdaptation は実用的な適応に関する言説。
	ClassificationPracticalAdaptation ClassificationType = "practical_adaptation"
	// ClassificationEmotionalResponse は感情的反応の言説。
	ClassificationEmotionalResponse ClassificationType = "emotional_response"
	// ClassificationPolicyDiscussion は政策議論の言説。
	ClassificationPolicyDiscussion ClassificationType = "policy_discussion"
	// ClassificationCommunityAction はコミュニティ活動の言説。
	ClassificationCommunityAction ClassificationType = "community_action"
	// ClassificationDenialDismissal は否認・軽視の言説。
	ClassificationDenialDismissal ClassificationType = "denial_dismissal"
)

// DiscourseClassification はサンプル1件の分類結果を表す。
// Scoresは全カテゴリの正規化スコア（合計1.0）を保持する。
type DiscourseClassification struct {
	ID         string
	SampleID   string
	Type       ClassificationType
	Confidence float64
	Scores     map[string]float64
	CreatedAt  time.Time
}

// Theme は言説テーマを表す。
type Theme struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// ThemeAssociation はサンプルとテーマの関連を表す。
type ThemeAssociation struct {
	SampleID  string
	ThemeID   string
	Relevance float64 // コサイン類似度 小数第4位まで
}

// ThemeRelevance はテーマ抽出の中間結果（テーマ名と関連度）を表す。
type ThemeRelevance struct {
	Name      string
	Relevance float64
}

// TrendingTheme はテーマのトレンドスコアを表す。
// Scoreは直近ウィンドウ内の出現シェアと全期間シェアの差。
type TrendingTheme struct {
	ThemeID         string
	Name            string
	RecentCount     int
	HistoricalCount int
	Score           float64
}

// EnrichmentResult はサンプル1件の分析結果一式を表す。
type EnrichmentResult struct {
	Sentiment      *SentimentAnalysis
	Classification *DiscourseClassification
	Themes         []ThemeRelevance
}
