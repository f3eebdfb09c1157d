// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/thermoculture/internal/model"
)

// SourceRepository は収集ソースの永続化インターフェース。
type SourceRepository interface {
	// Create はソースを作成する。
	Create(ctx context.Context, source *model.Source) error

	// FindByID は指定IDのソースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Source, error)

	// List は全ソースを作成日時順で返す。
	List(ctx context.Context) ([]*model.Source, error)

	// ListActive はアクティブなソースのみを返す。
	// スケジューラが定期収集の対象を決めるために使用する。
	ListActive(ctx context.Context) ([]*model.Source, error)

	// UpdateActive はソースの有効/無効を切り替える。
	UpdateActive(ctx context.Context, id string, active bool) error
}

// SampleRepository は言説サンプルの永続化インターフェース。
type SampleRepository interface {
	// FindByID は指定IDのサンプルを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.DiscourseSample, error)

	// List はサンプル一覧をcollected_at降順で返す。
	// sourceIDが空でない場合はそのソースに限定する。
	List(ctx context.Context, sourceID string, limit, offset int) ([]*model.DiscourseSample, error)

	// ListContentHashes は指定ソースの既存content_hashを1クエリで全件取得する。
	// 取り込みパイプラインの重複判定に使用する。
	ListContentHashes(ctx context.Context, sourceID string) (map[string]struct{}, error)

	// InsertBatch はサンプル群を単一トランザクションで一括挿入する。
	// ユニーク制約違反が発生した場合は1件ずつの挿入にフォールバックし、
	// 衝突した行は重複として数える。挿入されたIDと重複件数を返す。
	InsertBatch(ctx context.Context, samples []*model.DiscourseSample) (inserted []string, duplicates int, err error)

	// CountSince は指定時刻以降に収集されたサンプル数を返す。
	CountSince(ctx context.Context, since time.Time) (int, error)

	// Count は全サンプル数を返す。
	Count(ctx context.Context) (int, error)

	// CountsBySource はソースIDごとのサンプル数を返す。
	CountsBySource(ctx context.Context) (map[string]int, error)
}

// JobRepository は収集ジョブの永続化インターフェース。
type JobRepository interface {
	// Create はジョブを作成する。
	Create(ctx context.Context, job *model.CollectionJob) error

	// FindByID は指定IDのジョブを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.CollectionJob, error)

	// Update はジョブの状態・実行時刻・収集件数・エラーメッセージを更新する。
	Update(ctx context.Context, job *model.CollectionJob) error

	// FindLatestBySource は指定ソースの最新ジョブを取得する。見つからない場合はnilを返す。
	FindLatestBySource(ctx context.Context, sourceID string) (*model.CollectionJob, error)
}

// ThemeRepository はテーマとサンプル関連の永続化インターフェース。
type ThemeRepository interface {
	// UpsertByName はテーマ名で冪等にUPSERTし、テーマを返す。
	UpsertByName(ctx context.Context, name, description string) (*model.Theme, error)

	// LinkSample はサンプルとテーマの関連を冪等にUPSERTする。
	LinkSample(ctx context.Context, sampleID, themeID string, relevance float64) error

	// ListForSample はサンプルに関連するテーマを関連度降順で返す。
	ListForSample(ctx context.Context, sampleID string) ([]model.ThemeRelevance, error)

	// TrendCounts はテーマごとの直近件数と全期間件数を1クエリで集計する。
	TrendCounts(ctx context.Context, since time.Time) ([]ThemeTrendCount, error)
}

// AnalysisRepository は分析結果の永続化インターフェース。
type AnalysisRepository interface {
	// UpsertSentiment はサンプルの感情分析結果を冪等にUPSERTする。
	UpsertSentiment(ctx context.Context, a *model.SentimentAnalysis) error

	// UpsertClassification はサンプルの分類結果を冪等にUPSERTする。
	UpsertClassification(ctx context.Context, c *model.DiscourseClassification) error

	// FindSentimentBySample はサンプルの感情分析結果を取得する。見つからない場合はnilを返す。
	FindSentimentBySample(ctx context.Context, sampleID string) (*model.SentimentAnalysis, error)

	// FindClassificationBySample はサンプルの分類結果を取得する。見つからない場合はnilを返す。
	FindClassificationBySample(ctx context.Context, sampleID string) (*model.DiscourseClassification, error)
}

// ThemeTrendCount はテーマごとの出現件数集計結果。
// RecentCountはsince以降、HistoricalCountは全期間の関連サンプル数。
type ThemeTrendCount struct {
	ThemeID         string
	Name            string
	RecentCount     int
	HistoricalCount int
}
