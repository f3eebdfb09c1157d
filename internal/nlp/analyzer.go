package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/thermoculture/internal/model"
)

// SampleFinder は分析対象サンプルの取得に必要なインターフェース。
type SampleFinder interface {
	FindByID(ctx context.Context, id string) (*model.DiscourseSample, error)
}

// AnalysisStore は分析結果の永続化に必要なインターフェース。
// repository.AnalysisRepositoryがこれを満たす。
type AnalysisStore interface {
	UpsertSentiment(ctx context.Context, a *model.SentimentAnalysis) error
	UpsertClassification(ctx context.Context, c *model.DiscourseClassification) error
}

// ThemeStore はテーマ関連の永続化に必要なインターフェース。
type ThemeStore interface {
	UpsertByName(ctx context.Context, name, description string) (*model.Theme, error)
	LinkSample(ctx context.Context, sampleID, themeID string, relevance float64) error
}

// Analyzer は感情分析・言説分類・テーマ抽出を1サンプルに対してまとめて
// 実行し、結果を永続化するオーケストレーター。
type Analyzer struct {
	samples    SampleFinder
	analyses   AnalysisStore
	themes     ThemeStore
	sentiment  *SentimentAnalyzer
	classifier *DiscourseClassifier
	matcher    *ThemeMatcher
	logger     *slog.Logger
	now        func() time.Time // テスト用に現在時刻を差し替え可能
}

// NewAnalyzer はAnalyzerを生成する。
func NewAnalyzer(samples SampleFinder, analyses AnalysisStore, themes ThemeStore, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		samples:    samples,
		analyses:   analyses,
		themes:     themes,
		sentiment:  NewSentimentAnalyzer(),
		classifier: NewDiscourseClassifier(),
		matcher:    NewThemeMatcher(),
		logger:     logger,
		now:        time.Now,
	}
}

// EnrichSample は指定サンプルの全分析を実行して結果を保存する。
// 各分析は冪等なUPSERTで保存されるため再実行しても安全。
func (a *Analyzer) EnrichSample(ctx context.Context, sampleID string) (*model.EnrichmentResult, error) {
	sample, err := a.samples.FindByID(ctx, sampleID)
	if err != nil {
		return nil, fmt.Errorf("サンプルの取得に失敗しました: %w", err)
	}
	if sample == nil {
		return nil, fmt.Errorf("サンプルが見つかりません: %s", sampleID)
	}

	result := a.Analyze(sampleID, sample.Content)

	if err := a.analyses.UpsertSentiment(ctx, result.Sentiment); err != nil {
		return nil, fmt.Errorf("感情分析結果の保存に失敗しました: %w", err)
	}
	if err := a.analyses.UpsertClassification(ctx, result.Classification); err != nil {
		return nil, fmt.Errorf("分類結果の保存に失敗しました: %w", err)
	}
	for _, theme := range result.Themes {
		stored, err := a.themes.UpsertByName(ctx, theme.Name, a.matcher.Description(theme.Name))
		if err != nil {
			return nil, fmt.Errorf("テーマの保存に失敗しました: %w", err)
		}
		if err := a.themes.LinkSample(ctx, sampleID, stored.ID, theme.Relevance); err != nil {
			return nil, fmt.Errorf("テーマ関連の保存に失敗しました: %w", err)
		}
	}

	a.logger.Info("サンプルの分析が完了しました",
		slog.String("sample_id", sampleID),
		slog.String("sentiment_label", string(result.Sentiment.Label)),
		slog.String("classification", string(result.Classification.Type)),
		slog.Int("themes", len(result.Themes)),
	)

	return result, nil
}

// Analyze は本文に対する全分析を実行する。永続化は行わない。
func (a *Analyzer) Analyze(sampleID, content string) *model.EnrichmentResult {
	now := a.now()

	score, label, confidence := a.sentiment.Analyze(content)
	classType, classConfidence, scores := a.classifier.Classify(content)
	themes := a.matcher.Match(content)

	return &model.EnrichmentResult{
		Sentiment: &model.SentimentAnalysis{
			ID:         uuid.NewString(),
			SampleID:   sampleID,
			Score:      score,
			Label:      label,
			Confidence: confidence,
			CreatedAt:  now,
		},
		Classification: &model.DiscourseClassification{
			ID:         uuid.NewString(),
			SampleID:   sampleID,
			Type:       classType,
			Confidence: classConfidence,
			Scores:     scores,
			CreatedAt:  now,
		},
		Themes: themes,
	}
}
