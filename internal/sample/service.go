// Package sample は言説サンプルの登録・照会サービスを提供する。
package sample

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/thermoculture/internal/ingest"
	"github.com/hitoshi/thermoculture/internal/model"
	"github.com/hitoshi/thermoculture/internal/repository"
	"github.com/hitoshi/thermoculture/internal/task"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Ingester は取り込みパイプラインのインターフェース。ingest.Pipelineがこれを満たす。
type Ingester interface {
	Ingest(ctx context.Context, sourceID string, docs []model.CandidateDocument) (ingest.Stats, error)
}

// Enqueuer はタスク投入のインターフェース。task.Queueがこれを満たす。
type Enqueuer interface {
	Enqueue(t task.Task) error
}

// ManualInput は手動サンプル登録の入力。
type ManualInput struct {
	SourceID      string
	Title         string
	Content       string
	SourceURL     string
	Author        string
	PublishedAt   *time.Time
	LocationHints []string
}

// Service は言説サンプルの登録と照会を行うサービス。
// 手動登録は収集と同じ取り込みパイプラインを通すため、重複排除も同様に働く。
type Service struct {
	samples  repository.SampleRepository
	sources  repository.SourceRepository
	analyses repository.AnalysisRepository
	themes   repository.ThemeRepository
	pipeline Ingester
	queue    Enqueuer
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	samples repository.SampleRepository,
	sources repository.SourceRepository,
	analyses repository.AnalysisRepository,
	themes repository.ThemeRepository,
	pipeline Ingester,
	queue Enqueuer,
	logger *slog.Logger,
) *Service {
	return &Service{
		samples:  samples,
		sources:  sources,
		analyses: analyses,
		themes:   themes,
		pipeline: pipeline,
		queue:    queue,
		logger:   logger,
	}
}

// CreateManual はサンプルを手動登録する。
// 取り込みパイプラインを通すため正規化と重複排除が適用され、
// 登録後は分析タスクが投入される。重複の場合はDUPLICATE_SAMPLEエラーを返す。
func (s *Service) CreateManual(ctx context.Context, input ManualInput) (*model.DiscourseSample, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, model.NewValidationError("本文は必須です")
	}

	src, err := s.sources.FindByID(ctx, input.SourceID)
	if err != nil {
		return nil, fmt.Errorf("ソースの取得に失敗しました: %w", err)
	}
	if src == nil {
		return nil, model.NewSourceNotFoundError(input.SourceID)
	}

	doc := model.CandidateDocument{
		Title:         input.Title,
		Content:       input.Content,
		SourceURL:     input.SourceURL,
		Author:        input.Author,
		PublishedAt:   input.PublishedAt,
		LocationHints: input.LocationHints,
	}

	stats, err := s.pipeline.Ingest(ctx, input.SourceID, []model.CandidateDocument{doc})
	if err != nil {
		return nil, fmt.Errorf("サンプルの取り込みに失敗しました: %w", err)
	}
	if len(stats.NewSampleIDs) == 0 {
		return nil, model.NewDuplicateSampleError()
	}

	sampleID := stats.NewSampleIDs[0]
	if err := s.queue.Enqueue(task.Task{Kind: task.KindEnrich, Payload: sampleID}); err != nil {
		s.logger.Warn("分析タスクの投入に失敗しました",
			slog.String("sample_id", sampleID),
			slog.String("error", err.Error()),
		)
	}

	created, err := s.samples.FindByID(ctx, sampleID)
	if err != nil {
		return nil, fmt.Errorf("登録サンプルの取得に失敗しました: %w", err)
	}

	s.logger.Info("サンプルを手動登録しました",
		slog.String("sample_id", sampleID),
		slog.String("source_id", input.SourceID),
	)

	return created, nil
}

// Get は指定IDのサンプルと分析結果を取得する。
// 分析が未完了の場合、EnrichmentResultの各フィールドはnil・空になる。
func (s *Service) Get(ctx context.Context, id string) (*model.DiscourseSample, *model.EnrichmentResult, error) {
	smp, err := s.samples.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("サンプルの取得に失敗しました: %w", err)
	}
	if smp == nil {
		return nil, nil, model.NewSampleNotFoundError(id)
	}

	enrichment := &model.EnrichmentResult{}

	if enrichment.Sentiment, err = s.analyses.FindSentimentBySample(ctx, id); err != nil {
		return nil, nil, fmt.Errorf("感情分析結果の取得に失敗しました: %w", err)
	}
	if enrichment.Classification, err = s.analyses.FindClassificationBySample(ctx, id); err != nil {
		return nil, nil, fmt.Errorf("分類結果の取得に失敗しました: %w", err)
	}
	if enrichment.Themes, err = s.themes.ListForSample(ctx, id); err != nil {
		return nil, nil, fmt.Errorf("関連テーマの取得に失敗しました: %w", err)
	}

	return smp, enrichment, nil
}

// List はサンプル一覧をcollected_at降順で返す。
// sourceIDが空でない場合はそのソースに限定する。limitは1〜100に丸める。
func (s *Service) List(ctx context.Context, sourceID string, limit, offset int) ([]*model.DiscourseSample, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	samples, err := s.samples.List(ctx, sourceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("サンプル一覧の取得に失敗しました: %w", err)
	}
	return samples, nil
}
