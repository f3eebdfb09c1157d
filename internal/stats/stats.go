// Package stats は収集状況の集計を提供する。
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/thermoculture/internal/model"
	"github.com/hitoshi/thermoculture/internal/repository"
)

// SourceStats はソース1件の収集状況。
type SourceStats struct {
	SourceID    string
	Name        string
	Type        model.SourceType
	Active      bool
	SampleCount int
	LastJob     *model.CollectionJob // 実行履歴がない場合はnil
}

// CollectionStats は収集全体の集計結果。
type CollectionStats struct {
	TotalSamples   int
	SamplesLast24h int
	Sources        []SourceStats
}

// Service は収集状況の集計を行うサービス。
type Service struct {
	sources repository.SourceRepository
	samples repository.SampleRepository
	jobs    repository.JobRepository
	logger  *slog.Logger
	now     func() time.Time // テスト用に現在時刻を差し替え可能
}

// NewService はServiceを生成する。
func NewService(sources repository.SourceRepository, samples repository.SampleRepository, jobs repository.JobRepository, logger *slog.Logger) *Service {
	return &Service{
		sources: sources,
		samples: samples,
		jobs:    jobs,
		logger:  logger,
		now:     time.Now,
	}
}

// Collection はソース別のサンプル数と最新ジョブを含む収集状況を集計する。
func (s *Service) Collection(ctx context.Context) (*CollectionStats, error) {
	total, err := s.samples.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("サンプル総数の取得に失敗しました: %w", err)
	}

	last24h, err := s.samples.CountSince(ctx, s.now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("直近サンプル数の取得に失敗しました: %w", err)
	}

	counts, err := s.samples.CountsBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("ソース別サンプル数の取得に失敗しました: %w", err)
	}

	sources, err := s.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ソース一覧の取得に失敗しました: %w", err)
	}

	result := &CollectionStats{
		TotalSamples:   total,
		SamplesLast24h: last24h,
		Sources:        make([]SourceStats, 0, len(sources)),
	}

	for _, src := range sources {
		lastJob, err := s.jobs.FindLatestBySource(ctx, src.ID)
		if err != nil {
			// ジョブ履歴の取得失敗は集計全体を失敗させない
			s.logger.Warn("最新ジョブの取得に失敗しました",
				slog.String("source_id", src.ID),
				slog.String("error", err.Error()),
			)
		}

		result.Sources = append(result.Sources, SourceStats{
			SourceID:    src.ID,
			Name:        src.Name,
			Type:        src.Type,
			Active:      src.Active,
			SampleCount: counts[src.ID],
			LastJob:     lastJob,
		})
	}

	return result, nil
}
