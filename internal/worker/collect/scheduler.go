package collect

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/thermoculture/internal/model"
	"github.com/hitoshi/thermoculture/internal/repository"
)

// JobStarter は収集ジョブ開始のインターフェース。jobs.Serviceがこれを満たす。
type JobStarter interface {
	StartCollection(ctx context.Context, sourceID string) (*model.CollectionJob, error)
}

// Scheduler はアクティブなソースに対して定期的に収集ジョブを開始する。
type Scheduler struct {
	sources repository.SourceRepository
	starter JobStarter
	logger  *slog.Logger
}

// NewScheduler はSchedulerを生成する。
func NewScheduler(sources repository.SourceRepository, starter JobStarter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sources: sources,
		starter: starter,
		logger:  logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("収集スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("収集サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("収集スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("収集サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はアクティブな全ソースに対して収集ジョブを1回ずつ開始する。
// 個別ソースの失敗はログに記録して残りのソースの処理を継続する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	sources, err := s.sources.ListActive(ctx)
	if err != nil {
		return err
	}

	if len(sources) == 0 {
		s.logger.Info("収集対象のソースはありません")
		return nil
	}

	s.logger.Info("収集サイクルを開始します",
		slog.Int("source_count", len(sources)),
	)

	started := 0
	for _, source := range sources {
		if _, err := s.starter.StartCollection(ctx, source.ID); err != nil {
			s.logger.Error("収集ジョブの開始に失敗しました",
				slog.String("source_id", source.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		started++
	}

	s.logger.Info("収集サイクルが完了しました",
		slog.Int("source_count", len(sources)),
		slog.Int("started", started),
	)

	return nil
}
