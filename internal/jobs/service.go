// Package jobs は収集ジョブのライフサイクル管理を提供する。
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/thermoculture/internal/model"
	"github.com/hitoshi/thermoculture/internal/repository"
	"github.com/hitoshi/thermoculture/internal/task"
)

// Enqueuer はタスク投入のインターフェース。task.Queueがこれを満たす。
type Enqueuer interface {
	Enqueue(t task.Task) error
}

// Service は収集ジョブの開始と照会を行うサービス。
type Service struct {
	sources repository.SourceRepository
	jobs    repository.JobRepository
	queue   Enqueuer
	logger  *slog.Logger
	now     func() time.Time // テスト用に現在時刻を差し替え可能
}

// NewService はServiceを生成する。
func NewService(sources repository.SourceRepository, jobs repository.JobRepository, queue Enqueuer, logger *slog.Logger) *Service {
	return &Service{
		sources: sources,
		jobs:    jobs,
		queue:   queue,
		logger:  logger,
		now:     time.Now,
	}
}

// StartCollection は指定ソースの収集ジョブを作成し、収集タスクを投入する。
// ジョブはPENDING状態で作成され、ワーカーが非同期に実行する。
// ソースが存在しない場合・停止中の場合はエラーを返す。
func (s *Service) StartCollection(ctx context.Context, sourceID string) (*model.CollectionJob, error) {
	source, err := s.sources.FindByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("ソースの取得に失敗しました: %w", err)
	}
	if source == nil {
		return nil, model.NewSourceNotFoundError(sourceID)
	}
	if !source.Active {
		return nil, model.NewSourceInactiveError(sourceID)
	}

	job := &model.CollectionJob{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		Status:    model.JobStatusPending,
		CreatedAt: s.now(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("ジョブの作成に失敗しました: %w", err)
	}

	if err := s.queue.Enqueue(task.Task{Kind: task.KindCollect, Payload: job.ID}); err != nil {
		now := s.now()
		job.Status = model.JobStatusFailed
		job.CompletedAt = &now
		job.ErrorMessage = "タスクキューへの投入に失敗しました"
		if updateErr := s.jobs.Update(ctx, job); updateErr != nil {
			s.logger.Error("ジョブ状態の更新に失敗しました",
				slog.String("job_id", job.ID),
				slog.String("error", updateErr.Error()),
			)
		}
		return nil, fmt.Errorf("収集タスクの投入に失敗しました: %w", err)
	}

	s.logger.Info("収集ジョブを開始しました",
		slog.String("job_id", job.ID),
		slog.String("source_id", sourceID),
	)

	return job, nil
}

// GetJob は指定IDのジョブを取得する。見つからない場合はJOB_NOT_FOUNDエラーを返す。
func (s *Service) GetJob(ctx context.Context, jobID string) (*model.CollectionJob, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("ジョブの取得に失敗しました: %w", err)
	}
	if job == nil {
		return nil, model.NewJobNotFoundError(jobID)
	}
	return job, nil
}

// LatestJob は指定ソースの最新ジョブを取得する。存在しない場合はnilを返す。
func (s *Service) LatestJob(ctx context.Context, sourceID string) (*model.CollectionJob, error) {
	job, err := s.jobs.FindLatestBySource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("最新ジョブの取得に失敗しました: %w", err)
	}
	return job, nil
}
