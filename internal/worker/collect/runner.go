// Package collect は収集ジョブのバックグラウンド実行を提供する。
// タスクキューから受け取ったジョブを実行するランナーと、
// アクティブなソースを定期的に収集するスケジューラを含む。
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/thermoculture/internal/collector"
	"github.com/hitoshi/thermoculture/internal/ingest"
	"github.com/hitoshi/thermoculture/internal/model"
	"github.com/hitoshi/thermoculture/internal/repository"
	"github.com/hitoshi/thermoculture/internal/task"
)

// CollectorRegistry はソース種別に応じたコレクター選択のインターフェース。
type CollectorRegistry interface {
	ForSource(source *model.Source) (collector.Collector, error)
}

// Ingester は収集文書の取り込みインターフェース。ingest.Pipelineがこれを満たす。
type Ingester interface {
	Ingest(ctx context.Context, sourceID string, docs []model.CandidateDocument) (ingest.Stats, error)
}

// Enqueuer はタスク投入のインターフェース。
type Enqueuer interface {
	Enqueue(t task.Task) error
}

// Metrics は収集メトリクス記録のインターフェース。
type Metrics interface {
	RecordCollectSuccess(sourceID string)
	RecordCollectFailure(sourceID string, reason string)
	RecordCollectLatency(duration time.Duration)
	RecordSamplesIngested(count int)
	RecordDuplicatesSkipped(count int)
}

// Runner は収集ジョブを1件実行するワーカー。
// ジョブをRUNNINGに遷移させ、コレクターで文書を収集し、
// 取り込みパイプラインで保存した後、新規サンプルの分析タスクを投入する。
type Runner struct {
	sources  repository.SourceRepository
	jobs     repository.JobRepository
	registry CollectorRegistry
	pipeline Ingester
	queue    Enqueuer
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time // テスト用に現在時刻を差し替え可能
}

// NewRunner はRunnerを生成する。
func NewRunner(
	sources repository.SourceRepository,
	jobs repository.JobRepository,
	registry CollectorRegistry,
	pipeline Ingester,
	queue Enqueuer,
	metrics Metrics,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		sources:  sources,
		jobs:     jobs,
		registry: registry,
		pipeline: pipeline,
		queue:    queue,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Run は指定ジョブを実行する。収集タスクのハンドラとして登録される。
// 一時的な失敗（ネットワークエラー等）ではエラーを返して再試行に委ね、
// 決定的な失敗（0件収集・未対応ソース等）ではジョブをFAILEDにして
// nilを返し再試行しない。
func (r *Runner) Run(ctx context.Context, jobID string) error {
	start := r.now()

	job, err := r.jobs.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("ジョブの取得に失敗しました: %w", err)
	}
	if job == nil {
		r.logger.Error("実行対象のジョブが見つかりません", slog.String("job_id", jobID))
		return nil
	}

	source, err := r.sources.FindByID(ctx, job.SourceID)
	if err != nil {
		return fmt.Errorf("ソースの取得に失敗しました: %w", err)
	}
	if source == nil {
		r.failJob(ctx, job, "ソースが見つかりません")
		r.metrics.RecordCollectFailure(job.SourceID, "source_not_found")
		return nil
	}

	job.Status = model.JobStatusRunning
	job.StartedAt = &start
	if err := r.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("ジョブ状態の更新に失敗しました: %w", err)
	}

	c, err := r.registry.ForSource(source)
	if err != nil {
		r.failJob(ctx, job, err.Error())
		r.metrics.RecordCollectFailure(source.ID, "unsupported_source")
		return nil
	}

	docs, err := c.Collect(ctx, source, nil)
	if err != nil {
		var emptyErr *collector.EmptyResultError
		if errors.As(err, &emptyErr) {
			// 0件収集は決定的な失敗として理由コード付きでFAILEDにする
			r.failJob(ctx, job, emptyErr.Error())
			r.metrics.RecordCollectFailure(source.ID, string(emptyErr.Reason))
			return nil
		}
		r.failJob(ctx, job, fmt.Sprintf("収集に失敗しました: %s", err.Error()))
		r.metrics.RecordCollectFailure(source.ID, "collect_error")
		return fmt.Errorf("収集に失敗しました: %w", err)
	}

	stats, err := r.pipeline.Ingest(ctx, source.ID, docs)
	if err != nil {
		r.failJob(ctx, job, fmt.Sprintf("取り込みに失敗しました: %s", err.Error()))
		r.metrics.RecordCollectFailure(source.ID, "ingest_error")
		return fmt.Errorf("取り込みに失敗しました: %w", err)
	}

	completed := r.now()
	job.Status = model.JobStatusCompleted
	job.CompletedAt = &completed
	job.ItemsCollected = stats.New
	job.ErrorMessage = ""
	if err := r.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("ジョブ状態の更新に失敗しました: %w", err)
	}

	r.metrics.RecordCollectSuccess(source.ID)
	r.metrics.RecordCollectLatency(completed.Sub(start))
	r.metrics.RecordSamplesIngested(stats.New)
	r.metrics.RecordDuplicatesSkipped(stats.Duplicates)

	// 新規サンプルごとに分析タスクを投入する
	for _, sampleID := range stats.NewSampleIDs {
		if err := r.queue.Enqueue(task.Task{Kind: task.KindEnrich, Payload: sampleID}); err != nil {
			r.logger.Warn("分析タスクの投入に失敗しました",
				slog.String("sample_id", sampleID),
				slog.String("error", err.Error()),
			)
		}
	}

	r.logger.Info("収集ジョブが完了しました",
		slog.String("job_id", job.ID),
		slog.String("source_id", source.ID),
		slog.Int("total", stats.Total),
		slog.Int("new", stats.New),
		slog.Int("duplicates", stats.Duplicates),
		slog.Float64("duration_ms", float64(completed.Sub(start).Milliseconds())),
	)

	return nil
}

func (r *Runner) failJob(ctx context.Context, job *model.CollectionJob, reason string) {
	now := r.now()
	job.Status = model.JobStatusFailed
	job.CompletedAt = &now
	job.ErrorMessage = reason

	r.logger.Warn("収集ジョブが失敗しました",
		slog.String("job_id", job.ID),
		slog.String("source_id", job.SourceID),
		slog.String("reason", reason),
	)

	if err := r.jobs.Update(ctx, job); err != nil {
		r.logger.Error("ジョブ状態の更新に失敗しました",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}
