// Package enrich はサンプル分析タスクのバックグラウンド実行を提供する。
package enrich

import (
	"context"
	"log/slog"

	"github.com/hitoshi/thermoculture/internal/model"
)

// SampleEnricher はサンプル分析のインターフェース。nlp.Analyzerがこれを満たす。
type SampleEnricher interface {
	EnrichSample(ctx context.Context, sampleID string) (*model.EnrichmentResult, error)
}

// Metrics は分析メトリクス記録のインターフェース。
type Metrics interface {
	RecordEnrichSuccess()
	RecordEnrichFailure()
}

// Worker は分析タスクを実行するワーカー。
// タスクキューのenrichハンドラとして登録される。
type Worker struct {
	enricher SampleEnricher
	metrics  Metrics
	logger   *slog.Logger
}

// NewWorker はWorkerを生成する。
func NewWorker(enricher SampleEnricher, metrics Metrics, logger *slog.Logger) *Worker {
	return &Worker{
		enricher: enricher,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run は指定サンプルの分析を実行する。失敗時はエラーを返して
// タスクキューの再試行に委ねる。
func (w *Worker) Run(ctx context.Context, sampleID string) error {
	if _, err := w.enricher.EnrichSample(ctx, sampleID); err != nil {
		w.metrics.RecordEnrichFailure()
		w.logger.Error("サンプル分析に失敗しました",
			slog.String("sample_id", sampleID),
			slog.String("error", err.Error()),
		)
		return err
	}

	w.metrics.RecordEnrichSuccess()
	return nil
}
