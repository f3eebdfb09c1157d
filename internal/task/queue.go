// Package task はプロセス内の非同期タスクキューを提供する。
// 有界チャネルとワーカープールで収集・分析タスクを実行し、
// 失敗したタスクは指数遅延で再試行する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Kind はタスクの種別を表す。
type Kind string

const (
	// KindCollect はソースからの収集タスク。ペイロードはジョブID。
	KindCollect Kind = "collect"
	// KindEnrich はサンプルの分析タスク。ペイロードはサンプルID。
	KindEnrich Kind = "enrich"
)

const (
	// maxRetries は再試行の上限回数。
	maxRetries = 3
	// baseRetryDelay は再試行遅延の基準値。
	baseRetryDelay = 60 * time.Second
	// maxRetryDelay は再試行遅延の上限。
	maxRetryDelay = 600 * time.Second
)

// Task はキューに投入される1件のタスク。
type Task struct {
	Kind    Kind
	Payload string
	Attempt int
}

// HandlerFunc はタスク種別ごとの処理関数。
type HandlerFunc func(ctx context.Context, payload string) error

// RetryDelay はattempt回目（1始まり）の再試行までの遅延を返す。
// 60秒から2倍ずつ増加し、600秒を上限とする。
func RetryDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > maxRetryDelay {
			return maxRetryDelay
		}
	}
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// Queue は有界チャネルとワーカープールによるタスクキュー。
type Queue struct {
	tasks    chan Task
	handlers map[Kind]HandlerFunc
	workers  int
	logger   *slog.Logger
	wg       sync.WaitGroup

	retryDelay func(attempt int) time.Duration // テスト用に遅延を差し替え可能
}

// NewQueue はQueueを生成する。workersが0以下の場合は4、
// sizeが0以下の場合は256を使用する。
func NewQueue(workers, size int, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 4
	}
	if size <= 0 {
		size = 256
	}
	return &Queue{
		tasks:      make(chan Task, size),
		handlers:   map[Kind]HandlerFunc{},
		workers:    workers,
		logger:     logger,
		retryDelay: RetryDelay,
	}
}

// Register はタスク種別に対する処理関数を登録する。
// ワーカー起動前に呼び出すこと。
func (q *Queue) Register(kind Kind, handler HandlerFunc) {
	q.handlers[kind] = handler
}

// Enqueue はタスクをキューに投入する。キューが満杯の場合はエラーを返す。
func (q *Queue) Enqueue(t Task) error {
	select {
	case q.tasks <- t:
		return nil
	default:
		return fmt.Errorf("タスクキューが満杯です: kind=%s", t.Kind)
	}
}

// Start はワーカープールを起動する。コンテキストがキャンセルされるまで
// タスクを処理し続ける。
func (q *Queue) Start(ctx context.Context) {
	q.logger.Info("タスクワーカーを開始しました",
		slog.Int("workers", q.workers),
		slog.Int("queue_size", cap(q.tasks)),
	)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-q.tasks:
					q.process(ctx, t)
				}
			}
		}()
	}
}

// Wait は全ワーカーの終了を待つ。実行中のタスクは完了まで継続される。
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) process(ctx context.Context, t Task) {
	handler, ok := q.handlers[t.Kind]
	if !ok {
		q.logger.Error("未登録のタスク種別です", slog.String("kind", string(t.Kind)))
		return
	}

	err := handler(ctx, t.Payload)
	if err == nil {
		return
	}

	if t.Attempt >= maxRetries {
		q.logger.Error("タスクが再試行上限に達しました",
			slog.String("kind", string(t.Kind)),
			slog.String("payload", t.Payload),
			slog.Int("attempt", t.Attempt),
			slog.String("error", err.Error()),
		)
		return
	}

	next := Task{Kind: t.Kind, Payload: t.Payload, Attempt: t.Attempt + 1}
	delay := q.retryDelay(next.Attempt)

	q.logger.Warn("タスクを再試行します",
		slog.String("kind", string(t.Kind)),
		slog.String("payload", t.Payload),
		slog.Int("attempt", next.Attempt),
		slog.Duration("delay", delay),
		slog.String("error", err.Error()),
	)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(next); err != nil {
				q.logger.Error("再試行タスクの投入に失敗しました",
					slog.String("kind", string(next.Kind)),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}
