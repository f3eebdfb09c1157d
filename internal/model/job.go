// Package model はドメインモデルを定義する。
package model

import "time"

// CollectionJob は1回の収集実行を表す。
type CollectionJob struct {
	ID             string
	SourceID       string
	Status         JobStatus
	StartedAt      *time.Time
	CompletedAt    *time.Time
	ItemsCollected int
	ErrorMessage   string
	CreatedAt      time.Time
}

// JobStatus は収集ジョブの状態を表す。
type JobStatus string

const (
	// JobStatusPending は実行待ちの状態。
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning は実行中の状態。
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted は正常完了した状態。
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed は失敗した状態。
	JobStatusFailed JobStatus = "failed"
)
