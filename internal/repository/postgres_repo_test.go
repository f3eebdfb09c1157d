package repository

import (
	"testing"

	"github.com/lib/pq"

	"github.com/hitoshi/thermoculture/internal/model"
)

// TestPostgresRepos_ImplementInterfaces は各Postgres実装がインターフェースを満たすことを検証する。
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	// コンパイル時チェック
	var _ SourceRepository = (*PostgresSourceRepo)(nil)
	var _ SampleRepository = (*PostgresSampleRepo)(nil)
	var _ JobRepository = (*PostgresJobRepo)(nil)
	var _ ThemeRepository = (*PostgresThemeRepo)(nil)
	var _ AnalysisRepository = (*PostgresAnalysisRepo)(nil)
}

// TestJobStatusValues はJobStatusの定数値が正しいことを検証する。
func TestJobStatusValues(t *testing.T) {
	if model.JobStatusPending != "pending" {
		t.Errorf("JobStatusPending = %q, want %q", model.JobStatusPending, "pending")
	}
	if model.JobStatusRunning != "running" {
		t.Errorf("JobStatusRunning = %q, want %q", model.JobStatusRunning, "running")
	}
	if model.JobStatusCompleted != "completed" {
		t.Errorf("JobStatusCompleted = %q, want %q", model.JobStatusCompleted, "completed")
	}
	if model.JobStatusFailed != "failed" {
		t.Errorf("JobStatusFailed = %q, want %q", model.JobStatusFailed, "failed")
	}
}

// TestIsUniqueViolation はpqエラーコードの判定を検証する。
func TestIsUniqueViolation(t *testing.T) {
	uniqueErr := &pq.Error{Code: "23505"}
	if !isUniqueViolation(uniqueErr) {
		t.Error("23505 はユニーク制約違反と判定されるべき")
	}

	otherErr := &pq.Error{Code: "23503"}
	if isUniqueViolation(otherErr) {
		t.Error("23503 はユニーク制約違反と判定されるべきでない")
	}

	if isUniqueViolation(nil) {
		t.Error("nil はユニーク制約違反と判定されるべきでない")
	}
}

// TestNullStringRoundTrip は空文字とNULLの相互変換を検証する。
func TestNullStringRoundTrip(t *testing.T) {
	if nullString("").Valid {
		t.Error("空文字はNULLに変換されるべき")
	}
	if got := nullStringValue(nullString("author")); got != "author" {
		t.Errorf("nullStringValue = %q, want %q", got, "author")
	}
}
