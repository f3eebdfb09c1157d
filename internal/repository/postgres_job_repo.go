package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/thermoculture/internal/model"
)

// PostgresJobRepo はPostgreSQLを使用した収集ジョブリポジトリ。
type PostgresJobRepo struct {
	db *sql.DB
}

// NewPostgresJobRepo はPostgresJobRepoを生成する。
func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{db: db}
}

// Create はジョブを作成する。
func (r *PostgresJobRepo) Create(ctx context.Context, job *model.CollectionJob) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collection_jobs
		     (id, source_id, status, started_at, completed_at, items_collected, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.SourceID, string(job.Status), job.StartedAt, job.CompletedAt,
		job.ItemsCollected, job.ErrorMessage, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("収集ジョブの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのジョブを取得する。見つからない場合はnilを返す。
func (r *PostgresJobRepo) FindByID(ctx context.Context, id string) (*model.CollectionJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source_id, status, started_at, completed_at, items_collected, error_message, created_at
		 FROM collection_jobs WHERE id = $1`,
		id,
	)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("収集ジョブの取得に失敗しました: %w", err)
	}
	return job, nil
}

// Update はジョブの状態・実行時刻・収集件数・エラーメッセージを更新する。
func (r *PostgresJobRepo) Update(ctx context.Context, job *model.CollectionJob) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE collection_jobs SET
		    status = $2, started_at = $3, completed_at = $4,
		    items_collected = $5, error_message = $6
		 WHERE id = $1`,
		job.ID, string(job.Status), job.StartedAt, job.CompletedAt,
		job.ItemsCollected, job.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("収集ジョブの更新に失敗しました: %w", err)
	}
	return nil
}

// FindLatestBySource は指定ソースの最新ジョブを取得する。見つからない場合はnilを返す。
func (r *PostgresJobRepo) FindLatestBySource(ctx context.Context, sourceID string) (*model.CollectionJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source_id, status, started_at, completed_at, items_collected, error_message, created_at
		 FROM collection_jobs WHERE source_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		sourceID,
	)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("最新ジョブの取得に失敗しました: %w", err)
	}
	return job, nil
}

func scanJob(row rowScanner) (*model.CollectionJob, error) {
	job := &model.CollectionJob{}
	var status string
	var startedAt, completedAt sql.NullTime

	if err := row.Scan(
		&job.ID, &job.SourceID, &status, &startedAt, &completedAt,
		&job.ItemsCollected, &job.ErrorMessage, &job.CreatedAt,
	); err != nil {
		return nil, err
	}

	job.Status = model.JobStatus(status)
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return job, nil
}

// compile-time interface check
var _ JobRepository = (*PostgresJobRepo)(nil)
