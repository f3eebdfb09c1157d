package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/thermoculture/internal/model"
)

// PostgresSampleRepo はPostgreSQLを使用した言説サンプルリポジトリ。
type PostgresSampleRepo struct {
	db *sql.DB
}

// NewPostgresSampleRepo はPostgresSampleRepoを生成する。
func NewPostgresSampleRepo(db *sql.DB) *PostgresSampleRepo {
	return &PostgresSampleRepo{db: db}
}

// FindByID は指定IDのサンプルを取得する。見つからない場合はnilを返す。
func (r *PostgresSampleRepo) FindByID(ctx context.Context, id string) (*model.DiscourseSample, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source_id, title, content, content_hash, source_url, author,
		        published_at, collected_at, location_hints, raw_metadata, created_at, updated_at
		 FROM discourse_samples WHERE id = $1`,
		id,
	)

	sample, err := scanSample(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("サンプルの取得に失敗しました: %w", err)
	}
	return sample, nil
}

// List はサンプル一覧をcollected_at降順で返す。
// sourceIDが空でない場合はそのソースに限定する。
func (r *PostgresSampleRepo) List(ctx context.Context, sourceID string, limit, offset int) ([]*model.DiscourseSample, error) {
	query := `SELECT id, source_id, title, content, content_hash, source_url, author,
	                 published_at, collected_at, location_hints, raw_metadata, created_at, updated_at
	          FROM discourse_samples`
	args := []any{}
	argIndex := 1

	if sourceID != "" {
		query += fmt.Sprintf(" WHERE source_id = $%d", argIndex)
		args = append(args, sourceID)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY collected_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("サンプル一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var samples []*model.DiscourseSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("サンプル行の読み取りに失敗しました: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("サンプル一覧の走査に失敗しました: %w", err)
	}

	return samples, nil
}

// ListContentHashes は指定ソースの既存content_hashを1クエリで全件取得する。
func (r *PostgresSampleRepo) ListContentHashes(ctx context.Context, sourceID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT content_hash FROM discourse_samples WHERE source_id = $1`,
		sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("content_hash一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]struct{})
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("content_hashの読み取りに失敗しました: %w", err)
		}
		hashes[hash] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("content_hash一覧の走査に失敗しました: %w", err)
	}

	return hashes, nil
}

// InsertBatch はサンプル群を単一トランザクションで一括挿入する。
// ユニーク制約違反が発生した場合はトランザクションを破棄し、
// 1件ずつの挿入にフォールバックして衝突行を重複として数える。
func (r *PostgresSampleRepo) InsertBatch(ctx context.Context, samples []*model.DiscourseSample) ([]string, int, error) {
	if len(samples) == 0 {
		return nil, 0, nil
	}

	inserted, err := r.insertAllTx(ctx, samples)
	if err == nil {
		return inserted, 0, nil
	}
	if !isUniqueViolation(err) {
		return nil, 0, err
	}

	// 同時実行された別の取り込みと衝突した場合のみここに来る。
	return r.insertOneByOne(ctx, samples)
}

func (r *PostgresSampleRepo) insertAllTx(ctx context.Context, samples []*model.DiscourseSample) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	inserted := make([]string, 0, len(samples))
	for _, sample := range samples {
		if err := insertSample(ctx, tx, sample); err != nil {
			return nil, err
		}
		inserted = append(inserted, sample.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return inserted, nil
}

func (r *PostgresSampleRepo) insertOneByOne(ctx context.Context, samples []*model.DiscourseSample) ([]string, int, error) {
	var inserted []string
	duplicates := 0

	for _, sample := range samples {
		err := insertSample(ctx, r.db, sample)
		if isUniqueViolation(err) {
			duplicates++
			continue
		}
		if err != nil {
			return inserted, duplicates, err
		}
		inserted = append(inserted, sample.ID)
	}

	return inserted, duplicates, nil
}

// execer はsql.DBとsql.Txの共通ExecContextインターフェース。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSample(ctx context.Context, e execer, sample *model.DiscourseSample) error {
	hintsJSON, err := json.Marshal(sample.LocationHints)
	if err != nil {
		return fmt.Errorf("location_hintsのシリアライズに失敗しました: %w", err)
	}
	metaJSON, err := json.Marshal(sample.RawMetadata)
	if err != nil {
		return fmt.Errorf("raw_metadataのシリアライズに失敗しました: %w", err)
	}

	_, err = e.ExecContext(ctx,
		`INSERT INTO discourse_samples
		     (id, source_id, title, content, content_hash, source_url, author,
		      published_at, collected_at, location_hints, raw_metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sample.ID, sample.SourceID, sample.Title, sample.Content, sample.ContentHash,
		sample.SourceURL, sample.Author, sample.PublishedAt, sample.CollectedAt,
		hintsJSON, metaJSON, sample.CreatedAt, sample.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("サンプルの挿入に失敗しました: %w", err)
	}
	return nil
}

// CountSince は指定時刻以降に収集されたサンプル数を返す。
func (r *PostgresSampleRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM discourse_samples WHERE collected_at >= $1`,
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("サンプル数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Count は全サンプル数を返す。
func (r *PostgresSampleRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM discourse_samples`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("サンプル数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// CountsBySource はソースIDごとのサンプル数を返す。
func (r *PostgresSampleRepo) CountsBySource(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source_id, count(*) FROM discourse_samples GROUP BY source_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("ソース別サンプル数の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sourceID string
		var count int
		if err := rows.Scan(&sourceID, &count); err != nil {
			return nil, fmt.Errorf("ソース別サンプル数の読み取りに失敗しました: %w", err)
		}
		counts[sourceID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ソース別サンプル数の走査に失敗しました: %w", err)
	}

	return counts, nil
}

func scanSample(row rowScanner) (*model.DiscourseSample, error) {
	sample := &model.DiscourseSample{}
	var publishedAt sql.NullTime
	var sourceURL, author sql.NullString
	var hintsJSON, metaJSON []byte

	if err := row.Scan(
		&sample.ID, &sample.SourceID, &sample.Title, &sample.Content, &sample.ContentHash,
		&sourceURL, &author, &publishedAt, &sample.CollectedAt,
		&hintsJSON, &metaJSON, &sample.CreatedAt, &sample.UpdatedAt,
	); err != nil {
		return nil, err
	}

	sample.SourceURL = nullStringValue(sourceURL)
	sample.Author = nullStringValue(author)
	if publishedAt.Valid {
		sample.PublishedAt = &publishedAt.Time
	}
	if len(hintsJSON) > 0 {
		if err := json.Unmarshal(hintsJSON, &sample.LocationHints); err != nil {
			return nil, fmt.Errorf("location_hintsのデシリアライズに失敗しました: %w", err)
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &sample.RawMetadata); err != nil {
			return nil, fmt.Errorf("raw_metadataのデシリアライズに失敗しました: %w", err)
		}
	}

	return sample, nil
}

// isUniqueViolation はPostgreSQLのユニーク制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// compile-time interface check
var _ SampleRepository = (*PostgresSampleRepo)(nil)
