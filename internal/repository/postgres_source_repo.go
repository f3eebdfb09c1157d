package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/thermoculture/internal/model"
)

// PostgresSourceRepo はPostgreSQLを使用した収集ソースリポジトリ。
type PostgresSourceRepo struct {
	db *sql.DB
}

// NewPostgresSourceRepo はPostgresSourceRepoを生成する。
func NewPostgresSourceRepo(db *sql.DB) *PostgresSourceRepo {
	return &PostgresSourceRepo{db: db}
}

// Create はソースを作成する。
func (r *PostgresSourceRepo) Create(ctx context.Context, source *model.Source) error {
	configJSON, err := json.Marshal(source.Config)
	if err != nil {
		return fmt.Errorf("ソース設定のシリアライズに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sources (id, name, type, url, config, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		source.ID, source.Name, string(source.Type), source.URL,
		configJSON, source.Active, source.CreatedAt, source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ソースの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのソースを取得する。見つからない場合はnilを返す。
func (r *PostgresSourceRepo) FindByID(ctx context.Context, id string) (*model.Source, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, url, config, active, created_at, updated_at
		 FROM sources WHERE id = $1`,
		id,
	)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ソースの取得に失敗しました: %w", err)
	}
	return source, nil
}

// List は全ソースを作成日時順で返す。
func (r *PostgresSourceRepo) List(ctx context.Context) ([]*model.Source, error) {
	return r.list(ctx, `SELECT id, name, type, url, config, active, created_at, updated_at
		 FROM sources ORDER BY created_at`)
}

// ListActive はアクティブなソースのみを返す。
func (r *PostgresSourceRepo) ListActive(ctx context.Context) ([]*model.Source, error) {
	return r.list(ctx, `SELECT id, name, type, url, config, active, created_at, updated_at
		 FROM sources WHERE active = true ORDER BY created_at`)
}

func (r *PostgresSourceRepo) list(ctx context.Context, query string) ([]*model.Source, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ソース一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sources []*model.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("ソース行の読み取りに失敗しました: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ソース一覧の走査に失敗しました: %w", err)
	}

	return sources, nil
}

// UpdateActive はソースの有効/無効を切り替える。
func (r *PostgresSourceRepo) UpdateActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sources SET active = $2, updated_at = now() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return fmt.Errorf("ソースの有効状態の更新に失敗しました: %w", err)
	}
	return nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*model.Source, error) {
	source := &model.Source{}
	var typ string
	var configJSON []byte

	if err := row.Scan(
		&source.ID, &source.Name, &typ, &source.URL,
		&configJSON, &source.Active, &source.CreatedAt, &source.UpdatedAt,
	); err != nil {
		return nil, err
	}

	source.Type = model.SourceType(typ)
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &source.Config); err != nil {
			return nil, fmt.Errorf("ソース設定のデシリアライズに失敗しました: %w", err)
		}
	}

	return source, nil
}

// nullString は空文字をNULLに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はNULLを空文字に変換する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ SourceRepository = (*PostgresSourceRepo)(nil)
