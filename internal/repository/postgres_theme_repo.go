package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/thermoculture/internal/model"
)

// PostgresThemeRepo はPostgreSQLを使用したテーマリポジトリ。
type PostgresThemeRepo struct {
	db *sql.DB
}

// NewPostgresThemeRepo はPostgresThemeRepoを生成する。
func NewPostgresThemeRepo(db *sql.DB) *PostgresThemeRepo {
	return &PostgresThemeRepo{db: db}
}

// UpsertByName はテーマ名で冪等にUPSERTし、テーマを返す。
func (r *PostgresThemeRepo) UpsertByName(ctx context.Context, name, description string) (*model.Theme, error) {
	theme := &model.Theme{}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO themes (id, name, description, created_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		 RETURNING id, name, description, created_at`,
		uuid.NewString(), name, description,
	).Scan(&theme.ID, &theme.Name, &theme.Description, &theme.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("テーマのUPSERTに失敗しました: %w", err)
	}

	return theme, nil
}

// LinkSample はサンプルとテーマの関連を冪等にUPSERTする。
func (r *PostgresThemeRepo) LinkSample(ctx context.Context, sampleID, themeID string, relevance float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sample_themes (sample_id, theme_id, relevance)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (sample_id, theme_id) DO UPDATE SET relevance = EXCLUDED.relevance`,
		sampleID, themeID, relevance,
	)
	if err != nil {
		return fmt.Errorf("テーマ関連のUPSERTに失敗しました: %w", err)
	}
	return nil
}

// ListForSample はサンプルに関連するテーマを関連度降順で返す。
func (r *PostgresThemeRepo) ListForSample(ctx context.Context, sampleID string) ([]model.ThemeRelevance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.name, st.relevance
		 FROM sample_themes st
		 JOIN themes t ON t.id = st.theme_id
		 WHERE st.sample_id = $1
		 ORDER BY st.relevance DESC`,
		sampleID,
	)
	if err != nil {
		return nil, fmt.Errorf("サンプルのテーマ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var themes []model.ThemeRelevance
	for rows.Next() {
		var tr model.ThemeRelevance
		if err := rows.Scan(&tr.Name, &tr.Relevance); err != nil {
			return nil, fmt.Errorf("テーマ関連行の読み取りに失敗しました: %w", err)
		}
		themes = append(themes, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("テーマ関連一覧の走査に失敗しました: %w", err)
	}

	return themes, nil
}

// TrendCounts はテーマごとの直近件数と全期間件数を1クエリで集計する。
func (r *PostgresThemeRepo) TrendCounts(ctx context.Context, since time.Time) ([]ThemeTrendCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.name,
		        count(*) FILTER (WHERE s.collected_at >= $1) AS recent_count,
		        count(*) AS historical_count
		 FROM themes t
		 JOIN sample_themes st ON st.theme_id = t.id
		 JOIN discourse_samples s ON s.id = st.sample_id
		 GROUP BY t.id, t.name`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("テーマ別件数の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	var counts []ThemeTrendCount
	for rows.Next() {
		var c ThemeTrendCount
		if err := rows.Scan(&c.ThemeID, &c.Name, &c.RecentCount, &c.HistoricalCount); err != nil {
			return nil, fmt.Errorf("テーマ別件数の読み取りに失敗しました: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("テーマ別件数の走査に失敗しました: %w", err)
	}

	return counts, nil
}

// compile-time interface check
var _ ThemeRepository = (*PostgresThemeRepo)(nil)
