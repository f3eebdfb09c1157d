package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/thermoculture/internal/model"
)

// PostgresAnalysisRepo はPostgreSQLを使用した分析結果リポジトリ。
type PostgresAnalysisRepo struct {
	db *sql.DB
}

// NewPostgresAnalysisRepo はPostgresAnalysisRepoを生成する。
func NewPostgresAnalysisRepo(db *sql.DB) *PostgresAnalysisRepo {
	return &PostgresAnalysisRepo{db: db}
}

// UpsertSentiment はサンプルの感情分析結果を冪等にUPSERTする。
// 再分析時は既存行を上書きする。
func (r *PostgresAnalysisRepo) UpsertSentiment(ctx context.Context, a *model.SentimentAnalysis) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sentiment_analyses (id, sample_id, score, label, confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (sample_id) DO UPDATE SET
		     score = EXCLUDED.score, label = EXCLUDED.label, confidence = EXCLUDED.confidence`,
		a.ID, a.SampleID, a.Score, string(a.Label), a.Confidence,
	)
	if err != nil {
		return fmt.Errorf("感情分析結果のUPSERTに失敗しました: %w", err)
	}
	return nil
}

// UpsertClassification はサンプルの分類結果を冪等にUPSERTする。
func (r *PostgresAnalysisRepo) UpsertClassification(ctx context.Context, c *model.DiscourseClassification) error {
	scoresJSON, err := json.Marshal(c.Scores)
	if err != nil {
		return fmt.Errorf("分類スコアのシリアライズに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO discourse_classifications (id, sample_id, type, confidence, scores, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (sample_id) DO UPDATE SET
		     type = EXCLUDED.type, confidence = EXCLUDED.confidence, scores = EXCLUDED.scores`,
		c.ID, c.SampleID, string(c.Type), c.Confidence, scoresJSON,
	)
	if err != nil {
		return fmt.Errorf("分類結果のUPSERTに失敗しました: %w", err)
	}
	return nil
}

// FindSentimentBySample はサンプルの感情分析結果を取得する。見つからない場合はnilを返す。
func (r *PostgresAnalysisRepo) FindSentimentBySample(ctx context.Context, sampleID string) (*model.SentimentAnalysis, error) {
	a := &model.SentimentAnalysis{}
	var label string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, sample_id, score, label, confidence, created_at
		 FROM sentiment_analyses WHERE sample_id = $1`,
		sampleID,
	).Scan(&a.ID, &a.SampleID, &a.Score, &label, &a.Confidence, &a.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("感情分析結果の取得に失敗しました: %w", err)
	}

	a.Label = model.SentimentLabel(label)
	return a, nil
}

// FindClassificationBySample はサンプルの分類結果を取得する。見つからない場合はnilを返す。
func (r *PostgresAnalysisRepo) FindClassificationBySample(ctx context.Context, sampleID string) (*model.DiscourseClassification, error) {
	c := &model.DiscourseClassification{}
	var typ string
	var scoresJSON []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT id, sample_id, type, confidence, scores, created_at
		 FROM discourse_classifications WHERE sample_id = $1`,
		sampleID,
	).Scan(&c.ID, &c.SampleID, &typ, &c.Confidence, &scoresJSON, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("分類結果の取得に失敗しました: %w", err)
	}

	c.Type = model.ClassificationType(typ)
	if len(scoresJSON) > 0 {
		if err := json.Unmarshal(scoresJSON, &c.Scores); err != nil {
			return nil, fmt.Errorf("分類スコアのデシリアライズに失敗しました: %w", err)
		}
	}

	return c, nil
}

// compile-time interface check
var _ AnalysisRepository = (*PostgresAnalysisRepo)(nil)
