// Package ingest は収集文書の正規化・重複排除・保存のパイプラインを提供する。
package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/hitoshi/thermoculture/internal/model"
)

const (
	maxTitleLength     = 512
	maxSourceURLLength = 2048
	maxAuthorLength    = 255
)

// SampleStore はパイプラインが必要とするサンプル永続化操作のインターフェース。
// repository.SampleRepositoryがこれを満たす。
type SampleStore interface {
	// ListContentHashes は指定ソースの既存content_hashを全件取得する。
	ListContentHashes(ctx context.Context, sourceID string) (map[string]struct{}, error)

	// InsertBatch はサンプル群を一括挿入し、挿入されたIDと重複件数を返す。
	InsertBatch(ctx context.Context, samples []*model.DiscourseSample) (inserted []string, duplicates int, err error)
}

// Stats は1回の取り込み結果の集計。
type Stats struct {
	Total        int
	New          int
	Duplicates   int
	NewSampleIDs []string
}

// Pipeline は収集文書をDiscourseSampleに変換して保存する取り込みパイプライン。
// 重複判定はソース単位のcontent_hashで行う。既存ハッシュの照会は
// バッチ全体で1クエリに抑える。
type Pipeline struct {
	store  SampleStore
	logger *slog.Logger
	now    func() time.Time // テスト用に現在時刻を差し替え可能
}

// NewPipeline はPipelineを生成する。
func NewPipeline(store SampleStore, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Ingest は文書群を正規化・重複排除して保存し、集計結果を返す。
// 同一バッチ内の重複、既存サンプルとの重複はいずれも重複として数える。
// 別ソースに同一本文があっても重複とはしない。
func (p *Pipeline) Ingest(ctx context.Context, sourceID string, docs []model.CandidateDocument) (Stats, error) {
	stats := Stats{Total: len(docs)}
	if len(docs) == 0 {
		return stats, nil
	}

	existing, err := p.store.ListContentHashes(ctx, sourceID)
	if err != nil {
		return stats, fmt.Errorf("既存ハッシュの取得に失敗しました: %w", err)
	}

	now := p.now()
	batchSeen := map[string]struct{}{}
	var samples []*model.DiscourseSample

	for _, doc := range docs {
		content := NormalizeContent(doc.Content)
		if content == "" {
			continue
		}

		hash := ContentHash(content)
		if _, ok := existing[hash]; ok {
			stats.Duplicates++
			continue
		}
		if _, ok := batchSeen[hash]; ok {
			stats.Duplicates++
			continue
		}
		batchSeen[hash] = struct{}{}

		samples = append(samples, p.toSample(sourceID, doc, content, hash, now))
	}

	inserted, conflicted, err := p.store.InsertBatch(ctx, samples)
	if err != nil {
		return stats, fmt.Errorf("サンプルの一括挿入に失敗しました: %w", err)
	}

	stats.New = len(inserted)
	stats.Duplicates += conflicted
	stats.NewSampleIDs = inserted

	p.logger.Info("取り込みが完了しました",
		slog.String("source_id", sourceID),
		slog.Int("total", stats.Total),
		slog.Int("new", stats.New),
		slog.Int("duplicates", stats.Duplicates),
	)

	return stats, nil
}

func (p *Pipeline) toSample(sourceID string, doc model.CandidateDocument, content, hash string, now time.Time) *model.DiscourseSample {
	return &model.DiscourseSample{
		ID:            uuid.NewString(),
		SourceID:      sourceID,
		Title:         truncate(strings.TrimSpace(doc.Title), maxTitleLength),
		Content:       content,
		ContentHash:   hash,
		SourceURL:     truncate(doc.SourceURL, maxSourceURLLength),
		Author:        truncate(strings.TrimSpace(doc.Author), maxAuthorLength),
		PublishedAt:   doc.PublishedAt,
		CollectedAt:   now,
		LocationHints: doc.LocationHints,
		RawMetadata:   doc.RawMetadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NormalizeContent は本文を正規化する。
// Unicode NFC正規化、NULバイト除去、前後空白の除去、連続空白の畳み込みを行う。
func NormalizeContent(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.Join(strings.Fields(s), " ")
}

// ContentHash は正規化済み本文のMD5ハッシュを16進文字列で返す。
func ContentHash(normalized string) string {
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
