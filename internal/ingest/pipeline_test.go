package ingest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/thermoculture/internal/model"
)

// fakeSampleStore はテスト用のインメモリSampleStore。
// ソースIDごとにcontent_hashを保持して実装と同じ重複判定を再現する。
type fakeSampleStore struct {
	hashes  map[string]map[string]struct{} // sourceID -> content_hash
	samples []*model.DiscourseSample
}

func newFakeSampleStore() *fakeSampleStore {
	return &fakeSampleStore{hashes: map[string]map[string]struct{}{}}
}

func (s *fakeSampleStore) ListContentHashes(ctx context.Context, sourceID string) (map[string]struct{}, error) {
	result := map[string]struct{}{}
	for hash := range s.hashes[sourceID] {
		result[hash] = struct{}{}
	}
	return result, nil
}

func (s *fakeSampleStore) InsertBatch(ctx context.Context, samples []*model.DiscourseSample) ([]string, int, error) {
	var inserted []string
	duplicates := 0
	for _, sample := range samples {
		if s.hashes[sample.SourceID] == nil {
			s.hashes[sample.SourceID] = map[string]struct{}{}
		}
		if _, ok := s.hashes[sample.SourceID][sample.ContentHash]; ok {
			duplicates++
			continue
		}
		s.hashes[sample.SourceID][sample.ContentHash] = struct{}{}
		s.samples = append(s.samples, sample)
		inserted = append(inserted, sample.ID)
	}
	return inserted, duplicates, nil
}

func newTestPipeline(store SampleStore) *Pipeline {
	p := NewPipeline(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.now = func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) }
	return p
}

func doc(title, content string) model.CandidateDocument {
	return model.CandidateDocument{Title: title, Content: content, SourceURL: "https://example.com/" + title}
}

func TestIngest_AllNew(t *testing.T) {
	store := newFakeSampleStore()
	p := newTestPipeline(store)

	stats, err := p.Ingest(context.Background(), "src-1", []model.CandidateDocument{
		doc("a", "first unique content"),
		doc("b", "second unique content"),
		doc("c", "third unique content"),
	})
	if err != nil {
		t.Fatalf("Ingest に失敗: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.New != 3 {
		t.Errorf("New = %d, want 3", stats.New)
	}
	if stats.Duplicates != 0 {
		t.Errorf("Duplicates = %d, want 0", stats.Duplicates)
	}
	if len(stats.NewSampleIDs) != 3 {
		t.Errorf("NewSampleIDs = %d件, want 3", len(stats.NewSampleIDs))
	}
}

// TestIngest_Idempotent は同一バッチの再取り込みが全て重複になることを検証する。
func TestIngest_Idempotent(t *testing.T) {
	store := newFakeSampleStore()
	p := newTestPipeline(store)

	docs := []model.CandidateDocument{
		doc("a", "first unique content"),
		doc("b", "second unique content"),
	}

	if _, err := p.Ingest(context.Background(), "src-1", docs); err != nil {
		t.Fatalf("1回目のIngestに失敗: %v", err)
	}

	stats, err := p.Ingest(context.Background(), "src-1", docs)
	if err != nil {
		t.Fatalf("2回目のIngestに失敗: %v", err)
	}

	if stats.New != 0 {
		t.Errorf("New = %d, want 0", stats.New)
	}
	if stats.Duplicates != 2 {
		t.Errorf("Duplicates = %d, want 2", stats.Duplicates)
	}
	if len(stats.NewSampleIDs) != 0 {
		t.Errorf("NewSampleIDs = %d件, want 0", len(stats.NewSampleIDs))
	}
}

// TestIngest_IntraBatchDuplicates はバッチ内の重複が1件だけ採用されることを検証する。
func TestIngest_IntraBatchDuplicates(t *testing.T) {
	store := newFakeSampleStore()
	p := newTestPipeline(store)

	stats, err := p.Ingest(context.Background(), "src-1", []model.CandidateDocument{
		doc("a", "same content"),
		doc("b", "same content"),
		doc("c", "different content"),
	})
	if err != nil {
		t.Fatalf("Ingest に失敗: %v", err)
	}

	if stats.New != 2 {
		t.Errorf("New = %d, want 2", stats.New)
	}
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
}

// TestIngest_SameContentDifferentSources は別ソースの同一本文が重複扱いにならないことを検証する。
func TestIngest_SameContentDifferentSources(t *testing.T) {
	store := newFakeSampleStore()
	p := newTestPipeline(store)

	docs := []model.CandidateDocument{doc("a", "shared content across sources")}

	if _, err := p.Ingest(context.Background(), "src-1", docs); err != nil {
		t.Fatalf("src-1へのIngestに失敗: %v", err)
	}

	stats, err := p.Ingest(context.Background(), "src-2", docs)
	if err != nil {
		t.Fatalf("src-2へのIngestに失敗: %v", err)
	}

	if stats.New != 1 {
		t.Errorf("New = %d, want 1（別ソースは重複としない）", stats.New)
	}
	if stats.Duplicates != 0 {
		t.Errorf("Duplicates = %d, want 0", stats.Duplicates)
	}
}

// TestIngest_NormalizationUnifiesVariants は正規化後に同一になる本文が重複扱いになることを検証する。
func TestIngest_NormalizationUnifiesVariants(t *testing.T) {
	store := newFakeSampleStore()
	p := newTestPipeline(store)

	stats, err := p.Ingest(context.Background(), "src-1", []model.CandidateDocument{
		doc("a", "  the   same\n\ncontent  "),
		doc("b", "the same content"),
	})
	if err != nil {
		t.Fatalf("Ingest に失敗: %v", err)
	}

	if stats.New != 1 {
		t.Errorf("New = %d, want 1", stats.New)
	}
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
}

func TestIngest_TruncatesLongFields(t *testing.T) {
	store := newFakeSampleStore()
	p := newTestPipeline(store)

	longTitle := strings.Repeat("t", 600)
	longAuthor := strings.Repeat("a", 300)

	d := doc("a", "content long enough to keep")
	d.Title = longTitle
	d.Author = longAuthor

	if _, err := p.Ingest(context.Background(), "src-1", []model.CandidateDocument{d}); err != nil {
		t.Fatalf("Ingest に失敗: %v", err)
	}

	sample := store.samples[0]
	if len(sample.Title) != maxTitleLength {
		t.Errorf("Title長 = %d, want %d", len(sample.Title), maxTitleLength)
	}
	if len(sample.Author) != maxAuthorLength {
		t.Errorf("Author長 = %d, want %d", len(sample.Author), maxAuthorLength)
	}
}

func TestIngest_SkipsEmptyContent(t *testing.T) {
	store := newFakeSampleStore()
	p := newTestPipeline(store)

	stats, err := p.Ingest(context.Background(), "src-1", []model.CandidateDocument{
		doc("a", "   \x00  "),
		doc("b", "real content"),
	})
	if err != nil {
		t.Fatalf("Ingest に失敗: %v", err)
	}

	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.New != 1 {
		t.Errorf("New = %d, want 1（空本文は保存されないべき）", stats.New)
	}
}

func TestNormalizeContent(t *testing.T) {
	got := NormalizeContent("  hello \x00 \n\t world  ")
	if got != "hello world" {
		t.Errorf("NormalizeContent = %q, want %q", got, "hello world")
	}

	// NFC正規化: 合成済み文字と結合文字列が同一になる
	composed := "café"
	decomposed := "café"
	if NormalizeContent(composed) != NormalizeContent(decomposed) {
		t.Error("NFC正規化により合成済み/結合文字列は同一になるべき")
	}
}

func TestContentHash_IsMD5Hex(t *testing.T) {
	hash := ContentHash("hello world")
	if len(hash) != 32 {
		t.Errorf("ハッシュ長 = %d, want 32", len(hash))
	}
	if hash != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("hash = %q, MD5ハッシュと一致すべき", hash)
	}
}
