package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/thermoculture/internal/model"
	"github.com/hitoshi/thermoculture/internal/sample"
)

// SampleServiceInterface はサンプルハンドラーが必要とするサービスインターフェース。
type SampleServiceInterface interface {
	CreateManual(ctx context.Context, input sample.ManualInput) (*model.DiscourseSample, error)
	Get(ctx context.Context, id string) (*model.DiscourseSample, *model.EnrichmentResult, error)
	List(ctx context.Context, sourceID string, limit, offset int) ([]*model.DiscourseSample, error)
}

// SampleHandler は言説サンプルのHTTPハンドラー。
type SampleHandler struct {
	service SampleServiceInterface
}

// NewSampleHandler はSampleHandlerを生成する。
func NewSampleHandler(service SampleServiceInterface) *SampleHandler {
	return &SampleHandler{service: service}
}

// createSampleRequest は手動サンプル登録リクエストのボディ。
type createSampleRequest struct {
	SourceID      string     `json:"source_id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	SourceURL     string     `json:"source_url"`
	Author        string     `json:"author"`
	PublishedAt   *time.Time `json:"published_at"`
	LocationHints []string   `json:"location_hints"`
}

// sampleResponse はサンプル情報のAPIレスポンス。
type sampleResponse struct {
	ID            string     `json:"id"`
	SourceID      string     `json:"source_id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	SourceURL     string     `json:"source_url"`
	Author        string     `json:"author"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CollectedAt   time.Time  `json:"collected_at"`
	LocationHints []string   `json:"location_hints,omitempty"`
}

// sentimentResponse は感情分析結果のAPIレスポンス。
type sentimentResponse struct {
	Score      float64 `json:"score"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// classificationResponse は分類結果のAPIレスポンス。
type classificationResponse struct {
	Type       string             `json:"type"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
}

// themeRelevanceResponse はテーマ関連度のAPIレスポンス。
type themeRelevanceResponse struct {
	Name      string  `json:"name"`
	Relevance float64 `json:"relevance"`
}

// sampleDetailResponse はサンプル詳細（分析結果付き）のAPIレスポンス。
type sampleDetailResponse struct {
	sampleResponse
	Sentiment      *sentimentResponse       `json:"sentiment,omitempty"`
	Classification *classificationResponse  `json:"classification,omitempty"`
	Themes         []themeRelevanceResponse `json:"themes,omitempty"`
}

// CreateSample はサンプルの手動登録を処理する。
// POST /api/v1/samples
func (h *SampleHandler) CreateSample(w http.ResponseWriter, r *http.Request) {
	var req createSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	smp, err := h.service.CreateManual(r.Context(), sample.ManualInput{
		SourceID:      req.SourceID,
		Title:         req.Title,
		Content:       req.Content,
		SourceURL:     req.SourceURL,
		Author:        req.Author,
		PublishedAt:   req.PublishedAt,
		LocationHints: req.LocationHints,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSampleResponse(smp))
}

// ListSamples はサンプル一覧を返す。
// GET /api/v1/samples?source_id=&limit=&offset=
func (h *SampleHandler) ListSamples(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	samples, err := h.service.List(r.Context(), q.Get("source_id"), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]sampleResponse, 0, len(samples))
	for _, smp := range samples {
		out = append(out, toSampleResponse(smp))
	}

	writeJSON(w, http.StatusOK, map[string]any{"samples": out})
}

// GetSample はサンプル詳細を分析結果付きで返す。
// GET /api/v1/samples/:id
func (h *SampleHandler) GetSample(w http.ResponseWriter, r *http.Request) {
	smp, enrichment, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := sampleDetailResponse{sampleResponse: toSampleResponse(smp)}
	if enrichment.Sentiment != nil {
		resp.Sentiment = &sentimentResponse{
			Score:      enrichment.Sentiment.Score,
			Label:      string(enrichment.Sentiment.Label),
			Confidence: enrichment.Sentiment.Confidence,
		}
	}
	if enrichment.Classification != nil {
		resp.Classification = &classificationResponse{
			Type:       string(enrichment.Classification.Type),
			Confidence: enrichment.Classification.Confidence,
			Scores:     enrichment.Classification.Scores,
		}
	}
	for _, th := range enrichment.Themes {
		resp.Themes = append(resp.Themes, themeRelevanceResponse{Name: th.Name, Relevance: th.Relevance})
	}

	writeJSON(w, http.StatusOK, resp)
}

// toSampleResponse はmodel.DiscourseSampleからAPIレスポンスに変換する。
func toSampleResponse(smp *model.DiscourseSample) sampleResponse {
	return sampleResponse{
		ID:            smp.ID,
		SourceID:      smp.SourceID,
		Title:         smp.Title,
		Content:       smp.Content,
		SourceURL:     smp.SourceURL,
		Author:        smp.Author,
		PublishedAt:   smp.PublishedAt,
		CollectedAt:   smp.CollectedAt,
		LocationHints: smp.LocationHints,
	}
}
