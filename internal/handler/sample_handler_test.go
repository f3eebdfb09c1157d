package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/thermoculture/internal/model"
	"github.com/hitoshi/thermoculture/internal/sample"
)

// fakeSampleService はSampleServiceInterfaceのテスト用実装。
type fakeSampleService struct {
	samples    map[string]*model.DiscourseSample
	enrichment map[string]*model.EnrichmentResult
	createErr  error

	lastSourceID string
	lastLimit    int
	lastOffset   int
}

func newFakeSampleService() *fakeSampleService {
	return &fakeSampleService{
		samples:    make(map[string]*model.DiscourseSample),
		enrichment: make(map[string]*model.EnrichmentResult),
	}
}

func (f *fakeSampleService) CreateManual(ctx context.Context, input sample.ManualInput) (*model.DiscourseSample, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	smp := &model.DiscourseSample{
		ID:          "smp-new",
		SourceID:    input.SourceID,
		Title:       input.Title,
		Content:     input.Content,
		CollectedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.samples[smp.ID] = smp
	return smp, nil
}

func (f *fakeSampleService) Get(ctx context.Context, id string) (*model.DiscourseSample, *model.EnrichmentResult, error) {
	smp, ok := f.samples[id]
	if !ok {
		return nil, nil, model.NewSampleNotFoundError(id)
	}
	enrichment := f.enrichment[id]
	if enrichment == nil {
		enrichment = &model.EnrichmentResult{}
	}
	return smp, enrichment, nil
}

func (f *fakeSampleService) List(ctx context.Context, sourceID string, limit, offset int) ([]*model.DiscourseSample, error) {
	f.lastSourceID = sourceID
	f.lastLimit = limit
	f.lastOffset = offset
	out := make([]*model.DiscourseSample, 0, len(f.samples))
	for _, smp := range f.samples {
		out = append(out, smp)
	}
	return out, nil
}

func newSampleTestRouter(svc SampleServiceInterface) http.Handler {
	h := NewSampleHandler(svc)
	r := chi.NewRouter()
	r.Post("/samples", h.CreateSample)
	r.Get("/samples", h.ListSamples)
	r.Get("/samples/{id}", h.GetSample)
	return r
}

func TestCreateSample_Returns201(t *testing.T) {
	svc := newFakeSampleService()
	router := newSampleTestRouter(svc)

	body := `{"source_id":"src-1","title":"断熱改修","content":"We installed a heat pump."}`
	req := httptest.NewRequest(http.MethodPost, "/samples", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var resp sampleResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "smp-new" || resp.SourceID != "src-1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateSample_Duplicate_Returns409(t *testing.T) {
	svc := newFakeSampleService()
	svc.createErr = model.NewDuplicateSampleError()
	router := newSampleTestRouter(svc)

	body := `{"source_id":"src-1","content":"duplicate"}`
	req := httptest.NewRequest(http.MethodPost, "/samples", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}

	var errResp apiErrorResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if errResp.Code != model.ErrCodeDuplicateSample {
		t.Errorf("code = %q, want %q", errResp.Code, model.ErrCodeDuplicateSample)
	}
}

func TestCreateSample_InvalidBody_Returns400(t *testing.T) {
	router := newSampleTestRouter(newFakeSampleService())

	req := httptest.NewRequest(http.MethodPost, "/samples", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestListSamples_PassesQueryParams(t *testing.T) {
	svc := newFakeSampleService()
	router := newSampleTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/samples?source_id=src-1&limit=50&offset=10", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if svc.lastSourceID != "src-1" || svc.lastLimit != 50 || svc.lastOffset != 10 {
		t.Errorf("query params = %q/%d/%d, want src-1/50/10", svc.lastSourceID, svc.lastLimit, svc.lastOffset)
	}
}

func TestGetSample_WithEnrichment(t *testing.T) {
	svc := newFakeSampleService()
	svc.samples["smp-1"] = &model.DiscourseSample{ID: "smp-1", Content: "flooding again this winter"}
	svc.enrichment["smp-1"] = &model.EnrichmentResult{
		Sentiment: &model.SentimentAnalysis{Score: -0.72, Label: model.SentimentVeryNegative, Confidence: 0.81},
		Classification: &model.DiscourseClassification{
			Type:       model.ClassificationEmotionalResponse,
			Confidence: 0.55,
			Scores:     map[string]float64{"emotional_response": 0.55},
		},
		Themes: []model.ThemeRelevance{{Name: "Extreme Weather", Relevance: 0.42}},
	}
	router := newSampleTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/samples/smp-1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp sampleDetailResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Sentiment == nil || resp.Sentiment.Label != "very_negative" {
		t.Errorf("sentiment = %+v, want very_negative", resp.Sentiment)
	}
	if resp.Classification == nil || resp.Classification.Type != "emotional_response" {
		t.Errorf("classification = %+v, want emotional_response", resp.Classification)
	}
	if len(resp.Themes) != 1 || resp.Themes[0].Name != "Extreme Weather" {
		t.Errorf("themes = %+v, want [Extreme Weather]", resp.Themes)
	}
}

// TestGetSample_Unenriched は分析未完了のサンプルで分析フィールドが省略されることを検証する。
func TestGetSample_Unenriched(t *testing.T) {
	svc := newFakeSampleService()
	svc.samples["smp-2"] = &model.DiscourseSample{ID: "smp-2", Content: "text"}
	router := newSampleTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/samples/smp-2", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	var raw map[string]any
	if err := json.NewDecoder(w.Result().Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, field := range []string{"sentiment", "classification", "themes"} {
		if _, ok := raw[field]; ok {
			t.Errorf("未分析サンプルに %q フィールドが含まれている", field)
		}
	}
}

func TestGetSample_NotFound_Returns404(t *testing.T) {
	router := newSampleTestRouter(newFakeSampleService())

	req := httptest.NewRequest(http.MethodGet, "/samples/missing", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}
