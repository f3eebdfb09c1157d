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
	"github.com/hitoshi/thermoculture/internal/source"
)

// fakeSourceService はSourceServiceInterfaceのテスト用実装。
type fakeSourceService struct {
	sources map[string]*model.Source
	created []source.CreateInput
	err     error
}

func newFakeSourceService() *fakeSourceService {
	return &fakeSourceService{sources: make(map[string]*model.Source)}
}

func (f *fakeSourceService) Create(ctx context.Context, input source.CreateInput) (*model.Source, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, input)
	src := &model.Source{
		ID:        "src-new",
		Name:      input.Name,
		Type:      input.Type,
		URL:       input.URL,
		Active:    true,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.sources[src.ID] = src
	return src, nil
}

func (f *fakeSourceService) Get(ctx context.Context, id string) (*model.Source, error) {
	if src, ok := f.sources[id]; ok {
		return src, nil
	}
	return nil, model.NewSourceNotFoundError(id)
}

func (f *fakeSourceService) List(ctx context.Context) ([]*model.Source, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*model.Source, 0, len(f.sources))
	for _, src := range f.sources {
		out = append(out, src)
	}
	return out, nil
}

func (f *fakeSourceService) SetActive(ctx context.Context, id string, active bool) (*model.Source, error) {
	src, ok := f.sources[id]
	if !ok {
		return nil, model.NewSourceNotFoundError(id)
	}
	src.Active = active
	return src, nil
}

// fakeCollectStarter はCollectStarterのテスト用実装。
type fakeCollectStarter struct {
	job *model.CollectionJob
	err error
}

func (f *fakeCollectStarter) StartCollection(ctx context.Context, sourceID string) (*model.CollectionJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

// newSourceTestRouter はURLパラメータ抽出のためchi.Routerでラップしたハンドラーを返す。
func newSourceTestRouter(svc SourceServiceInterface, starter CollectStarter) http.Handler {
	h := NewSourceHandler(svc, starter)
	r := chi.NewRouter()
	r.Post("/sources", h.CreateSource)
	r.Get("/sources", h.ListSources)
	r.Get("/sources/{id}", h.GetSource)
	r.Patch("/sources/{id}", h.UpdateSource)
	r.Post("/sources/{id}/collect", h.StartCollect)
	return r
}

func TestCreateSource_Returns201(t *testing.T) {
	svc := newFakeSourceService()
	router := newSourceTestRouter(svc, &fakeCollectStarter{})

	body := `{"name":"UK Climate News","type":"news_rss","url":"https://news.example.com/rss.xml"}`
	req := httptest.NewRequest(http.MethodPost, "/sources", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var resp sourceResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID == "" || resp.Name != "UK Climate News" || resp.Type != "news_rss" {
		t.Errorf("response = %+v", resp)
	}

	if len(svc.created) != 1 || svc.created[0].Type != model.SourceTypeNewsRSS {
		t.Errorf("service input = %+v", svc.created)
	}
}

func TestCreateSource_InvalidBody_Returns400(t *testing.T) {
	router := newSourceTestRouter(newFakeSourceService(), &fakeCollectStarter{})

	req := httptest.NewRequest(http.MethodPost, "/sources", strings.NewReader("{invalid"))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestCreateSource_ValidationError_Returns400(t *testing.T) {
	svc := newFakeSourceService()
	svc.err = model.NewInvalidSourceTypeError("podcast")
	router := newSourceTestRouter(svc, &fakeCollectStarter{})

	body := `{"name":"テスト","type":"podcast"}`
	req := httptest.NewRequest(http.MethodPost, "/sources", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	var errResp apiErrorResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if errResp.Code != model.ErrCodeInvalidSourceType {
		t.Errorf("code = %q, want %q", errResp.Code, model.ErrCodeInvalidSourceType)
	}
}

func TestCreateSource_SSRFBlocked_Returns403(t *testing.T) {
	svc := newFakeSourceService()
	svc.err = model.NewSSRFBlockedError()
	router := newSourceTestRouter(svc, &fakeCollectStarter{})

	body := `{"name":"内部","type":"news_scrape","url":"http://192.168.1.1/"}`
	req := httptest.NewRequest(http.MethodPost, "/sources", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestGetSource_NotFound_Returns404(t *testing.T) {
	router := newSourceTestRouter(newFakeSourceService(), &fakeCollectStarter{})

	req := httptest.NewRequest(http.MethodGet, "/sources/missing", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestListSources_ReturnsEnvelope(t *testing.T) {
	svc := newFakeSourceService()
	svc.sources["src-1"] = &model.Source{ID: "src-1", Name: "UK News", Type: model.SourceTypeNewsRSS, Active: true}
	router := newSourceTestRouter(svc, &fakeCollectStarter{})

	req := httptest.NewRequest(http.MethodGet, "/sources", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp struct {
		Sources []sourceResponse `json:"sources"`
	}
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != "src-1" {
		t.Errorf("sources = %+v", resp.Sources)
	}
}

func TestUpdateSource_TogglesActive(t *testing.T) {
	svc := newFakeSourceService()
	svc.sources["src-1"] = &model.Source{ID: "src-1", Name: "UK News", Active: true}
	router := newSourceTestRouter(svc, &fakeCollectStarter{})

	req := httptest.NewRequest(http.MethodPatch, "/sources/src-1", strings.NewReader(`{"active":false}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp sourceResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Active {
		t.Error("active = true, want false")
	}
}

func TestUpdateSource_MissingActive_Returns400(t *testing.T) {
	svc := newFakeSourceService()
	svc.sources["src-1"] = &model.Source{ID: "src-1"}
	router := newSourceTestRouter(svc, &fakeCollectStarter{})

	req := httptest.NewRequest(http.MethodPatch, "/sources/src-1", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestStartCollect_Returns202WithJob(t *testing.T) {
	starter := &fakeCollectStarter{job: &model.CollectionJob{
		ID:       "job-1",
		SourceID: "src-1",
		Status:   model.JobStatusPending,
	}}
	router := newSourceTestRouter(newFakeSourceService(), starter)

	req := httptest.NewRequest(http.MethodPost, "/sources/src-1/collect", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusAccepted)
	}

	var resp jobResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "job-1" || resp.Status != "pending" {
		t.Errorf("response = %+v", resp)
	}
}

func TestStartCollect_InactiveSource_Returns409(t *testing.T) {
	starter := &fakeCollectStarter{err: model.NewSourceInactiveError("src-1")}
	router := newSourceTestRouter(newFakeSourceService(), starter)

	req := httptest.NewRequest(http.MethodPost, "/sources/src-1/collect", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}
}
