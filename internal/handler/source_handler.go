package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/thermoculture/internal/model"
	"github.com/hitoshi/thermoculture/internal/source"
)

// SourceServiceInterface はソースハンドラーが必要とするサービスインターフェース。
type SourceServiceInterface interface {
	Create(ctx context.Context, input source.CreateInput) (*model.Source, error)
	Get(ctx context.Context, id string) (*model.Source, error)
	List(ctx context.Context) ([]*model.Source, error)
	SetActive(ctx context.Context, id string, active bool) (*model.Source, error)
}

// CollectStarter は収集ジョブ開始のインターフェース。jobs.Serviceがこれを満たす。
type CollectStarter interface {
	StartCollection(ctx context.Context, sourceID string) (*model.CollectionJob, error)
}

// SourceHandler は収集ソース管理のHTTPハンドラー。
type SourceHandler struct {
	service SourceServiceInterface
	starter CollectStarter
}

// NewSourceHandler はSourceHandlerを生成する。
func NewSourceHandler(service SourceServiceInterface, starter CollectStarter) *SourceHandler {
	return &SourceHandler{
		service: service,
		starter: starter,
	}
}

// createSourceRequest はソース登録リクエストのボディ。
type createSourceRequest struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	URL    string         `json:"url"`
	Config map[string]any `json:"config"`
	Active *bool          `json:"active"`
}

// updateSourceRequest はソース状態更新リクエストのボディ。
type updateSourceRequest struct {
	Active *bool `json:"active"`
}

// sourceResponse はソース情報のAPIレスポンス。
type sourceResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	URL       string         `json:"url"`
	Config    map[string]any `json:"config,omitempty"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateSource はソース登録を処理する。
// POST /api/v1/sources
func (h *SourceHandler) CreateSource(w http.ResponseWriter, r *http.Request) {
	var req createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	src, err := h.service.Create(r.Context(), source.CreateInput{
		Name:   req.Name,
		Type:   model.SourceType(req.Type),
		URL:    req.URL,
		Config: req.Config,
		Active: req.Active,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSourceResponse(src))
}

// ListSources はソース一覧を返す。
// GET /api/v1/sources
func (h *SourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, toSourceResponse(src))
	}

	writeJSON(w, http.StatusOK, map[string]any{"sources": out})
}

// GetSource はソース詳細を返す。
// GET /api/v1/sources/:id
func (h *SourceHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	src, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSourceResponse(src))
}

// UpdateSource はソースの有効/無効を切り替える。
// PATCH /api/v1/sources/:id
func (h *SourceHandler) UpdateSource(w http.ResponseWriter, r *http.Request) {
	var req updateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.Active == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("activeは必須です"))
		return
	}

	src, err := h.service.SetActive(r.Context(), chi.URLParam(r, "id"), *req.Active)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSourceResponse(src))
}

// StartCollect は収集ジョブを開始する。ジョブは非同期実行されるため202を返す。
// POST /api/v1/sources/:id/collect
func (h *SourceHandler) StartCollect(w http.ResponseWriter, r *http.Request) {
	job, err := h.starter.StartCollection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

// toSourceResponse はmodel.SourceからAPIレスポンスに変換する。
func toSourceResponse(src *model.Source) sourceResponse {
	return sourceResponse{
		ID:        src.ID,
		Name:      src.Name,
		Type:      string(src.Type),
		URL:       src.URL,
		Config:    src.Config,
		Active:    src.Active,
		CreatedAt: src.CreatedAt,
		UpdatedAt: src.UpdatedAt,
	}
}
