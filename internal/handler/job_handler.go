package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/thermoculture/internal/model"
)

// JobServiceInterface はジョブハンドラーが必要とするサービスインターフェース。
type JobServiceInterface interface {
	GetJob(ctx context.Context, jobID string) (*model.CollectionJob, error)
}

// JobHandler は収集ジョブ照会のHTTPハンドラー。
type JobHandler struct {
	service JobServiceInterface
}

// NewJobHandler はJobHandlerを生成する。
func NewJobHandler(service JobServiceInterface) *JobHandler {
	return &JobHandler{service: service}
}

// jobResponse は収集ジョブのAPIレスポンス。
type jobResponse struct {
	ID             string     `json:"id"`
	SourceID       string     `json:"source_id"`
	Status         string     `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ItemsCollected int        `json:"items_collected"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// GetJob は収集ジョブの状態を返す。
// GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// toJobResponse はmodel.CollectionJobからAPIレスポンスに変換する。
func toJobResponse(job *model.CollectionJob) jobResponse {
	return jobResponse{
		ID:             job.ID,
		SourceID:       job.SourceID,
		Status:         string(job.Status),
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		ItemsCollected: job.ItemsCollected,
		ErrorMessage:   job.ErrorMessage,
		CreatedAt:      job.CreatedAt,
	}
}
