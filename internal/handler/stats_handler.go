package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/thermoculture/internal/stats"
)

// StatsServiceInterface は統計ハンドラーが必要とするサービスインターフェース。
type StatsServiceInterface interface {
	Collection(ctx context.Context) (*stats.CollectionStats, error)
}

// StatsHandler は収集状況のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: service}
}

// sourceStatsResponse はソース別収集状況のAPIレスポンス。
type sourceStatsResponse struct {
	SourceID    string       `json:"source_id"`
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Active      bool         `json:"active"`
	SampleCount int          `json:"sample_count"`
	LastJob     *jobResponse `json:"last_job,omitempty"`
}

// collectionStatsResponse は収集状況全体のAPIレスポンス。
type collectionStatsResponse struct {
	TotalSamples   int                   `json:"total_samples"`
	SamplesLast24h int                   `json:"samples_last_24h"`
	Sources        []sourceStatsResponse `json:"sources"`
}

// Collection は収集状況の集計を返す。
// GET /api/v1/stats/collection
func (h *StatsHandler) Collection(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Collection(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := collectionStatsResponse{
		TotalSamples:   result.TotalSamples,
		SamplesLast24h: result.SamplesLast24h,
		Sources:        make([]sourceStatsResponse, 0, len(result.Sources)),
	}
	for _, src := range result.Sources {
		item := sourceStatsResponse{
			SourceID:    src.SourceID,
			Name:        src.Name,
			Type:        string(src.Type),
			Active:      src.Active,
			SampleCount: src.SampleCount,
		}
		if src.LastJob != nil {
			job := toJobResponse(src.LastJob)
			item.LastJob = &job
		}
		resp.Sources = append(resp.Sources, item)
	}

	writeJSON(w, http.StatusOK, resp)
}
