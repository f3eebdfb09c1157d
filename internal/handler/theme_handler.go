package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/thermoculture/internal/model"
)

// TrendServiceInterface はテーマハンドラーが必要とするサービスインターフェース。
type TrendServiceInterface interface {
	Trending(ctx context.Context, windowDays int) []model.TrendingTheme
}

// ThemeHandler はテーマトレンドのHTTPハンドラー。
type ThemeHandler struct {
	trends TrendServiceInterface
}

// NewThemeHandler はThemeHandlerを生成する。
func NewThemeHandler(trends TrendServiceInterface) *ThemeHandler {
	return &ThemeHandler{trends: trends}
}

// trendingThemeResponse はトレンドテーマ1件のAPIレスポンス。
type trendingThemeResponse struct {
	ThemeID         string  `json:"theme_id"`
	Name            string  `json:"name"`
	RecentCount     int     `json:"recent_count"`
	HistoricalCount int     `json:"historical_count"`
	Score           float64 `json:"score"`
}

// Trending はトレンドテーマ一覧を返す。
// GET /api/v1/themes/trending?window_days=
func (h *ThemeHandler) Trending(w http.ResponseWriter, r *http.Request) {
	windowDays, _ := strconv.Atoi(r.URL.Query().Get("window_days"))

	themes := h.trends.Trending(r.Context(), windowDays)

	out := make([]trendingThemeResponse, 0, len(themes))
	for _, th := range themes {
		out = append(out, trendingThemeResponse{
			ThemeID:         th.ThemeID,
			Name:            th.Name,
			RecentCount:     th.RecentCount,
			HistoricalCount: th.HistoricalCount,
			Score:           th.Score,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"themes": out})
}
