// Package trend はテーマのトレンドスコア算出を提供する。
// 直近ウィンドウ内の出現シェアと全期間シェアの差をスコアとする。
package trend

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/hitoshi/thermoculture/internal/model"
	"github.com/hitoshi/thermoculture/internal/repository"
)

const (
	// defaultWindowDays はトレンド集計のデフォルトウィンドウ（日数）。
	defaultWindowDays = 30
	// maxTrendingThemes は返却するテーマ数の上限。
	maxTrendingThemes = 20
)

// ThemeCounter はトレンド集計に必要なインターフェース。
// repository.ThemeRepositoryがこれを満たす。
type ThemeCounter interface {
	TrendCounts(ctx context.Context, since time.Time) ([]repository.ThemeTrendCount, error)
}

// Service はトレンドテーマの集計サービス。
type Service struct {
	themes        ThemeCounter
	logger        *slog.Logger
	defaultWindow int
	now           func() time.Time // テスト用に現在時刻を差し替え可能
}

// NewService はServiceを生成する。
func NewService(themes ThemeCounter, logger *slog.Logger) *Service {
	return &Service{
		themes:        themes,
		logger:        logger,
		defaultWindow: defaultWindowDays,
		now:           time.Now,
	}
}

// SetDefaultWindow はwindow_days未指定時に使用するウィンドウ日数を設定する。
// 0以下の値は無視する。
func (s *Service) SetDefaultWindow(days int) {
	if days > 0 {
		s.defaultWindow = days
	}
}

// Trending は直近windowDays日間のトレンドテーマを返す。
// windowDaysが0以下の場合はデフォルトの30日を使用する。
// 集計に失敗した場合はエラーをログに記録して空のリストを返す。
func (s *Service) Trending(ctx context.Context, windowDays int) []model.TrendingTheme {
	if windowDays <= 0 {
		windowDays = s.defaultWindow
	}
	since := s.now().AddDate(0, 0, -windowDays)

	counts, err := s.themes.TrendCounts(ctx, since)
	if err != nil {
		s.logger.Error("トレンド集計に失敗しました",
			slog.Int("window_days", windowDays),
			slog.String("error", err.Error()),
		)
		return []model.TrendingTheme{}
	}

	return ComputeTrending(counts)
}

// ComputeTrending はテーマごとの出現件数からトレンドスコアを算出する。
// スコアは直近シェアと全期間シェアの差。直近の出現がないテーマは除外し、
// スコア降順（同点は直近件数降順、テーマ名昇順）で上位20件を返す。
func ComputeTrending(counts []repository.ThemeTrendCount) []model.TrendingTheme {
	var totalRecent, totalAll int
	for _, c := range counts {
		totalRecent += c.RecentCount
		totalAll += c.HistoricalCount
	}
	if totalRecent == 0 {
		totalRecent = 1
	}
	if totalAll == 0 {
		totalAll = 1
	}

	trending := make([]model.TrendingTheme, 0, len(counts))
	for _, c := range counts {
		if c.RecentCount == 0 {
			continue
		}
		recentShare := float64(c.RecentCount) / float64(totalRecent)
		historicalShare := float64(c.HistoricalCount) / float64(totalAll)
		trending = append(trending, model.TrendingTheme{
			ThemeID:         c.ThemeID,
			Name:            c.Name,
			RecentCount:     c.RecentCount,
			HistoricalCount: c.HistoricalCount,
			Score:           round4(recentShare - historicalShare),
		})
	}

	sort.Slice(trending, func(i, j int) bool {
		a, b := trending[i], trending[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.RecentCount != b.RecentCount {
			return a.RecentCount > b.RecentCount
		}
		return a.Name < b.Name
	})

	if len(trending) > maxTrendingThemes {
		trending = trending[:maxTrendingThemes]
	}
	return trending
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
