package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/thermoculture/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.HTTPStatusRecorder

	// サービス
	SourceService SourceServiceInterface
	CollectSvc    CollectStarter
	JobService    JobServiceInterface
	SampleService SampleServiceInterface
	TrendService  TrendServiceInterface
	StatsService  StatsServiceInterface

	// /metrics で公開するPrometheusハンドラー
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → RateLimit(General)
//
// /healthz と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}

	sourceHandler := NewSourceHandler(deps.SourceService, deps.CollectSvc)
	jobHandler := NewJobHandler(deps.JobService)
	sampleHandler := NewSampleHandler(deps.SampleService)
	themeHandler := NewThemeHandler(deps.TrendService)
	statsHandler := NewStatsHandler(deps.StatsService)

	// --- 運用エンドポイント（レート制限の外） ---

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ソース管理
		r.Route("/sources", func(r chi.Router) {
			r.Post("/", sourceHandler.CreateSource)
			r.Get("/", sourceHandler.ListSources)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sourceHandler.GetSource)
				r.Patch("/", sourceHandler.UpdateSource)

				// POST /api/v1/sources/{id}/collect - 収集開始（収集専用レート制限を追加）
				r.With(deps.RateLimiter.CollectMiddleware()).Post("/collect", sourceHandler.StartCollect)
			})
		})

		// 収集ジョブ照会
		r.Get("/jobs/{id}", jobHandler.GetJob)

		// サンプル管理
		r.Route("/samples", func(r chi.Router) {
			r.Post("/", sampleHandler.CreateSample)
			r.Get("/", sampleHandler.ListSamples)
			r.Get("/{id}", sampleHandler.GetSample)
		})

		// テーマトレンド
		r.Get("/themes/trending", themeHandler.Trending)

		// 収集状況
		r.Get("/stats/collection", statsHandler.Collection)
	})

	return r
}
