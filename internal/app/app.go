package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/thermoculture/internal/collector"
	"github.com/hitoshi/thermoculture/internal/config"
	"github.com/hitoshi/thermoculture/internal/database"
	"github.com/hitoshi/thermoculture/internal/handler"
	"github.com/hitoshi/thermoculture/internal/ingest"
	"github.com/hitoshi/thermoculture/internal/jobs"
	"github.com/hitoshi/thermoculture/internal/logger"
	"github.com/hitoshi/thermoculture/internal/metrics"
	"github.com/hitoshi/thermoculture/internal/middleware"
	"github.com/hitoshi/thermoculture/internal/nlp"
	"github.com/hitoshi/thermoculture/internal/repository"
	"github.com/hitoshi/thermoculture/internal/sample"
	"github.com/hitoshi/thermoculture/internal/security"
	"github.com/hitoshi/thermoculture/internal/source"
	"github.com/hitoshi/thermoculture/internal/stats"
	"github.com/hitoshi/thermoculture/internal/task"
	"github.com/hitoshi/thermoculture/internal/trend"
	"github.com/hitoshi/thermoculture/internal/worker/cleanup"
	"github.com/hitoshi/thermoculture/internal/worker/collect"
	"github.com/hitoshi/thermoculture/internal/worker/enrich"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("newsapi_trial_mode", cfg.NewsAPITrialMode),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// 手動収集と手動登録サンプルの分析を処理するため、タスクキューも
// サーバープロセス内で起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	sourceRepo := repository.NewPostgresSourceRepo(db)
	sampleRepo := repository.NewPostgresSampleRepo(db)
	jobRepo := repository.NewPostgresJobRepo(db)
	themeRepo := repository.NewPostgresThemeRepo(db)
	analysisRepo := repository.NewPostgresAnalysisRepo(db)

	// 3. セキュリティサービスとコレクターの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()
	safeClient := ssrfGuard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize)

	fetcher := collector.NewFetcher(safeClient, cfg.RequestInterval, cfg.UserAgent, slog.Default())
	robots := collector.NewRobotsGate(safeClient, cfg.UserAgent, slog.Default())
	registry := collector.NewRegistry(
		collector.NewNewsAPICollector(fetcher, cfg.NewsAPIKey, cfg.NewsAPITrialMode, slog.Default()),
		collector.NewScrapeCollector(fetcher, robots, sanitizer, slog.Default()),
		collector.NewRSSCollector(fetcher, sanitizer, slog.Default()),
	)

	// 4. メトリクスの初期化
	metricsReg := prometheus.NewRegistry()
	metricsCollector := metrics.NewCollector(metricsReg)

	// 5. タスクキューと取り込み・分析パイプラインの初期化
	queue := task.NewQueue(cfg.TaskWorkers, cfg.TaskQueueSize, slog.Default())
	pipeline := ingest.NewPipeline(sampleRepo, slog.Default())
	analyzer := nlp.NewAnalyzer(sampleRepo, analysisRepo, themeRepo, slog.Default())

	runner := collect.NewRunner(sourceRepo, jobRepo, registry, pipeline, queue, metricsCollector, slog.Default())
	enrichWorker := enrich.NewWorker(analyzer, metricsCollector, slog.Default())
	queue.Register(task.KindCollect, runner.Run)
	queue.Register(task.KindEnrich, enrichWorker.Run)

	// 6. ドメインサービスの初期化
	jobService := jobs.NewService(sourceRepo, jobRepo, queue, slog.Default())
	sourceService := source.NewService(sourceRepo, ssrfGuard, slog.Default())
	sampleService := sample.NewService(sampleRepo, sourceRepo, analysisRepo, themeRepo, pipeline, queue, slog.Default())
	statsService := stats.NewService(sourceRepo, sampleRepo, jobRepo, slog.Default())
	trendService := trend.NewService(themeRepo, slog.Default())
	trendService.SetDefaultWindow(cfg.TrendWindowDays)

	// 7. ルーターの構築
	// configのレート制限値はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.CollectRate = rate.Limit(float64(cfg.RateLimitCollect) / 60.0)
	rateLimiterCfg.CollectBurst = cfg.RateLimitCollect
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		StatusRecorder:    metricsCollector,

		SourceService: sourceService,
		CollectSvc:    jobService,
		JobService:    jobService,
		SampleService: sampleService,
		TrendService:  trendService,
		StatsService:  statsService,

		MetricsHandler: metrics.Handler(metricsReg),
	})

	// 8. タスクワーカーとHTTPサーバーの起動
	queueCtx, cancelQueue := context.WithCancel(context.Background())
	defer cancelQueue()
	queue.Start(queueCtx)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// 実行中のタスクの完了を待ってから終了する
	cancelQueue()
	queue.Wait()

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、タスクキューと収集スケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	sourceRepo := repository.NewPostgresSourceRepo(db)
	sampleRepo := repository.NewPostgresSampleRepo(db)
	jobRepo := repository.NewPostgresJobRepo(db)
	themeRepo := repository.NewPostgresThemeRepo(db)
	analysisRepo := repository.NewPostgresAnalysisRepo(db)

	// 3. セキュリティサービスとコレクターの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()
	safeClient := ssrfGuard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize)

	fetcher := collector.NewFetcher(safeClient, cfg.RequestInterval, cfg.UserAgent, slog.Default())
	robots := collector.NewRobotsGate(safeClient, cfg.UserAgent, slog.Default())
	registry := collector.NewRegistry(
		collector.NewNewsAPICollector(fetcher, cfg.NewsAPIKey, cfg.NewsAPITrialMode, slog.Default()),
		collector.NewScrapeCollector(fetcher, robots, sanitizer, slog.Default()),
		collector.NewRSSCollector(fetcher, sanitizer, slog.Default()),
	)

	// 4. メトリクスの初期化
	// ワーカーモードではHTTP公開しないが、カウンタの記録先として使用する
	metricsCollector := metrics.NewCollector(prometheus.NewRegistry())

	// 5. タスクキューとワーカーの初期化
	queue := task.NewQueue(cfg.TaskWorkers, cfg.TaskQueueSize, slog.Default())
	pipeline := ingest.NewPipeline(sampleRepo, slog.Default())
	analyzer := nlp.NewAnalyzer(sampleRepo, analysisRepo, themeRepo, slog.Default())

	runner := collect.NewRunner(sourceRepo, jobRepo, registry, pipeline, queue, metricsCollector, slog.Default())
	enrichWorker := enrich.NewWorker(analyzer, metricsCollector, slog.Default())
	queue.Register(task.KindCollect, runner.Run)
	queue.Register(task.KindEnrich, enrichWorker.Run)

	// 6. スケジューラとクリーンアップジョブの初期化
	jobService := jobs.NewService(sourceRepo, jobRepo, queue, slog.Default())
	scheduler := collect.NewScheduler(sourceRepo, jobService, slog.Default())
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("collect_interval", cfg.CollectInterval),
		slog.Int("task_workers", cfg.TaskWorkers),
	)

	// タスクワーカープールを起動
	queue.Start(ctx)

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// 収集スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.CollectInterval)

	// 実行中のタスクの完了を待ってから終了する
	queue.Wait()

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
