// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordCollectSuccess(sourceID string)
	RecordCollectFailure(sourceID string, reason string)
	RecordCollectLatency(duration time.Duration)
	RecordSamplesIngested(count int)
	RecordDuplicatesSkipped(count int)
	RecordEnrichSuccess()
	RecordEnrichFailure()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	collectSuccess    prometheus.Counter
	collectFail       *prometheus.CounterVec
	collectLatency    prometheus.Histogram
	samplesIngested   prometheus.Counter
	duplicatesSkipped prometheus.Counter
	enrichSuccess     prometheus.Counter
	enrichFail        prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		collectSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermoculture_collect_success_total",
			Help: "収集ジョブ成功の合計数",
		}),
		collectFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermoculture_collect_fail_total",
			Help: "収集ジョブ失敗の理由別合計数",
		}, []string{"reason"}),
		collectLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "thermoculture_collect_latency_seconds",
			Help:    "収集ジョブのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		samplesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermoculture_samples_ingested_total",
			Help: "取り込まれたサンプルの合計数",
		}),
		duplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermoculture_duplicates_skipped_total",
			Help: "重複として除外されたサンプルの合計数",
		}),
		enrichSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermoculture_enrich_success_total",
			Help: "分析タスク成功の合計数",
		}),
		enrichFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermoculture_enrich_fail_total",
			Help: "分析タスク失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermoculture_http_status_total",
			Help: "外部ソースのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.collectSuccess,
		c.collectFail,
		c.collectLatency,
		c.samplesIngested,
		c.duplicatesSkipped,
		c.enrichSuccess,
		c.enrichFail,
		c.httpStatus,
	)

	return c
}

// RecordCollectSuccess は収集ジョブ成功を記録する。
func (c *Collector) RecordCollectSuccess(sourceID string) {
	c.collectSuccess.Inc()
}

// RecordCollectFailure は収集ジョブ失敗を理由コード付きで記録する。
func (c *Collector) RecordCollectFailure(sourceID string, reason string) {
	c.collectFail.WithLabelValues(reason).Inc()
}

// RecordCollectLatency は収集ジョブのレイテンシを記録する。
func (c *Collector) RecordCollectLatency(duration time.Duration) {
	c.collectLatency.Observe(duration.Seconds())
}

// RecordSamplesIngested は取り込まれたサンプル数を記録する。
func (c *Collector) RecordSamplesIngested(count int) {
	c.samplesIngested.Add(float64(count))
}

// RecordDuplicatesSkipped は重複として除外されたサンプル数を記録する。
func (c *Collector) RecordDuplicatesSkipped(count int) {
	c.duplicatesSkipped.Add(float64(count))
}

// RecordEnrichSuccess は分析タスク成功を記録する。
func (c *Collector) RecordEnrichSuccess() {
	c.enrichSuccess.Inc()
}

// RecordEnrichFailure は分析タスク失敗を記録する。
func (c *Collector) RecordEnrichFailure() {
	c.enrichFail.Inc()
}

// RecordHTTPStatus は外部ソースのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
