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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordUploadSuccess(kind string)
	RecordUploadFailure(kind string)
	RecordUploadLatency(duration time.Duration)
	RecordItemCreated()
	RecordItemDeleted()
	RecordOutfitSaved()
	RecordHTTPStatus(statusCode int)
	SetWSConnections(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	uploadSuccess *prometheus.CounterVec
	uploadFail    *prometheus.CounterVec
	uploadLatency prometheus.Histogram
	itemsCreated  prometheus.Counter
	itemsDeleted  prometheus.Counter
	outfitsSaved  prometheus.Counter
	httpStatus    *prometheus.CounterVec
	wsConnections prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		uploadSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "closetly_upload_success_total",
			Help: "画像アップロード成功の合計数（種別ラベル付き）",
		}, []string{"kind"}),
		uploadFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "closetly_upload_fail_total",
			Help: "画像アップロード失敗の合計数（種別ラベル付き）",
		}, []string{"kind"}),
		uploadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "closetly_upload_latency_seconds",
			Help:    "画像アップロードのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		itemsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closetly_items_created_total",
			Help: "登録された衣類アイテムの合計数",
		}),
		itemsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closetly_items_deleted_total",
			Help: "削除された衣類アイテムの合計数",
		}),
		outfitsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closetly_outfits_saved_total",
			Help: "保存されたアウトフィットの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "closetly_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "closetly_ws_connections",
			Help: "現在のWebSocket接続数",
		}),
	}

	reg.MustRegister(
		c.uploadSuccess,
		c.uploadFail,
		c.uploadLatency,
		c.itemsCreated,
		c.itemsDeleted,
		c.outfitsSaved,
		c.httpStatus,
		c.wsConnections,
	)

	return c
}

// RecordUploadSuccess はアップロード成功を記録する。kindは"item"・"avatar"など。
func (c *Collector) RecordUploadSuccess(kind string) {
	c.uploadSuccess.WithLabelValues(kind).Inc()
}

// RecordUploadFailure はアップロード失敗を記録する。
func (c *Collector) RecordUploadFailure(kind string) {
	c.uploadFail.WithLabelValues(kind).Inc()
}

// RecordUploadLatency はアップロードのレイテンシを記録する。
func (c *Collector) RecordUploadLatency(duration time.Duration) {
	c.uploadLatency.Observe(duration.Seconds())
}

// RecordItemCreated はアイテム登録を記録する。
func (c *Collector) RecordItemCreated() {
	c.itemsCreated.Inc()
}

// RecordItemDeleted はアイテム削除を記録する。
func (c *Collector) RecordItemDeleted() {
	c.itemsDeleted.Inc()
}

// RecordOutfitSaved はアウトフィット保存を記録する。
func (c *Collector) RecordOutfitSaved() {
	c.outfitsSaved.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// SetWSConnections は現在のWebSocket接続数を記録する。
func (c *Collector) SetWSConnections(count int) {
	c.wsConnections.Set(float64(count))
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
