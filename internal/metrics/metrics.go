// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// いいね結果のラベル値
const (
	LikeResultCounted      = "counted"
	LikeResultAlreadyLiked = "already_liked"
)

// 通知結果のラベル値
const (
	NotifyResultSent    = "sent"
	NotifyResultFailed  = "failed"
	NotifyResultSkipped = "skipped"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordPostView()
	RecordLike(result string)
	RecordSubscription()
	RecordNotification(result string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	postViews      prometheus.Counter
	postLikes      *prometheus.CounterVec
	subscriptions  prometheus.Counter
	notifications  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		postViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marsblog_post_views_total",
			Help: "記事詳細の閲覧数の合計",
		}),
		postLikes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marsblog_post_likes_total",
			Help: "いいね操作の結果別の合計数",
		}, []string{"result"}),
		subscriptions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marsblog_subscriptions_total",
			Help: "購読登録の合計数",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marsblog_notifications_total",
			Help: "公開通知メールの結果別の合計数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marsblog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marsblog_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.postViews,
		c.postLikes,
		c.subscriptions,
		c.notifications,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordPostView は記事の閲覧を記録する。
func (c *Collector) RecordPostView() {
	c.postViews.Inc()
}

// RecordLike はいいね操作の結果を記録する。
func (c *Collector) RecordLike(result string) {
	c.postLikes.WithLabelValues(result).Inc()
}

// RecordSubscription は購読登録を記録する。
func (c *Collector) RecordSubscription() {
	c.subscriptions.Inc()
}

// RecordNotification は通知メール送信の結果を記録する。
func (c *Collector) RecordNotification(result string) {
	c.notifications.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordPostView()                    {}
func (Nop) RecordLike(string)                  {}
func (Nop) RecordSubscription()                {}
func (Nop) RecordNotification(string)          {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
