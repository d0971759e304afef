// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス収集のインターフェース。
// ハンドラーやゲートウェイクライアントから利用する。
type Recorder interface {
	RecordRegistration()
	RecordLogin(outcome string)
	RecordValidation(outcome string)
	RecordRevocation()
	RecordDownstreamLatency(service string, duration time.Duration)
	RecordDownstreamFailure(service string)
}

// ログイン・検証結果のoutcomeラベル値。
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeExpired     = "expired"
	OutcomeInvalid     = "invalid"
	OutcomeMissing     = "missing"
	OutcomeUnavailable = "unavailable"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations     prometheus.Counter
	logins            *prometheus.CounterVec
	validations       *prometheus.CounterVec
	revocations       prometheus.Counter
	downstreamLatency *prometheus.HistogramVec
	downstreamFail    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userplane_registrations_total",
			Help: "アカウント登録成功の合計数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userplane_logins_total",
			Help: "結果別のログイン試行数",
		}, []string{"outcome"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userplane_token_validations_total",
			Help: "結果別のトークン検証数",
		}, []string{"outcome"}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userplane_revocations_total",
			Help: "失効させたトークンの合計数",
		}),
		downstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userplane_downstream_latency_seconds",
			Help:    "下流サービス呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		downstreamFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userplane_downstream_failures_total",
			Help: "下流サービス呼び出し失敗の合計数",
		}, []string{"service"}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.validations,
		c.revocations,
		c.downstreamLatency,
		c.downstreamFail,
	)

	return c
}

// RecordRegistration は登録成功を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordValidation はトークン検証の結果を記録する。
func (c *Collector) RecordValidation(outcome string) {
	c.validations.WithLabelValues(outcome).Inc()
}

// RecordRevocation はトークン失効を記録する。
func (c *Collector) RecordRevocation() {
	c.revocations.Inc()
}

// RecordDownstreamLatency は下流呼び出しのレイテンシを記録する。
func (c *Collector) RecordDownstreamLatency(service string, duration time.Duration) {
	c.downstreamLatency.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordDownstreamFailure は下流呼び出しの失敗を記録する。
func (c *Collector) RecordDownstreamFailure(service string) {
	c.downstreamFail.WithLabelValues(service).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
