package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "promo"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	promotionApplyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_apply_total",
			Help:      "Promotion apply/detach operations by outcome",
		},
		[]string{"operation", "result"},
	)

	promotionUsageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_usage_total",
			Help:      "Promotion usage counter movements",
		},
		[]string{"action", "reason"},
	)

	bundleAutoAttachTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_auto_attach_total",
			Help:      "Bundle promotions attached, detached or skipped automatically",
		},
		[]string{"action"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by rate limiting",
		},
		[]string{"rule"},
	)
)

// ObserveHTTP 记录 HTTP 请求指标
func ObserveHTTP(method, route, status string, seconds float64) {
	if route == "" {
		route = "unknown"
	}
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// ObservePromotionOperation 记录优惠挂载操作结果，result 为 ok 或错误码
func ObservePromotionOperation(operation, result string) {
	if result == "" {
		result = "error"
	}
	promotionApplyTotal.WithLabelValues(operation, result).Inc()
}

// UsageConsumed 记录使用次数占用
func UsageConsumed(reason string) {
	promotionUsageTotal.WithLabelValues("consume", reason).Inc()
}

// UsageReleased 记录使用次数归还
func UsageReleased(reason string, count int) {
	if count <= 0 {
		return
	}
	promotionUsageTotal.WithLabelValues("release", reason).Add(float64(count))
}

// BundleAutoAttach 记录组合优惠自动挂载动作
func BundleAutoAttach(action string) {
	bundleAutoAttachTotal.WithLabelValues(action).Inc()
}

// ObserveRateLimited 记录被限流拒绝的请求
func ObserveRateLimited(rule string) {
	if rule == "" {
		rule = "default"
	}
	rateLimitedTotal.WithLabelValues(rule).Inc()
}

// Handler 指标导出处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
