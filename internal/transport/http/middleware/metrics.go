package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests"},
		[]string{"server", "route", "method", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"server", "route", "method"},
	)
	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "http_requests_in_flight", Help: "Requests currently being served"},
		[]string{"server"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, httpInflight) }

// Metrics 按路由模板打点；未匹配的路径归到 "unmatched"，避免标签基数失控
func Metrics(server string) gin.HandlerFunc {
	inflight := httpInflight.WithLabelValues(server)
	return func(c *gin.Context) {
		start := time.Now()
		inflight.Inc()
		defer inflight.Dec()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpReqTotal.WithLabelValues(server, route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(server, route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
