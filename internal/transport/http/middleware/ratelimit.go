package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	resp "ons-backend/internal/transport/http/response"
)

// RateLimitPerIP 每 IP 一个令牌桶（单进程，管理端用）
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*rate.Limiter)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		lim, ok := buckets[ip]
		if !ok {
			lim = rate.NewLimiter(rps, burst)
			buckets[ip] = lim
		}
		mu.Unlock()
		if lim.Allow() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, resp.Error(resp.CodeRateLimited, ""))
	}
}

// WindowCounter 固定窗口计数器（redis 或进程内实现）
type WindowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Undo(ctx context.Context, key string) error
}

type WindowRule struct {
	Name    string // 计数 key 前缀，区分不同规则
	Max     int
	Window  time.Duration
	Message string
	// SkipSuccessful 成功（<400）的请求不计数，登录类接口用
	SkipSuccessful bool
}

// WindowLimit 每个客户端 IP 在窗口内最多 Max 次；计数器故障时放行
func WindowLimit(counter WindowCounter, rule WindowRule, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rule.Name + ":" + c.ClientIP()
		n, left, err := counter.Hit(c.Request.Context(), key, rule.Window)
		if err != nil {
			l.Warn("rate limit counter unavailable", zap.String("rule", rule.Name), zap.Error(err))
			c.Next()
			return
		}
		remaining := int64(rule.Max) - n
		if remaining < 0 {
			remaining = 0
		}
		h := c.Writer.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(rule.Max))
		h.Set("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		h.Set("RateLimit-Reset", strconv.Itoa(int(left.Round(time.Second)/time.Second)))
		if n > int64(rule.Max) {
			h.Set("Retry-After", strconv.Itoa(int(left.Round(time.Second)/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, resp.Error(resp.CodeRateLimited, rule.Message))
			return
		}
		c.Next()
		if rule.SkipSuccessful && c.Writer.Status() < http.StatusBadRequest {
			if err := counter.Undo(context.WithoutCancel(c.Request.Context()), key); err != nil {
				l.Warn("rate limit undo failed", zap.String("rule", rule.Name), zap.Error(err))
			}
		}
	}
}
