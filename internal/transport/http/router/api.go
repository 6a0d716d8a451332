package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ons-backend/internal/core/config"
	"ons-backend/internal/core/server"
	"ons-backend/internal/transport/http/ez"
	"ons-backend/internal/transport/http/handler"
	mdw "ons-backend/internal/transport/http/middleware"
)

const (
	apiMaxBody   = 110 << 20 // 单个视频上限 100MB 加表单开销
	apiTimeout   = 2 * time.Minute
	apiInflight  = 300
	limitMessage = "Too many requests from this IP, please try again later."
)

// Security 鉴权与限流依赖；Counter 为 redis 或进程内固定窗口
type Security struct {
	Tokens  mdw.AccessTokenParser
	Users   mdw.UserLoader
	Counter mdw.WindowCounter
	Limits  config.RateLimit
}

func window(name string, w config.Window, skipSuccessful bool) mdw.WindowRule {
	return mdw.WindowRule{
		Name:           name,
		Max:            w.Max,
		Window:         time.Duration(w.WindowMin) * time.Minute,
		Message:        limitMessage,
		SkipSuccessful: skipSuccessful,
	}
}

// Guards 按配置生成路由级中间件
func (s Security) Guards(l *zap.Logger) handler.Guards {
	return handler.Guards{
		Auth:              mdw.Authenticate(s.Tokens, s.Users),
		OptionalAuth:      mdw.OptionalAuth(s.Tokens, s.Users),
		AuthLimit:         mdw.WindowLimit(s.Counter, window("rl:auth", s.Limits.Auth, true), l),
		UploadLimit:       mdw.WindowLimit(s.Counter, window("rl:upload", s.Limits.Upload, false), l),
		RegistrationLimit: mdw.WindowLimit(s.Counter, window("rl:register", s.Limits.Registration, false), l),
	}
}

func NewAPIEngine(l *zap.Logger, opt server.Options, sec Security, mods ...APIModule) *gin.Engine {
	r := server.NewRouter(l, opt)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(l),
		mdw.Metrics("api"),
		mdw.ConcurrencyLimit(apiInflight),
		mdw.MaxBodyBytes(apiMaxBody),
		mdw.Timeout(apiTimeout),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 前缀；通用限流只作用于 /api
	api := r.Group("/api", mdw.WindowLimit(sec.Counter, window("rl:general", sec.Limits.General, false), l))
	e := ez.NewEZ(api, l)
	g := sec.Guards(l)
	for _, m := range mods {
		m.Mount(e, g)
	}
	return r
}
