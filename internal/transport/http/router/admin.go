package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ons-backend/internal/core/server"
	"ons-backend/internal/domain"
	"ons-backend/internal/transport/http/ez"
	mdw "ons-backend/internal/transport/http/middleware"
)

func NewAdminEngine(l *zap.Logger, opt server.Options, tokens mdw.AccessTokenParser, users mdw.UserLoader, mods ...AdminModule) *gin.Engine {
	r := server.NewRouter(l, opt)

	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(l),
		mdw.Metrics("admin"),
		mdw.RateLimitPerIP(20, 40),
		mdw.ConcurrencyLimit(50),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1", mdw.Authenticate(tokens, users), mdw.RequireRole(domain.RoleAdmin))
	e := ez.NewEZ(admin, l)
	for _, m := range mods {
		m.Mount(e)
	}
	return r
}
