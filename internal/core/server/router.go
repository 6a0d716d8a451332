package server

import (
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Name        string
	Mode        string // gin 模式：debug | release | test
	CORSOrigins []string
	// Recovery panic 后写响应；为空时只返回 500
	Recovery gin.RecoveryFunc
}

func NewRouter(l *zap.Logger, o Options) *gin.Engine {
	if o.Mode != "" {
		gin.SetMode(o.Mode)
	}
	r := gin.New()
	if o.Recovery != nil {
		r.Use(ginzap.CustomRecoveryWithZap(l, true, o.Recovery))
	} else {
		r.Use(ginzap.RecoveryWithZap(l, true))
	}
	r.Use(cors.New(corsConfig(o.CORSOrigins)))
	return r
}

// corsConfig 带 cookie 的跨域必须列出具体来源；没配置时放开全部但不带凭证
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
