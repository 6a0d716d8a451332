package main

import (
	"context"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ons-backend/internal/core/auth"
	"ons-backend/internal/core/cache"
	"ons-backend/internal/core/config"
	"ons-backend/internal/core/database"
	"ons-backend/internal/core/identity"
	"ons-backend/internal/core/imaging"
	"ons-backend/internal/core/logger"
	"ons-backend/internal/core/mailer"
	"ons-backend/internal/core/server"
	"ons-backend/internal/core/storage"
	"ons-backend/internal/repo"
	"ons-backend/internal/service"
	"ons-backend/internal/transport/http/handler"
	mdw "ons-backend/internal/transport/http/middleware"
	"ons-backend/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate(cfg.Log.File))
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	db, err := database.NewGorm(database.OptsFrom(cfg.DB, log))
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}
	jwter, err := auth.NewJWTer(cfg.JWT)
	if err != nil {
		log.Fatal("jwt config invalid", zap.Error(err))
	}

	// 外部依赖：缺配置时降级，不阻止启动
	counter, closeCounter := openCounter(cfg, log)
	defer closeCounter()
	store := openStorage(cfg, log)
	idp := identity.NewWorkOS(identity.Config(cfg.OAuth))
	if !idp.Configured() {
		log.Warn("oauth not configured, social login disabled")
	}
	mail := openMailer(cfg, log)

	// 仓储与服务
	users := repo.NewUserRepo(db)
	contents := repo.NewContentRepo(db)
	authSvc := service.NewAuthService(users, jwter, idp, log)
	contentSvc := service.NewContentService(contents, log)
	eventSvc := service.NewEventService(contents, repo.NewRegistrationRepo(db), mail, log)
	mediaSvc := service.NewMediaService(repo.NewMediaRepo(db), store, storage.NewCDN(cfg.CDN.URLEndpoint),
		imaging.NewProcessor(), mediaLimits(cfg.Media), log)

	mode := gin.DebugMode
	if cfg.App.IsProd() {
		mode = gin.ReleaseMode
	}
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)

	// 路由（用户端）
	r := router.NewAPIEngine(log,
		server.Options{Name: "api", Mode: mode, CORSOrigins: cfg.App.CORSOrigins, Recovery: mdw.RecoveryResponse},
		router.Security{Tokens: jwter, Users: users, Counter: counter, Limits: cfg.RateLimit},
		handler.NewAuthHandler(authSvc, handler.CookieOptions{Secure: cfg.App.IsProd()}, cfg.App.FrontendURL, log),
		handler.NewContentHandler(contentSvc),
		handler.NewEventHandler(eventSvc),
		handler.NewMediaHandler(mediaSvc),
	)

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	base := server.BaseURL(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("health", base+"/health"),
		zap.String("api", base+"/api"),
		zap.String("env", cfg.App.Env),
	)
	srv := server.BuildServer(addr, r, server.Timeouts{
		Read:  time.Duration(cfg.App.HTTP.ReadTimeoutSec) * time.Second,
		Write: time.Duration(cfg.App.HTTP.WriteTimeoutSec) * time.Second,
		Idle:  time.Duration(cfg.App.HTTP.IdleTimeoutSec) * time.Second,
	})
	if err := server.Run(srv, log); err != nil {
		log.Error("user api stopped", zap.Error(err))
	}
}

// openCounter redis 不可用时退回进程内计数（多实例下各自计数）
func openCounter(cfg *config.Config, l *zap.Logger) (mdw.WindowCounter, func()) {
	if cfg.Redis.Addr == "" {
		l.Warn("redis not configured, using in-process rate limit counters")
		return cache.NewMemoryWindow(), func() {}
	}
	c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		l.Warn("redis unreachable, using in-process rate limit counters", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = c.Close()
		return cache.NewMemoryWindow(), func() {}
	}
	return c, func() { _ = c.Close() }
}

func openStorage(cfg *config.Config, l *zap.Logger) service.ObjectStore {
	if !cfg.Storage.Enabled() {
		l.Warn("object storage not configured, media uploads disabled")
		return storage.Unconfigured{}
	}
	s, err := storage.NewR2(storage.Config(cfg.Storage))
	if err != nil {
		l.Error("object storage init failed, media uploads disabled", zap.Error(err))
		return storage.Unconfigured{}
	}
	return s
}

func openMailer(cfg *config.Config, l *zap.Logger) mailer.Sender {
	if !cfg.Mail.Enabled() {
		return mailer.Noop{Log: l}
	}
	return mailer.NewSMTP(mailer.Config(cfg.Mail))
}

func mediaLimits(m config.Media) service.MediaLimits {
	lim := service.DefaultMediaLimits()
	if m.MaxImageMB > 0 {
		lim.Image = int64(m.MaxImageMB) << 20
	}
	if m.MaxVideoMB > 0 {
		lim.Video = int64(m.MaxVideoMB) << 20
	}
	if m.MaxDocumentMB > 0 {
		lim.Document = int64(m.MaxDocumentMB) << 20
	}
	return lim
}
