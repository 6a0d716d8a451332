package main

import (
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ons-backend/internal/core/auth"
	"ons-backend/internal/core/config"
	"ons-backend/internal/core/database"
	"ons-backend/internal/core/logger"
	"ons-backend/internal/core/server"
	"ons-backend/internal/repo"
	"ons-backend/internal/service"
	"ons-backend/internal/transport/http/handler"
	mdw "ons-backend/internal/transport/http/middleware"
	"ons-backend/internal/transport/http/router"
)

// 管理端：账号审核（激活、改角色、验证邮箱），建表由用户端负责
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate(cfg.Log.File))
	defer cleanup()

	jwter, err := auth.NewJWTer(cfg.JWT)
	if err != nil {
		log.Fatal("jwt config invalid", zap.Error(err))
	}
	db, err := database.NewGorm(database.OptsFrom(cfg.DB, log))
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	users := repo.NewUserRepo(db)
	mode := gin.DebugMode
	if cfg.App.IsProd() {
		mode = gin.ReleaseMode
	}
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	r := router.NewAdminEngine(log,
		server.Options{Name: "admin", Mode: mode, Recovery: mdw.RecoveryResponse},
		jwter, users,
		handler.NewAdminHandler(service.NewUserService(users, log)),
	)

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	base := server.BaseURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("health", base+"/health"),
		zap.String("admin_v1", base+"/admin/v1"),
	)
	srv := server.BuildServer(addr, r, server.Timeouts{Read: 5 * time.Second, Write: 10 * time.Second, Idle: time.Minute})
	if err := server.Run(srv, log); err != nil {
		log.Error("admin api stopped", zap.Error(err))
	}
}
