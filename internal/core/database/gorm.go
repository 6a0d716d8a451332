package database

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"

	"ons-backend/internal/core/config"
	"ons-backend/internal/core/logger"
	"ons-backend/internal/domain"
)

var ErrUnsupportedDriver = errors.New("unsupported db driver")

type Opts struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
	Logger             *zap.Logger // 为空时使用 gorm 默认 logger
}

func OptsFrom(c config.DB, l *zap.Logger) Opts {
	return Opts{
		Driver:             c.Driver,
		DSN:                c.DSN,
		Username:           c.Username,
		Password:           c.Password,
		MaxOpenConns:       c.MaxOpenConns,
		MaxIdleConns:       c.MaxIdleConns,
		ConnMaxLifetimeMin: c.ConnMaxLifetimeMin,
		LogLevel:           c.LogLevel,
		Logger:             l,
	}
}

// Close 关闭底层连接池
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// dialector 按驱动选择方言；sqlite 只用于本地和测试，内存库必须单连接
func (o *Opts) dialector() (gorm.Dialector, error) {
	switch o.Driver {
	case "postgres":
		return postgres.Open(o.DSN), nil
	case "mysql":
		dsn := normalizeMySQLDSN(o.DSN, o.Username, o.Password)
		if o.Logger != nil {
			o.Logger.Info("mysql dsn normalized", zap.String("dsn", maskDSN(dsn)))
		}
		return mysql.Open(dsn), nil
	case "sqlite":
		o.MaxOpenConns, o.MaxIdleConns = 1, 1
		return sqlite.Open(o.DSN), nil
	}
	return nil, ErrUnsupportedDriver
}

func (o *Opts) gormLogger() gormlogger.Interface {
	if o.Logger != nil {
		return logger.NewGorm(o.Logger, o.LogLevel)
	}
	return gormlogger.Default.LogMode(logger.ParseGormLevel(o.LogLevel))
}

func NewGorm(o Opts) (*gorm.DB, error) {
	dial, err := o.dialector()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         o.gormLogger(),
		TranslateError: true, // 唯一键冲突 -> gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)

	// 报名、建活动这类多行写自己开事务
	return db.Session(&gorm.Session{
		PrepareStmt:            true,
		CreateBatchSize:        200,
		SkipDefaultTransaction: true,
	}), nil
}

// Migrate 按依赖顺序建表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Content{},
		&domain.Event{},
		&domain.EventRegistration{},
		&domain.Media{},
	)
}

// IsDuplicateKey 兼容未开启 TranslateError 的连接（例如外部传入的 *gorm.DB）
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"duplicate", "unique constraint", "unique violation"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
