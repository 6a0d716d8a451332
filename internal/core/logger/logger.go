package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileRotate 与 config.LogFile 字段一致，可直接类型转换
type FileRotate struct {
	Enable     bool
	Filename   string // 如 logs/api.log
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Options struct {
	Level       string // debug / info / warn / error
	JSON        bool
	AddCaller   bool
	Development bool
	Rotate      FileRotate
	Output      io.Writer // 默认 os.Stdout
}

// NewWithRotate 生产用 JSON，本地用彩色控制台；开启 Rotate 时另写一份 JSON 文件日志
func NewWithRotate(level string, json bool, rotate FileRotate) (*zap.Logger, func()) {
	return Build(Options{
		Level:       level,
		JSON:        json,
		AddCaller:   true,
		Development: !json,
		Rotate:      rotate,
	})
}

func Build(opt Options) (*zap.Logger, func()) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(opt.Level); err != nil {
		lvl = zapcore.InfoLevel
	}
	out := opt.Output
	if out == nil {
		out = os.Stdout
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder(opt.JSON), zapcore.AddSync(out), lvl)}
	rotator := opt.Rotate.writer()
	if rotator != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotator), lvl))
	}
	// 每秒同一条消息前 100 条全记，之后每 100 条记 1 条
	core := zapcore.NewSamplerWithOptions(zapcore.NewTee(cores...), time.Second, 100, 100)

	var zopts []zap.Option
	if opt.AddCaller {
		zopts = append(zopts, zap.AddCaller())
	}
	if opt.Development {
		zopts = append(zopts, zap.Development())
	}
	l := zap.New(core, zopts...)
	return l, func() {
		_ = l.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
}

func encoder(json bool) zapcore.Encoder {
	if json {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func (r FileRotate) writer() *lumberjack.Logger {
	if !r.Enable || r.Filename == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   r.Filename,
		MaxSize:    max(1, r.MaxSizeMB),
		MaxBackups: max(0, r.MaxBackups),
		MaxAge:     max(0, r.MaxAgeDays),
		Compress:   r.Compress,
	}
}

type lineWriter struct {
	l     *zap.Logger
	level zapcore.Level
}

func (w lineWriter) Write(p []byte) (int, error) {
	if ce := w.l.Check(w.level, strings.TrimRight(string(p), "\r\n")); ce != nil {
		ce.Write()
	}
	return len(p), nil
}

// ToWriter 给 gin.DefaultWriter 用，每次 Write 记一条日志
func ToWriter(l *zap.Logger, level zapcore.Level) io.Writer {
	return lineWriter{l: l, level: level}
}

func RedirectStdLog(l *zap.Logger, level zapcore.Level) func() {
	undo, err := zap.RedirectStdLogAt(l, level)
	if err != nil {
		return func() {}
	}
	return undo
}
