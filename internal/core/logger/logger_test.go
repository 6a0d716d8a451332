package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestBuildJSON(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := Build(Options{Level: "info", JSON: true, Output: &buf})
	defer cleanup()

	l.Debug("hidden")
	l.Info("upload stored", zap.String("key", "media/images/a.jpg"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"upload stored"`)
	assert.Contains(t, out, `"key":"media/images/a.jpg"`)
	assert.Contains(t, out, `"ts":`)
}

func TestBuildBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l, _ := Build(Options{Level: "loud", JSON: true, Output: &buf})
	l.Debug("nope")
	l.Info("yes")
	assert.NotContains(t, buf.String(), "nope")
	assert.Contains(t, buf.String(), "yes")
}

func TestToWriter(t *testing.T) {
	var buf bytes.Buffer
	l, _ := Build(Options{Level: "debug", JSON: true, Output: &buf})
	w := ToWriter(l, zapcore.WarnLevel)
	_, _ = w.Write([]byte("[GIN-debug] route registered\n"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `route registered"`)
}

func TestGormLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	l, _ := Build(Options{Level: "debug", JSON: true, Output: &buf})
	g := NewGorm(l, "warn")
	sql := func() (string, int64) { return "SELECT 1", 1 }

	g.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	g.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	g.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "slow sql")

	buf.Reset()
	g.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), sql, errors.New("quiet"))
	assert.Empty(t, buf.String())
}

func TestFileRotateWriter(t *testing.T) {
	assert.Nil(t, FileRotate{Enable: true}.writer())
	assert.Nil(t, FileRotate{Filename: "x.log"}.writer())

	w := FileRotate{Enable: true, Filename: "x.log", MaxSizeMB: 0, MaxBackups: -1}.writer()
	if assert.NotNil(t, w) {
		assert.Equal(t, 1, w.MaxSize)
		assert.Equal(t, 0, w.MaxBackups)
	}
}
