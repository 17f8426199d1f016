package logger

import (
	"path/filepath"
	"testing"

	"github.com/coachlab/coach-api/internal/config"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGormLevel(t *testing.T) {
	if GormLevel("debug") != gormlogger.Info {
		t.Error("expected debug to trace SQL")
	}
	if GormLevel("info") != gormlogger.Warn {
		t.Error("expected info to log slow queries and warnings only")
	}
	if GormLevel("error") != gormlogger.Error {
		t.Error("expected error to log errors only")
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "coach.log")
	log := New(&config.Config{LogLevel: "debug", LogPath: path})
	log.Info("hello")
	_ = log.Sync()

	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}
}
