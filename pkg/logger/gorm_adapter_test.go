package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observed(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestGormLogger_RespectsLevel(t *testing.T) {
	testCases := []struct {
		name      string
		level     gormlogger.LogLevel
		wantInfo  bool
		wantTrace bool
	}{
		{"warn level", gormlogger.Warn, false, false},
		{"info level", gormlogger.Info, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logs := observed(t)
			adapter := NewGormLogger(tc.level, DefaultGormLoggerConfig())

			adapter.Info(context.Background(), "info %d", 1)
			adapter.Warn(context.Background(), "warn %d", 2)
			adapter.Trace(context.Background(), time.Now(), func() (string, int64) {
				return "SELECT * FROM orders", 1
			}, nil)

			if got := logs.FilterMessage("info 1").Len() == 1; got != tc.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tc.wantInfo)
			}
			if logs.FilterMessage("warn 2").Len() != 1 {
				t.Error("warn message not found")
			}
			trace := logs.FilterMessage("SQL query executed")
			if got := trace.Len() == 1; got != tc.wantTrace {
				t.Errorf("trace logged = %v, want %v", got, tc.wantTrace)
			}
			if tc.wantTrace && trace.All()[0].ContextMap()["sql"] != "SELECT * FROM orders" {
				t.Error("sql field missing from trace entry")
			}
		})
	}
}

func TestGormLogger_SlowQueryAndRequestID(t *testing.T) {
	logs := observed(t)
	adapter := NewGormLogger(gormlogger.Info, GormLoggerConfig{SlowThreshold: time.Millisecond, IgnoreRecordNotFoundError: true})
	ctx := ContextWithRequestID(context.Background(), "test-request-123")

	adapter.Trace(ctx, time.Now().Add(-50*time.Millisecond), func() (string, int64) {
		return "SELECT * FROM slow_table", 1
	}, nil)

	slow := logs.FilterMessage("Slow SQL query").All()
	if len(slow) != 1 {
		t.Fatalf("expected one slow query entry, got %d", len(slow))
	}
	if slow[0].ContextMap()["request_id"] != "test-request-123" {
		t.Error("request id should be propagated from context")
	}
}

func TestGormLogger_Errors(t *testing.T) {
	logs := observed(t)
	adapter := NewGormLogger(gormlogger.Warn, DefaultGormLoggerConfig())

	adapter.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM orders WHERE id = 999", 0
	}, gormlogger.ErrRecordNotFound)
	if logs.Len() != 0 {
		t.Fatalf("record not found should be ignored, got %d entries", logs.Len())
	}

	adapter.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "INSERT INTO orders", 0
	}, errors.New("duplicate key"))
	if logs.FilterMessage("Database operation failed").Len() != 1 {
		t.Error("storage failure should be logged")
	}
}

func TestGormLogger_Silent(t *testing.T) {
	logs := observed(t)
	adapter := NewGormLogger(gormlogger.Info, DefaultGormLoggerConfig()).LogMode(gormlogger.Silent)

	adapter.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, errors.New("boom"))

	if logs.Len() != 0 {
		t.Errorf("silent adapter logged %d entries", logs.Len())
	}
}
