package logx

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	want := []zapcore.Level{zapcore.ErrorLevel, zapcore.WarnLevel, zapcore.InfoLevel, zapcore.DebugLevel}
	for v, w := range want {
		got, err := Level(v)
		if err != nil || got != w {
			t.Fatalf("Level(%d)=%v err=%v，期望 %v", v, got, err, w)
		}
	}
	if _, err := Level(4); err == nil {
		t.Fatalf("越界 verbosity 应报错")
	}
}

func TestNewTo_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewTo(&buf, 1)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	log.Info("hidden")
	log.Warn("shown")
	_ = log.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("级别过滤不符合预期：%q", out)
	}
}
