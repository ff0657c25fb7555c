// pkg/logger/logger_test.go
package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.DebugLevel},
		{"verbose", zapcore.DebugLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, err := New(Options{Path: path, Level: "info"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Debug("скрыто %d", 1)
	l.Info("цикл завершён: %d сигналов", 3)
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "цикл завершён: 3 сигналов") {
		t.Errorf("info line missing: %s", out)
	}
	if strings.Contains(out, "скрыто") {
		t.Errorf("debug line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"level":"INFO"`) {
		t.Errorf("expected JSON encoded level: %s", out)
	}
}

func TestGlobalNoopBeforeInit(t *testing.T) {
	prev := globalLogger
	globalLogger = nil
	defer func() { globalLogger = prev }()

	Info("ничего не должно упасть")
	Signal("BTCUSDT", "buy", 0.8, 90)
	if Zap() == nil {
		t.Fatal("Zap() must never return nil")
	}
}
