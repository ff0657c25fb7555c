// pkg/logger/logger.go

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Уровни логирования
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

// Options - параметры файла логов
type Options struct {
	Path       string
	Level      string
	Debug      bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Logger struct {
	base      *zap.Logger
	sugar     *zap.SugaredLogger
	rotator   *lumberjack.Logger
	level     zap.AtomicLevel
	debugMode bool
}

func NewLogger(logPath string, logLevel string, debug bool) (*Logger, error) {
	return New(Options{Path: logPath, Level: logLevel, Debug: debug})
}

// New собирает tee: читаемая консоль + JSON файл с ротацией
func New(opts Options) (*Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(opts.Level))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleConfig := encoderConfig
	if opts.Debug {
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stdout), level),
	}

	var rotator *lumberjack.Logger
	if opts.Path != "" {
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("logger: create dir %s: %w", dir, err)
			}
		}
		rotator = &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 30),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2))
	return &Logger{
		base:      base,
		sugar:     base.Sugar(),
		rotator:   rotator,
		level:     level,
		debugMode: opts.Debug,
	}, nil
}

// parseLevel: неизвестный уровень логирует всё
func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn, "WARNING":
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.DebugLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (l *Logger) log(level zapcore.Level, format string, v ...interface{}) {
	if !l.level.Enabled(level) {
		return
	}
	msg := format
	if len(v) > 0 {
		msg = fmt.Sprintf(format, v...)
	}
	switch level {
	case zapcore.DebugLevel:
		l.sugar.Debug(msg)
	case zapcore.InfoLevel:
		l.sugar.Info(msg)
	case zapcore.WarnLevel:
		l.sugar.Warn(msg)
	default:
		l.sugar.Error(msg)
	}
}

// Методы для разных уровней
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log(zapcore.DebugLevel, format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.log(zapcore.InfoLevel, format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.log(zapcore.WarnLevel, format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.log(zapcore.ErrorLevel, format, v...)
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.sugar.Fatalf(format, v...)
}

// Zap - доступ к структурированному логгеру
func (l *Logger) Zap() *zap.Logger {
	return l.base.WithOptions(zap.AddCallerSkip(-2))
}

// SetLevel меняет уровень на лету
func (l *Logger) SetLevel(level string) {
	l.level.SetLevel(parseLevel(level))
}

func (l *Logger) Status(stats map[string]string) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(strings.Repeat("─", 50) + "\n")
	b.WriteString("📊 СТАТУС СИСТЕМЫ\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "   %-20s: %s\n", key, stats[key])
	}
	b.WriteString(strings.Repeat("─", 50))
	l.Info("%s", b.String())
}

// Signal - строка о новом торговом сигнале
func (l *Logger) Signal(symbol, direction string, confidence float64, score int) {
	icon := "🟢"
	if direction == "sell" {
		icon = "🔴"
	}
	l.Info("%s СИГНАЛ: %s %s (уверенность: %.0f%%, оценка: %d)",
		icon, symbol, strings.ToUpper(direction), confidence*100, score)
}

func (l *Logger) Close() {
	_ = l.base.Sync()
	if l.rotator != nil {
		l.rotator.Close()
	}
}
