// pkg/logger/global.go
package logger

import "go.uber.org/zap"

var globalLogger *Logger

func InitGlobal(logPath, logLevel string, debug bool) error {
	return InitGlobalWithOptions(Options{Path: logPath, Level: logLevel, Debug: debug})
}

func InitGlobalWithOptions(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	if globalLogger != nil {
		globalLogger.Close()
	}
	globalLogger = l
	return nil
}

func GetLogger() *Logger {
	return globalLogger
}

// Close сбрасывает буферы глобального логгера
func Close() {
	if globalLogger != nil {
		globalLogger.Close()
	}
}

// Zap возвращает структурированный логгер или no-op до InitGlobal
func Zap() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger.Zap()
}

// Глобальные методы для удобства
func Debug(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Debug(format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Info(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Warn(format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if globalLogger != nil {
		globalLogger.Error(format, v...)
	}
}

func Signal(symbol, direction string, confidence float64, score int) {
	if globalLogger != nil {
		globalLogger.Signal(symbol, direction, confidence, score)
	}
}

func Status(stats map[string]string) {
	if globalLogger != nil {
		globalLogger.Status(stats)
	}
}
