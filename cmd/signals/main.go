// cmd/signals/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"smart-money-screener/application/bootstrap"
	"smart-money-screener/internal/infrastructure/config"
	"smart-money-screener/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", ".env", "Путь к файлу конфигурации")
		once       = flag.Bool("once", false, "Один цикл анализа и выход")
		explain    = flag.String("explain", "", "Разбор скоринга символа без создания сигналов")
		debugMode  = flag.Bool("debug", false, "Режим отладки")
	)
	flag.Parse()

	// 1. Конфигурация
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("❌ Не удалось загрузить конфигурацию: %v", err)
	}
	if *debugMode {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "DEBUG"
	}

	// 2. Логгер
	if err := logger.InitGlobalWithOptions(logger.Options{
		Path:       cfg.Logging.File,
		Level:      cfg.Logging.Level,
		Debug:      cfg.Logging.DebugMode,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		log.Fatalf("❌ Не удалось инициализировать логгер: %v", err)
	}
	defer logger.Close()
	cfg.PrintSummary()

	ctx := context.Background()
	builder := bootstrap.NewAppBuilder().WithConfig(cfg)
	if *once || *explain != "" {
		builder.WithOption(bootstrap.WithoutHTTP())
	}

	// 3. Сборка
	app, err := builder.Build(ctx)
	if err != nil {
		logger.Error("❌ Ошибка сборки приложения: %v", err)
		return 1
	}

	switch {
	case *explain != "":
		ex, err := app.Engine().Explain(ctx, *explain)
		_ = app.Close()
		if err != nil {
			logger.Error("❌ %v", err)
			return 1
		}
		printJSON(ex)
		return 0

	case *once:
		rep, err := app.RunOnce(ctx)
		printJSON(rep)
		if err != nil {
			logger.Error("❌ Цикл завершился с ошибками: %v", err)
			return 1
		}
		return 0
	}

	// 4. Работа до сигнала завершения
	if err := app.Run(ctx); err != nil {
		logger.Error("❌ Остановка с ошибками: %v", err)
		return 1
	}
	return 0
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
	}
}
