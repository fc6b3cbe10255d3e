package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/app"
	"github.com/aerlaedt-netizen/eviknumber2/config"
	"github.com/aerlaedt-netizen/eviknumber2/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logger.New(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal("Не удалось прочитать .env", zap.Error(err))
	}
	cfg, err := config.LoadBot(os.LookupEnv)
	if err != nil {
		log.Fatal("Неверная конфигурация бота", zap.Error(err))
	}
	bot, err := app.NewBotApp(ctx, cfg, log, false)
	if err != nil {
		log.Fatal("Не удалось запустить бота", zap.Error(err))
	}
	if err := bot.Run(ctx); err != nil {
		bot.Log.Error("Бот завершился с ошибкой", zap.Error(err))
		os.Exit(1)
	}
}
