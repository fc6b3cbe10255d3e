// Command migrate creates the tables of the configured storage and seeds the driver count.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/app"
	"github.com/aerlaedt-netizen/eviknumber2/config"
	"github.com/aerlaedt-netizen/eviknumber2/logger"
)

func main() {
	ctx := context.Background()
	log, err := logger.New(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal("Не удалось прочитать .env", zap.Error(err))
	}
	storage, err := config.LoadStorage(os.LookupEnv)
	if err != nil {
		log.Fatal("Неверная конфигурация хранилища", zap.Error(err))
	}
	if err := app.Migrate(ctx, storage, log); err != nil {
		log.Fatal("Миграция не удалась", zap.Error(err))
	}
	log.Info("Миграция выполнена", zap.String("storage", storage.Backend))
}
