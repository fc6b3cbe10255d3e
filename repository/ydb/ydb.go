package ydb

import (
	"context"
	"fmt"

	"github.com/ydb-platform/ydb-go-sdk/v3"
	yc "github.com/ydb-platform/ydb-go-yc"
	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
)

// NewYDBDriver opens dsn with the service account key when given, or with
// metadata credentials of the Yandex Cloud VM or function otherwise.
func NewYDBDriver(ctx context.Context, dsn, saKey string, log *zap.Logger) (*ydb.Driver, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("NewYDBDriver"))
	defer span.Close()
	defer log.Info("Закончил открывать новое YDB соединение")
	log.Info("Открываю новое YDB соединение")
	var credOption = yc.WithMetadataCredentials()
	if len(saKey) > 0 {
		log.Info("Использую YDB ключ из конфигурации")
		credOption = ydb.WithAccessTokenCredentials(saKey)
	}
	ydbd, err := ydb.Open(ctx, dsn, yc.WithInternalCA(), credOption)
	if err != nil {
		return nil, fmt.Errorf("ydbOpen: %w", err)
	}
	return ydbd, nil
}
