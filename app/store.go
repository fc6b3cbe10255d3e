// Package app wires configuration, logging, storage, services and transports into runnable processes.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/config"
	"github.com/aerlaedt-netizen/eviknumber2/lib/errors"
	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
	"github.com/aerlaedt-netizen/eviknumber2/repository/postgres"
	"github.com/aerlaedt-netizen/eviknumber2/repository/sqlite"
	ydbrepo "github.com/aerlaedt-netizen/eviknumber2/repository/ydb"
)

const openAttempts = 5

// retry calls fn until it succeeds, waiting one step longer after every failure.
// Context errors from fn end the loop at once.
func retry(ctx context.Context, attempts int, step time.Duration, log *zap.Logger, fn func() error) error {
	var err error
	delay := time.Duration(0)
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		delay += step
		log.Warn("Хранилище недоступно, повторю", zap.Int("attempt", i+1), zap.Duration("delay", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (последняя ошибка: %v)", ctx.Err(), err)
		case <-time.After(delay):
		}
	}
	return err
}

func OpenStore(ctx context.Context, cfg config.Storage, log *zap.Logger) (repository.Store, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("OpenStore"))
	defer span.Close()
	log = log.With(zap.String("storage", cfg.Backend))

	var store repository.Store
	err := retry(ctx, openAttempts, time.Second, log, func() error {
		var err error
		store, err = openStore(ctx, cfg, log)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("открытие хранилища %s: %w", cfg.Backend, err)
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("схема хранилища %s: %w", cfg.Backend, err)
	}
	log.Info("Хранилище готово")
	return store, nil
}

func openStore(ctx context.Context, cfg config.Storage, log *zap.Logger) (repository.Store, error) {
	switch cfg.Backend {
	case config.StoragePostgres:
		return postgres.Open(ctx, cfg.DatabaseURL, log.Named("postgres"))
	case config.StorageSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath, log.Named("sqlite"))
	case config.StorageYDB:
		db, err := ydbrepo.NewYDBDriver(ctx, cfg.YDBDSN, cfg.YDBSAKey, log.Named("ydb"))
		if err != nil {
			return nil, err
		}
		return ydbrepo.NewStore(db, log.Named("ydb")), nil
	}
	return nil, fmt.Errorf("неизвестное хранилище %q", cfg.Backend)
}

// Migrate creates the schema and seeds the driver count.
func Migrate(ctx context.Context, cfg config.Storage, log *zap.Logger) error {
	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	return errors.ErrorfOrNil(store.Close(), "закрытие хранилища")
}
