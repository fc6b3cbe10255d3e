package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/api"
	"github.com/aerlaedt-netizen/eviknumber2/auth"
	"github.com/aerlaedt-netizen/eviknumber2/config"
	"github.com/aerlaedt-netizen/eviknumber2/lib/errors"
	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
	"github.com/aerlaedt-netizen/eviknumber2/services"
)

type APIApp struct {
	Server *api.Server
	Log    *zap.Logger
	store  repository.Store
	addr   string
}

// NewAPIApp builds the HTTP process. The API owns the durable driver count.
func NewAPIApp(ctx context.Context, cfg *config.API, log *zap.Logger) (*APIApp, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("NewAPIApp"))
	defer span.Close()

	store, err := OpenStore(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	if cfg.APIAdminToken == "" {
		log.Warn("API_ADMIN_TOKEN не задан: админ-доступ только через initData")
	}
	drivers := services.NewDrivers(services.NewStoreCounter(store, log.Named("store-drivers")), log.Named("drivers"))
	gate := auth.NewGate(cfg.BotToken, cfg.TargetUserID, cfg.APIAdminToken)
	return &APIApp{
		Server: api.NewServer(store, drivers, gate, log.Named("api")),
		Log:    log,
		store:  store,
		addr:   cfg.Addr(),
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	err := a.Server.ListenAndServe(ctx, a.addr)
	return errors.Join(err, errors.ErrorfOrNil(a.store.Close(), "закрытие хранилища"))
}
