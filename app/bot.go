package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/aerlaedt-netizen/eviknumber2/auth"
	"github.com/aerlaedt-netizen/eviknumber2/bot"
	"github.com/aerlaedt-netizen/eviknumber2/config"
	"github.com/aerlaedt-netizen/eviknumber2/lib/errors"
	"github.com/aerlaedt-netizen/eviknumber2/lib/http"
	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/logger"
	"github.com/aerlaedt-netizen/eviknumber2/notify"
	"github.com/aerlaedt-netizen/eviknumber2/panel"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
	"github.com/aerlaedt-netizen/eviknumber2/services"
)

type BotApp struct {
	Bot   *tele.Bot
	Log   *zap.Logger
	store repository.Store
	cfg   *config.Bot
}

// NewBotApp builds the bot process. offline skips the Telegram handshake and is meant for tests.
func NewBotApp(ctx context.Context, cfg *config.Bot, log *zap.Logger, offline bool) (*BotApp, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("NewBotApp"))
	defer span.Close()

	b, err := bot.NewTelebot(ctx, cfg.BotToken, offline, log.Named("telebot"))
	if err != nil {
		return nil, err
	}
	log = logger.WithTelegram(log, b, cfg.DeveloperChatID)
	log.Info("Инициализируем бота", zap.String("drivers_mode", cfg.DriversMode), zap.String("storage", cfg.Storage.Backend))

	store, err := OpenStore(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	counter, err := driverCounter(ctx, cfg, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	drivers := services.NewDrivers(counter, log.Named("drivers"))
	formatter := notify.NewFormatter(cfg.Location)
	intake := services.NewIntake(store, bot.NewNotifier(b, cfg.TargetUserID), services.NewCooldown(cfg.Cooldown), formatter, log.Named("intake"))

	bot.Register(ctx, b, bot.Routes{
		Customer:      bot.NewCustomer(services.NewGreeter(), drivers, intake, cfg.WebAppURL, cfg.APIBaseURL, log.Named("customer")),
		Panel:         panel.NewController(drivers, store, panel.NewSessions(), formatter, log.Named("panel")),
		Dispatcher:    cfg.TargetUserID,
		DeveloperChat: cfg.DeveloperChatID,
	}, log)

	return &BotApp{Bot: b, Log: log, store: store, cfg: cfg}, nil
}

func driverCounter(ctx context.Context, cfg *config.Bot, store repository.Store, log *zap.Logger) (interface {
	Load(context.Context) (services.DriverCount, error)
	Store(context.Context, int) (services.DriverCount, error)
}, error) {
	switch cfg.DriversMode {
	case config.DriversRemote:
		client := http.TracedHttpClient(ctx, 10*time.Second, cfg.APIAdminToken)
		signer := auth.NewBotSigner(cfg.APIAdminToken, cfg.TargetUserID)
		return services.NewRemoteCounter(cfg.APIBaseURL, client, signer, log.Named("remote-drivers")), nil
	case config.DriversStore:
		return services.NewStoreCounter(store, log.Named("store-drivers")), nil
	case config.DriversMemory:
		return services.NewMemoryCounter(cfg.DriversFile, log.Named("memory-drivers"))
	}
	return nil, fmt.Errorf("неизвестный DRIVERS_MODE %q", cfg.DriversMode)
}

// Run polls Telegram until ctx is cancelled.
func (a *BotApp) Run(ctx context.Context) error {
	if err := bot.SetCommands(a.Bot, a.cfg.TargetUserID); err != nil {
		a.Log.Warn("Не удалось обновить список команд", zap.Error(err))
	}
	go func() {
		<-ctx.Done()
		a.Log.Info("Останавливаю бота")
		a.Bot.Stop()
	}()
	a.Log.Info("Бот запущен")
	a.Bot.Start()
	return errors.ErrorfOrNil(a.store.Close(), "закрытие хранилища")
}
