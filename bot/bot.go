// Package bot adapts telebot updates to the customer flow and the dispatcher panel.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/aerlaedt-netizen/eviknumber2/handlers/middleware"
	markup "github.com/aerlaedt-netizen/eviknumber2/lib/bot-markup"
	"github.com/aerlaedt-netizen/eviknumber2/lib/http"
	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/panel"
)

const slowUpdate = 2 * time.Second

// NewTelebot creates a long-polling bot. Offline skips getMe and is meant for tests.
func NewTelebot(ctx context.Context, token string, offline bool, log *zap.Logger) (*tele.Bot, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("NewTelebot"))
	defer span.Close()
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		Offline: offline,
		OnError: func(err error, c tele.Context) {
			if c != nil {
				log.Error("Ошибка внутри бота",
					zap.Any("update", c.Update()), zap.Error(err),
					zap.String("errorType", fmt.Sprintf("%T", err)))
			} else {
				log.Error("Ошибка внутри бота", zap.Error(err))
			}
		},
		Client: http.TracedHttpClient(ctx, time.Minute, token),
	})
	if err != nil {
		return nil, fmt.Errorf("создание бота: %w", err)
	}
	return b, nil
}

type Routes struct {
	Customer      *Customer
	Panel         *panel.Controller
	Dispatcher    int64
	DeveloperChat int64
}

// Register wires every handler. base is the parent of per-update contexts.
func Register(base context.Context, b *tele.Bot, r Routes, log *zap.Logger) {
	b.Use(
		middleware.Tracing(base, log.Named("tracing"), slowUpdate),
		middleware.Recover(base, log.Named("recover"), r.DeveloperChat),
		middleware.AutoRespondCallback,
	)

	b.Handle("/start", func(c tele.Context) error {
		ctx := middleware.ContextOf(c, base)
		for _, reply := range r.Customer.Start(ctx, c.Sender().ID) {
			if err := sendReply(c, reply); err != nil {
				return fmt.Errorf("/start: %w", err)
			}
		}
		return nil
	})

	b.Handle(tele.OnWebApp, func(c tele.Context) error {
		ctx := middleware.ContextOf(c, base)
		data := c.Message().WebAppData
		if data == nil {
			return nil
		}
		return sendReply(c, r.Customer.Submit(ctx, RequesterOf(c.Sender()), data.Data))
	})

	dispatcherOnly := middleware.DispatcherOnly(r.Dispatcher)
	for _, name := range panel.Commands {
		name := name
		b.Handle(name, func(c tele.Context) error {
			cmd, ok := panel.ParseCommand(name, c.Args())
			if !ok {
				return nil
			}
			view := r.Panel.Execute(middleware.ContextOf(c, base), c.Sender().ID, cmd)
			return sendReply(c, Reply(view))
		}, dispatcherOnly)
	}

	onPanelButton := func(c tele.Context) error {
		cmd, ok := panel.ParseCallback(c.Callback().Unique, c.Callback().Data)
		if !ok {
			log.Warn("Непонятная кнопка панели", zap.String("unique", c.Callback().Unique), zap.String("data", c.Callback().Data))
			return nil
		}
		view := r.Panel.Execute(middleware.ContextOf(c, base), c.Sender().ID, cmd)
		return editReply(c, Reply(view))
	}
	for _, btn := range []*tele.Btn{
		&markup.PanelHomeBtn, &markup.PanelAskCountBtn, &markup.PanelIncBtn, &markup.PanelDecBtn,
		&markup.PanelCancelBtn, &markup.PanelRequestsBtn, &markup.PanelRequestBtn, &markup.PanelSetStatusBtn,
	} {
		b.Handle(btn, onPanelButton, dispatcherOnly)
	}

	b.Handle(tele.OnText, func(c tele.Context) error {
		view, ok := r.Panel.HandleText(middleware.ContextOf(c, base), c.Sender().ID, c.Text())
		if !ok {
			return nil
		}
		return sendReply(c, Reply(view))
	}, dispatcherOnly)
}

// SetCommands publishes /start for everyone and the panel commands in the dispatcher's chat.
func SetCommands(b *tele.Bot, dispatcher int64) error {
	if err := b.SetCommands([]tele.Command{{Text: "start", Description: "Заказать эвакуатор"}}); err != nil {
		return fmt.Errorf("публичные команды: %w", err)
	}
	commands := []tele.Command{
		{Text: "panel", Description: "Панель диспетчера"},
		{Text: "requests", Description: "Последние заявки"},
		{Text: "drivers", Description: "Водители на линии"},
		{Text: "help", Description: "Команды диспетчера"},
		{Text: "start", Description: "Экран клиента"},
	}
	if err := b.SetCommands(commands, tele.CommandScope{Type: tele.CommandScopeChat, ChatID: dispatcher}); err != nil {
		return fmt.Errorf("команды диспетчера: %w", err)
	}
	return nil
}

func sendReply(c tele.Context, r Reply) error {
	if r.Markup != nil {
		return c.Send(r.Text, r.Markup, tele.NoPreview)
	}
	return c.Send(r.Text, tele.NoPreview)
}

// editReply replaces the panel message a button belongs to.
func editReply(c tele.Context, r Reply) error {
	opts := []interface{}{tele.NoPreview}
	if r.Markup != nil {
		opts = append(opts, r.Markup)
	}
	err := c.EditOrSend(r.Text, opts...)
	if errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	return err
}
