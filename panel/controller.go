package panel

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	markup "github.com/aerlaedt-netizen/eviknumber2/lib/bot-markup"
	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/notify"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
	"github.com/aerlaedt-netizen/eviknumber2/services"
)

const HelpText = `Команды диспетчера:
/help — показать команды
/panel — панель с кнопками
/cancel — отменить ввод

Водители:
/drivers — текущее количество
/setdrivers <n> — установить
/adddrivers <n> — прибавить
/deldrivers <n> — убавить

Заявки:
/requests [n] — последние n заявок (по умолчанию 10, максимум 50)
/request <id> — подробности по заявке
/setstatus <id> <new|in_work|done|cancel> — сменить статус
`

const (
	driversUnknown      = "неизвестно"
	driversReadFailed   = "Не удалось получить число водителей из API."
	driversRemoteFailed = "Ошибка. Проверьте API_BASE_URL и API_ADMIN_TOKEN."
	driversStoreFailed  = "Ошибка. Не удалось сохранить число водителей."
	needNonNegative     = "Нужно число ≥ 0."
	askDriverCount      = "Отправьте новое число водителей на линии одним сообщением."
	badDriverCount      = "Нужно целое число от 0 до 999999. Попробуйте ещё раз или нажмите «Отмена»."
	inputCancelled      = "Ввод отменён."
	requestNotFound     = "Заявка не найдена."
	requestsFailed      = "Не удалось получить заявки. Попробуйте позже."
)

var driverCountInput = regexp.MustCompile(`^\d{1,6}$`)

var statusLabels = map[repository.Status]string{
	repository.StatusNew:    "🆕 new",
	repository.StatusInWork: "🚗 in_work",
	repository.StatusDone:   "✅ done",
	repository.StatusCancel: "❌ cancel",
}

// View is a rendered panel screen. Markup is nil when the screen has no buttons.
type View struct {
	Text   string
	Markup *tele.ReplyMarkup
}

type driverCounter interface {
	Get(ctx context.Context) (services.DriverCount, error)
	Set(ctx context.Context, n int) (services.DriverCount, error)
	Add(ctx context.Context, delta int) (services.DriverCount, error)
	Subtract(ctx context.Context, delta int) (services.DriverCount, error)
}

type requestBook interface {
	Get(ctx context.Context, id int64) (*repository.Request, error)
	List(ctx context.Context, q repository.ListQuery) ([]repository.Request, error)
	SetStatus(ctx context.Context, id int64, s repository.Status) (*repository.Request, error)
}

type Controller struct {
	drivers   driverCounter
	requests  requestBook
	sessions  *Sessions
	formatter *notify.Formatter
	log       *zap.Logger
}

func NewController(drivers driverCounter, requests requestBook, sessions *Sessions, formatter *notify.Formatter, log *zap.Logger) *Controller {
	return &Controller{drivers: drivers, requests: requests, sessions: sessions, formatter: formatter, log: log}
}

// Execute runs a parsed command for an already authorized dispatcher.
func (p *Controller) Execute(ctx context.Context, userID int64, cmd Command) View {
	ctx, span := tracer.Open(ctx, tracer.Named(fmt.Sprintf("Panel::%T", cmd)))
	defer span.Close()
	switch cmd := cmd.(type) {
	case Help:
		return View{Text: HelpText, Markup: markup.InlineMarkup(markup.Row(markup.PanelHomeBtn))}
	case Home:
		return p.home(ctx, "")
	case ShowDrivers:
		c, err := p.drivers.Get(ctx)
		if err != nil {
			p.log.Error("Не удалось получить число водителей", zap.Error(err))
			return View{Text: driversReadFailed}
		}
		return View{Text: fmt.Sprintf("Водителей на линии сейчас: %d", c.Value)}
	case SetDrivers:
		return p.driversChanged(p.drivers.Set(ctx, cmd.N))
	case AddDrivers:
		return p.driversChanged(p.drivers.Add(ctx, cmd.N))
	case SubDrivers:
		return p.driversChanged(p.drivers.Subtract(ctx, cmd.N))
	case AskDriverCount:
		p.sessions.Enter(userID, AwaitingDriverCount{})
		return View{Text: askDriverCount, Markup: markup.InlineMarkup(markup.Row(markup.PanelCancelBtn))}
	case StepDrivers:
		var err error
		if cmd.Delta >= 0 {
			_, err = p.drivers.Add(ctx, cmd.Delta)
		} else {
			_, err = p.drivers.Subtract(ctx, -cmd.Delta)
		}
		if err != nil {
			p.log.Error("Не удалось изменить число водителей", zap.Int("delta", cmd.Delta), zap.Error(err))
			return p.home(ctx, counterFailure(err))
		}
		return p.home(ctx, "")
	case CancelInput:
		p.sessions.Reset(userID)
		return View{Text: inputCancelled, Markup: markup.InlineMarkup(markup.Row(markup.PanelHomeBtn))}
	case ListRequests:
		return p.list(ctx, cmd.Limit)
	case ShowRequest:
		r, err := p.requests.Get(ctx, cmd.ID)
		if err != nil {
			return p.requestFailure(cmd.ID, err)
		}
		return p.detail(*r, "")
	case SetStatus:
		r, err := p.requests.SetStatus(ctx, cmd.ID, cmd.Status)
		if err != nil {
			return p.requestFailure(cmd.ID, err)
		}
		p.log.Info("Статус заявки изменён", zap.Int64("id", r.ID), zap.String("status", string(r.Status)))
		return p.detail(*r, fmt.Sprintf("Готово. Заявка #%d теперь со статусом: %s", r.ID, r.Status))
	case Invalid:
		return View{Text: cmd.Reply}
	}
	p.log.Error("Неизвестная команда панели", zap.String("type", fmt.Sprintf("%T", cmd)))
	return View{Text: HelpText}
}

// HandleText consumes a plain-text message when the dispatcher is in an input mode.
// ok is false when the message is not meant for the panel.
func (p *Controller) HandleText(ctx context.Context, userID int64, text string) (view View, ok bool) {
	if _, awaiting := p.sessions.Mode(userID).(AwaitingDriverCount); !awaiting {
		return View{}, false
	}
	ctx, span := tracer.Open(ctx, tracer.Named("Panel::HandleText"))
	defer span.Close()

	text = strings.TrimSpace(text)
	if !driverCountInput.MatchString(text) {
		return View{Text: badDriverCount, Markup: markup.InlineMarkup(markup.Row(markup.PanelCancelBtn))}, true
	}
	n, _ := strconv.Atoi(text)
	c, err := p.drivers.Set(ctx, n)
	if err != nil {
		p.log.Error("Не удалось сохранить введённое число водителей", zap.Int("n", n), zap.Error(err))
		return View{Text: counterFailure(err), Markup: markup.InlineMarkup(markup.Row(markup.PanelCancelBtn))}, true
	}
	p.sessions.Reset(userID)
	return p.home(ctx, fmt.Sprintf("Готово. Водителей на линии теперь: %d", c.Value)), true
}

func (p *Controller) driversChanged(c services.DriverCount, err error) View {
	if err != nil {
		if errors.Is(err, services.ErrNegativeDelta) {
			return View{Text: needNonNegative}
		}
		p.log.Error("Не удалось изменить число водителей", zap.Error(err))
		return View{Text: counterFailure(err)}
	}
	return View{Text: fmt.Sprintf("Готово. Водителей на линии теперь: %d", c.Value)}
}

func counterFailure(err error) string {
	switch {
	case errors.Is(err, services.ErrNegativeDelta):
		return needNonNegative
	case errors.Is(err, services.ErrCounterUnavailable):
		return driversRemoteFailed
	}
	return driversStoreFailed
}

func (p *Controller) home(ctx context.Context, notice string) View {
	count := driversUnknown
	if c, err := p.drivers.Get(ctx); err != nil {
		p.log.Warn("Панель без числа водителей", zap.Error(err))
	} else {
		count = strconv.Itoa(c.Value)
	}
	var sb strings.Builder
	if notice != "" {
		sb.WriteString(notice + "\n\n")
	}
	sb.WriteString("Панель диспетчера\n\nВодителей на линии: " + count)

	limits := make([]tele.Btn, 0, len(markup.PanelListLimits))
	for _, l := range markup.PanelListLimits {
		limits = append(limits, markup.RequestsBtn(l))
	}
	return View{Text: sb.String(), Markup: markup.InlineMarkup(
		markup.Row(markup.PanelDecBtn, markup.PanelAskCountBtn, markup.PanelIncBtn),
		markup.Row(limits...),
	)}
}

func (p *Controller) list(ctx context.Context, limit int) View {
	items, err := p.requests.List(ctx, repository.ListQuery{Limit: limit})
	if err != nil {
		p.log.Error("Не удалось получить заявки", zap.Int("limit", limit), zap.Error(err))
		return View{Text: requestsFailed, Markup: markup.InlineMarkup(markup.Row(markup.PanelHomeBtn))}
	}
	rows := make([]tele.Row, 0, len(items)+1)
	for _, r := range items {
		rows = append(rows, markup.Row(markup.RequestBtn(fmt.Sprintf("#%d · %s · %s", r.ID, r.Status, r.DisplayPhone()), r.ID)))
	}
	rows = append(rows, markup.Row(markup.PanelHomeBtn))
	return View{Text: p.formatter.List(items), Markup: markup.InlineMarkup(rows...)}
}

func (p *Controller) detail(r repository.Request, notice string) View {
	text := p.formatter.Detail(r)
	if notice != "" {
		text = notify.Fit(notice + "\n\n" + text)
	}
	statuses := make([]tele.Btn, 0, len(repository.Statuses))
	for _, s := range repository.Statuses {
		label := statusLabels[s]
		if s == r.Status {
			label = "• " + label
		}
		statuses = append(statuses, markup.SetStatusBtn(label, r.ID, string(s)))
	}
	return View{Text: text, Markup: markup.InlineMarkup(
		markup.Row(statuses[:2]...),
		markup.Row(statuses[2:]...),
		markup.Row(markup.RequestsBtn(repository.DefaultListLimit), markup.PanelHomeBtn),
	)}
}

func (p *Controller) requestFailure(id int64, err error) View {
	back := markup.InlineMarkup(markup.Row(markup.RequestsBtn(repository.DefaultListLimit), markup.PanelHomeBtn))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return View{Text: requestNotFound, Markup: back}
	case errors.Is(err, repository.ErrBadStatus):
		return View{Text: badStatus}
	}
	p.log.Error("Ошибка при работе с заявкой", zap.Int64("id", id), zap.Error(err))
	return View{Text: requestsFailed, Markup: back}
}
