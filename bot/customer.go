package bot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	markup "github.com/aerlaedt-netizen/eviknumber2/lib/bot-markup"
	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/notify"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
	"github.com/aerlaedt-netizen/eviknumber2/services"
)

const serviceUnavailable = "Сервис временно недоступен (не заданы WEBAPP_URL/API_BASE_URL)."

// Reply is one outgoing message. Markup may be nil.
type Reply struct {
	Text   string
	Markup *tele.ReplyMarkup
}

type greeter interface {
	FirstVisit(userID int64) bool
}

type driverCountReader interface {
	CountOrZero(ctx context.Context) int
}

type submitter interface {
	Submit(ctx context.Context, from repository.Requester, raw string) (services.Submission, error)
	Window() time.Duration
}

// Customer is the public side of the bot: the welcome screen and order-form submissions.
type Customer struct {
	greeter    greeter
	drivers    driverCountReader
	intake     submitter
	webappURL  string
	apiBaseURL string
	log        *zap.Logger
}

func NewCustomer(greeter greeter, drivers driverCountReader, intake submitter, webappURL, apiBaseURL string, log *zap.Logger) *Customer {
	return &Customer{
		greeter:    greeter,
		drivers:    drivers,
		intake:     intake,
		webappURL:  webappURL,
		apiBaseURL: apiBaseURL,
		log:        log,
	}
}

func RequesterOf(u *tele.User) repository.Requester {
	if u == nil {
		return repository.Requester{}
	}
	return repository.Requester{
		UserID:   u.ID,
		Username: u.Username,
		FullName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}

// Start greets a user once per process lifetime and offers the order form.
func (cu *Customer) Start(ctx context.Context, userID int64) []Reply {
	ctx, span := tracer.Open(ctx, tracer.Named("Customer::Start"))
	defer span.Close()
	if cu.webappURL == "" || cu.apiBaseURL == "" {
		return []Reply{{Text: serviceUnavailable}}
	}

	var replies []Reply
	if cu.greeter.FirstVisit(userID) {
		replies = append(replies, Reply{Text: notify.Welcome})
	}
	launch, err := LaunchURL(cu.webappURL, cu.apiBaseURL, cu.drivers.CountOrZero(ctx))
	if err != nil {
		cu.log.Error("Не удалось собрать адрес мини-аппа", zap.Error(err))
		return append(replies, Reply{Text: serviceUnavailable})
	}
	return append(replies, Reply{
		Text:   notify.OpenForm,
		Markup: markup.ReplyMarkup(markup.Row(markup.WebApp(notify.OrderButton, launch))),
	})
}

// Submit handles data sent from the order form.
func (cu *Customer) Submit(ctx context.Context, from repository.Requester, data string) Reply {
	ctx, span := tracer.Open(ctx, tracer.Named("Customer::Submit"))
	defer span.Close()
	res, err := cu.intake.Submit(ctx, from, data)
	switch {
	case err != nil:
		cu.log.Error("Заявка не принята", zap.Int64("user_id", from.UserID), zap.Error(err))
		return Reply{Text: notify.RequestFailed}
	case !res.Accepted:
		return Reply{Text: notify.Cooldown(cu.intake.Window(), res.Remaining)}
	}
	return Reply{Text: notify.RequestAccepted}
}
