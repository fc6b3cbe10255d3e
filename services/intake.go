package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/notify"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
)

type requestCreator interface {
	Create(ctx context.Context, from repository.Requester, p repository.Payload) (int64, error)
}

type dispatcherNotifier interface {
	NotifyDispatcher(ctx context.Context, text string) error
}

type Submission struct {
	Accepted  bool
	RequestID int64
	// Remaining is the wait time of a rejected submission.
	Remaining time.Duration
}

// Intake accepts order-form submissions: cooldown check, store, notify the dispatcher,
// and only then consume the user's cooldown window.
type Intake struct {
	requests  requestCreator
	notifier  dispatcherNotifier
	cooldown  *Cooldown
	formatter *notify.Formatter
	now       func() time.Time
	log       *zap.Logger
}

func NewIntake(requests requestCreator, notifier dispatcherNotifier, cooldown *Cooldown, formatter *notify.Formatter, log *zap.Logger) *Intake {
	return &Intake{
		requests:  requests,
		notifier:  notifier,
		cooldown:  cooldown,
		formatter: formatter,
		now:       time.Now,
		log:       log,
	}
}

// Window is the cooldown between two accepted submissions of one user.
func (i *Intake) Window() time.Duration {
	return i.cooldown.Window()
}

func (i *Intake) Submit(ctx context.Context, from repository.Requester, raw string) (Submission, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("Intake::Submit"))
	defer span.Close()
	now := i.now()
	if remaining, ok := i.cooldown.Check(from.UserID, now); !ok {
		i.log.Info("Заявка отклонена по таймауту", zap.Int64("user_id", from.UserID), zap.Duration("remaining", remaining))
		return Submission{Remaining: remaining}, nil
	}

	payload := repository.ParsePayload(raw)
	id, err := i.requests.Create(ctx, from, payload)
	if err != nil {
		return Submission{}, fmt.Errorf("сохранение заявки от %d: %w", from.UserID, err)
	}
	log := i.log.With(zap.Int64("request_id", id), zap.Int64("user_id", from.UserID))

	if err := i.notifier.NotifyDispatcher(ctx, i.formatter.NewRequest(id, from, payload)); err != nil {
		log.Error("Диспетчер не получил заявку", zap.Error(err))
		return Submission{RequestID: id}, fmt.Errorf("уведомление диспетчера о заявке %d: %w", id, err)
	}

	i.cooldown.Commit(from.UserID, now)
	log.Info("Заявка принята")
	return Submission{Accepted: true, RequestID: id}, nil
}
