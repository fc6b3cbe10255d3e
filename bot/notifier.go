package bot

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
)

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier delivers new-request notifications to the dispatcher's private chat.
type Notifier struct {
	bot        sender
	dispatcher int64
}

func NewNotifier(bot sender, dispatcher int64) *Notifier {
	return &Notifier{bot: bot, dispatcher: dispatcher}
}

func (n *Notifier) NotifyDispatcher(ctx context.Context, text string) error {
	_, span := tracer.Open(ctx, tracer.Named("Notifier::NotifyDispatcher"))
	defer span.Close()
	if _, err := n.bot.Send(tele.ChatID(n.dispatcher), text, tele.NoPreview); err != nil {
		return fmt.Errorf("отправка диспетчеру %d: %w", n.dispatcher, err)
	}
	return nil
}
