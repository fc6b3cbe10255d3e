// Package devbotsender delivers operational messages to the developer chat.
package devbotsender

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
)

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// SendToDeveloper logs the message and, when chatID is set, sends it to that chat.
func SendToDeveloper(ctx context.Context, bot sender, chatID int64, log *zap.Logger, message string, opts ...interface{}) error {
	_, span := tracer.Open(ctx, tracer.Named("SendToDeveloper"))
	defer span.Close()

	log.Named("сообщения для разработчиков").Info(message)
	if chatID == 0 {
		return nil
	}
	if _, err := bot.Send(tele.ChatID(chatID), message, opts...); err != nil {
		return fmt.Errorf("сообщение разработчику: %w", err)
	}
	return nil
}
