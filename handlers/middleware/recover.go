package middleware

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/aerlaedt-netizen/eviknumber2/lib/devbotsender"
	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
)

// Recover turns a handler panic into an error log and a note in the developer chat.
func Recover(base context.Context, log *zap.Logger, developerChat int64) tele.MiddlewareFunc {
	return func(hf tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				// The update context may already be cancelled; the note must still go out.
				ctx, span := tracer.Open(tracer.Background(ContextOf(c, base)), tracer.Named("Recover::defer"))
				defer span.Close()
				log.WithOptions(zap.AddCallerSkip(3)).Error("Паника", zap.Any("panicObj", r))
				if c.Bot() != nil {
					_ = devbotsender.SendToDeveloper(ctx, c.Bot(), developerChat, log, fmt.Sprintf("Паника\n\n%v\n\n%#v", r, r))
				}
				err = fmt.Errorf("паника в обработчике: %v", r)
			}()
			return hf(c)
		}
	}
}
