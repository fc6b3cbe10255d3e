package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
)

const contextKey = "ctx"

// ContextOf returns the per-update context stored by Tracing, or base when there is none.
func ContextOf(c tele.Context, base context.Context) context.Context {
	if ctx, ok := c.Get(contextKey).(context.Context); ok {
		return ctx
	}
	return base
}

// Tracing opens a root span per update. Updates slower than slow are logged with their trace.
func Tracing(base context.Context, log *zap.Logger, slow time.Duration) tele.MiddlewareFunc {
	return func(hf tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx, span := tracer.Open(base, tracer.Named("Update"), tracer.WithNewTid)
			c.Set(contextKey, ctx)
			err := hf(c)
			span.Close()
			if slow > 0 && span.Duration() > slow {
				trace, _ := span.PrintTrace()
				log.Warn("Медленная обработка апдейта",
					zap.Int("update_id", c.Update().ID),
					zap.Duration("duration", span.Duration()),
					zap.ByteString("trace", trace))
			}
			return err
		}
	}
}
