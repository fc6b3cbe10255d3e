package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
)

func New(ctx context.Context) (*zap.Logger, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("newLogger"))
	defer span.Close()

	zapConfig := zap.NewProductionConfig()
	zapConfig.DisableCaller = false
	zapConfig.Level.SetLevel(zap.DebugLevel)
	log, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("newLogger: %w", err)
	}
	return log, nil
}

// WithTelegram mirrors error entries into a Telegram chat. A zero chatID leaves log as is.
func WithTelegram(log *zap.Logger, bot Bot, chatID int64) *zap.Logger {
	if chatID == 0 || bot == nil {
		return log
	}
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, NewTelegramCore(zapcore.ErrorLevel, bot, chatID))
	}))
}

func ForTests() (*zap.Logger, error) {
	return zap.NewDevelopment()
}
