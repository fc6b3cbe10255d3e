package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	tele "gopkg.in/telebot.v3"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
)

func newContext(t *testing.T, senderID int64) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Token: "1:offline", Offline: true, Synchronous: true})
	require.NoError(t, err)
	return b.NewContext(tele.Update{ID: 7, Message: &tele.Message{
		Sender: &tele.User{ID: senderID},
		Chat:   &tele.Chat{ID: senderID, Type: tele.ChatPrivate},
		Text:   "/drivers",
	}})
}

func TestDispatcherOnly(t *testing.T) {
	calls := 0
	h := DispatcherOnly(42)(func(tele.Context) error { calls++; return nil })

	require.NoError(t, h(newContext(t, 7)))
	assert.Equal(t, 0, calls)
	require.NoError(t, h(newContext(t, 42)))
	assert.Equal(t, 1, calls)
}

func TestRecover(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := Recover(context.Background(), zap.New(core), 0)(func(tele.Context) error { panic("бум") })

	err := h(newContext(t, 1))
	assert.ErrorContains(t, err, "бум")
	assert.Equal(t, 1, logs.FilterMessage("Паника").Len())
}

func TestTracingStoresContext(t *testing.T) {
	var seen context.Context
	h := Tracing(context.Background(), zap.NewNop(), 0)(func(c tele.Context) error {
		seen = ContextOf(c, nil)
		return errors.New("handler failed")
	})

	err := h(newContext(t, 1))
	assert.EqualError(t, err, "handler failed")
	require.NotNil(t, seen)
	require.NotNil(t, tracer.FromContext(seen))
	assert.Equal(t, "Update", tracer.FromContext(seen).Name())
}

func TestTracingLogsSlowUpdates(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := Tracing(context.Background(), zap.New(core), time.Millisecond)(func(tele.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	require.NoError(t, h(newContext(t, 1)))
	assert.Equal(t, 1, logs.FilterMessage("Медленная обработка апдейта").Len())
}

func TestContextOfFallsBack(t *testing.T) {
	base := context.Background()
	assert.Equal(t, base, ContextOf(newContext(t, 1), base))
}
