package devbotsender

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	args := m.Called(to, what)
	return nil, args.Error(1)
}

func TestSendToDeveloper(t *testing.T) {
	bot := &mockSender{}
	bot.Test(t)
	bot.On("Send", tele.ChatID(666), "Паника").Return(nil, nil).Once()
	assert.NoError(t, SendToDeveloper(context.Background(), bot, 666, zap.NewNop(), "Паника"))
	bot.AssertExpectations(t)
}

func TestSendToDeveloperWithoutChat(t *testing.T) {
	bot := &mockSender{}
	bot.Test(t)
	assert.NoError(t, SendToDeveloper(context.Background(), bot, 0, zap.NewNop(), "Паника"))
	bot.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendToDeveloperFails(t *testing.T) {
	bot := &mockSender{}
	bot.Test(t)
	bot.On("Send", tele.ChatID(666), "Паника").Return(nil, errors.New("chat not found")).Once()
	assert.ErrorContains(t, SendToDeveloper(context.Background(), bot, 666, zap.NewNop(), "Паника"), "chat not found")
}
