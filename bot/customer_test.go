package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/aerlaedt-netizen/eviknumber2/notify"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
	"github.com/aerlaedt-netizen/eviknumber2/services"
)

type fixedCount int

func (f fixedCount) CountOrZero(context.Context) int { return int(f) }

type mockIntake struct {
	mock.Mock
}

func (m *mockIntake) Submit(_ context.Context, from repository.Requester, raw string) (services.Submission, error) {
	args := m.Called(from, raw)
	return args.Get(0).(services.Submission), args.Error(1)
}

func (m *mockIntake) Window() time.Duration { return 5 * time.Minute }

func newCustomer(intake submitter, webapp string) *Customer {
	return NewCustomer(services.NewGreeter(), fixedCount(4), intake, webapp, "https://api.example.org", zap.NewNop())
}

func TestStartGreetsOnce(t *testing.T) {
	cu := newCustomer(&mockIntake{}, "https://app.example.org/")

	first := cu.Start(context.Background(), 1)
	require.Len(t, first, 2)
	assert.Equal(t, notify.Welcome, first[0].Text)
	assert.Equal(t, notify.OpenForm, first[1].Text)
	require.NotNil(t, first[1].Markup)
	btn := first[1].Markup.ReplyKeyboard[0][0]
	assert.Equal(t, notify.OrderButton, btn.Text)

	again := cu.Start(context.Background(), 1)
	require.Len(t, again, 1)
	assert.Equal(t, notify.OpenForm, again[0].Text)

	assert.Len(t, cu.Start(context.Background(), 2), 2)
}

func TestStartWithoutWebApp(t *testing.T) {
	cu := newCustomer(&mockIntake{}, "")
	replies := cu.Start(context.Background(), 1)
	require.Len(t, replies, 1)
	assert.Equal(t, serviceUnavailable, replies[0].Text)
}

func TestSubmitReplies(t *testing.T) {
	from := repository.Requester{UserID: 5, FullName: "Пётр"}
	intake := &mockIntake{}
	intake.Test(t)
	intake.On("Submit", from, "ok").Return(services.Submission{Accepted: true, RequestID: 1}, nil).Once()
	intake.On("Submit", from, "again").Return(services.Submission{Remaining: 61 * time.Second}, nil).Once()
	intake.On("Submit", from, "down").Return(services.Submission{}, errors.New("db down")).Once()

	cu := newCustomer(intake, "https://app.example.org/")
	ctx := context.Background()
	assert.Equal(t, notify.RequestAccepted, cu.Submit(ctx, from, "ok").Text)
	assert.Contains(t, cu.Submit(ctx, from, "again").Text, "01:01")
	assert.Equal(t, notify.RequestFailed, cu.Submit(ctx, from, "down").Text)
	intake.AssertExpectations(t)
}

func TestRequesterOf(t *testing.T) {
	assert.Equal(t,
		repository.Requester{UserID: 3, Username: "vasya", FullName: "Вася Пупкин"},
		RequesterOf(&tele.User{ID: 3, Username: "vasya", FirstName: "Вася", LastName: "Пупкин"}))
	assert.Equal(t, "Вася", RequesterOf(&tele.User{ID: 3, FirstName: "Вася"}).FullName)
	assert.Equal(t, repository.Requester{}, RequesterOf(nil))
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	args := m.Called(to, what, opts)
	return nil, args.Error(1)
}

func TestNotifier(t *testing.T) {
	s := &mockSender{}
	s.Test(t)
	s.On("Send", tele.ChatID(42), "Заявка", []interface{}{tele.NoPreview}).Return(nil, nil).Once()
	s.On("Send", tele.ChatID(42), "Вторая", mock.Anything).Return(nil, errors.New("bot was blocked")).Once()

	n := NewNotifier(s, 42)
	require.NoError(t, n.NotifyDispatcher(context.Background(), "Заявка"))
	assert.ErrorContains(t, n.NotifyDispatcher(context.Background(), "Вторая"), "bot was blocked")
	s.AssertExpectations(t)
}
