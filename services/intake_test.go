package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/notify"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
	"github.com/aerlaedt-netizen/eviknumber2/repository/sqlite"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyDispatcher(_ context.Context, text string) error {
	return m.Called(text).Error(0)
}

type intakeFixture struct {
	intake   *Intake
	store    *sqlite.Store
	notifier *mockNotifier
	clock    time.Time
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Init(ctx))

	f := &intakeFixture{
		store:    store,
		notifier: &mockNotifier{},
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.notifier.Test(t)
	f.intake = NewIntake(store, f.notifier, NewCooldown(5*time.Minute), notify.NewFormatter(time.UTC), zap.NewNop())
	f.intake.now = func() time.Time { return f.clock }
	return f
}

func (f *intakeFixture) count(t *testing.T) int {
	items, err := f.store.List(context.Background(), repository.ListQuery{Limit: repository.MaxListLimit})
	require.NoError(t, err)
	return len(items)
}

var customer = repository.Requester{UserID: 100, Username: "driver_ivan", FullName: "Иван"}

const order = `{"phone":"123","carBrand":"Toyota","address":"Main St 1","geo":"55.75,37.61"}`

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newIntakeFixture(t)
	var sent string
	f.notifier.On("NotifyDispatcher", mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) { sent = args.String(0) }).
		Once()

	res, err := f.intake.Submit(ctx, customer, order)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	stored, err := f.store.Get(ctx, res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusNew, stored.Status)
	assert.NotEmpty(t, stored.MapLink)

	assert.Contains(t, sent, "Toyota")
	assert.Contains(t, sent, "Main St 1")
	assert.Contains(t, sent, "https://yandex.ru/maps/?pt=37.61,55.75&z=16&l=map")

	f.clock = f.clock.Add(4 * time.Minute)
	res, err = f.intake.Submit(ctx, customer, order)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, time.Minute, res.Remaining)
	assert.Contains(t, notify.Cooldown(5*time.Minute, res.Remaining), "01:00")
	assert.Equal(t, 1, f.count(t))
	f.notifier.AssertExpectations(t)
}

func TestSubmitAfterWindow(t *testing.T) {
	ctx := context.Background()
	f := newIntakeFixture(t)
	f.notifier.On("NotifyDispatcher", mock.Anything).Return(nil).Twice()

	_, err := f.intake.Submit(ctx, customer, order)
	require.NoError(t, err)
	f.clock = f.clock.Add(5 * time.Minute)
	res, err := f.intake.Submit(ctx, customer, order)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 2, f.count(t))
	f.notifier.AssertExpectations(t)
}

func TestFailedNotificationKeepsWindowOpen(t *testing.T) {
	ctx := context.Background()
	f := newIntakeFixture(t)
	f.notifier.On("NotifyDispatcher", mock.Anything).Return(errors.New("telegram: chat not found")).Once()
	f.notifier.On("NotifyDispatcher", mock.Anything).Return(nil).Once()

	res, err := f.intake.Submit(ctx, customer, order)
	require.Error(t, err)
	assert.False(t, res.Accepted)

	f.clock = f.clock.Add(time.Second)
	res, err = f.intake.Submit(ctx, customer, order)
	require.NoError(t, err)
	assert.True(t, res.Accepted, "failed delivery must not consume the cooldown")
	f.notifier.AssertExpectations(t)
}

func TestSubmitGarbagePayload(t *testing.T) {
	ctx := context.Background()
	f := newIntakeFixture(t)
	var sent string
	f.notifier.On("NotifyDispatcher", mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) { sent = args.String(0) }).
		Once()

	res, err := f.intake.Submit(ctx, customer, "не json")
	require.NoError(t, err)
	require.True(t, res.Accepted)
	assert.Contains(t, sent, "Телефон: —")
	assert.NotContains(t, sent, "Яндекс.Карты")

	stored, err := f.store.Get(ctx, res.RequestID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"raw":"не json"}`, string(stored.RawPayload))
}
