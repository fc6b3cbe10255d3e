package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/repository"
	"github.com/aerlaedt-netizen/eviknumber2/repository/sqlite"
)

func newMemoryDrivers(t *testing.T) *Drivers {
	t.Helper()
	m, err := NewMemoryCounter("", zap.NewNop())
	require.NoError(t, err)
	return NewDrivers(m, zap.NewNop())
}

func TestDriversNeverNegative(t *testing.T) {
	ctx := context.Background()
	d := newMemoryDrivers(t)

	c, err := d.Set(ctx, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Value)

	c, err = d.Subtract(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Value)

	c, err = d.Add(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Value)

	c, err = d.Subtract(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Value)
}

func TestDriversRejectNegativeDelta(t *testing.T) {
	ctx := context.Background()
	d := newMemoryDrivers(t)
	_, err := d.Set(ctx, 3)
	require.NoError(t, err)

	_, err = d.Add(ctx, -1)
	assert.ErrorIs(t, err, ErrNegativeDelta)
	_, err = d.Subtract(ctx, -1)
	assert.ErrorIs(t, err, ErrNegativeDelta)

	c, err := d.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Value)
}

func TestMemoryCounterFileMirror(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "drivers.json")

	first, err := NewMemoryCounter(file, zap.NewNop())
	require.NoError(t, err)
	_, err = NewDrivers(first, zap.NewNop()).Set(ctx, 6)
	require.NoError(t, err)

	restarted, err := NewMemoryCounter(file, zap.NewNop())
	require.NoError(t, err)
	c, err := restarted.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Value)
	assert.False(t, c.UpdatedAt.IsZero())
}

func TestMemoryCounterCorruptFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "drivers.json")
	require.NoError(t, os.WriteFile(file, []byte("{oops"), 0o600))
	m, err := NewMemoryCounter(file, zap.NewNop())
	require.NoError(t, err)
	c, _ := m.Load(context.Background())
	assert.Equal(t, 0, c.Value)
}

func TestStoreCounter(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(ctx, ":memory:", zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Init(ctx))

	d := NewDrivers(NewStoreCounter(store, zap.NewNop()), zap.NewNop())
	c, err := d.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Value)

	_, err = d.Add(ctx, 2)
	require.NoError(t, err)
	c, err = d.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Value)

	_, err = store.PutSetting(ctx, repository.DriversOnLineKey, json.RawMessage(`"7"`))
	require.NoError(t, err)
	c, err = d.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Value)

	_, err = store.PutSetting(ctx, repository.DriversOnLineKey, json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	c, err = d.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Value)
}

type headerSigner struct{ token string }

func (s headerSigner) Sign(r *http.Request) error {
	r.Header.Set("Authorization", "Bearer "+s.token)
	return nil
}

// fakeAPI mimics the drivers endpoints of the API service.
type fakeAPI struct {
	mu    sync.Mutex
	n     int
	posts int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/drivers":
	case r.Method == http.MethodPost && r.URL.Path == "/api/bot/drivers":
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		var doc DriversDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.posts++
		f.n = doc.DriversOnLine
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(DriversDocument{DriversOnLine: f.n, UpdatedAt: 1714550400})
}

func TestRemoteCounter(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{n: 3}
	srv := httptest.NewServer(api)
	defer srv.Close()

	d := NewDrivers(NewRemoteCounter(srv.URL+"/", srv.Client(), headerSigner{"good"}, zap.NewNop()), zap.NewNop())
	c, err := d.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Value)
	assert.Equal(t, time.Unix(1714550400, 0).UTC(), c.UpdatedAt)

	c, err = d.Subtract(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Value)
	assert.Equal(t, 0, api.n)
	assert.Equal(t, 1, api.posts)
}

func TestRemoteCounterFailures(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{n: 3}
	srv := httptest.NewServer(api)

	d := NewDrivers(NewRemoteCounter(srv.URL, srv.Client(), headerSigner{"bad"}, zap.NewNop()), zap.NewNop())
	_, err := d.Set(ctx, 4)
	assert.ErrorIs(t, err, ErrCounterUnavailable)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, 3, api.n)

	srv.Close()
	_, err = d.Get(ctx)
	assert.ErrorIs(t, err, ErrCounterUnavailable)
	assert.Equal(t, 0, d.CountOrZero(ctx))
}

type failingSigner struct{}

func (failingSigner) Sign(*http.Request) error { return errors.New("нет ключа") }

func TestRemoteCounterSignerError(t *testing.T) {
	srv := httptest.NewServer(&fakeAPI{})
	defer srv.Close()
	_, err := NewRemoteCounter(srv.URL, srv.Client(), failingSigner{}, zap.NewNop()).Store(context.Background(), 1)
	assert.ErrorContains(t, err, "нет ключа")
}
