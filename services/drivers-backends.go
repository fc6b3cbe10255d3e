package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
)

// DriversDocument is the wire and file format of the counter.
type DriversDocument struct {
	DriversOnLine int   `json:"drivers_on_line"`
	UpdatedAt     int64 `json:"updated_at,omitempty"`
}

func (d DriversDocument) count() DriverCount {
	c := DriverCount{Value: d.DriversOnLine}
	if d.UpdatedAt > 0 {
		c.UpdatedAt = time.Unix(d.UpdatedAt, 0).UTC()
	}
	return c
}

func NewDriversDocument(c DriverCount) DriversDocument {
	d := DriversDocument{DriversOnLine: c.Value}
	if !c.UpdatedAt.IsZero() {
		d.UpdatedAt = c.UpdatedAt.Unix()
	}
	return d
}

// MemoryCounter keeps the number in the process. With a file path it survives restarts.
type MemoryCounter struct {
	mu    sync.Mutex
	count DriverCount
	file  string
	log   *zap.Logger
	now   func() time.Time
}

func NewMemoryCounter(file string, log *zap.Logger) (*MemoryCounter, error) {
	m := &MemoryCounter{file: file, log: log, now: time.Now}
	if file == "" {
		return m, nil
	}
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("чтение файла водителей %s: %w", file, err)
	}
	var doc DriversDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn("Файл водителей поврежден, начинаю с 0", zap.String("file", file), zap.Error(err))
		return m, nil
	}
	m.count = doc.count()
	return m, nil
}

func (m *MemoryCounter) Load(context.Context) (DriverCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, nil
}

func (m *MemoryCounter) Store(_ context.Context, n int) (DriverCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := DriverCount{Value: n, UpdatedAt: m.now().UTC().Truncate(time.Second)}
	if m.file != "" {
		if err := writeFileAtomic(m.file, NewDriversDocument(next)); err != nil {
			return DriverCount{}, err
		}
	}
	m.count = next
	return next, nil
}

func writeFileAtomic(file string, doc DriversDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(file), filepath.Base(file)+".*")
	if err != nil {
		return fmt.Errorf("файл водителей: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("запись файла водителей: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("запись файла водителей: %w", err)
	}
	if err := os.Rename(tmp.Name(), file); err != nil {
		return fmt.Errorf("замена файла водителей: %w", err)
	}
	return nil
}

type settingsStore interface {
	GetSetting(ctx context.Context, key string) (*repository.Setting, error)
	PutSetting(ctx context.Context, key string, value json.RawMessage) (*repository.Setting, error)
}

// StoreCounter keeps the number under the drivers_on_line settings key.
type StoreCounter struct {
	settings settingsStore
	log      *zap.Logger
}

func NewStoreCounter(settings settingsStore, log *zap.Logger) *StoreCounter {
	return &StoreCounter{settings: settings, log: log}
}

func (s *StoreCounter) Load(ctx context.Context) (DriverCount, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("StoreCounter::Load"))
	defer span.Close()
	setting, err := s.settings.GetSetting(ctx, repository.DriversOnLineKey)
	if errors.Is(err, repository.ErrNotFound) {
		return DriverCount{}, nil
	}
	if err != nil {
		return DriverCount{}, err
	}
	return DriverCount{Value: s.decode(setting.Value), UpdatedAt: setting.UpdatedAt}, nil
}

// decode accepts 5 and "5". Anything else counts as zero.
func (s *StoreCounter) decode(raw json.RawMessage) int {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := strconv.Atoi(n.String()); err == nil {
			return v
		}
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			return v
		}
	}
	s.log.Warn("Непонятное значение числа водителей, считаю 0", zap.ByteString("value", raw))
	return 0
}

func (s *StoreCounter) Store(ctx context.Context, n int) (DriverCount, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("StoreCounter::Store"))
	defer span.Close()
	setting, err := s.settings.PutSetting(ctx, repository.DriversOnLineKey, json.RawMessage(strconv.Itoa(n)))
	if err != nil {
		return DriverCount{}, err
	}
	return DriverCount{Value: n, UpdatedAt: setting.UpdatedAt}, nil
}

// requestSigner attaches a credential to a mutating request.
type requestSigner interface {
	Sign(r *http.Request) error
}

// RemoteCounter proxies the number to the API service.
type RemoteCounter struct {
	baseURL string
	client  *http.Client
	signer  requestSigner
	log     *zap.Logger
}

func NewRemoteCounter(baseURL string, client *http.Client, signer requestSigner, log *zap.Logger) *RemoteCounter {
	return &RemoteCounter{baseURL: strings.TrimRight(baseURL, "/"), client: client, signer: signer, log: log}
}

func (r *RemoteCounter) Load(ctx context.Context) (DriverCount, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("RemoteCounter::Load"))
	defer span.Close()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/drivers", nil)
	if err != nil {
		return DriverCount{}, err
	}
	doc, err := r.do(req)
	if err != nil {
		return DriverCount{}, err
	}
	return doc.count(), nil
}

func (r *RemoteCounter) Store(ctx context.Context, n int) (DriverCount, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("RemoteCounter::Store"))
	defer span.Close()
	body, err := json.Marshal(DriversDocument{DriversOnLine: n})
	if err != nil {
		return DriverCount{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/bot/drivers", bytes.NewReader(body))
	if err != nil {
		return DriverCount{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := r.signer.Sign(req); err != nil {
		return DriverCount{}, fmt.Errorf("подпись запроса к API: %w", err)
	}
	doc, err := r.do(req)
	if err != nil {
		return DriverCount{}, err
	}
	return doc.count(), nil
}

func (r *RemoteCounter) do(req *http.Request) (DriversDocument, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return DriversDocument{}, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return DriversDocument{}, fmt.Errorf("%w: чтение ответа: %v", ErrCounterUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return DriversDocument{}, fmt.Errorf("%w: API %s %s ответил %d: %s",
			ErrCounterUnavailable, req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var doc DriversDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return DriversDocument{}, fmt.Errorf("%w: разбор ответа: %v", ErrCounterUnavailable, err)
	}
	return doc, nil
}
