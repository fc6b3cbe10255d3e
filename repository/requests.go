package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aerlaedt-netizen/eviknumber2/geo"
)

var (
	ErrNotFound  = errors.New("не найдено")
	ErrBadStatus = errors.New("статус должен быть: new, in_work, done, cancel")
)

type Status string

const (
	StatusNew    Status = "new"
	StatusInWork Status = "in_work"
	StatusDone   Status = "done"
	StatusCancel Status = "cancel"
)

var Statuses = []Status{StatusNew, StatusInWork, StatusDone, StatusCancel}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInWork, StatusDone, StatusCancel:
		return true
	}
	return false
}

func ParseStatus(text string) (Status, error) {
	s := Status(strings.TrimSpace(text))
	if !s.Valid() {
		return "", fmt.Errorf("%q: %w", text, ErrBadStatus)
	}
	return s, nil
}

const (
	DefaultListLimit = 10
	MaxListLimit     = 50
)

// ClampLimit bounds a listing size to [1, MaxListLimit].
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// Requester is the Telegram user who sent the order form.
type Requester struct {
	UserID   int64
	Username string
	FullName string
}

// Payload is what the order form sends through Telegram.WebApp.sendData.
type Payload struct {
	Phone          string
	PhoneFormatted string
	CarBrand       string
	Address        string
	Geo            string
	// TS is the form submission time in epoch milliseconds.
	TS  *int64
	Raw json.RawMessage
}

// ParsePayload never fails: text that is not a JSON object is kept as {"raw": text}.
func ParsePayload(raw string) Payload {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		wrapped, _ := json.Marshal(map[string]string{"raw": raw})
		return Payload{Raw: wrapped}
	}
	p := Payload{
		Phone:          stringField(fields["phone"]),
		PhoneFormatted: stringField(fields["phoneFormatted"]),
		CarBrand:       stringField(fields["carBrand"]),
		Address:        stringField(fields["address"]),
		Geo:            stringField(fields["geo"]),
		TS:             millisField(fields["ts"]),
		Raw:            json.RawMessage(raw),
	}
	return p
}

func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func millisField(v any) *int64 {
	var ms int64
	switch t := v.(type) {
	case float64:
		ms = int64(t)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil
		}
		ms = parsed
	default:
		return nil
	}
	if ms <= 0 {
		return nil
	}
	return &ms
}

// Request is a stored tow request. Everything but Status is fixed at creation.
type Request struct {
	ID             int64
	CreatedAt      time.Time
	Requester      Requester
	Phone          string
	PhoneFormatted string
	CarBrand       string
	Address        string
	Geo            string
	// MapLink is empty when Geo could not be parsed.
	MapLink    string
	RawPayload json.RawMessage
	Status     Status
}

// NewRequest builds the row to insert. The map link is derived here once and cached.
func NewRequest(from Requester, p Payload, now time.Time) Request {
	link, _ := geo.MapLink(p.Geo)
	return Request{
		CreatedAt:      now,
		Requester:      from,
		Phone:          p.Phone,
		PhoneFormatted: p.PhoneFormatted,
		CarBrand:       p.CarBrand,
		Address:        p.Address,
		Geo:            p.Geo,
		MapLink:        link,
		RawPayload:     p.Raw,
		Status:         StatusNew,
	}
}

// DisplayPhone prefers the formatted phone.
func (r Request) DisplayPhone() string {
	if strings.TrimSpace(r.PhoneFormatted) != "" {
		return r.PhoneFormatted
	}
	return r.Phone
}

type ListQuery struct {
	Limit int
	// Status filters by status when not empty. An unknown status matches nothing.
	Status string
}

// Normalize clamps the limit and reports whether the query can match anything at all.
func (q ListQuery) Normalize() (ListQuery, bool) {
	q.Limit = ClampLimit(q.Limit)
	q.Status = strings.TrimSpace(q.Status)
	if q.Status != "" && !Status(q.Status).Valid() {
		return q, false
	}
	return q, true
}

type RequestStore interface {
	Create(ctx context.Context, from Requester, p Payload) (int64, error)
	Get(ctx context.Context, id int64) (*Request, error)
	List(ctx context.Context, q ListQuery) ([]Request, error)
	// SetStatus returns ErrBadStatus or ErrNotFound. Repeating the current status succeeds.
	SetStatus(ctx context.Context, id int64, s Status) (*Request, error)
}
