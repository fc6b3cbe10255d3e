// Package notify renders the texts the dispatcher and customers see in Telegram.
// Every rendering is deterministic for a given input and time zone.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/aerlaedt-netizen/eviknumber2/geo"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
)

const Placeholder = "—"

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	listTimeLayout = "2006-01-02 15:04"
)

type Formatter struct {
	loc *time.Location
}

func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{loc: loc}
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Placeholder
	}
	return s
}

// Millis renders an epoch milliseconds timestamp in the formatter's zone.
func (f *Formatter) Millis(ms *int64) string {
	if ms == nil || *ms <= 0 {
		return Placeholder
	}
	return time.UnixMilli(*ms).In(f.loc).Format(dateTimeLayout)
}

func (f *Formatter) Time(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.In(f.loc).Format(dateTimeLayout)
}

// Requester renders "Имя (id=1, @user)". The handle part is dropped when there is none.
func Requester(r repository.Requester) string {
	var sb strings.Builder
	sb.WriteString(clean(r.FullName))
	if r.UserID != 0 {
		fmt.Fprintf(&sb, " (id=%d", r.UserID)
	} else {
		sb.WriteString(" (id=" + Placeholder)
	}
	if u := strings.TrimSpace(r.Username); u != "" {
		sb.WriteString(", @" + u)
	}
	sb.WriteString(")")
	return sb.String()
}

func phone(formatted, raw string) string {
	if strings.TrimSpace(formatted) != "" {
		return clean(formatted)
	}
	return clean(raw)
}

// NewRequest is the notification sent to the dispatcher for a freshly stored request.
func (f *Formatter) NewRequest(id int64, from repository.Requester, p repository.Payload) string {
	lines := []string{
		fmt.Sprintf("Заявка на эвакуатор (ID: %d)", id),
		"",
		"Время: " + f.Millis(p.TS),
		"Клиент: " + Requester(from),
		"Телефон: " + phone(p.PhoneFormatted, p.Phone),
		"Марка: " + clean(p.CarBrand),
		"Адрес: " + clean(p.Address),
		"Гео: " + clean(p.Geo),
		"Статус: " + string(repository.StatusNew),
	}
	if link, ok := geo.MapLink(p.Geo); ok {
		lines = append(lines, "Яндекс.Карты: "+link)
	}
	return Fit(strings.Join(lines, "\n"))
}

// Detail shows a stored request with its cached map link.
func (f *Formatter) Detail(r repository.Request) string {
	lines := []string{
		fmt.Sprintf("Заявка #%d (%s)", r.ID, r.Status),
		"Создана: " + f.Time(r.CreatedAt),
		"Клиент: " + Requester(r.Requester),
		"Телефон: " + truncate(phone(r.PhoneFormatted, r.Phone), detailFieldLimit),
		"Марка: " + truncate(clean(r.CarBrand), detailFieldLimit),
		"Адрес: " + truncate(clean(r.Address), detailFieldLimit),
		"Гео: " + truncate(clean(r.Geo), detailFieldLimit),
	}
	if r.MapLink != "" {
		lines = append(lines, "Яндекс.Карты: "+r.MapLink)
	}
	return Fit(strings.Join(lines, "\n"))
}

func (f *Formatter) ListLine(r repository.Request) string {
	created := Placeholder
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.In(f.loc).Format(listTimeLayout)
	}
	return fmt.Sprintf("#%d | %s | %s | %s | %s | %s",
		r.ID, created, r.Status,
		truncate(phone(r.PhoneFormatted, r.Phone), listFieldLimit),
		truncate(clean(r.CarBrand), listFieldLimit),
		truncate(clean(r.Address), listFieldLimit))
}

func (f *Formatter) List(items []repository.Request) string {
	if len(items) == 0 {
		return "Заявок пока нет."
	}
	var sb strings.Builder
	sb.WriteString("Последние заявки:")
	size := UTF16Len(sb.String())
	for i, r := range items {
		line := "\n" + f.ListLine(r)
		rest := len(items) - i - 1
		reserve := 0
		if rest > 0 {
			reserve = UTF16Len("\n" + listMore(rest))
		}
		if size+UTF16Len(line)+reserve > MaxMessage {
			sb.WriteString("\n" + listMore(len(items)-i))
			return sb.String()
		}
		sb.WriteString(line)
		size += UTF16Len(line)
	}
	return sb.String()
}
