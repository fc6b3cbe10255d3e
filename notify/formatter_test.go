package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aerlaedt-netizen/eviknumber2/repository"
)

var moscow = time.FixedZone("MSK", 3*60*60)

func ms(v int64) *int64 { return &v }

func TestNewRequest(t *testing.T) {
	f := NewFormatter(moscow)
	from := repository.Requester{UserID: 42, Username: "ivan", FullName: "Иван Петров"}
	p := repository.Payload{
		Phone:    "123",
		CarBrand: "Toyota",
		Address:  "Main St 1",
		Geo:      "55.75,37.61",
		TS:       ms(1700000000000),
	}
	want := strings.Join([]string{
		"Заявка на эвакуатор (ID: 7)",
		"",
		"Время: 2023-11-15 01:13:20",
		"Клиент: Иван Петров (id=42, @ivan)",
		"Телефон: 123",
		"Марка: Toyota",
		"Адрес: Main St 1",
		"Гео: 55.75,37.61",
		"Статус: new",
		"Яндекс.Карты: https://yandex.ru/maps/?pt=37.61,55.75&z=16&l=map",
	}, "\n")
	assert.Equal(t, want, f.NewRequest(7, from, p))
	assert.Equal(t, f.NewRequest(7, from, p), f.NewRequest(7, from, p))
}

func TestNewRequestPlaceholders(t *testing.T) {
	f := NewFormatter(moscow)
	got := f.NewRequest(1, repository.Requester{UserID: 5}, repository.Payload{Address: "   ", Geo: "где-то"})
	assert.Contains(t, got, "Время: —")
	assert.Contains(t, got, "Клиент: — (id=5)")
	assert.Contains(t, got, "Телефон: —")
	assert.Contains(t, got, "Марка: —")
	assert.Contains(t, got, "Адрес: —")
	assert.Contains(t, got, "Гео: где-то")
	assert.NotContains(t, got, "Яндекс.Карты")
	assert.NotContains(t, got, ": \n")
}

func TestPhonePrefersFormatted(t *testing.T) {
	f := NewFormatter(moscow)
	got := f.NewRequest(1, repository.Requester{UserID: 5}, repository.Payload{Phone: "79990001122", PhoneFormatted: "+7 999 000-11-22"})
	assert.Contains(t, got, "Телефон: +7 999 000-11-22")
}

func TestMillis(t *testing.T) {
	f := NewFormatter(time.UTC)
	assert.Equal(t, Placeholder, f.Millis(nil))
	assert.Equal(t, Placeholder, f.Millis(ms(0)))
	assert.Equal(t, Placeholder, f.Millis(ms(-10)))
	assert.Equal(t, "2023-11-14 22:13:20", f.Millis(ms(1700000000000)))
}

func TestDetailAndList(t *testing.T) {
	f := NewFormatter(moscow)
	r := repository.Request{
		ID:             3,
		CreatedAt:      time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC),
		Requester:      repository.Requester{UserID: 42, FullName: "Иван"},
		Phone:          "123",
		PhoneFormatted: "+7 123",
		CarBrand:       "Lada",
		Geo:            "55.75,37.61",
		MapLink:        "https://yandex.ru/maps/?pt=37.61,55.75&z=16&l=map",
		Status:         repository.StatusInWork,
	}
	detail := f.Detail(r)
	assert.True(t, strings.HasPrefix(detail, "Заявка #3 (in_work)\nСоздана: 2024-05-01 12:30:15\n"))
	assert.Contains(t, detail, "Клиент: Иван (id=42)")
	assert.Contains(t, detail, "Телефон: +7 123")
	assert.Contains(t, detail, "Адрес: —")
	assert.Contains(t, detail, "Яндекс.Карты: "+r.MapLink)

	r.MapLink = ""
	assert.NotContains(t, f.Detail(r), "Яндекс.Карты")

	assert.Equal(t, "#3 | 2024-05-01 12:30 | in_work | +7 123 | Lada | —", f.ListLine(r))
	assert.Equal(t, "Заявок пока нет.", f.List(nil))
	assert.Equal(t, "Последние заявки:\n#3 | 2024-05-01 12:30 | in_work | +7 123 | Lada | —", f.List([]repository.Request{r}))
}

func TestCooldown(t *testing.T) {
	window := 5 * time.Minute
	assert.Equal(t, "Заявку можно отправлять не чаще 1 раза в 5 минут.\nПопробуйте через 04:59.", Cooldown(window, 299*time.Second))
	assert.Equal(t, "Заявку можно отправлять не чаще 1 раза в 5 минут.\nПопробуйте через 00:01.", Cooldown(window, 300*time.Millisecond))
	assert.Contains(t, Cooldown(time.Minute, 30*time.Second), "в 1 минуту")
	assert.Contains(t, Cooldown(90*time.Second, 30*time.Second), "в 90 секунд")
}
