package notify

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aerlaedt-netizen/eviknumber2/repository"
)

func TestUTF16Len(t *testing.T) {
	assert.Equal(t, 3, UTF16Len("abc"))
	assert.Equal(t, 6, UTF16Len("Москва"))
	assert.Equal(t, 2, UTF16Len("🚗"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Ленина 1", truncate("Ленина 1", 10))
	assert.Equal(t, "Лени…", truncate("Ленина 1", 5))
	assert.Equal(t, "a…", truncate("a🚗🚗", 3))
	assert.Equal(t, MaxMessage, UTF16Len(Fit(strings.Repeat("я", MaxMessage+10))))
}

func TestListFitsOneMessage(t *testing.T) {
	f := NewFormatter(time.UTC)
	items := make([]repository.Request, 0, 50)
	for i := 1; i <= 50; i++ {
		items = append(items, repository.Request{
			ID:             int64(i),
			CreatedAt:      time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
			Status:         repository.StatusNew,
			PhoneFormatted: "+7 (999) 123-45-67",
			CarBrand:       "Mercedes-Benz 🚗",
			Address:        fmt.Sprintf("Москва, ул. Ленина, д. %d", i) + strings.Repeat(", подъезд", 20),
		})
	}
	got := f.List(items)
	assert.LessOrEqual(t, UTF16Len(got), MaxMessage)
	assert.True(t, strings.HasPrefix(got, "Последние заявки:\n#1 | "))
	assert.Contains(t, got, "…и ещё ")
	assert.NotContains(t, got, "#50 |")
}

func TestListKeepsShortPagesWhole(t *testing.T) {
	f := NewFormatter(time.UTC)
	items := []repository.Request{
		{ID: 1, Status: repository.StatusNew, Phone: "1"},
		{ID: 2, Status: repository.StatusDone, Phone: "2"},
	}
	got := f.List(items)
	assert.NotContains(t, got, "…и ещё")
	assert.Contains(t, got, "#2 | ")
}

func TestDetailCapsLongFields(t *testing.T) {
	f := NewFormatter(time.UTC)
	got := f.Detail(repository.Request{
		ID:       3,
		Status:   repository.StatusNew,
		Address:  strings.Repeat("очень длинный адрес ", 1000),
		CarBrand: strings.Repeat("🚗", 3000),
	})
	assert.LessOrEqual(t, UTF16Len(got), MaxMessage)
	assert.Contains(t, got, "Заявка #3 (new)")
	assert.Contains(t, got, "Гео: "+Placeholder)
}
