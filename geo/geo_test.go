package geo

import (
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapLink(t *testing.T) {
	tests := []struct {
		name   string
		geo    string
		want   string
		wantOK bool
	}{
		{name: "moscow", geo: "55.75,37.61", want: "https://yandex.ru/maps/?pt=37.61,55.75&z=16&l=map", wantOK: true},
		{name: "spaces", geo: " 55.75 , 37.61 ", want: "https://yandex.ru/maps/?pt=37.61,55.75&z=16&l=map", wantOK: true},
		{name: "negative", geo: "-33.8688,151.2093", want: "https://yandex.ru/maps/?pt=151.2093,-33.8688&z=16&l=map", wantOK: true},
		{name: "integers", geo: "55,37", want: "https://yandex.ru/maps/?pt=37,55&z=16&l=map", wantOK: true},
		{name: "empty", geo: ""},
		{name: "no comma", geo: "55.75 37.61"},
		{name: "words", geo: "near,home"},
		{name: "extra comma", geo: "55.75,37.61,1"},
		{name: "nan", geo: "NaN,37"},
		{name: "inf", geo: "55,Inf"},
		{name: "hex", geo: "0x1p-2,37"},
		{name: "missing lon", geo: "55.75,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MapLink(tt.geo)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapLinkRoundTrip(t *testing.T) {
	for _, p := range []Point{{55.75, 37.61}, {-89.999999, 179.5}, {0, 0}, {12.3456789012, -98.7654321}} {
		text := strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
		link, ok := MapLink(text)
		require.True(t, ok, text)

		u, err := url.Parse(link)
		require.NoError(t, err)
		lonText, latText, found := strings.Cut(u.Query().Get("pt"), ",")
		require.True(t, found)
		lon, err := strconv.ParseFloat(lonText, 64)
		require.NoError(t, err)
		lat, err := strconv.ParseFloat(latText, 64)
		require.NoError(t, err)
		assert.Equal(t, p.Lat, lat)
		assert.Equal(t, p.Lon, lon)
	}
}
