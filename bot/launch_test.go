package bot

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaunchURL(t *testing.T) {
	tests := []struct {
		name    string
		webapp  string
		drivers int
		want    url.Values
	}{
		{"plain", "https://app.example.org/form", 3,
			url.Values{"drivers": {"3"}, "api": {"https://api.example.org/api/drivers"}}},
		{"keeps other keys", "https://app.example.org/form?theme=dark&drivers=9", 0,
			url.Values{"theme": {"dark"}, "drivers": {"0"}, "api": {"https://api.example.org/api/drivers"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LaunchURL(tt.webapp, "https://api.example.org/", tt.drivers)
			require.NoError(t, err)
			u, err := url.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, "app.example.org", u.Host)
			assert.Equal(t, "/form", u.Path)
			assert.Equal(t, tt.want, u.Query())
		})
	}

	_, err := LaunchURL("://bad", "https://api.example.org", 1)
	assert.Error(t, err)
}
