package bot

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// LaunchURL is the mini-app address with the current driver count and the count endpoint merged
// into its query. Existing keys with those names are replaced, other keys are kept.
func LaunchURL(webappURL, apiBaseURL string, drivers int) (string, error) {
	u, err := url.Parse(webappURL)
	if err != nil {
		return "", fmt.Errorf("адрес мини-аппа %q: %w", webappURL, err)
	}
	q := u.Query()
	q.Set("drivers", strconv.Itoa(drivers))
	q.Set("api", strings.TrimRight(apiBaseURL, "/")+"/api/drivers")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
