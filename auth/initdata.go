// Package auth decides who may call the dispatcher operations of the API.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("not an admin")
)

const (
	// MaxInitDataAge is how long a mini-app launch stays valid.
	MaxInitDataAge = 24 * time.Hour
	// MaxClockSkew is how far in the future auth_date may be.
	MaxClockSkew = time.Minute
)

type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func webAppSecret(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

// dataCheckString is every field but hash as key=value, sorted by key, joined by newlines.
func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	return strings.Join(lines, "\n")
}

func signature(values url.Values, botToken string) string {
	mac := hmac.New(sha256.New, webAppSecret(botToken))
	mac.Write([]byte(dataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyInitData checks Telegram.WebApp.initData signed with botToken and returns the user it carries.
func VerifyInitData(initData, botToken string, now time.Time) (*WebAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: bad initData: %v", ErrUnauthorized, err)
	}
	theirHash := values.Get("hash")
	if theirHash == "" {
		return nil, fmt.Errorf("%w: no hash in initData", ErrUnauthorized)
	}
	if !hmac.Equal([]byte(signature(values, botToken)), []byte(strings.ToLower(theirHash))) {
		return nil, fmt.Errorf("%w: bad initData hash", ErrUnauthorized)
	}

	authDate, _ := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if authDate <= 0 {
		return nil, fmt.Errorf("%w: no auth_date", ErrUnauthorized)
	}
	age := now.Sub(time.Unix(authDate, 0))
	if age > MaxInitDataAge {
		return nil, fmt.Errorf("%w: initData expired", ErrUnauthorized)
	}
	if age < -MaxClockSkew {
		return nil, fmt.Errorf("%w: auth_date in the future", ErrUnauthorized)
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return nil, fmt.Errorf("%w: no user in initData", ErrUnauthorized)
	}
	var user WebAppUser
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, fmt.Errorf("%w: bad user json in initData", ErrUnauthorized)
	}
	return &user, nil
}

// SignInitData produces initData the way Telegram does. Used by tests and local tooling.
func SignInitData(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, v := range values {
		if k != "hash" {
			signed[k] = v
		}
	}
	signed.Set("hash", signature(signed, botToken))
	return signed.Encode()
}
