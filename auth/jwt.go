package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const botIssuer = "eviknumber2-bot"

// BotTokenTTL bounds a signed call from the bot to the API.
const BotTokenTTL = time.Minute

// BotSigner proves to the API that a request comes from the bot acting for the dispatcher.
// The shared admin token is the HMAC key and never leaves the process.
type BotSigner struct {
	secret     []byte
	dispatcher int64
	now        func() time.Time
}

func NewBotSigner(secret string, dispatcher int64) *BotSigner {
	return &BotSigner{secret: []byte(secret), dispatcher: dispatcher, now: time.Now}
}

func (s *BotSigner) Issue() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    botIssuer,
		Subject:   strconv.FormatInt(s.dispatcher, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(BotTokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *BotSigner) Sign(r *http.Request) error {
	token, err := s.Issue()
	if err != nil {
		return err
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// parseBotToken returns the user id the token was issued for.
func parseBotToken(token string, secret []byte, now func() time.Time) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(botIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: bad bot token: %v", ErrUnauthorized, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad bot token subject", ErrUnauthorized)
	}
	return id, nil
}
