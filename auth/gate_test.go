package auth

import (
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	botToken   = "123456:TEST-TOKEN"
	adminToken = "s3cret"
	dispatcher = int64(42)
)

var launch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func initData(userID int64, authDate time.Time) string {
	return SignInitData(url.Values{
		"query_id":  {"AAF"},
		"auth_date": {strconv.FormatInt(authDate.Unix(), 10)},
		"user":      {`{"id":` + strconv.FormatInt(userID, 10) + `,"first_name":"Олег","username":"oleg"}`},
	}, botToken)
}

func newTestGate(at time.Time) *Gate {
	g := NewGate(botToken, dispatcher, adminToken)
	g.now = func() time.Time { return at }
	return g
}

func TestVerifyInitData(t *testing.T) {
	user, err := VerifyInitData(initData(dispatcher, launch), botToken, launch.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, dispatcher, user.ID)
	assert.Equal(t, "oleg", user.Username)

	_, err = VerifyInitData(initData(dispatcher, launch), botToken, launch.Add(-30*time.Second))
	assert.NoError(t, err, "small clock skew is tolerated")
}

func TestVerifyInitDataRejects(t *testing.T) {
	good := initData(dispatcher, launch)
	tampered, _ := url.ParseQuery(good)
	tampered.Set("query_id", "BBB")

	noDate := SignInitData(url.Values{"user": {`{"id":42}`}}, botToken)
	noUser := SignInitData(url.Values{"auth_date": {strconv.FormatInt(launch.Unix(), 10)}}, botToken)
	badUser := SignInitData(url.Values{
		"auth_date": {strconv.FormatInt(launch.Unix(), 10)},
		"user":      {"{"},
	}, botToken)

	for name, tc := range map[string]struct {
		data string
		now  time.Time
	}{
		"tampered":     {tampered.Encode(), launch},
		"other bot":    {SignInitData(url.Values{"auth_date": {"1"}}, "other:token"), launch},
		"no hash":      {"auth_date=1&user=%7B%7D", launch},
		"expired":      {good, launch.Add(MaxInitDataAge + time.Second)},
		"no auth_date": {noDate, launch},
		"from future":  {good, launch.Add(-MaxClockSkew - time.Second)},
		"no user":      {noUser, launch},
		"bad user":     {badUser, launch},
		"garbage":      {"%zz", launch},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := VerifyInitData(tc.data, botToken, tc.now)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestGateInitData(t *testing.T) {
	g := newTestGate(launch)

	id, err := g.Authorize(Credentials{InitData: initData(dispatcher, launch)})
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: dispatcher, Username: "oleg", Via: ViaInitData}, *id)

	_, err = g.Authorize(Credentials{InitData: initData(7, launch)})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = g.Authorize(Credentials{InitData: "hash=00", AdminToken: adminToken})
	assert.ErrorIs(t, err, ErrUnauthorized, "present init data decides alone")
}

func TestGateAdminToken(t *testing.T) {
	g := newTestGate(launch)

	id, err := g.Authorize(Credentials{AdminToken: adminToken})
	require.NoError(t, err)
	assert.Equal(t, dispatcher, id.UserID)
	assert.Equal(t, ViaAdminToken, id.Via)

	_, err = g.Authorize(Credentials{AdminToken: "nope"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = g.Authorize(Credentials{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	open := NewGate(botToken, dispatcher, "")
	_, err = open.Authorize(Credentials{AdminToken: ""})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGateBotToken(t *testing.T) {
	g := newTestGate(launch)
	signer := NewBotSigner(adminToken, dispatcher)
	signer.now = func() time.Time { return launch }

	token, err := signer.Issue()
	require.NoError(t, err)
	id, err := g.Authorize(Credentials{Bearer: token})
	require.NoError(t, err)
	assert.Equal(t, ViaBotToken, id.Via)

	g.now = func() time.Time { return launch.Add(2 * BotTokenTTL) }
	_, err = g.Authorize(Credentials{Bearer: token})
	assert.ErrorIs(t, err, ErrUnauthorized)

	g.now = func() time.Time { return launch }
	stranger := NewBotSigner(adminToken, 7)
	stranger.now = signer.now
	token, err = stranger.Issue()
	require.NoError(t, err)
	_, err = g.Authorize(Credentials{Bearer: token})
	assert.ErrorIs(t, err, ErrForbidden)

	forged := NewBotSigner("guess", dispatcher)
	forged.now = signer.now
	token, err = forged.Issue()
	require.NoError(t, err)
	_, err = g.Authorize(Credentials{Bearer: token})
	assert.ErrorIs(t, err, ErrUnauthorized)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer: botIssuer, Subject: "42", ExpiresAt: jwt.NewNumericDate(launch.Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = g.Authorize(Credentials{Bearer: none})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthorizeRequestHeaders(t *testing.T) {
	g := newTestGate(launch)
	signer := NewBotSigner(adminToken, dispatcher)
	signer.now = func() time.Time { return launch }

	r := httptest.NewRequest("POST", "/api/admin/drivers", nil)
	require.NoError(t, signer.Sign(r))
	id, err := g.AuthorizeRequest(r)
	require.NoError(t, err)
	assert.Equal(t, ViaBotToken, id.Via)

	r = httptest.NewRequest("GET", "/api/admin/me", nil)
	r.Header.Set(HeaderAdminToken, adminToken)
	id, err = g.AuthorizeRequest(r)
	require.NoError(t, err)
	assert.Equal(t, ViaAdminToken, id.Via)

	r = httptest.NewRequest("GET", "/api/admin/me", nil)
	r.Header.Set(HeaderInitData, "  "+initData(dispatcher, launch)+" ")
	id, err = g.AuthorizeRequest(r)
	require.NoError(t, err)
	assert.Equal(t, ViaInitData, id.Via)
}
