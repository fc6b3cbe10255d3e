package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	HeaderInitData   = "X-Tg-Init-Data"
	HeaderAdminToken = "X-Admin-Token"
)

type Via string

const (
	ViaInitData   Via = "init_data"
	ViaBotToken   Via = "bot_token"
	ViaAdminToken Via = "admin_token"
)

// Identity is the admitted dispatcher.
type Identity struct {
	UserID   int64
	Username string
	Via      Via
}

type Credentials struct {
	InitData   string
	Bearer     string
	AdminToken string
}

func CredentialsFromRequest(r *http.Request) Credentials {
	c := Credentials{
		InitData:   strings.TrimSpace(r.Header.Get(HeaderInitData)),
		AdminToken: r.Header.Get(HeaderAdminToken),
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		c.Bearer = strings.TrimSpace(h[7:])
	}
	return c
}

// Gate admits only the dispatcher. Init data, when presented, decides alone.
// Otherwise a bot-signed bearer token or the static admin token is accepted.
type Gate struct {
	botToken   string
	dispatcher int64
	adminToken string
	now        func() time.Time
}

// NewGate with an empty adminToken disables both token paths.
func NewGate(botToken string, dispatcher int64, adminToken string) *Gate {
	return &Gate{botToken: botToken, dispatcher: dispatcher, adminToken: adminToken, now: time.Now}
}

func (g *Gate) Authorize(c Credentials) (*Identity, error) {
	if c.InitData != "" {
		user, err := VerifyInitData(c.InitData, g.botToken, g.now())
		if err != nil {
			return nil, err
		}
		if user.ID != g.dispatcher {
			return nil, fmt.Errorf("%w: user %d", ErrForbidden, user.ID)
		}
		return &Identity{UserID: user.ID, Username: user.Username, Via: ViaInitData}, nil
	}
	if g.adminToken == "" {
		return nil, ErrUnauthorized
	}
	if c.Bearer != "" {
		id, err := parseBotToken(c.Bearer, []byte(g.adminToken), g.now)
		if err != nil {
			return nil, err
		}
		if id != g.dispatcher {
			return nil, fmt.Errorf("%w: user %d", ErrForbidden, id)
		}
		return &Identity{UserID: id, Via: ViaBotToken}, nil
	}
	if c.AdminToken != "" && subtle.ConstantTimeCompare([]byte(c.AdminToken), []byte(g.adminToken)) == 1 {
		return &Identity{UserID: g.dispatcher, Via: ViaAdminToken}, nil
	}
	return nil, ErrUnauthorized
}

func (g *Gate) AuthorizeRequest(r *http.Request) (*Identity, error) {
	return g.Authorize(CredentialsFromRequest(r))
}
