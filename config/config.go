// Package config reads both processes' settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

var (
	ErrMissing = errors.New("не задана переменная окружения")
	ErrInvalid = errors.New("неверное значение переменной окружения")
)

// Env looks a variable up. os.LookupEnv fits.
type Env func(key string) (string, bool)

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageYDB      = "ydb"

	DriversRemote = "remote"
	DriversStore  = "store"
	DriversMemory = "memory"

	DefaultPort     = 10000
	DefaultCooldown = 5 * time.Minute
)

// LoadDotEnv preloads variables from files that exist. Already set variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("загрузка %s: %w", f, err)
		}
	}
	return nil
}

type Storage struct {
	Backend     string
	DatabaseURL string
	SQLitePath  string
	YDBDSN      string
	YDBSAKey    string
}

type Common struct {
	BotToken     string
	TargetUserID int64
	Storage      Storage
	// Location is the zone dispatcher-facing times are shown in.
	Location *time.Location
}

type Bot struct {
	Common
	WebAppURL       string
	DriversMode     string
	APIBaseURL      string
	APIAdminToken   string
	DriversFile     string
	Cooldown        time.Duration
	DeveloperChatID int64
}

type API struct {
	Common
	Port          int
	APIAdminToken string
}

func (a *API) Addr() string {
	return ":" + strconv.Itoa(a.Port)
}

type reader struct {
	env  Env
	errs []error
}

func (r *reader) optional(key, def string) string {
	if v, ok := r.env(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) required(key string) string {
	v := r.optional(key, "")
	if v == "" {
		r.errs = append(r.errs, fmt.Errorf("%w: %s", ErrMissing, key))
	}
	return v
}

func (r *reader) int64(key string, required bool) int64 {
	var raw string
	if required {
		raw = r.required(key)
	} else {
		raw = r.optional(key, "")
	}
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q не число", ErrInvalid, key, raw))
	}
	return n
}

func (r *reader) oneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(r.optional(key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	r.errs = append(r.errs, fmt.Errorf("%w: %s=%q, ожидается одно из %v", ErrInvalid, key, v, allowed))
	return v
}

func (r *reader) err() error {
	return errors.Join(r.errs...)
}

func (r *reader) storage() Storage {
	s := Storage{Backend: r.oneOf("STORAGE", StoragePostgres, StoragePostgres, StorageSQLite, StorageYDB)}
	switch s.Backend {
	case StoragePostgres:
		s.DatabaseURL = r.required("DATABASE_URL")
	case StorageSQLite:
		s.SQLitePath = r.optional("SQLITE_PATH", "eviknumber2.db")
	case StorageYDB:
		s.YDBDSN = r.required("YDB_DSN")
		s.YDBSAKey = r.optional("YDB_SA_KEY", "")
	}
	return s
}

func (r *reader) common() Common {
	c := Common{
		BotToken:     r.required("BOT_TOKEN"),
		TargetUserID: r.int64("TARGET_USER_ID", true),
		Storage:      r.storage(),
		Location:     time.Local,
	}
	if tz := r.optional("TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%w: TIMEZONE=%q: %v", ErrInvalid, tz, err))
		} else {
			c.Location = loc
		}
	}
	return c
}

// LoadStorage reads only the storage settings.
func LoadStorage(env Env) (Storage, error) {
	r := &reader{env: env}
	s := r.storage()
	return s, r.err()
}

// LoadBot returns every missing or invalid variable at once. WEBAPP_URL and API_BASE_URL are always
// required: the start screen cannot be built without them.
func LoadBot(env Env) (*Bot, error) {
	r := &reader{env: env}
	b := &Bot{
		Common:          r.common(),
		WebAppURL:       r.required("WEBAPP_URL"),
		DriversMode:     r.oneOf("DRIVERS_MODE", DriversRemote, DriversRemote, DriversStore, DriversMemory),
		APIBaseURL:      r.required("API_BASE_URL"),
		APIAdminToken:   r.optional("API_ADMIN_TOKEN", ""),
		DriversFile:     r.optional("DRIVERS_FILE", ""),
		Cooldown:        DefaultCooldown,
		DeveloperChatID: r.int64("DEVELOPER_CHAT_ID", false),
	}
	if b.DriversMode == DriversRemote && b.APIAdminToken == "" {
		r.errs = append(r.errs, fmt.Errorf("%w: API_ADMIN_TOKEN", ErrMissing))
	}
	if raw := r.optional("COOLDOWN", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			r.errs = append(r.errs, fmt.Errorf("%w: COOLDOWN=%q", ErrInvalid, raw))
		} else {
			b.Cooldown = d
		}
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return b, nil
}

func LoadAPI(env Env) (*API, error) {
	r := &reader{env: env}
	a := &API{
		Common:        r.common(),
		Port:          DefaultPort,
		APIAdminToken: r.optional("API_ADMIN_TOKEN", ""),
	}
	if raw := r.optional("PORT", ""); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 || p > 65535 {
			r.errs = append(r.errs, fmt.Errorf("%w: PORT=%q", ErrInvalid, raw))
		} else {
			a.Port = p
		}
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return a, nil
}
