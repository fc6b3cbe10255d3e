// Package postgres is the PostgreSQL backend shared by the bot and the API service.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Open connects the pool and checks it with a ping. The pool lives until Close.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("postgres::Open"))
	defer span.Close()
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("разбор DATABASE_URL: %w", err)
	}
	cfg.MinConns = 1
	cfg.MaxConns = 5

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(pingCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("подключение к postgres: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info("Подключился к postgres", zap.String("host", cfg.ConnConfig.Host), zap.String("database", cfg.ConnConfig.Database))
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
	  key        TEXT PRIMARY KEY,
	  value_json JSONB NOT NULL,
	  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE settings ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
	`CREATE TABLE IF NOT EXISTS requests (
	  id              BIGSERIAL PRIMARY KEY,
	  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	  tg_user_id      BIGINT,
	  tg_username     TEXT,
	  tg_full_name    TEXT,
	  phone           TEXT,
	  phone_formatted TEXT,
	  car_brand       TEXT,
	  address         TEXT,
	  geo             TEXT,
	  yandex_link     TEXT,
	  payload_json    JSONB,
	  status          TEXT NOT NULL DEFAULT 'new'
	)`,
	`CREATE INDEX IF NOT EXISTS requests_created_at_idx ON requests (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS requests_status_idx ON requests (status)`,
	`INSERT INTO settings(key, value_json) VALUES('drivers_on_line', '0'::jsonb) ON CONFLICT (key) DO NOTHING`,
}

func (s *Store) Init(ctx context.Context) error {
	ctx, span := tracer.Open(ctx, tracer.Named("postgres::Init"))
	defer span.Close()
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("схема postgres: %w", err)
		}
	}
	return nil
}

func (s *Store) Create(ctx context.Context, from repository.Requester, p repository.Payload) (int64, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("postgres::Create"))
	defer span.Close()
	r := repository.NewRequest(from, p, time.Now())
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO requests(
		  tg_user_id, tg_username, tg_full_name,
		  phone, phone_formatted, car_brand, address, geo, yandex_link,
		  payload_json, status
		)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11)
		RETURNING id`,
		r.Requester.UserID, nullable(r.Requester.Username), nullable(r.Requester.FullName),
		nullable(r.Phone), nullable(r.PhoneFormatted), nullable(r.CarBrand), nullable(r.Address), nullable(r.Geo), nullable(r.MapLink),
		string(r.RawPayload), string(r.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("вставка заявки: %w", err)
	}
	return id, nil
}

const requestColumns = `id, created_at, tg_user_id, tg_username, tg_full_name,
  phone, phone_formatted, car_brand, address, geo, yandex_link, payload_json, status`

func scanRequest(row pgx.Row) (*repository.Request, error) {
	var (
		r                                                         repository.Request
		userID                                                    *int64
		username, fullName, phone, phoneFormatted, brand, address *string
		geoText, link                                             *string
		payload                                                   []byte
		status                                                    string
	)
	if err := row.Scan(&r.ID, &r.CreatedAt, &userID, &username, &fullName,
		&phone, &phoneFormatted, &brand, &address, &geoText, &link, &payload, &status); err != nil {
		return nil, err
	}
	if userID != nil {
		r.Requester.UserID = *userID
	}
	r.Requester.Username, r.Requester.FullName = deref(username), deref(fullName)
	r.Phone, r.PhoneFormatted = deref(phone), deref(phoneFormatted)
	r.CarBrand, r.Address, r.Geo, r.MapLink = deref(brand), deref(address), deref(geoText), deref(link)
	if payload != nil {
		r.RawPayload = json.RawMessage(payload)
	}
	r.Status = repository.Status(status)
	return &r, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*repository.Request, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("postgres::Get"))
	defer span.Close()
	r, err := scanRequest(s.pool.QueryRow(ctx, "SELECT "+requestColumns+" FROM requests WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("заявка %d: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("чтение заявки %d: %w", id, err)
	}
	return r, nil
}

func (s *Store) List(ctx context.Context, q repository.ListQuery) ([]repository.Request, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("postgres::List"))
	defer span.Close()
	q, ok := q.Normalize()
	if !ok {
		return []repository.Request{}, nil
	}
	query := "SELECT " + requestColumns + " FROM requests"
	args := []any{q.Limit}
	if q.Status != "" {
		query += " WHERE status = $2"
		args = append(args, q.Status)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT $1"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("список заявок: %w", err)
	}
	defer rows.Close()
	items := []repository.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("чтение строки заявки: %w", err)
		}
		items = append(items, *r)
	}
	return items, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, id int64, status repository.Status) (*repository.Request, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("postgres::SetStatus"))
	defer span.Close()
	if !status.Valid() {
		return nil, fmt.Errorf("%q: %w", status, repository.ErrBadStatus)
	}
	r, err := scanRequest(s.pool.QueryRow(ctx,
		"UPDATE requests SET status = $2 WHERE id = $1 RETURNING "+requestColumns, id, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("заявка %d: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("смена статуса заявки %d: %w", id, err)
	}
	return r, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (*repository.Setting, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("postgres::GetSetting"))
	defer span.Close()
	setting := repository.Setting{Key: key}
	var value []byte
	err := s.pool.QueryRow(ctx, "SELECT value_json, updated_at FROM settings WHERE key = $1", key).Scan(&value, &setting.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("настройка %s: %w", key, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("чтение настройки %s: %w", key, err)
	}
	setting.Value = json.RawMessage(value)
	return &setting, nil
}

func (s *Store) PutSetting(ctx context.Context, key string, value json.RawMessage) (*repository.Setting, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("postgres::PutSetting"))
	defer span.Close()
	setting := repository.Setting{Key: key, Value: value}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO settings(key, value_json, updated_at) VALUES($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value_json = EXCLUDED.value_json, updated_at = EXCLUDED.updated_at
		RETURNING updated_at`,
		key, string(value),
	).Scan(&setting.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("запись настройки %s: %w", key, err)
	}
	return &setting, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
