// Package sqlite keeps requests and settings in a single local database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
)

type Store struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// Open opens the file at path. ":memory:" keeps one connection so that every query sees the same database.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("sqlite::Open"))
	defer span.Close()
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("открытие sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	log.Info("Открыл sqlite", zap.String("path", path))
	return &Store{db: db, log: log, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS settings (
  key        TEXT PRIMARY KEY,
  value_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS requests (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  created_at      INTEGER NOT NULL,
  tg_user_id      INTEGER,
  tg_username     TEXT,
  tg_full_name    TEXT,
  phone           TEXT,
  phone_formatted TEXT,
  car_brand       TEXT,
  address         TEXT,
  geo             TEXT,
  yandex_link     TEXT,
  payload_json    TEXT,
  status          TEXT NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'in_work', 'done', 'cancel'))
);
CREATE INDEX IF NOT EXISTS requests_created_at_idx ON requests (created_at DESC);
CREATE INDEX IF NOT EXISTS requests_status_idx ON requests (status);
`

func (s *Store) Init(ctx context.Context) error {
	ctx, span := tracer.Open(ctx, tracer.Named("sqlite::Init"))
	defer span.Close()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("создание схемы sqlite: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO settings(key, value_json, updated_at) VALUES(?, '0', ?)",
		repository.DriversOnLineKey, s.now().UnixNano(),
	); err != nil {
		return fmt.Errorf("начальное число водителей: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, from repository.Requester, p repository.Payload) (int64, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("sqlite::Create"))
	defer span.Close()
	r := repository.NewRequest(from, p, s.now().UTC())
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO requests(
		  created_at, tg_user_id, tg_username, tg_full_name,
		  phone, phone_formatted, car_brand, address, geo, yandex_link,
		  payload_json, status
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.CreatedAt.UnixNano(), r.Requester.UserID, nullable(r.Requester.Username), nullable(r.Requester.FullName),
		nullable(r.Phone), nullable(r.PhoneFormatted), nullable(r.CarBrand), nullable(r.Address), nullable(r.Geo), nullable(r.MapLink),
		string(r.RawPayload), string(r.Status),
	)
	if err != nil {
		return 0, fmt.Errorf("вставка заявки: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("id новой заявки: %w", err)
	}
	return id, nil
}

const requestColumns = `id, created_at, tg_user_id, tg_username, tg_full_name,
  phone, phone_formatted, car_brand, address, geo, yandex_link, payload_json, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*repository.Request, error) {
	var (
		r                                                         repository.Request
		createdAt                                                 int64
		userID                                                    sql.NullInt64
		username, fullName, phone, phoneFormatted, brand, address sql.NullString
		geoText, link, payload                                    sql.NullString
		status                                                    string
	)
	if err := row.Scan(&r.ID, &createdAt, &userID, &username, &fullName,
		&phone, &phoneFormatted, &brand, &address, &geoText, &link, &payload, &status); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, createdAt).UTC()
	r.Requester = repository.Requester{UserID: userID.Int64, Username: username.String, FullName: fullName.String}
	r.Phone, r.PhoneFormatted = phone.String, phoneFormatted.String
	r.CarBrand, r.Address, r.Geo, r.MapLink = brand.String, address.String, geoText.String, link.String
	if payload.Valid {
		r.RawPayload = json.RawMessage(payload.String)
	}
	r.Status = repository.Status(status)
	return &r, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*repository.Request, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("sqlite::Get"))
	defer span.Close()
	r, err := scanRequest(s.db.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM requests WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("заявка %d: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("чтение заявки %d: %w", id, err)
	}
	return r, nil
}

func (s *Store) List(ctx context.Context, q repository.ListQuery) ([]repository.Request, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("sqlite::List"))
	defer span.Close()
	q, ok := q.Normalize()
	if !ok {
		return []repository.Request{}, nil
	}
	query := "SELECT " + requestColumns + " FROM requests"
	args := []any{}
	if q.Status != "" {
		query += " WHERE status = ?"
		args = append(args, q.Status)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	ctx, span := tracer.Open(ctx, tracer.Named("sqlite::SetStatus"))
	defer span.Close()
	if !status.Valid() {
		return nil, fmt.Errorf("%q: %w", status, repository.ErrBadStatus)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE requests SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return nil, fmt.Errorf("смена статуса заявки %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("смена статуса заявки %d: %w", id, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("заявка %d: %w", id, repository.ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *Store) GetSetting(ctx context.Context, key string) (*repository.Setting, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("sqlite::GetSetting"))
	defer span.Close()
	var (
		value     string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT value_json, updated_at FROM settings WHERE key = ?", key).Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("настройка %s: %w", key, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("чтение настройки %s: %w", key, err)
	}
	return &repository.Setting{Key: key, Value: json.RawMessage(value), UpdatedAt: time.Unix(0, updatedAt).UTC()}, nil
}

func (s *Store) PutSetting(ctx context.Context, key string, value json.RawMessage) (*repository.Setting, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("sqlite::PutSetting"))
	defer span.Close()
	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO settings(key, value_json, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at`,
		key, string(value), now.UnixNano(),
	); err != nil {
		return nil, fmt.Errorf("запись настройки %s: %w", key, err)
	}
	return &repository.Setting{Key: key, Value: value, UpdatedAt: now}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
