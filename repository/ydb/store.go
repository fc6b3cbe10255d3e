package ydb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/ydb-platform/ydb-go-sdk/v3"
	"github.com/ydb-platform/ydb-go-sdk/v3/table"
	"github.com/ydb-platform/ydb-go-sdk/v3/table/options"
	"github.com/ydb-platform/ydb-go-sdk/v3/table/result"
	"github.com/ydb-platform/ydb-go-sdk/v3/table/result/named"
	"github.com/ydb-platform/ydb-go-sdk/v3/table/types"
	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
	"github.com/aerlaedt-netizen/eviknumber2/repository"
)

type Store struct {
	db  *ydb.Driver
	log *zap.Logger
}

func NewStore(db *ydb.Driver, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Close(ctx)
}

type ydbRequest repository.Request

func (r *ydbRequest) Scan(ctx context.Context, res result.Result) error {
	ctx, span := tracer.Open(ctx, tracer.Named("ydbRequest::Scan"))
	defer span.Close()
	var status, payload string
	if err := res.ScanNamed(
		named.Required("id", &r.ID),
		named.OptionalWithDefault("created_at", &r.CreatedAt),
		named.OptionalWithDefault("tg_user_id", &r.Requester.UserID),
		named.OptionalWithDefault("tg_username", &r.Requester.Username),
		named.OptionalWithDefault("tg_full_name", &r.Requester.FullName),
		named.OptionalWithDefault("phone", &r.Phone),
		named.OptionalWithDefault("phone_formatted", &r.PhoneFormatted),
		named.OptionalWithDefault("car_brand", &r.CarBrand),
		named.OptionalWithDefault("address", &r.Address),
		named.OptionalWithDefault("geo", &r.Geo),
		named.OptionalWithDefault("yandex_link", &r.MapLink),
		named.OptionalWithDefault("payload_json", &payload),
		named.OptionalWithDefault("status", &status),
	); err != nil {
		return err
	}
	r.Status = repository.Status(status)
	if payload != "" {
		r.RawPayload = json.RawMessage(payload)
	}
	return nil
}

type ydbRequests []repository.Request

func (rr *ydbRequests) Scan(ctx context.Context, res result.Result) error {
	ctx, span := tracer.Open(ctx, tracer.Named("ydbRequests::Scan"))
	defer span.Close()
	items := []repository.Request{}
	for res.NextRow() {
		var r ydbRequest
		if err := r.Scan(ctx, res); err != nil {
			return fmt.Errorf("чтение заявки: %w", err)
		}
		items = append(items, repository.Request(r))
	}
	*rr = items
	return res.Err()
}

func (s *Store) Init(ctx context.Context) error {
	ctx, span := tracer.Open(ctx, tracer.Named("ydb::Init"))
	defer span.Close()
	err := s.db.Table().Do(ctx, func(ctx context.Context, sess table.Session) error {
		if err := createIfMissing(ctx, sess, path.Join(s.db.Name(), "requests"),
			options.WithColumn("id", types.TypeInt64),
			options.WithColumn("created_at", types.Optional(types.TypeTimestamp)),
			options.WithColumn("tg_user_id", types.Optional(types.TypeInt64)),
			options.WithColumn("tg_username", types.Optional(types.TypeUTF8)),
			options.WithColumn("tg_full_name", types.Optional(types.TypeUTF8)),
			options.WithColumn("phone", types.Optional(types.TypeUTF8)),
			options.WithColumn("phone_formatted", types.Optional(types.TypeUTF8)),
			options.WithColumn("car_brand", types.Optional(types.TypeUTF8)),
			options.WithColumn("address", types.Optional(types.TypeUTF8)),
			options.WithColumn("geo", types.Optional(types.TypeUTF8)),
			options.WithColumn("yandex_link", types.Optional(types.TypeUTF8)),
			options.WithColumn("payload_json", types.Optional(types.TypeJSONDocument)),
			options.WithColumn("status", types.Optional(types.TypeUTF8)),
			options.WithPrimaryKeyColumn("id"),
		); err != nil {
			return err
		}
		return createIfMissing(ctx, sess, path.Join(s.db.Name(), "settings"),
			options.WithColumn("key", types.TypeUTF8),
			options.WithColumn("value_json", types.Optional(types.TypeJSONDocument)),
			options.WithColumn("updated_at", types.Optional(types.TypeTimestamp)),
			options.WithPrimaryKeyColumn("key"),
		)
	}, table.WithIdempotent())
	if err != nil {
		return fmt.Errorf("схема ydb: %w", err)
	}
	if _, err := s.GetSetting(ctx, repository.DriversOnLineKey); errors.Is(err, repository.ErrNotFound) {
		_, err = s.PutSetting(ctx, repository.DriversOnLineKey, json.RawMessage("0"))
		return err
	} else if err != nil {
		return err
	}
	return nil
}

func createIfMissing(ctx context.Context, sess table.Session, tablePath string, opts ...options.CreateTableOption) error {
	if _, err := sess.DescribeTable(ctx, tablePath); err == nil {
		return nil
	}
	if err := sess.CreateTable(ctx, tablePath, opts...); err != nil {
		return fmt.Errorf("создание таблицы %s: %w", tablePath, err)
	}
	return nil
}

const requestColumns = "id, created_at, tg_user_id, tg_username, tg_full_name, " +
	"phone, phone_formatted, car_brand, address, geo, yandex_link, payload_json, status"

// Create takes MAX(id)+1 inside a serializable transaction. A concurrent insert of
// the same id aborts one of the transactions and table.Do retries it.
func (s *Store) Create(ctx context.Context, from repository.Requester, p repository.Payload) (int64, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("ydb::Create"))
	defer span.Close()
	r := repository.NewRequest(from, p, time.Now())
	var id int64
	err := s.db.Table().Do(ctx, func(ctx context.Context, sess table.Session) error {
		ctx, span := tracer.Open(ctx, tracer.Named("Do insert requests"))
		defer span.Close()
		tx, res, err := sess.Execute(ctx,
			table.TxControl(table.BeginTx(table.WithSerializableReadWrite())),
			"SELECT COALESCE(MAX(id), 0) + 1 AS id FROM requests;",
			table.NewQueryParameters(),
		)
		if err != nil {
			return fmt.Errorf("следующий id заявки: %w", err)
		}
		defer res.Close()
		if !res.NextResultSet(ctx) || !res.NextRow() {
			return fmt.Errorf("следующий id заявки: пустой ответ")
		}
		if err := res.ScanNamed(named.Required("id", &id)); err != nil {
			return fmt.Errorf("скан id заявки: %w", err)
		}
		inserted, err := tx.Execute(ctx,
			"DECLARE $id AS Int64; "+
				"DECLARE $created_at AS Timestamp; "+
				"DECLARE $tg_user_id AS Int64; "+
				"DECLARE $tg_username AS Optional<Utf8>; "+
				"DECLARE $tg_full_name AS Optional<Utf8>; "+
				"DECLARE $phone AS Optional<Utf8>; "+
				"DECLARE $phone_formatted AS Optional<Utf8>; "+
				"DECLARE $car_brand AS Optional<Utf8>; "+
				"DECLARE $address AS Optional<Utf8>; "+
				"DECLARE $geo AS Optional<Utf8>; "+
				"DECLARE $yandex_link AS Optional<Utf8>; "+
				"DECLARE $payload_json AS JsonDocument; "+
				"DECLARE $status AS Utf8; "+
				"INSERT INTO requests ("+requestColumns+") VALUES "+
				"($id, $created_at, $tg_user_id, $tg_username, $tg_full_name, "+
				"$phone, $phone_formatted, $car_brand, $address, $geo, $yandex_link, $payload_json, $status);",
			table.NewQueryParameters(
				table.ValueParam("$id", types.Int64Value(id)),
				table.ValueParam("$created_at", types.TimestampValueFromTime(r.CreatedAt)),
				table.ValueParam("$tg_user_id", types.Int64Value(r.Requester.UserID)),
				table.ValueParam("$tg_username", optionalUTF8(r.Requester.Username)),
				table.ValueParam("$tg_full_name", optionalUTF8(r.Requester.FullName)),
				table.ValueParam("$phone", optionalUTF8(r.Phone)),
				table.ValueParam("$phone_formatted", optionalUTF8(r.PhoneFormatted)),
				table.ValueParam("$car_brand", optionalUTF8(r.CarBrand)),
				table.ValueParam("$address", optionalUTF8(r.Address)),
				table.ValueParam("$geo", optionalUTF8(r.Geo)),
				table.ValueParam("$yandex_link", optionalUTF8(r.MapLink)),
				table.ValueParam("$payload_json", types.JSONDocumentValueFromBytes(r.RawPayload)),
				table.ValueParam("$status", types.UTF8Value(string(r.Status))),
			),
		)
		if inserted != nil {
			_ = inserted.Close()
		}
		if err != nil {
			return fmt.Errorf("вставка заявки %d: %w", id, err)
		}
		if _, err := tx.CommitTx(ctx); err != nil {
			return fmt.Errorf("коммит заявки %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*repository.Request, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("ydb::Get"))
	defer span.Close()
	var r ydbRequest
	err := s.db.Table().Do(ctx, func(ctx context.Context, sess table.Session) error {
		_, res, err := sess.Execute(ctx,
			table.DefaultTxControl(),
			"DECLARE $id AS Int64; SELECT "+requestColumns+" FROM requests WHERE id = $id;",
			table.NewQueryParameters(table.ValueParam("$id", types.Int64Value(id))),
		)
		if err != nil {
			return fmt.Errorf("select requests [%d]: %w", id, err)
		}
		defer res.Close()
		if !res.NextResultSet(ctx) || !res.NextRow() {
			return fmt.Errorf("заявка %d: %w", id, repository.ErrNotFound)
		}
		if err := r.Scan(ctx, res); err != nil {
			return fmt.Errorf("скан заявки %d: %w", id, err)
		}
		return res.Err()
	}, table.WithIdempotent())
	if err != nil {
		return nil, err
	}
	req := repository.Request(r)
	return &req, nil
}

func (s *Store) List(ctx context.Context, q repository.ListQuery) ([]repository.Request, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("ydb::List"))
	defer span.Close()
	q, ok := q.Normalize()
	if !ok {
		return []repository.Request{}, nil
	}
	query := "DECLARE $limit AS Uint64; "
	params := []table.ParameterOption{table.ValueParam("$limit", types.Uint64Value(uint64(q.Limit)))}
	where := ""
	if q.Status != "" {
		query += "DECLARE $status AS Utf8; "
		params = append(params, table.ValueParam("$status", types.UTF8Value(q.Status)))
		where = " WHERE status = $status"
	}
	query += "SELECT " + requestColumns + " FROM requests" + where + " ORDER BY created_at DESC, id DESC LIMIT $limit;"

	var items ydbRequests
	err := s.db.Table().Do(ctx, func(ctx context.Context, sess table.Session) error {
		_, res, err := sess.Execute(ctx, table.DefaultTxControl(), query, table.NewQueryParameters(params...))
		if err != nil {
			return fmt.Errorf("список заявок: %w", err)
		}
		defer res.Close()
		if !res.NextResultSet(ctx) {
			return fmt.Errorf("не нашел result set для заявок")
		}
		return items.Scan(ctx, res)
	}, table.WithIdempotent())
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SetStatus reads the row before the update in the same query, so a missing id is reported as not found.
func (s *Store) SetStatus(ctx context.Context, id int64, status repository.Status) (*repository.Request, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("ydb::SetStatus"))
	defer span.Close()
	if !status.Valid() {
		return nil, fmt.Errorf("%q: %w", status, repository.ErrBadStatus)
	}
	var r ydbRequest
	err := s.db.Table().Do(ctx, func(ctx context.Context, sess table.Session) error {
		_, res, err := sess.Execute(ctx,
			table.DefaultTxControl(),
			"DECLARE $id AS Int64; "+
				"DECLARE $status AS Utf8; "+
				"SELECT "+requestColumns+" FROM requests WHERE id = $id; "+
				"UPDATE requests SET status = $status WHERE id = $id;",
			table.NewQueryParameters(
				table.ValueParam("$id", types.Int64Value(id)),
				table.ValueParam("$status", types.UTF8Value(string(status))),
			),
		)
		if err != nil {
			return fmt.Errorf("смена статуса заявки %d: %w", id, err)
		}
		defer res.Close()
		if !res.NextResultSet(ctx) || !res.NextRow() {
			return fmt.Errorf("заявка %d: %w", id, repository.ErrNotFound)
		}
		if err := r.Scan(ctx, res); err != nil {
			return fmt.Errorf("скан заявки %d: %w", id, err)
		}
		return res.Err()
	}, table.WithIdempotent())
	if err != nil {
		return nil, err
	}
	r.Status = status
	req := repository.Request(r)
	return &req, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (*repository.Setting, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("ydb::GetSetting"))
	defer span.Close()
	setting := repository.Setting{Key: key}
	err := s.db.Table().Do(ctx, func(ctx context.Context, sess table.Session) error {
		_, res, err := sess.Execute(ctx,
			table.DefaultTxControl(),
			"DECLARE $key AS Utf8; SELECT value_json, updated_at FROM settings WHERE key = $key;",
			table.NewQueryParameters(table.ValueParam("$key", types.UTF8Value(key))),
		)
		if err != nil {
			return fmt.Errorf("select settings [%s]: %w", key, err)
		}
		defer res.Close()
		if !res.NextResultSet(ctx) || !res.NextRow() {
			return fmt.Errorf("настройка %s: %w", key, repository.ErrNotFound)
		}
		var value string
		if err := res.ScanNamed(
			named.OptionalWithDefault("value_json", &value),
			named.OptionalWithDefault("updated_at", &setting.UpdatedAt),
		); err != nil {
			return fmt.Errorf("скан настройки %s: %w", key, err)
		}
		setting.Value = json.RawMessage(value)
		return res.Err()
	}, table.WithIdempotent())
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (s *Store) PutSetting(ctx context.Context, key string, value json.RawMessage) (*repository.Setting, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("ydb::PutSetting"))
	defer span.Close()
	setting := repository.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.Table().Do(ctx, func(ctx context.Context, sess table.Session) error {
		_, res, err := sess.Execute(ctx,
			table.DefaultTxControl(),
			"DECLARE $key AS Utf8; "+
				"DECLARE $value AS JsonDocument; "+
				"DECLARE $updated_at AS Timestamp; "+
				"UPSERT INTO settings (key, value_json, updated_at) VALUES ($key, $value, $updated_at);",
			table.NewQueryParameters(
				table.ValueParam("$key", types.UTF8Value(key)),
				table.ValueParam("$value", types.JSONDocumentValueFromBytes(value)),
				table.ValueParam("$updated_at", types.TimestampValueFromTime(setting.UpdatedAt)),
			),
		)
		if res != nil {
			_ = res.Close()
		}
		if err != nil {
			return fmt.Errorf("upsert settings [%s]: %w", key, err)
		}
		return nil
	}, table.WithIdempotent())
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func optionalUTF8(s string) types.Value {
	if s == "" {
		return types.NullValue(types.TypeUTF8)
	}
	return types.OptionalValue(types.UTF8Value(s))
}
