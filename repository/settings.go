package repository

import (
	"context"
	"encoding/json"
	"time"
)

const DriversOnLineKey = "drivers_on_line"

type Setting struct {
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

type SettingsStore interface {
	// GetSetting returns ErrNotFound for an unknown key.
	GetSetting(ctx context.Context, key string) (*Setting, error)
	PutSetting(ctx context.Context, key string, value json.RawMessage) (*Setting, error)
}

// Store is one durable backend holding both tables.
type Store interface {
	RequestStore
	SettingsStore
	Init(ctx context.Context) error
	Close() error
}
