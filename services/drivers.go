package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aerlaedt-netizen/eviknumber2/lib/tracer.v2"
)

var (
	ErrNegativeDelta      = errors.New("нужно число ≥ 0")
	ErrCounterUnavailable = errors.New("счетчик водителей недоступен")
)

type DriverCount struct {
	Value     int
	UpdatedAt time.Time
}

// countBackend is where the number lives: process memory, the settings table or the API service.
type countBackend interface {
	Load(ctx context.Context) (DriverCount, error)
	Store(ctx context.Context, n int) (DriverCount, error)
}

// Drivers keeps the number of drivers on line non-negative whatever the backend.
// Add and Subtract are read-then-write and are not atomic against a remote backend.
type Drivers struct {
	backend countBackend
	log     *zap.Logger
}

func NewDrivers(backend countBackend, log *zap.Logger) *Drivers {
	return &Drivers{backend: backend, log: log}
}

func (d *Drivers) Get(ctx context.Context) (DriverCount, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("Drivers::Get"))
	defer span.Close()
	c, err := d.backend.Load(ctx)
	if err != nil {
		return DriverCount{}, fmt.Errorf("чтение числа водителей: %w", err)
	}
	if c.Value < 0 {
		c.Value = 0
	}
	return c, nil
}

// Set stores max(0, n).
func (d *Drivers) Set(ctx context.Context, n int) (DriverCount, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("Drivers::Set"))
	defer span.Close()
	if n < 0 {
		n = 0
	}
	c, err := d.backend.Store(ctx, n)
	if err != nil {
		return DriverCount{}, fmt.Errorf("запись числа водителей %d: %w", n, err)
	}
	d.log.Info("Число водителей обновлено", zap.Int("drivers_on_line", c.Value))
	return c, nil
}

func (d *Drivers) Add(ctx context.Context, delta int) (DriverCount, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("Drivers::Add"))
	defer span.Close()
	if delta < 0 {
		return DriverCount{}, ErrNegativeDelta
	}
	cur, err := d.Get(ctx)
	if err != nil {
		return DriverCount{}, err
	}
	return d.Set(ctx, cur.Value+delta)
}

// Subtract never goes below zero.
func (d *Drivers) Subtract(ctx context.Context, delta int) (DriverCount, error) {
	ctx, span := tracer.Open(ctx, tracer.Named("Drivers::Subtract"))
	defer span.Close()
	if delta < 0 {
		return DriverCount{}, ErrNegativeDelta
	}
	cur, err := d.Get(ctx)
	if err != nil {
		return DriverCount{}, err
	}
	return d.Set(ctx, cur.Value-delta)
}

// CountOrZero is for customer-facing screens where an unknown count shows as zero.
func (d *Drivers) CountOrZero(ctx context.Context) int {
	c, err := d.Get(ctx)
	if err != nil {
		d.log.Warn("Не удалось получить число водителей, показываю 0", zap.Error(err))
		return 0
	}
	return c.Value
}
