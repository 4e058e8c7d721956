package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CounterRepository owns the per-category sequence counters. No other
// component reads or writes the raw counter rows.
type CounterRepository interface {
	// Next atomically increments the counter identified by key and returns
	// the new value. The first call for a key returns start. Concurrent
	// callers on the same key are serialized by the store; callers on
	// different keys do not contend.
	Next(ctx context.Context, key string, start int64) (int64, error)
}

type counterRepository struct {
	pool *pgxpool.Pool
}

// NewCounterRepository instantiates repository.
func NewCounterRepository(pool *pgxpool.Pool) CounterRepository {
	return &counterRepository{pool: pool}
}

func (r *counterRepository) Next(ctx context.Context, key string, start int64) (int64, error) {
	// Single-statement read-increment-write; the row lock taken by the
	// upsert makes this linearizable per key.
	const query = `
        INSERT INTO ticket_counters (category, value) VALUES ($1, $2)
        ON CONFLICT (category) DO UPDATE SET value = ticket_counters.value + 1
        RETURNING value`
	var value int64
	if err := r.pool.QueryRow(ctx, query, key, start).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}
