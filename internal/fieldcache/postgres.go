package fieldcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rpattn/ckanbulk/internal/domain"
)

const (
	selectFieldsSQL = `SELECT payload, updated_at FROM bulk_field_cache WHERE cache_key = $1`
	upsertFieldsSQL = `INSERT INTO bulk_field_cache (cache_key, payload, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	deleteFieldsSQL = `DELETE FROM bulk_field_cache WHERE cache_key = $1`
)

// Querier is the subset of *pgxpool.Pool the Postgres cache uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres stores field lists in the bulk_field_cache table, shared by every
// process pointed at the same database.
type Postgres struct {
	db  Querier
	ttl time.Duration
	now func() time.Time
}

// NewPostgres returns a cache backed by db. Entries older than ttl are
// treated as missing; a zero ttl keeps entries forever.
func NewPostgres(db Querier, ttl time.Duration) *Postgres {
	return &Postgres{db: db, ttl: ttl, now: time.Now}
}

func (p *Postgres) Get(ctx context.Context, key string) ([]domain.FieldItem, bool, error) {
	var (
		payload   []byte
		updatedAt time.Time
	)
	err := p.db.QueryRow(ctx, selectFieldsSQL, key).Scan(&payload, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read field cache: %w", err)
	}
	if p.ttl > 0 && p.now().Sub(updatedAt) > p.ttl {
		return nil, false, nil
	}

	var fields []domain.FieldItem
	if err := msgpack.Unmarshal(payload, &fields); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached fields for %s: %w", key, err)
	}
	return fields, true, nil
}

func (p *Postgres) Set(ctx context.Context, key string, fields []domain.FieldItem) error {
	payload, err := msgpack.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	if _, err := p.db.Exec(ctx, upsertFieldsSQL, key, payload, p.now()); err != nil {
		return fmt.Errorf("failed to write field cache: %w", err)
	}
	return nil
}

// Delete removes one entry.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, deleteFieldsSQL, key); err != nil {
		return fmt.Errorf("failed to delete field cache entry: %w", err)
	}
	return nil
}
