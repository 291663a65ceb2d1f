package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/checkpointgo/checkpoint"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Backend implements checkpoint.Backend using PostgreSQL.
type Backend struct {
	pool      DBPool
	tableName string
}

var _ checkpoint.Backend = (*Backend)(nil)

// Options configuration for Postgres connection
type Options struct {
	ConnString string
	TableName  string // Default "checkpoint_kv"
}

// New creates a new Postgres backend with its own connection pool.
func New(ctx context.Context, opts Options) (*Backend, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "checkpoint_kv"
	}

	b := &Backend{
		pool:      pool,
		tableName: tableName,
	}

	if err := b.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// NewWithPool creates a new Postgres backend with an existing pool.
// Useful for testing with mocks. It does not initialize the schema.
func NewWithPool(pool DBPool, tableName string) *Backend {
	if tableName == "" {
		tableName = "checkpoint_kv"
	}
	return &Backend{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (b *Backend) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL
		);
	`, b.tableName)

	_, err := b.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

// PutIfAbsent implements checkpoint.Backend.
func (b *Backend) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, b.tableName)

	tag, err := b.pool.Exec(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", checkpoint.ErrBackendUnavailable, key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("key %q: %w", key, checkpoint.ErrConflict)
	}
	return nil
}

// Get implements checkpoint.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", b.tableName)

	var value []byte
	err := b.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("key %q: %w", key, checkpoint.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get %q: %v", checkpoint.ErrBackendUnavailable, key, err)
	}
	return value, nil
}

// Scan implements checkpoint.Backend.
func (b *Backend) Scan(ctx context.Context, prefix, cursor string, limit int) ([]checkpoint.Entry, error) {
	start, end := checkpoint.PrefixRange(prefix)
	lower := start
	op := ">="
	if cursor != "" && cursor >= start {
		lower = cursor
		op = ">"
	}

	var (
		query string
		args  []any
	)
	if end != "" {
		query = fmt.Sprintf("SELECT key, value FROM %s WHERE key %s $1 AND key < $2 ORDER BY key", b.tableName, op)
		args = []any{lower, end}
	} else {
		query = fmt.Sprintf("SELECT key, value FROM %s WHERE key %s $1 ORDER BY key", b.tableName, op)
		args = []any{lower}
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: scan %q: %v", checkpoint.ErrBackendUnavailable, prefix, err)
	}
	defer rows.Close()

	var entries []checkpoint.Entry
	for rows.Next() {
		var e checkpoint.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("%w: scan %q: %v", checkpoint.ErrBackendUnavailable, prefix, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %q: %v", checkpoint.ErrBackendUnavailable, prefix, err)
	}
	return entries, nil
}

// Delete implements checkpoint.Backend.
func (b *Backend) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", b.tableName)
	if _, err := b.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("%w: delete %q: %v", checkpoint.ErrBackendUnavailable, key, err)
	}
	return nil
}
