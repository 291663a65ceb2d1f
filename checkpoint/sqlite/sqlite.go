package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/checkpointgo/checkpoint"
)

// Backend implements checkpoint.Backend using SQLite.
type Backend struct {
	db        *sql.DB
	tableName string
}

var _ checkpoint.Backend = (*Backend)(nil)

// Options configuration for SQLite connection
type Options struct {
	Path      string
	TableName string // Default "checkpoint_kv"
}

// New creates a new SQLite backend and initializes its schema.
func New(opts Options) (*Backend, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// WAL mode keeps concurrent readers off the writer's lock.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "checkpoint_kv"
	}

	b := &Backend{
		db:        db,
		tableName: tableName,
	}

	if err := b.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return b, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (b *Backend) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);
	`, b.tableName)

	_, err := b.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (b *Backend) Close() error {
	return b.db.Close()
}

// PutIfAbsent implements checkpoint.Backend.
func (b *Backend) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO NOTHING
	`, b.tableName)

	res, err := b.db.ExecContext(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", checkpoint.ErrBackendUnavailable, key, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", checkpoint.ErrBackendUnavailable, key, err)
	}
	if affected == 0 {
		return fmt.Errorf("key %q: %w", key, checkpoint.ErrConflict)
	}
	return nil
}

// Get implements checkpoint.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", b.tableName)

	var value []byte
	err := b.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
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
		query = fmt.Sprintf("SELECT key, value FROM %s WHERE key %s ? AND key < ? ORDER BY key", b.tableName, op)
		args = []any{lower, end}
	} else {
		query = fmt.Sprintf("SELECT key, value FROM %s WHERE key %s ? ORDER BY key", b.tableName, op)
		args = []any{lower}
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
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
	query := fmt.Sprintf("DELETE FROM %s WHERE key = ?", b.tableName)
	if _, err := b.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("%w: delete %q: %v", checkpoint.ErrBackendUnavailable, key, err)
	}
	return nil
}
