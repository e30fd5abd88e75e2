package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository stores integer preferences grouped by namespace.
// It survives restarts; the SQLite implementation is the production one.
type Repository interface {
	GetInt(ctx context.Context, namespace, key string) (int, error)
	PutInts(ctx context.Context, namespace string, values map[string]int) error
	List(ctx context.Context, namespace string) (map[string]int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The preferences table must already exist (see package migrations).
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetInt returns the stored value, or ErrNotFound if the key was never written.
func (r *SQLiteRepository) GetInt(ctx context.Context, namespace, key string) (int, error) {
	if namespace == "" || key == "" {
		return 0, ErrInvalidKey
	}

	var v int
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("querying preference %s/%s: %w", namespace, key, err)
	}
	return v, nil
}

// PutInts writes every value in one transaction: either all keys change or none.
func (r *SQLiteRepository) PutInts(ctx context.Context, namespace string, values map[string]int) error {
	if namespace == "" {
		return ErrInvalidKey
	}
	for key := range values {
		if key == "" {
			return ErrInvalidKey
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	now := time.Now().UTC().Format(time.RFC3339)
	for key, v := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO preferences (namespace, key, value, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (namespace, key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at`,
			namespace, key, v, now,
		)
		if err != nil {
			return fmt.Errorf("writing preference %s/%s: %w", namespace, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing preferences: %w", err)
	}
	return nil
}

// List returns every key in namespace. An unknown namespace yields an empty map.
func (r *SQLiteRepository) List(ctx context.Context, namespace string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM preferences WHERE namespace = ? ORDER BY key`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			key string
			v   int
		)
		if err := rows.Scan(&key, &v); err != nil {
			return nil, fmt.Errorf("scanning preference: %w", err)
		}
		out[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating preferences: %w", err)
	}
	return out, nil
}
