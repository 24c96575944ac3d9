// Package storage provides a PostgreSQL-based implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/CreativeUnicorns/morestickers"
)

// sqlOpenFunc is a package-level variable that can be overridden for testing.
var sqlOpenFunc = sql.Open

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS addon_preferences (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value JSONB NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, key)
		);
	`

	insertSQL = `
		INSERT INTO addon_preferences (namespace, key, value, type, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = $3, type = $4, updated_at = $5
	`

	selectSQL = `
		SELECT namespace, key, value, type, updated_at
		FROM addon_preferences
		WHERE namespace = $1 AND key = $2
	`

	selectAllSQL = `
		SELECT namespace, key, value, type, updated_at
		FROM addon_preferences
		WHERE namespace = $1
	`

	deleteSQL = `
		DELETE FROM addon_preferences
		WHERE namespace = $1 AND key = $2
	`
)

// PostgresStorage implements the Storage interface using PostgreSQL.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage connects using connString and runs migrations.
func NewPostgresStorage(connString string) (*PostgresStorage, error) {
	db, err := sqlOpenFunc("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", classifyPostgresErr(err))
	}

	storage := &PostgresStorage{db: db}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to run migrations: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) migrate() error {
	_, err := s.db.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("postgres: failed to execute create table statement: %w", err)
	}
	return nil
}

// classifyPostgresErr marks connection-class server errors (SQLSTATE 08xxx)
// as ErrStorageUnavailable while keeping the original error in the chain.
func classifyPostgresErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "08" {
		return fmt.Errorf("%w: %w", morestickers.ErrStorageUnavailable, err)
	}
	return err
}

// Get retrieves a preference by namespace and key.
// It returns ErrNotFound if the preference does not exist.
func (s *PostgresStorage) Get(ctx context.Context, namespace, key string) (*morestickers.Preference, error) {
	var pref morestickers.Preference
	var valueJSON []byte

	err := s.db.QueryRowContext(ctx, selectSQL, namespace, key).Scan(
		&pref.Namespace,
		&pref.Key,
		&valueJSON,
		&pref.Type,
		&pref.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, morestickers.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan preference '%s/%s': %w", namespace, key, classifyPostgresErr(err))
	}

	if err := json.Unmarshal(valueJSON, &pref.Value); err != nil {
		return nil, fmt.Errorf("postgres: failed to unmarshal value for '%s/%s': %w", namespace, key, err)
	}

	return &pref, nil
}

// Set stores or updates a preference. The value is stored as JSONB.
func (s *PostgresStorage) Set(ctx context.Context, pref *morestickers.Preference) error {
	valueJSON, err := json.Marshal(pref.Value)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal value for key '%s': %w", pref.Key, err)
	}

	_, err = s.db.ExecContext(ctx, insertSQL,
		pref.Namespace,
		pref.Key,
		valueJSON,
		pref.Type,
		pref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to execute insert/update for '%s/%s': %w", pref.Namespace, pref.Key, classifyPostgresErr(err))
	}

	return nil
}

// GetAll retrieves all preferences of a namespace.
func (s *PostgresStorage) GetAll(ctx context.Context, namespace string) (map[string]*morestickers.Preference, error) {
	rows, err := s.db.QueryContext(ctx, selectAllSQL, namespace)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query preferences for namespace '%s': %w", namespace, classifyPostgresErr(err))
	}
	return s.scanPreferences(rows)
}

// Delete removes a preference by namespace and key.
// It returns ErrNotFound if the preference does not exist.
func (s *PostgresStorage) Delete(ctx context.Context, namespace, key string) error {
	result, err := s.db.ExecContext(ctx, deleteSQL, namespace, key)
	if err != nil {
		return fmt.Errorf("postgres: failed to execute delete for '%s/%s': %w", namespace, key, classifyPostgresErr(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to get affected rows for delete '%s/%s': %w", namespace, key, err)
	}

	if rowsAffected == 0 {
		return morestickers.ErrNotFound
	}

	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

// scanPreferences consumes and closes rows.
func (s *PostgresStorage) scanPreferences(rows *sql.Rows) (map[string]*morestickers.Preference, error) {
	defer rows.Close()

	prefs := make(map[string]*morestickers.Preference)

	for rows.Next() {
		var pref morestickers.Preference
		var valueJSON []byte

		err := rows.Scan(
			&pref.Namespace,
			&pref.Key,
			&valueJSON,
			&pref.Type,
			&pref.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan preference row: %w", err)
		}

		if err := json.Unmarshal(valueJSON, &pref.Value); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal value for key '%s' during scan: %w", pref.Key, err)
		}

		prefs[pref.Key] = &pref
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: error iterating preference rows: %w", err)
	}

	return prefs, nil
}
