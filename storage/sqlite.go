// Package storage provides a SQLite-based implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/CreativeUnicorns/morestickers"
)

const (
	sqliteCreateTableSQL = `
		CREATE TABLE IF NOT EXISTS addon_preferences (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, key)
		);
	`

	sqliteInsertSQL = `
		INSERT INTO addon_preferences (namespace, key, value, type, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, key)
		DO UPDATE SET value = excluded.value, type = excluded.type, updated_at = excluded.updated_at
	`

	sqliteSelectSQL = `
		SELECT namespace, key, value, type, updated_at
		FROM addon_preferences
		WHERE namespace = ? AND key = ?
	`

	sqliteSelectAllSQL = `
		SELECT namespace, key, value, type, updated_at
		FROM addon_preferences
		WHERE namespace = ?
	`

	sqliteDeleteSQL = `
		DELETE FROM addon_preferences
		WHERE namespace = ? AND key = ?
	`
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) migrate() error {
	_, err := s.db.Exec(sqliteCreateTableSQL)
	return err
}

// Get retrieves a preference by namespace and key.
// It returns ErrNotFound if the preference does not exist.
func (s *SQLiteStorage) Get(ctx context.Context, namespace, key string) (*morestickers.Preference, error) {
	var pref morestickers.Preference
	var valueJSON string

	err := s.db.QueryRowContext(ctx, sqliteSelectSQL, namespace, key).Scan(
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
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}

	if err := json.Unmarshal([]byte(valueJSON), &pref.Value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return &pref, nil
}

// Set stores or updates a preference. The value is stored as JSON text.
func (s *SQLiteStorage) Set(ctx context.Context, pref *morestickers.Preference) error {
	valueJSON, err := json.Marshal(pref.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	_, err = s.db.ExecContext(ctx, sqliteInsertSQL,
		pref.Namespace,
		pref.Key,
		string(valueJSON),
		pref.Type,
		pref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set preference: %w", err)
	}

	return nil
}

// GetAll retrieves all preferences of a namespace.
func (s *SQLiteStorage) GetAll(ctx context.Context, namespace string) (map[string]*morestickers.Preference, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectAllSQL, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	return s.scanPreferences(rows)
}

// Delete removes a preference by namespace and key.
// It returns ErrNotFound if the preference does not exist.
func (s *SQLiteStorage) Delete(ctx context.Context, namespace, key string) error {
	result, err := s.db.ExecContext(ctx, sqliteDeleteSQL, namespace, key)
	if err != nil {
		return fmt.Errorf("failed to delete preference: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return morestickers.ErrNotFound
	}

	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) scanPreferences(rows *sql.Rows) (map[string]*morestickers.Preference, error) {
	prefs := make(map[string]*morestickers.Preference)

	for rows.Next() {
		var pref morestickers.Preference
		var valueJSON string

		err := rows.Scan(
			&pref.Namespace,
			&pref.Key,
			&valueJSON,
			&pref.Type,
			&pref.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}

		if err := json.Unmarshal([]byte(valueJSON), &pref.Value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal value: %w", err)
		}

		prefs[pref.Key] = &pref
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return prefs, nil
}
