// Package storage provides persistence backends for the preference store:
// an in-memory map, SQLite (the add-on's local host store) and PostgreSQL.
package storage

import (
	"github.com/CreativeUnicorns/morestickers"
)

var (
	_ morestickers.Storage = (*MemoryStorage)(nil)
	_ morestickers.Storage = (*SQLiteStorage)(nil)
	_ morestickers.Storage = (*PostgresStorage)(nil)
)
