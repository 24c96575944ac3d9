// Package morestickers provides the persistence and coordination core of the
// More Stickers add-on.
//
// It exposes a small preference store (region and resize toggle, backed by
// PostgreSQL, SQLite or memory with optional Redis or in-memory caching) and a
// FIFO mutex used to serialize asynchronous work such as sticker transcoding.
package morestickers
