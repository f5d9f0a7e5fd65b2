// Package history records completed parses in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one recorded parse.
type Entry struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Engine    string    `json:"engine"`
	Status    string    `json:"status"`
	Items     int       `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

const schema = `
create table if not exists parses (
	id         text primary key,
	filename   text not null,
	engine     text not null,
	status     text not null,
	items      integer not null,
	created_at timestamp not null
);
create index if not exists parses_created_at on parses(created_at);`

// SQLiteStore persists entries in a single table.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Record assigns an ID and timestamp when missing and inserts e.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	const q = `insert into parses (id, filename, engine, status, items, created_at) values (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, e.ID, e.Filename, e.Engine, e.Status, e.Items, e.CreatedAt); err != nil {
		return Entry{}, fmt.Errorf("insert parse: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	const q = `select id, filename, engine, status, items, created_at from parses order by created_at desc limit ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query parses: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Filename, &e.Engine, &e.Status, &e.Items, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan parse: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
