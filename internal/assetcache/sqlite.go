package assetcache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

type sqliteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the cache database at path.
func NewSQLite(path string) (Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

const upsertEntry = `INSERT INTO cache_entries (generation, url, status, header, body, stored_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(generation, url) DO UPDATE SET
    status = excluded.status,
    header = excluded.header,
    body = excluded.body,
    stored_at = excluded.stored_at`

func (s *sqliteStore) Match(ctx context.Context, generation, url string) (Entry, error) {
	var (
		e      Entry
		header string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT url, status, header, body, stored_at FROM cache_entries WHERE generation = ? AND url = ?",
		generation, url,
	).Scan(&e.URL, &e.Status, &header, &e.Body, &e.StoredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("match entry: %w", err)
	}
	if err := json.Unmarshal([]byte(header), &e.Header); err != nil {
		return Entry{}, fmt.Errorf("decode header: %w", err)
	}
	return e, nil
}

func (s *sqliteStore) Put(ctx context.Context, generation string, e Entry) error {
	return s.PutAll(ctx, generation, []Entry{e})
}

func (s *sqliteStore) PutAll(ctx context.Context, generation string, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertEntry)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		header, err := encodeHeader(e.Header)
		if err != nil {
			return err
		}
		body := e.Body
		if body == nil {
			body = []byte{}
		}
		if _, err := stmt.ExecContext(ctx, generation, e.URL, e.Status, header, body, e.StoredAt); err != nil {
			return fmt.Errorf("insert %s: %w", e.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *sqliteStore) Generations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT generation FROM cache_entries ORDER BY generation")
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *sqliteStore) DeleteGeneration(ctx context.Context, generation string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE generation = ?", generation); err != nil {
		return fmt.Errorf("delete generation: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func encodeHeader(h http.Header) (string, error) {
	if h == nil {
		h = http.Header{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("encode header: %w", err)
	}
	return string(data), nil
}
