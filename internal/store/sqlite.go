package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/chris/phoenix/internal/session"
	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteStore keeps one document per name in a local SQLite database.
type SQLiteStore struct {
	conn *sql.DB
	name string
}

func OpenSQLite(path, name string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLiteStore{conn: conn, name: name}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*session.Document, error) {
	var body string
	err := s.conn.QueryRowContext(ctx,
		"SELECT body FROM session_documents WHERE name = ?", s.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %q: %w", s.name, err)
	}
	return decode([]byte(body), "sqlite:"+s.name)
}

func (s *SQLiteStore) Save(ctx context.Context, doc *session.Document) error {
	body, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO session_documents (name, version, body, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(name) DO UPDATE SET
		   version = excluded.version,
		   body = excluded.body,
		   updated_at = excluded.updated_at`,
		s.name, doc.Version, string(body))
	if err != nil {
		return fmt.Errorf("saving session %q: %w", s.name, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
