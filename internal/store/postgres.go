package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/chris/phoenix/internal/session"
	_ "github.com/lib/pq"
)

//go:embed schema_postgres.sql
var postgresSchema string

// PostgresStore keeps one JSONB document per name.
type PostgresStore struct {
	conn *sql.DB
	name string
}

func OpenPostgres(ctx context.Context, dsn, name string) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := conn.ExecContext(ctx, postgresSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &PostgresStore{conn: conn, name: name}, nil
}

func (p *PostgresStore) Load(ctx context.Context) (*session.Document, error) {
	var body string
	err := p.conn.QueryRowContext(ctx,
		"SELECT body::text FROM session_documents WHERE name = $1", p.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %q: %w", p.name, err)
	}
	return decode([]byte(body), "postgres:"+p.name)
}

func (p *PostgresStore) Save(ctx context.Context, doc *session.Document) error {
	body, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = p.conn.ExecContext(ctx,
		`INSERT INTO session_documents (name, version, body, updated_at)
		 VALUES ($1, $2, $3::jsonb, now())
		 ON CONFLICT (name) DO UPDATE SET
		   version = EXCLUDED.version,
		   body = EXCLUDED.body,
		   updated_at = EXCLUDED.updated_at`,
		p.name, doc.Version, string(body))
	if err != nil {
		return fmt.Errorf("saving session %q: %w", p.name, err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.conn.Close()
}
