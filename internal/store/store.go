// Package store persists the session document. Every backend replaces the
// whole document on Save; none of them patch.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chris/phoenix/internal/session"
	"go.uber.org/zap"
)

// DefaultName is the deployment name used when none is configured.
const DefaultName = "default"

// ErrNotFound means nothing has been saved yet.
var ErrNotFound = errors.New("no session document stored")

// ErrUnsupportedVersion means the document was written by a newer release.
var ErrUnsupportedVersion = errors.New("unsupported document version")

// CorruptionError means stored bytes exist but cannot be used.
type CorruptionError struct {
	Source string
	Err    error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt session document in %s: %v", e.Source, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

type Store interface {
	// Load returns the stored document, ErrNotFound, or a *CorruptionError.
	Load(ctx context.Context) (*session.Document, error)
	// Save replaces the stored document. It is durable once Save returns.
	Save(ctx context.Context, doc *session.Document) error
	Close() error
}

// LoadOrEmpty treats a missing or corrupt document as a fresh session.
// Corruption is logged before it is discarded; other errors are returned.
func LoadOrEmpty(ctx context.Context, st Store, log *zap.Logger) (*session.Document, error) {
	doc, err := st.Load(ctx)
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, ErrNotFound) {
		log.Debug("no stored session, starting fresh")
		return session.New(), nil
	}
	var ce *CorruptionError
	if errors.As(err, &ce) {
		log.Warn("stored session is unreadable, starting a fresh session; the next save will overwrite it",
			zap.String("source", ce.Source), zap.Error(ce.Err))
		return session.New(), nil
	}
	return nil, fmt.Errorf("loading session: %w", err)
}

func encode(doc *session.Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("nil session document")
	}
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return b, nil
}

func decode(data []byte, source string) (*session.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNotFound
	}
	doc := &session.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, &CorruptionError{Source: source, Err: err}
	}
	// Documents written before versioning carry no version field.
	if doc.Version == 0 {
		doc.Version = session.CurrentVersion
	}
	if doc.Version > session.CurrentVersion {
		return nil, &CorruptionError{Source: source, Err: fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)}
	}
	if err := doc.Validate(); err != nil {
		return nil, &CorruptionError{Source: source, Err: err}
	}
	return doc, nil
}

// DSN types recognised by Open.
const (
	TypeFile     = "file"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeRedis    = "redis"
	TypeMemory   = "memory"
)

// DetectDSNType classifies a store DSN. Anything unrecognised is a JSON file path.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"), strings.Contains(lower, "host="):
		return TypePostgres
	case strings.HasPrefix(lower, "redis://"), strings.HasPrefix(lower, "rediss://"):
		return TypeRedis
	case strings.HasPrefix(lower, "memory://"):
		return TypeMemory
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "file:"), lower == ":memory:":
		return TypeSQLite
	}
	switch filepath.Ext(lower) {
	case ".db", ".sqlite", ".sqlite3":
		return TypeSQLite
	}
	return TypeFile
}

// Open returns the backend for dsn. name selects the document when the
// backend can hold several deployments.
func Open(ctx context.Context, dsn, name string, log *zap.Logger) (Store, error) {
	if name == "" {
		name = DefaultName
	}
	kind := DetectDSNType(dsn)
	log.Debug("opening session store", zap.String("type", kind), zap.String("name", name))

	switch kind {
	case TypePostgres:
		return OpenPostgres(ctx, dsn, name)
	case TypeRedis:
		return OpenRedis(ctx, dsn, name)
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeSQLite:
		return OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"), name)
	}
	if dsn == "" {
		return nil, errors.New("store DSN not set")
	}
	return NewFileStore(dsn), nil
}
