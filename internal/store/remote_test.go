package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Remote backends run only when a server is provided.

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PHOENIX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PHOENIX_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	name := "test-" + uuid.NewString()
	st, err := OpenPostgres(ctx, dsn, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		st.conn.Exec("DELETE FROM session_documents WHERE name = $1", name)
		st.Close()
	})
	exerciseStore(t, st)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("PHOENIX_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PHOENIX_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	st, err := OpenRedis(ctx, url, "test-"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		st.client.Del(context.Background(), st.Key())
		st.Close()
	})
	exerciseStore(t, st)
}
