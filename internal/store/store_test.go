package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chris/phoenix/internal/session"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func populated(t *testing.T) *session.Document {
	t.Helper()
	d := session.New()
	intake := &session.Intake{Habit: "smoking", Why: "health", Timeline: "5 years"}
	rc := &session.RootCause{EmotionalRoot: "stress", RiskLevel: "high", StressIndex: "7", EmotionalFragilityScore: "6"}
	plan := &session.Plan{
		Summary:           "Thirty quiet days.",
		DailyPlan:         []session.PlanDay{{Day: 1, Focus: "awareness", Actions: []string{"walk", "journal"}}},
		EmergencyProtocol: []string{"call a friend"},
	}
	require.NoError(t, d.SetIntakeResult(intake, rc, plan))
	_, err := d.AppendEvent(session.EventCheckIn, session.Payload{Details: "status=success", Response: "Nice work."})
	require.NoError(t, err)
	_, err = d.AppendEvent(session.EventCraving, session.Payload{Details: "after dinner"})
	require.NoError(t, err)
	_, err = d.AppendHabitLog(session.HabitLogEntry{HabitName: "smoking", Status: session.StatusSuccess, CravingsLevel: 3, Notes: "ok"})
	require.NoError(t, err)
	return d
}

// exerciseStore checks the behaviour every backend must share.
func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	_, err := st.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	first, err := LoadOrEmpty(ctx, st, zap.NewNop())
	require.NoError(t, err)
	second, err := LoadOrEmpty(ctx, st, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(first, second), "two empty loads should be equal")
	assert.Empty(t, cmp.Diff(session.New(), first))

	want := populated(t)
	require.NoError(t, st.Save(ctx, want))
	got, err := st.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Save replaces the document.
	got.Cravings = nil
	require.NoError(t, st.Save(ctx, got))
	again, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Cravings)
	assert.Len(t, again.CheckIns, 1)

	// Empty lists stay empty rather than coming back nil.
	empty := populated(t)
	empty.Context.Plan.EmergencyProtocol = []string{}
	empty.Context.Plan.CravingReplacementKit = []string{}
	empty.Cravings = []session.Event{}
	empty.Relapses = []session.Event{}
	require.NoError(t, st.Save(ctx, empty))
	got, err = st.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(empty, got); diff != "" {
		t.Errorf("empty lists mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore(t *testing.T) {
	st := NewMemoryStore()
	exerciseStore(t, st)
	assert.Equal(t, 3, st.Saves())
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Save(ctx, populated(t)))

	a, err := st.Load(ctx)
	require.NoError(t, err)
	a.Logs = nil

	b, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, b.Logs, 1)
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "memory.json")))
}

func TestFileStore_LoadsEpochTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	legacy := `{
    "completed_intake": true,
    "context": {
        "intake": {"habit": "smoking", "why": "health", "timeline": "5 years"},
        "root_cause": {"emotional_root": "stress", "risk_level": "high"},
        "plan": {"summary": "Thirty quiet days.", "emergency_protocol": ["call a friend"]}
    },
    "checkins": [{"timestamp": 1731900000.123, "response": "good"}],
    "cravings": [{"timestamp": 1731900100.5, "details": "after dinner"}],
    "relapses": [],
    "logs": [{"timestamp": "2024-11-18T03:20:00", "user_id": "u1", "habit_name": "smoking", "status": "success", "cravings_level": 2, "notes": ""}]
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	core, logs := observer.New(zap.WarnLevel)
	st := NewFileStore(path)
	doc, err := LoadOrEmpty(context.Background(), st, zap.New(core))
	require.NoError(t, err)
	assert.Zero(t, logs.Len(), "a readable document must not be replaced")

	assert.True(t, doc.IsIntakeComplete())
	assert.Equal(t, session.CurrentVersion, doc.Version)
	require.Len(t, doc.CheckIns, 1)
	assert.Equal(t, session.EventCheckIn, doc.CheckIns[0].Kind)
	assert.Equal(t, "good", doc.CheckIns[0].Response)
	assert.Equal(t, int64(1731900000), doc.CheckIns[0].Timestamp.Unix())
	require.Len(t, doc.Cravings, 1)
	assert.Equal(t, session.EventCraving, doc.Cravings[0].Kind)
	assert.NotNil(t, doc.Relapses)
	require.Len(t, doc.Logs, 1)

	// Saving rewrites the events in the current format.
	require.NoError(t, st.Save(context.Background(), doc))
	again, err := st.Load(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(doc, again); diff != "" {
		t.Errorf("resave mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore_CreatesDirectoryAndLeavesNoTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	path := filepath.Join(dir, "memory.json")
	st := NewFileStore(path)
	require.NoError(t, st.Save(context.Background(), populated(t)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "memory.json", entries[0].Name())
}

func TestFileStore_EmptyFileIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))
	_, err := NewFileStore(path).Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_LegacyDocumentWithoutVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"completed_intake": false, "logs": []}`), 0644))
	doc, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.CurrentVersion, doc.Version)
	assert.False(t, doc.IsIntakeComplete())
}

func TestDecode_Corruption(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{{{"},
		{"wrong type", `{"completed_intake": "yes"}`},
		{"flag without context", `{"version": 1, "completed_intake": true}`},
		{"future version", `{"version": 99}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode([]byte(tt.data), "test")
			var ce *CorruptionError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, "test", ce.Source)
		})
	}

	_, err := decode([]byte(`{"version": 99}`), "test")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestLoadOrEmpty_CorruptFallsBackAndWarns(t *testing.T) {
	st := NewMemoryStore()
	st.SetRaw([]byte("not json at all"))

	core, logs := observer.New(zap.WarnLevel)
	doc, err := LoadOrEmpty(context.Background(), st, zap.New(core))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(session.New(), doc))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "memory", logs.All()[0].ContextMap()["source"])
}

type failingStore struct{ MemoryStore }

func (*failingStore) Load(context.Context) (*session.Document, error) {
	return nil, errors.New("connection refused")
}

func TestLoadOrEmpty_PropagatesOtherErrors(t *testing.T) {
	_, err := LoadOrEmpty(context.Background(), &failingStore{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDetectDSNType(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"./agent_phoenix_memory.json", TypeFile},
		{"/var/lib/phoenix/state", TypeFile},
		{"postgres://u:p@localhost/phoenix", TypePostgres},
		{"postgresql://localhost/phoenix?sslmode=disable", TypePostgres},
		{"host=localhost user=phoenix dbname=phoenix", TypePostgres},
		{"redis://localhost:6379/0", TypeRedis},
		{"rediss://cache.example.com:6380", TypeRedis},
		{"memory://", TypeMemory},
		{"sqlite:///tmp/phoenix.db", TypeSQLite},
		{"file:phoenix.db?cache=shared", TypeSQLite},
		{":memory:", TypeSQLite},
		{"phoenix.db", TypeSQLite},
		{"PHOENIX.SQLITE3", TypeSQLite},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectDSNType(tt.dsn), tt.dsn)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	st, err := Open(ctx, "memory://", "", log)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, st)

	path := filepath.Join(t.TempDir(), "memory.json")
	st, err = Open(ctx, path, "", log)
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, st)
	assert.Equal(t, path, st.(*FileStore).Path())

	st, err = Open(ctx, ":memory:", "work", log)
	require.NoError(t, err)
	defer st.Close()
	require.IsType(t, &SQLiteStore{}, st)
	assert.Equal(t, "work", st.(*SQLiteStore).name)

	_, err = Open(ctx, "", "", log)
	assert.Error(t, err)
}
