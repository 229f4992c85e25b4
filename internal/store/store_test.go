package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahdg6/TypeWriter/internal/engine"
	"github.com/ahdg6/TypeWriter/internal/fact"
	"github.com/ahdg6/TypeWriter/internal/ir"
)

var (
	_ fact.Persister  = (*Store)(nil)
	_ engine.Recorder = (*Store)(nil)
)

// createTestStore opens a fresh database under t.TempDir().
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)

		var count int
		require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM activations").Scan(&count))
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec("PRAGMA user_version = 2")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	var verr *SchemaVersionError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, verr.Found)
}

func TestOpen_StampsUnversionedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	var s Store
	assert.NoError(t, s.Close())
}

func TestFacts_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	got, err := s.LoadFacts(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	require.NoError(t, s.SaveFacts(ctx, "p1", map[string]int{"kills": 3, "score": -2}))
	require.NoError(t, s.SaveFacts(ctx, "p2", map[string]int{"kills": 9}))

	got, err = s.LoadFacts(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"kills": 3, "score": -2}, got)

	players, err := s.FactPlayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, players)
}

func TestFacts_SaveReplaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveFacts(ctx, "p1", map[string]int{"a": 1, "b": 2}))
	require.NoError(t, s.SaveFacts(ctx, "p1", map[string]int{"b": 5}))

	got, err := s.LoadFacts(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"b": 5}, got)

	require.NoError(t, s.SaveFacts(ctx, "p1", nil))
	got, err = s.LoadFacts(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecord_AndRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	acts := []ir.Activation{
		{Seq: 3, Player: "p2", EntryID: "greet", EntryName: "Greeting", Chain: "c2", Input: "start"},
		{Seq: 1, Player: "p1", EntryID: "greet", EntryName: "Greeting", Chain: "c1", Input: "start"},
		{Seq: 2, Player: "p1", EntryID: "hello", EntryName: "hello", Chain: "c1", Input: "start"},
		{Seq: 4, Player: "p1", EntryID: "bonus", EntryName: "bonus", Input: "actions"},
	}
	for _, a := range acts {
		require.NoError(t, s.Record(ctx, a))
	}

	all, err := s.ReadActivations(ctx, ActivationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, a := range all {
		assert.Equal(t, int64(i+1), a.Seq, "ordered by seq")
	}
	assert.Equal(t, acts[1], all[0])

	byPlayer, err := s.ReadActivations(ctx, ActivationFilter{Player: "p1"})
	require.NoError(t, err)
	assert.Len(t, byPlayer, 3)

	byChain, err := s.ReadActivations(ctx, ActivationFilter{Chain: "c1"})
	require.NoError(t, err)
	assert.Len(t, byChain, 2)

	page, err := s.ReadActivations(ctx, ActivationFilter{AfterSeq: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].Seq)
	assert.Equal(t, int64(3), page[1].Seq)

	none, err := s.ReadActivations(ctx, ActivationFilter{Player: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRecord_DuplicateSeqIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	act := ir.Activation{Seq: 1, Player: "p1", EntryID: "greet", EntryName: "greet", Input: "start"}
	require.NoError(t, s.Record(ctx, act))

	dup := act
	dup.EntryID = "other"
	require.NoError(t, s.Record(ctx, dup))

	all, err := s.ReadActivations(ctx, ActivationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "greet", all[0].EntryID)
}

func TestMaxSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, s.Record(ctx, ir.Activation{Seq: 7, Player: "p", EntryID: "e", EntryName: "e", Input: "tick"}))
	seq, err = s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}
