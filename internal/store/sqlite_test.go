package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string  `json:"name"`
	Spend float64 `json:"spend"`
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_PutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "sessions", "s1", doc{Name: "alpha", Spend: 1.25}))

	var got doc
	require.NoError(t, s.Get(ctx, "sessions", "s1", &got))
	assert.Equal(t, doc{Name: "alpha", Spend: 1.25}, got)
}

func TestSQLite_GetMissingKey(t *testing.T) {
	s := openTestStore(t)

	var got doc
	err := s.Get(context.Background(), "sessions", "nope", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_PutOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "sessions", "s1", doc{Spend: 1}))
	require.NoError(t, s.Put(ctx, "sessions", "s1", doc{Spend: 2}))

	var got doc
	require.NoError(t, s.Get(ctx, "sessions", "s1", &got))
	assert.Equal(t, 2.0, got.Spend)
}

func TestSQLite_CollectionsAreSeparate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "sessions", "k", doc{Spend: 1}))
	require.NoError(t, s.Put(ctx, "scorecards", "k", doc{Spend: 2}))

	var got doc
	require.NoError(t, s.Get(ctx, "sessions", "k", &got))
	assert.Equal(t, 1.0, got.Spend)
	require.NoError(t, s.Get(ctx, "scorecards", "k", &got))
	assert.Equal(t, 2.0, got.Spend)
}

func TestSQLite_List(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "scorecards", "a1", doc{Name: "one"}))
	require.NoError(t, s.Put(ctx, "scorecards", "a2", doc{Name: "two"}))
	require.NoError(t, s.Put(ctx, "sessions", "s1", doc{Name: "other"}))

	var keys []string
	err := s.List(ctx, "scorecards", func(key string, raw []byte) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, keys)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "sessions", "s1", doc{Name: "alpha"}))
	require.NoError(t, s.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()

	var got doc
	require.NoError(t, s2.Get(ctx, "sessions", "s1", &got))
	assert.Equal(t, "alpha", got.Name)
}

func TestNopStore(t *testing.T) {
	var s Store = NopStore{}
	ctx := context.Background()

	assert.NoError(t, s.Put(ctx, "c", "k", doc{}))
	var got doc
	assert.ErrorIs(t, s.Get(ctx, "c", "k", &got), ErrNotFound)
	assert.NoError(t, s.Close())
}
