package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parlaygen/internal/provider"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	set := provider.SampleSet()
	require.NoError(t, s.Save(ctx, set, "openai", "Bills at Chiefs"))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, set.ID, got.ID)
	assert.Equal(t, "openai", got.Backend)
	assert.Equal(t, "Bills at Chiefs", got.Event)
	assert.False(t, got.CreatedAt.IsZero())
	if diff := cmp.Diff(set, got.Set); diff != "" {
		t.Errorf("stored set mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_SameIDReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	set := provider.SampleSet()
	require.NoError(t, s.Save(ctx, set, "openai", "Bills at Chiefs"))
	require.NoError(t, s.Save(ctx, set, "anthropic", "Bills at Chiefs"))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "anthropic", entries[0].Backend)
}

func TestRecent_NewestFirstAndLimited(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(ctx, provider.SampleSet(), "mock", "game"))
	}

	entries, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	seen := map[string]bool{}
	for _, e := range entries {
		seen[e.ID] = true
	}
	assert.Len(t, seen, 3, "limit returns distinct entries")
}

func TestRecent_LimitClamped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, provider.SampleSet(), "mock", "game"))

	entries, err := s.Recent(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = s.Recent(ctx, 100000)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecent_Empty(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
