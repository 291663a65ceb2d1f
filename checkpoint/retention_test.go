package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/checkpointgo/checkpoint"
	"github.com/smallnest/checkpointgo/checkpoint/memory"
)

func TestCompact_PreservesAncestorsOfRetained(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()

	// A linear chain: every older checkpoint is an ancestor of the newest,
	// so KeepLatest(1) may delete nothing.
	mustCommit(t, store, "T1", "", "c1", "", 0)
	mustCommit(t, store, "T1", "", "c2", "c1", 1)
	mustCommit(t, store, "T1", "", "c3", "c2", 2)

	res, err := store.Compact(ctx, "T1", "", checkpoint.KeepLatest(1))
	require.NoError(t, err)
	assert.Equal(t, 0, res.CheckpointsDeleted)

	chain, err := store.Ancestors(ctx, "T1", "", "c3")
	require.NoError(t, err)
	assert.Len(t, chain, 3)
}

func TestCompact_RemovesUnreachableBranch(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()

	// Two roots; the older one is a dead branch with a pending write.
	mustCommit(t, store, "T1", "", "old-root", "", 0)
	mustCommit(t, store, "T1", "", "old-tip", "old-root", 1)
	_, err := store.Append(ctx, checkpoint.AppendRequest{
		ThreadID: "T1", CheckpointID: "old-tip", TaskID: "a", Channel: "x", Value: 1,
	})
	require.NoError(t, err)

	mustCommit(t, store, "T1", "", "new-root", "", 0)
	mustCommit(t, store, "T1", "", "new-tip", "new-root", 1)

	res, err := store.Compact(ctx, "T1", "", checkpoint.KeepLatest(2))
	require.NoError(t, err)
	assert.Equal(t, 2, res.CheckpointsDeleted)
	assert.Equal(t, 1, res.WritesDeleted)

	// The dead branch is gone, physically.
	_, err = store.Get(ctx, "T1", "", "old-root")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	_, err = store.Get(ctx, "T1", "", "old-tip")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	writes, err := store.WritesFor(ctx, "T1", "", "old-tip")
	require.NoError(t, err)
	assert.Empty(t, writes)

	// The retained branch still resolves end to end.
	chain, err := store.Ancestors(ctx, "T1", "", "new-tip")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "new-tip", chain[0].CheckpointID)
	assert.Equal(t, "new-root", chain[1].CheckpointID)

	history, err := store.History(ctx, "T1", "", checkpoint.HistoryOptions{})
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCompact_SharedAncestorSurvives(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()

	// root is old, but both branch tips descend from it.
	mustCommit(t, store, "T1", "", "root", "", 0)
	mustCommit(t, store, "T1", "", "branch-a", "root", 1)
	mustCommit(t, store, "T1", "", "branch-b", "root", 1)

	res, err := store.Compact(ctx, "T1", "", checkpoint.KeepLatest(2))
	require.NoError(t, err)
	assert.Equal(t, 0, res.CheckpointsDeleted)

	for _, tip := range []string{"branch-a", "branch-b"} {
		chain, err := store.Ancestors(ctx, "T1", "", tip)
		require.NoError(t, err)
		assert.Len(t, chain, 2)
	}
}

func TestCompact_EmptyScope(t *testing.T) {
	t.Parallel()

	store := newTestStore()

	res, err := store.Compact(context.Background(), "none", "", checkpoint.KeepLatest(1))
	require.NoError(t, err)
	assert.Zero(t, res.CheckpointsDeleted)
	assert.Zero(t, res.WritesDeleted)
}

func TestKeepLatest_Obsolete(t *testing.T) {
	t.Parallel()

	history := []*checkpoint.Checkpoint{
		{CheckpointID: "c3"},
		{CheckpointID: "c2"},
		{CheckpointID: "c1"},
	}

	assert.Nil(t, checkpoint.KeepLatest(3).Obsolete(history))
	assert.Nil(t, checkpoint.KeepLatest(5).Obsolete(history))
	assert.Equal(t, []string{"c2", "c1"}, checkpoint.KeepLatest(1).Obsolete(history))
}

func TestMaxAge_Obsolete(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	history := []*checkpoint.Checkpoint{
		{CheckpointID: "fresh", CreatedAt: now},
		{CheckpointID: "stale", CreatedAt: now.Add(-48 * time.Hour)},
	}

	ids := checkpoint.MaxAge(24 * time.Hour).Obsolete(history)
	assert.Equal(t, []string{"stale"}, ids)
}

func TestCompact_MaxAgeKeepsReachableHistory(t *testing.T) {
	t.Parallel()

	backend := memory.New()
	clock := &stepClock{now: time.Now().UTC().Add(-72 * time.Hour)}
	store := checkpoint.New(backend, checkpoint.WithClock(clock))
	ctx := context.Background()

	// An old root whose only descendant is recent.
	mustCommit(t, store, "T1", "", "old", "", 0)
	clock.now = time.Now().UTC()
	mustCommit(t, store, "T1", "", "recent", "old", 1)

	res, err := store.Compact(ctx, "T1", "", checkpoint.MaxAge(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, res.CheckpointsDeleted)

	chain, err := store.Ancestors(ctx, "T1", "", "recent")
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}

// stepClock hands out whatever time the test sets, with a real counter.
type stepClock struct {
	now     time.Time
	counter uint64
}

func (c *stepClock) Now() (time.Time, uint64) {
	c.counter++
	return c.now, c.counter
}
