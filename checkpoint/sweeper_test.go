package checkpoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/checkpointgo/checkpoint"
)

func TestSweeper_SweepTrackedScopes(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()

	// Two disjoint dead branches in tracked scopes, one in an untracked one.
	for _, thread := range []string{"T1", "T2", "T3"} {
		mustCommit(t, store, thread, "", "old", "", 0)
		mustCommit(t, store, thread, "", "new", "", 1)
	}

	sweeper := checkpoint.NewSweeper(store, checkpoint.KeepLatest(1))
	sweeper.Track("T1", "")
	sweeper.Track("T2", "")

	sweeper.Sweep(ctx)

	for _, thread := range []string{"T1", "T2"} {
		history, err := store.History(ctx, thread, "", checkpoint.HistoryOptions{})
		require.NoError(t, err)
		assert.Len(t, history, 1, "thread %s", thread)
	}

	// Untracked scope untouched.
	history, err := store.History(ctx, "T3", "", checkpoint.HistoryOptions{})
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSweeper_Untrack(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()

	mustCommit(t, store, "T1", "", "old", "", 0)
	mustCommit(t, store, "T1", "", "new", "", 1)

	sweeper := checkpoint.NewSweeper(store, checkpoint.KeepLatest(1))
	sweeper.Track("T1", "")
	sweeper.Untrack("T1", "")

	sweeper.Sweep(ctx)

	history, err := store.History(ctx, "T1", "", checkpoint.HistoryOptions{})
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	sweeper := checkpoint.NewSweeper(newTestStore(), checkpoint.KeepLatest(1))
	assert.Error(t, sweeper.Start("not a cron expression"))
}

func TestSweeper_StartStop(t *testing.T) {
	t.Parallel()

	sweeper := checkpoint.NewSweeper(newTestStore(), checkpoint.KeepLatest(1))
	require.NoError(t, sweeper.Start("@every 1h"))
	sweeper.Stop()
}
