package checkpoint

import (
	"context"
	"fmt"
	"time"
)

// RetentionPolicy decides which checkpoints of a scope are candidates for
// physical deletion. Compact applies a reachability check on top: a
// candidate that is an ancestor of a retained checkpoint is never deleted,
// so Ancestors on retained history keeps working after compaction.
type RetentionPolicy interface {
	// Obsolete returns the checkpoint ids eligible for deletion, given the
	// scope's full history newest-first.
	Obsolete(history []*Checkpoint) []string
}

// KeepLatest retains the n most recent checkpoints and marks everything
// older as eligible.
func KeepLatest(n int) RetentionPolicy {
	return keepLatest(n)
}

type keepLatest int

func (k keepLatest) Obsolete(history []*Checkpoint) []string {
	if len(history) <= int(k) {
		return nil
	}
	ids := make([]string, 0, len(history)-int(k))
	for _, cp := range history[k:] {
		ids = append(ids, cp.CheckpointID)
	}
	return ids
}

// MaxAge marks checkpoints older than the retention window as eligible.
func MaxAge(window time.Duration) RetentionPolicy {
	return maxAge(window)
}

type maxAge time.Duration

func (m maxAge) Obsolete(history []*Checkpoint) []string {
	horizon := time.Now().UTC().Add(-time.Duration(m))
	var ids []string
	for _, cp := range history {
		if cp.CreatedAt.Before(horizon) {
			ids = append(ids, cp.CheckpointID)
		}
	}
	return ids
}

// CompactResult reports what a compaction pass removed.
type CompactResult struct {
	CheckpointsDeleted int
	WritesDeleted      int
}

// Compact physically deletes the checkpoints the policy marks obsolete,
// except those still reachable from a retained checkpoint via parent links.
// The pending writes of a deleted checkpoint are deleted with it.
func (s *Store) Compact(ctx context.Context, threadID, namespace string, policy RetentionPolicy) (res CompactResult, err error) {
	ctx, span := s.spans.StartCompactionSpan(ctx, threadID, namespace)
	defer func() { s.spans.EndSpanWithError(span, err) }()

	history, err := s.History(ctx, threadID, namespace, HistoryOptions{})
	if err != nil {
		return CompactResult{}, err
	}
	if len(history) == 0 {
		return CompactResult{}, nil
	}

	candidates := make(map[string]bool)
	for _, id := range policy.Obsolete(history) {
		candidates[id] = true
	}
	if len(candidates) == 0 {
		return CompactResult{}, nil
	}

	byID := make(map[string]*Checkpoint, len(history))
	for _, cp := range history {
		byID[cp.CheckpointID] = cp
	}

	// Reachability: walk parent links from every retained checkpoint and
	// unmark whatever the walk touches.
	for _, cp := range history {
		if candidates[cp.CheckpointID] {
			continue
		}
		for parent := cp.ParentCheckpointID; parent != ""; {
			delete(candidates, parent)
			next, ok := byID[parent]
			if !ok {
				break
			}
			parent = next.ParentCheckpointID
		}
	}

	for _, cp := range history {
		if !candidates[cp.CheckpointID] {
			continue
		}
		deleted, derr := s.deleteCheckpoint(ctx, cp)
		if derr != nil {
			err = derr
			return res, err
		}
		res.CheckpointsDeleted++
		res.WritesDeleted += deleted
	}

	s.metrics.RecordCompaction(ctx, int64(res.CheckpointsDeleted), int64(res.WritesDeleted))
	if res.CheckpointsDeleted > 0 {
		s.logger.Info("compacted scope (%s, %s): %d checkpoints, %d writes",
			threadID, namespace, res.CheckpointsDeleted, res.WritesDeleted)
	}
	return res, nil
}

// deleteCheckpoint removes a checkpoint's writes, index entry and record, in
// that order, so a partially applied deletion never orphans a live record.
func (s *Store) deleteCheckpoint(ctx context.Context, cp *Checkpoint) (writesDeleted int, err error) {
	entries, err := s.scanAll(ctx, writesPrefix(cp.ThreadID, cp.Namespace, cp.CheckpointID))
	if err != nil {
		return 0, fmt.Errorf("scan writes for deletion: %w", err)
	}
	for _, e := range entries {
		if err := s.backend.Delete(ctx, e.Key); err != nil {
			return writesDeleted, fmt.Errorf("delete write: %w", err)
		}
		writesDeleted++
	}

	if err := s.backend.Delete(ctx, orderIndexKey(cp.ThreadID, cp.Namespace, cp.orderToken)); err != nil {
		return writesDeleted, fmt.Errorf("delete checkpoint index: %w", err)
	}
	if err := s.backend.Delete(ctx, checkpointKey(cp.ThreadID, cp.Namespace, cp.CheckpointID)); err != nil {
		return writesDeleted, fmt.Errorf("delete checkpoint: %w", err)
	}
	return writesDeleted, nil
}
