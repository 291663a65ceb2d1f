package checkpoint

import (
	"time"
)

// Checkpoint is an immutable snapshot of execution state within a
// (thread, namespace) scope. Checkpoints form a forest: each has at most one
// parent, several checkpoints may share a parent (branching), and a thread
// may accumulate multiple roots over its lifetime.
type Checkpoint struct {
	ThreadID           string         `json:"thread_id"`
	Namespace          string         `json:"namespace"`
	CheckpointID       string         `json:"checkpoint_id"`
	ParentCheckpointID string         `json:"parent_checkpoint_id,omitempty"`
	Kind               string         `json:"kind,omitempty"`
	Payload            any            `json:"payload"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`

	// orderToken is the (created_at, counter) ordering token assigned at
	// commit time. It disambiguates checkpoints whose wall clocks collide.
	orderToken string
}

// Write is a single intermediate state mutation recorded against a checkpoint
// before the next checkpoint folds it in. Writes are append-only and never
// mutated after storage.
type Write struct {
	ThreadID     string    `json:"thread_id"`
	Namespace    string    `json:"namespace"`
	CheckpointID string    `json:"checkpoint_id"`
	TaskID       string    `json:"task_id"`
	Sequence     int       `json:"sequence"`
	Channel      string    `json:"channel"`
	Kind         string    `json:"kind,omitempty"`
	Value        any       `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
}

// CommitRequest describes a new checkpoint to store.
type CommitRequest struct {
	ThreadID           string
	Namespace          string
	CheckpointID       string
	ParentCheckpointID string
	Kind               string
	Payload            any
	Metadata           map[string]any
}

// AppendRequest describes a new intermediate write to record against a
// checkpoint. The sequence number is assigned by the store.
type AppendRequest struct {
	ThreadID     string
	Namespace    string
	CheckpointID string
	TaskID       string
	Channel      string
	Kind         string
	Value        any
}

// HistoryOptions bounds a History call.
type HistoryOptions struct {
	// Before is an exclusive cursor: only checkpoints committed strictly
	// before the named checkpoint are returned. Empty starts at the newest.
	Before string

	// Limit caps the number of checkpoints returned. Zero or negative means
	// no limit.
	Limit int
}
