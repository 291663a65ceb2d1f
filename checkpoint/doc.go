// Package checkpoint implements a durable, resumable checkpoint store for
// long-running, multi-step computations such as workflow or agent graphs.
//
// A graph runner saves its full state at discrete points (checkpoints) and
// records the individual intermediate writes that occur between them, so an
// interrupted execution can resume from the last saved point, or any earlier
// one, possibly in a different process.
//
// # Core Concepts
//
// ## Threads and Namespaces
//
// A thread is one logical execution lineage; a namespace is a sub-scope
// within it (default: empty string) that lets nested or parallel sub-graphs
// checkpoint independently. The (thread, namespace) pair is the isolation
// unit: no ordering or uniqueness guarantee crosses namespaces.
//
// ## Checkpoint chains
//
// Checkpoints form a forest per scope. Each has at most one parent; multiple
// children of one parent represent alternate resumption paths (retries,
// forks); a thread may accumulate multiple roots, for example after a manual
// reset. The backend is the arena and checkpoint ids are the indexes:
// traversal is key lookup, not pointer chasing.
//
// ## Intermediate writes
//
// Between two checkpoints, concurrent tasks record channel writes through
// Append. Sequence numbers per (checkpoint, task) are assigned atomically
// and are gap-free across successful appends. WritesFor returns them ordered
// by (task_id, sequence) for deterministic replay; applying them on top of a
// checkpoint's payload ("fold") is the execution engine's job.
//
// # Basic Usage
//
//	backend := memory.New()
//	store := checkpoint.New(backend)
//
//	cp, err := store.Commit(ctx, checkpoint.CommitRequest{
//		ThreadID:     "order-7",
//		CheckpointID: checkpoint.NewCheckpointID(),
//		Payload:      state,
//	})
//
//	latest, err := store.Latest(ctx, "order-7", "")
//	chain, err := store.Ancestors(ctx, "order-7", "", latest.CheckpointID)
//
// # Backends
//
// The store is written against the narrow Backend interface only. This
// module ships four implementations:
//   - memory: in-process, for tests and single-process runs
//   - sqlite: embedded file database (mattn/go-sqlite3)
//   - postgres: pgx/v5 connection pool
//   - redis: go-redis/v9 with a lexicographic key index
//
// # Consistency
//
// Backend.PutIfAbsent is the only primitive requiring true atomicity; it is
// what turns duplicate-checkpoint-id races into a deterministic ErrConflict
// for exactly one loser. The store holds no cache: every read hits the
// backend, so there is no client-side staleness window beyond the backend's
// own read consistency. The store never retries on ErrBackendUnavailable;
// retry policy belongs to the caller, preserving at-most-once commits.
//
// # Retention
//
// Compact applies a RetentionPolicy (KeepLatest, MaxAge, or your own) and
// refuses to delete any checkpoint that is still an ancestor of a retained
// one. Sweeper runs Compact on a cron schedule over registered scopes.
package checkpoint
