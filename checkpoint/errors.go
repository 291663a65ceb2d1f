package checkpoint

import "errors"

var (
	// ErrConflict is returned when a commit or backend put collides with an
	// existing record under the same key. Exactly one of two racing commits
	// with the same (thread, namespace, checkpoint_id) receives this error.
	ErrConflict = errors.New("checkpoint: conflict")

	// ErrNotFound is returned when a checkpoint or key does not exist.
	ErrNotFound = errors.New("checkpoint: not found")

	// ErrDanglingParent is returned by Commit in strict mode when the
	// referenced parent checkpoint does not exist in the same scope.
	ErrDanglingParent = errors.New("checkpoint: dangling parent")

	// ErrBrokenChain is returned by Ancestors in strict mode when a parent
	// link references a checkpoint that is missing (e.g. after lossy
	// pruning). In lax mode the walk stops silently instead.
	ErrBrokenChain = errors.New("checkpoint: broken chain")

	// ErrBackendUnavailable wraps transient storage failures. Callers may
	// retry with backoff; the store itself never retries so that a commit
	// happens at most once.
	ErrBackendUnavailable = errors.New("checkpoint: backend unavailable")

	// ErrCodec wraps payload encode/decode failures. Fatal for the affected
	// record only; unrelated records remain readable.
	ErrCodec = errors.New("checkpoint: codec error")
)
