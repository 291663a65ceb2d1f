package checkpoint

import (
	"fmt"

	"github.com/google/uuid"
)

// NewCheckpointID generates a fresh checkpoint id. Callers are free to use
// their own ids; uniqueness is only required per (thread, namespace).
func NewCheckpointID() string {
	return fmt.Sprintf("ckpt_%s", uuid.New().String())
}

// NewTaskID generates a fresh id for a concurrent unit of work.
func NewTaskID() string {
	return fmt.Sprintf("task_%s", uuid.New().String())
}
