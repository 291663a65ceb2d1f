package checkpoint

import (
	"sync/atomic"
	"time"
)

// Clock supplies commit timestamps together with a monotonic counter used to
// break ties between commits that land on the same wall-clock instant.
type Clock interface {
	Now() (time.Time, uint64)
}

// systemClock is the default Clock: UTC wall time plus a process-wide
// atomic counter.
type systemClock struct {
	counter atomic.Uint64
}

func (c *systemClock) Now() (time.Time, uint64) {
	return time.Now().UTC(), c.counter.Add(1)
}
