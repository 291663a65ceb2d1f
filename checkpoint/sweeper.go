package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/smallnest/checkpointgo/log"
)

type scope struct {
	threadID  string
	namespace string
}

// Sweeper invokes a retention policy out-of-band on a cron schedule, over
// the scopes it has been told to track. The execution engine registers
// scopes as it creates them; the sweeper never discovers scopes on its own.
type Sweeper struct {
	store  *Store
	policy RetentionPolicy
	logger log.Logger

	cron *cron.Cron

	mu     sync.Mutex
	scopes map[scope]struct{}
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the sweeper's logger.
func WithSweeperLogger(logger log.Logger) SweeperOption {
	return func(sw *Sweeper) { sw.logger = logger }
}

// NewSweeper creates a sweeper for store applying policy.
func NewSweeper(store *Store, policy RetentionPolicy, opts ...SweeperOption) *Sweeper {
	sw := &Sweeper{
		store:  store,
		policy: policy,
		logger: log.NopLogger{},
		cron:   cron.New(),
		scopes: make(map[scope]struct{}),
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// Track registers a (thread, namespace) scope for sweeping.
func (sw *Sweeper) Track(threadID, namespace string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.scopes[scope{threadID, namespace}] = struct{}{}
}

// Untrack removes a scope from the sweep set.
func (sw *Sweeper) Untrack(threadID, namespace string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	delete(sw.scopes, scope{threadID, namespace})
}

// Start schedules sweeps using a cron expression (e.g. "@every 10m" or
// "0 3 * * *") and starts the scheduler.
func (sw *Sweeper) Start(schedule string) error {
	if _, err := sw.cron.AddFunc(schedule, func() {
		sw.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	sw.cron.Start()
	sw.logger.Info("retention sweeper started with schedule %q", schedule)
	return nil
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (sw *Sweeper) Stop() {
	<-sw.cron.Stop().Done()
}

// Sweep runs one compaction pass over every tracked scope. Errors are
// logged, not returned: one failing scope must not stop the others.
func (sw *Sweeper) Sweep(ctx context.Context) {
	sw.mu.Lock()
	scopes := make([]scope, 0, len(sw.scopes))
	for sc := range sw.scopes {
		scopes = append(scopes, sc)
	}
	sw.mu.Unlock()

	for _, sc := range scopes {
		res, err := sw.store.Compact(ctx, sc.threadID, sc.namespace, sw.policy)
		if err != nil {
			sw.logger.Error("sweep of scope (%s, %s) failed: %v", sc.threadID, sc.namespace, err)
			continue
		}
		if res.CheckpointsDeleted > 0 || res.WritesDeleted > 0 {
			sw.logger.Debug("swept scope (%s, %s): %d checkpoints, %d writes",
				sc.threadID, sc.namespace, res.CheckpointsDeleted, res.WritesDeleted)
		}
	}
}
