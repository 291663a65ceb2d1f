package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/checkpointgo/log"
	"github.com/smallnest/checkpointgo/observability"
)

// Store is the checkpoint chain manager and write log. It owns the
// parent/child checkpoint graph per (thread, namespace) scope and the
// append-only buffer of intermediate writes, delegating durable I/O to a
// Backend through a Codec.
//
// A Store holds no cache of chain state: every read goes to the backend, so
// concurrent writers never observe a stale in-memory mirror. It is safe for
// use by any number of goroutines.
type Store struct {
	backend Backend
	codec   Codec
	clock   Clock
	strict  bool
	logger  log.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// Option configures a Store.
type Option func(*Store)

// WithCodec replaces the default JSON codec.
func WithCodec(codec Codec) Option {
	return func(s *Store) { s.codec = codec }
}

// WithClock replaces the default system clock. Mainly useful in tests.
func WithClock(clock Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithStrictParents makes Commit fail with ErrDanglingParent when the
// referenced parent is absent, and Ancestors fail with ErrBrokenChain when a
// parent link is missing. The default is lax: dangling references are
// tolerated so retention can prune history freely.
func WithStrictParents() Option {
	return func(s *Store) { s.strict = true }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics sets the metrics recorder. The default is a no-op.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(s *Store) { s.metrics = metrics }
}

// WithSpanManager sets the trace span manager. The default is a no-op.
func WithSpanManager(spans observability.SpanManager) Option {
	return func(s *Store) { s.spans = spans }
}

// New creates a Store on top of backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		codec:   NewJSONCodec(),
		clock:   &systemClock{},
		logger:  log.NopLogger{},
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Commit durably stores a new checkpoint. It fails with ErrConflict if the
// (thread, namespace, checkpoint_id) key already exists, and with
// ErrDanglingParent in strict mode if the parent is absent. On success the
// full record is visible; on failure the chain is exactly as it was before
// the call.
//
// Branching is first-class: committing a second child under the same parent
// never fails. Only exact key collisions are rejected.
func (s *Store) Commit(ctx context.Context, req CommitRequest) (cp *Checkpoint, err error) {
	ctx, span := s.spans.StartCommitSpan(ctx, req.ThreadID, req.Namespace, req.CheckpointID)
	defer func() { s.spans.EndSpanWithError(span, err) }()

	if req.ThreadID == "" || req.CheckpointID == "" {
		return nil, fmt.Errorf("commit requires thread id and checkpoint id")
	}

	if s.strict && req.ParentCheckpointID != "" {
		_, perr := s.Get(ctx, req.ThreadID, req.Namespace, req.ParentCheckpointID)
		if perr != nil {
			if errors.Is(perr, ErrNotFound) {
				return nil, fmt.Errorf("parent %q: %w", req.ParentCheckpointID, ErrDanglingParent)
			}
			return nil, perr
		}
	}

	payload, err := s.codec.Encode(req.Payload)
	if err != nil {
		return nil, err
	}

	ts, counter := s.clock.Now()
	token := orderToken(ts, counter)

	rec := checkpointRecord{
		CheckpointID:       req.CheckpointID,
		ParentCheckpointID: req.ParentCheckpointID,
		Kind:               req.Kind,
		Payload:            payload,
		Metadata:           req.Metadata,
		CreatedAt:          ts,
		OrderToken:         token,
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}

	// The record put is the commit point: its compare-and-insert decides
	// conflicts. The index entry carries a unique token and cannot collide.
	key := checkpointKey(req.ThreadID, req.Namespace, req.CheckpointID)
	if err = s.backend.PutIfAbsent(ctx, key, data); err != nil {
		s.metrics.RecordCommit(ctx, int64(len(payload)), err)
		if errors.Is(err, ErrConflict) {
			s.logger.Debug("commit conflict on %s/%s/%s", req.ThreadID, req.Namespace, req.CheckpointID)
			return nil, fmt.Errorf("checkpoint %q already exists in scope (%q, %q): %w",
				req.CheckpointID, req.ThreadID, req.Namespace, ErrConflict)
		}
		return nil, fmt.Errorf("store checkpoint: %w", err)
	}

	if err = s.backend.PutIfAbsent(ctx, orderIndexKey(req.ThreadID, req.Namespace, token), []byte(req.CheckpointID)); err != nil && !errors.Is(err, ErrConflict) {
		return nil, fmt.Errorf("store checkpoint index: %w", err)
	}
	err = nil

	s.metrics.RecordCommit(ctx, int64(len(payload)), nil)

	return &Checkpoint{
		ThreadID:           req.ThreadID,
		Namespace:          req.Namespace,
		CheckpointID:       req.CheckpointID,
		ParentCheckpointID: req.ParentCheckpointID,
		Kind:               req.Kind,
		Payload:            req.Payload,
		Metadata:           req.Metadata,
		CreatedAt:          ts,
		orderToken:         token,
	}, nil
}

// Get returns the checkpoint stored under (threadID, namespace,
// checkpointID), or ErrNotFound.
func (s *Store) Get(ctx context.Context, threadID, namespace, checkpointID string) (*Checkpoint, error) {
	data, err := s.backend.Get(ctx, checkpointKey(threadID, namespace, checkpointID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("checkpoint %q in scope (%q, %q): %w", checkpointID, threadID, namespace, ErrNotFound)
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return s.decodeCheckpoint(threadID, namespace, data)
}

// Latest returns the checkpoint with the greatest (created_at, counter)
// across all branches of the scope, or ErrNotFound if the scope is empty.
// This is the most recent resumable point.
func (s *Store) Latest(ctx context.Context, threadID, namespace string) (*Checkpoint, error) {
	prefix := orderPrefix(threadID, namespace)
	cursor := ""
	for {
		entries, err := s.backend.Scan(ctx, prefix, cursor, 16)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint index: %w", err)
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("scope (%q, %q): %w", threadID, namespace, ErrNotFound)
		}
		for _, e := range entries {
			cp, err := s.Get(ctx, threadID, namespace, string(e.Value))
			if err == nil {
				return cp, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			// Index entry survived a pruned record; skip it.
		}
		cursor = entries[len(entries)-1].Key
	}
}

// History returns checkpoints of the scope newest-first. opts.Before is an
// exclusive cursor for pagination; opts.Limit caps the result. A fresh call
// with no cursor re-enumerates from the newest.
func (s *Store) History(ctx context.Context, threadID, namespace string, opts HistoryOptions) ([]*Checkpoint, error) {
	cursor := ""
	if opts.Before != "" {
		before, err := s.Get(ctx, threadID, namespace, opts.Before)
		if err != nil {
			return nil, err
		}
		cursor = orderIndexKey(threadID, namespace, before.orderToken)
	}

	prefix := orderPrefix(threadID, namespace)
	var result []*Checkpoint
	for {
		batch := 64
		if opts.Limit > 0 && opts.Limit-len(result) < batch {
			batch = opts.Limit - len(result)
		}
		if batch <= 0 {
			return result, nil
		}
		entries, err := s.backend.Scan(ctx, prefix, cursor, batch)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint index: %w", err)
		}
		if len(entries) == 0 {
			return result, nil
		}
		for _, e := range entries {
			cp, err := s.Get(ctx, threadID, namespace, string(e.Value))
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return nil, err
			}
			result = append(result, cp)
			if opts.Limit > 0 && len(result) >= opts.Limit {
				return result, nil
			}
		}
		cursor = entries[len(entries)-1].Key
	}
}

// Ancestors walks parent links from the given checkpoint to its root and
// returns the chain starting with the checkpoint itself. In strict mode a
// missing parent yields ErrBrokenChain; in lax mode the walk stops silently
// at the first gap.
func (s *Store) Ancestors(ctx context.Context, threadID, namespace, checkpointID string) ([]*Checkpoint, error) {
	cp, err := s.Get(ctx, threadID, namespace, checkpointID)
	if err != nil {
		return nil, err
	}

	chain := []*Checkpoint{cp}
	seen := map[string]bool{cp.CheckpointID: true}
	for cp.ParentCheckpointID != "" {
		parent, err := s.Get(ctx, threadID, namespace, cp.ParentCheckpointID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				if s.strict {
					return nil, fmt.Errorf("parent %q of %q: %w", cp.ParentCheckpointID, cp.CheckpointID, ErrBrokenChain)
				}
				return chain, nil
			}
			return nil, err
		}
		if seen[parent.CheckpointID] {
			// Corrupted parent links; stop rather than loop forever.
			s.logger.Warn("parent cycle at %s in scope (%s, %s)", parent.CheckpointID, threadID, namespace)
			return chain, nil
		}
		seen[parent.CheckpointID] = true
		chain = append(chain, parent)
		cp = parent
	}
	return chain, nil
}

// Append records an intermediate write against a checkpoint, assigning the
// next sequence number for the (checkpoint, task) pair atomically. Sequence
// assignment and the durability check are one compare-and-insert step, so
// successful appends are gap-free and no two concurrent appends for the same
// task share a sequence.
func (s *Store) Append(ctx context.Context, req AppendRequest) (w *Write, err error) {
	ctx, span := s.spans.StartAppendSpan(ctx, req.ThreadID, req.Namespace, req.CheckpointID, req.TaskID)
	defer func() { s.spans.EndSpanWithError(span, err) }()

	if req.ThreadID == "" || req.CheckpointID == "" || req.TaskID == "" {
		return nil, fmt.Errorf("append requires thread id, checkpoint id and task id")
	}

	value, err := s.codec.Encode(req.Value)
	if err != nil {
		return nil, err
	}

	for {
		seq, err := s.nextSequence(ctx, req.ThreadID, req.Namespace, req.CheckpointID, req.TaskID)
		if err != nil {
			return nil, err
		}

		ts, _ := s.clock.Now()
		rec := writeRecord{
			TaskID:    req.TaskID,
			Sequence:  seq,
			Channel:   req.Channel,
			Kind:      req.Kind,
			Value:     value,
			CreatedAt: ts,
		}
		data, err := encodeRecord(rec)
		if err != nil {
			return nil, err
		}

		key := writeKey(req.ThreadID, req.Namespace, req.CheckpointID, req.TaskID, seq)
		err = s.backend.PutIfAbsent(ctx, key, data)
		if errors.Is(err, ErrConflict) {
			// A concurrent append won this sequence; take the next one.
			continue
		}
		s.metrics.RecordAppend(ctx, int64(len(value)), err)
		if err != nil {
			return nil, fmt.Errorf("store write: %w", err)
		}

		return &Write{
			ThreadID:     req.ThreadID,
			Namespace:    req.Namespace,
			CheckpointID: req.CheckpointID,
			TaskID:       req.TaskID,
			Sequence:     seq,
			Channel:      req.Channel,
			Kind:         req.Kind,
			Value:        req.Value,
			CreatedAt:    ts,
		}, nil
	}
}

// WritesFor returns all writes pending against a checkpoint, ordered by
// (task_id, sequence) for deterministic replay.
func (s *Store) WritesFor(ctx context.Context, threadID, namespace, checkpointID string) ([]*Write, error) {
	entries, err := s.scanAll(ctx, writesPrefix(threadID, namespace, checkpointID))
	if err != nil {
		return nil, fmt.Errorf("scan writes: %w", err)
	}

	writes := make([]*Write, 0, len(entries))
	for _, e := range entries {
		var rec writeRecord
		if err := decodeRecord(e.Value, &rec); err != nil {
			return nil, err
		}
		value, err := s.codec.Decode(rec.Value)
		if err != nil {
			return nil, err
		}
		writes = append(writes, &Write{
			ThreadID:     threadID,
			Namespace:    namespace,
			CheckpointID: checkpointID,
			TaskID:       rec.TaskID,
			Sequence:     rec.Sequence,
			Channel:      rec.Channel,
			Kind:         rec.Kind,
			Value:        value,
			CreatedAt:    rec.CreatedAt,
		})
	}
	return writes, nil
}

// DeleteThread removes every checkpoint, index entry and write the thread
// owns, across all namespaces.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	for _, prefix := range threadPrefixes(threadID) {
		entries, err := s.scanAll(ctx, prefix)
		if err != nil {
			return fmt.Errorf("scan thread records: %w", err)
		}
		for _, e := range entries {
			if err := s.backend.Delete(ctx, e.Key); err != nil {
				return fmt.Errorf("delete thread record: %w", err)
			}
		}
	}
	s.logger.Info("deleted thread %s", threadID)
	return nil
}

// nextSequence returns the smallest unused sequence for (checkpoint, task).
// The caller must still win the compare-and-insert on the resulting key.
func (s *Store) nextSequence(ctx context.Context, threadID, namespace, checkpointID, taskID string) (int, error) {
	entries, err := s.scanAll(ctx, taskWritesPrefix(threadID, namespace, checkpointID, taskID))
	if err != nil {
		return 0, fmt.Errorf("scan task writes: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}
	last, err := parseWriteSequence(entries[len(entries)-1].Key)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func (s *Store) scanAll(ctx context.Context, prefix string) ([]Entry, error) {
	var all []Entry
	cursor := ""
	for {
		entries, err := s.backend.Scan(ctx, prefix, cursor, 256)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
		if len(entries) < 256 {
			return all, nil
		}
		cursor = entries[len(entries)-1].Key
	}
}

func (s *Store) decodeCheckpoint(threadID, namespace string, data []byte) (*Checkpoint, error) {
	var rec checkpointRecord
	if err := decodeRecord(data, &rec); err != nil {
		return nil, err
	}
	payload, err := s.codec.Decode(rec.Payload)
	if err != nil {
		return nil, err
	}
	return &Checkpoint{
		ThreadID:           threadID,
		Namespace:          namespace,
		CheckpointID:       rec.CheckpointID,
		ParentCheckpointID: rec.ParentCheckpointID,
		Kind:               rec.Kind,
		Payload:            payload,
		Metadata:           rec.Metadata,
		CreatedAt:          rec.CreatedAt,
		orderToken:         rec.OrderToken,
	}, nil
}
