// Package memory provides an in-process checkpoint backend. It is the
// reference implementation of the backend contract and the natural choice
// for tests and single-process runs; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/smallnest/checkpointgo/checkpoint"
)

// Backend keeps records in a sorted in-memory key space guarded by a
// read-write mutex. All operations are safe for concurrent use.
type Backend struct {
	mu     sync.RWMutex
	values map[string][]byte
	keys   []string // sorted
}

var _ checkpoint.Backend = (*Backend)(nil)

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{values: make(map[string][]byte)}
}

// PutIfAbsent implements checkpoint.Backend.
func (b *Backend) PutIfAbsent(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.values[key]; exists {
		return fmt.Errorf("key %q: %w", key, checkpoint.ErrConflict)
	}

	b.values[key] = append([]byte(nil), value...)
	i := sort.SearchStrings(b.keys, key)
	b.keys = append(b.keys, "")
	copy(b.keys[i+1:], b.keys[i:])
	b.keys[i] = key
	return nil
}

// Get implements checkpoint.Backend.
func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.values[key]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, checkpoint.ErrNotFound)
	}
	return append([]byte(nil), value...), nil
}

// Scan implements checkpoint.Backend.
func (b *Backend) Scan(_ context.Context, prefix, cursor string, limit int) ([]checkpoint.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := prefix
	if cursor >= prefix {
		start = cursor
	}
	i := sort.SearchStrings(b.keys, start)
	if i < len(b.keys) && b.keys[i] == cursor {
		i++
	}

	var entries []checkpoint.Entry
	for ; i < len(b.keys); i++ {
		key := b.keys[i]
		if !strings.HasPrefix(key, prefix) {
			break
		}
		entries = append(entries, checkpoint.Entry{
			Key:   key,
			Value: append([]byte(nil), b.values[key]...),
		})
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

// Delete implements checkpoint.Backend. Deleting a missing key is a no-op.
func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.values[key]; !ok {
		return nil
	}
	delete(b.values, key)
	i := sort.SearchStrings(b.keys, key)
	b.keys = append(b.keys[:i], b.keys[i+1:]...)
	return nil
}

// Close implements checkpoint.Backend.
func (b *Backend) Close() error {
	return nil
}

// Len reports the number of stored records. Useful in tests.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.keys)
}
