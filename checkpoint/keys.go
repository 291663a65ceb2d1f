package checkpoint

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Composite keys use the ASCII unit separator, which cannot appear in
// well-formed thread, namespace, checkpoint or task identifiers.
const keySep = "\x1f"

const (
	kindCheckpoint = "c"
	kindOrderIndex = "o"
	kindWrite      = "w"
)

func checkpointKey(threadID, namespace, checkpointID string) string {
	return strings.Join([]string{kindCheckpoint, threadID, namespace, checkpointID}, keySep)
}

func orderPrefix(threadID, namespace string) string {
	return strings.Join([]string{kindOrderIndex, threadID, namespace}, keySep) + keySep
}

// orderIndexKey places a checkpoint in the scope's ordering index. The
// token is inverted digit-wise so that an ascending key scan yields
// checkpoints newest-first.
func orderIndexKey(threadID, namespace, orderToken string) string {
	return orderPrefix(threadID, namespace) + invertToken(orderToken)
}

func writesPrefix(threadID, namespace, checkpointID string) string {
	return strings.Join([]string{kindWrite, threadID, namespace, checkpointID}, keySep) + keySep
}

func taskWritesPrefix(threadID, namespace, checkpointID, taskID string) string {
	return strings.Join([]string{kindWrite, threadID, namespace, checkpointID, taskID}, keySep) + keySep
}

func writeKey(threadID, namespace, checkpointID, taskID string, sequence int) string {
	return taskWritesPrefix(threadID, namespace, checkpointID, taskID) + fmt.Sprintf("%010d", sequence)
}

// threadPrefixes returns the key prefixes covering every record a thread
// owns, across all its namespaces.
func threadPrefixes(threadID string) []string {
	return []string{
		kindCheckpoint + keySep + threadID + keySep,
		kindOrderIndex + keySep + threadID + keySep,
		kindWrite + keySep + threadID + keySep,
	}
}

// orderToken encodes a commit timestamp and its tie-breaking counter as a
// fixed-width string whose lexicographic order matches (created_at, counter)
// order. Wall clocks are not assumed strictly increasing under concurrent
// commits; the counter disambiguates collisions.
func orderToken(ts time.Time, counter uint64) string {
	return fmt.Sprintf("%020d.%010d", ts.UnixNano(), counter)
}

// invertToken maps each digit d to 9-d, reversing lexicographic order while
// keeping the fixed width. Applying it twice restores the original token.
func invertToken(token string) string {
	b := []byte(token)
	for i, c := range b {
		if c >= '0' && c <= '9' {
			b[i] = '9' - (c - '0')
		}
	}
	return string(b)
}

func parseWriteSequence(key string) (int, error) {
	i := strings.LastIndex(key, keySep)
	if i < 0 {
		return 0, fmt.Errorf("malformed write key %q", key)
	}
	seq, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed write key %q: %w", key, err)
	}
	return seq, nil
}
