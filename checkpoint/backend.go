package checkpoint

import "context"

// Entry is a single key/value pair returned by Backend.Scan.
type Entry struct {
	Key   string
	Value []byte
}

// Backend is the narrow capability interface a durable medium must provide.
// The store core is written against this interface only; relational,
// embedded and distributed key-value implementations are interchangeable.
//
// PutIfAbsent is the sole operation that must be truly atomic
// (compare-and-insert): it turns duplicate-key races into a deterministic
// ErrConflict for exactly one loser. Get, Scan and Delete need only be
// atomic at the single-record level.
type Backend interface {
	// PutIfAbsent stores value under key if and only if the key does not
	// exist. Returns ErrConflict if it does.
	PutIfAbsent(ctx context.Context, key string, value []byte) error

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Scan returns entries whose keys start with prefix, in ascending key
	// order. If cursor is non-empty only keys strictly greater than cursor
	// are returned. Limit caps the result; zero or negative means no limit.
	Scan(ctx context.Context, prefix, cursor string, limit int) ([]Entry, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// PrefixRange returns the half-open key range [start, end) covering every
// key that begins with prefix. An empty end means the range is unbounded
// above. Backends use it to translate prefix scans into range queries.
func PrefixRange(prefix string) (start, end string) {
	start = prefix
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return start, string(b[:i+1])
		}
	}
	return start, ""
}
