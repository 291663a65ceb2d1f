package checkpoint

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderToken_Ordering(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	earlier := orderToken(base, 1)
	later := orderToken(base.Add(time.Nanosecond), 1)
	assert.Less(t, earlier, later)

	// Same instant: the counter breaks the tie.
	first := orderToken(base, 1)
	second := orderToken(base, 2)
	assert.Less(t, first, second)
}

func TestInvertToken_ReversesOrder(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tokens := []string{
		orderToken(base, 3),
		orderToken(base, 1),
		orderToken(base.Add(time.Second), 1),
		orderToken(base.Add(-time.Hour), 9),
	}

	inverted := make([]string, len(tokens))
	for i, tok := range tokens {
		inverted[i] = invertToken(tok)
		// Involution: double inversion restores the token.
		assert.Equal(t, tok, invertToken(inverted[i]))
	}

	sort.Strings(tokens)
	sort.Strings(inverted)
	for i := range tokens {
		assert.Equal(t, tokens[i], invertToken(inverted[len(inverted)-1-i]))
	}
}

func TestPrefixRange(t *testing.T) {
	t.Parallel()

	start, end := PrefixRange("abc")
	assert.Equal(t, "abc", start)
	assert.Equal(t, "abd", end)

	// Trailing 0xff bytes carry into the previous position.
	start, end = PrefixRange("a\xff")
	assert.Equal(t, "a\xff", start)
	assert.Equal(t, "b", end)

	// An all-0xff prefix has no upper bound.
	_, end = PrefixRange("\xff\xff")
	assert.Equal(t, "", end)
}

func TestWriteKey_SequenceOrdering(t *testing.T) {
	t.Parallel()

	// Zero-padded sequences keep lexicographic order numeric.
	k9 := writeKey("t", "", "cp", "task", 9)
	k10 := writeKey("t", "", "cp", "task", 10)
	assert.Less(t, k9, k10)

	seq, err := parseWriteSequence(k10)
	require.NoError(t, err)
	assert.Equal(t, 10, seq)

	_, err = parseWriteSequence("no-separator")
	assert.Error(t, err)
}

func TestKeyScopes_DoNotOverlap(t *testing.T) {
	t.Parallel()

	// A thread id that is a prefix of another must not share a key space.
	a := checkpointKey("T1", "", "c")
	b := checkpointKey("T10", "", "c")
	assert.NotEqual(t, a, b)

	prefix := orderPrefix("T1", "")
	assert.False(t, len(b) >= len(prefix) && b[:len(prefix)] == prefix)
}
