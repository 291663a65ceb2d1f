package checkpoint

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestPayloadRegistry_RoundTrip(t *testing.T) {
	t.Parallel()

	r := NewPayloadRegistry()
	require.NoError(t, r.Register(testState{}, "testState"))

	data, err := r.Marshal(testState{Name: "x", Count: 2})
	require.NoError(t, err)

	value, err := r.Unmarshal(data)
	require.NoError(t, err)

	state, ok := value.(testState)
	require.True(t, ok, "decoded as %T", value)
	assert.Equal(t, testState{Name: "x", Count: 2}, state)
}

func TestPayloadRegistry_PointerType(t *testing.T) {
	t.Parallel()

	r := NewPayloadRegistry()
	require.NoError(t, r.Register(&testState{}, "testStatePtr"))

	data, err := r.Marshal(&testState{Name: "p", Count: 1})
	require.NoError(t, err)

	value, err := r.Unmarshal(data)
	require.NoError(t, err)

	state, ok := value.(*testState)
	require.True(t, ok, "decoded as %T", value)
	assert.Equal(t, "p", state.Name)
}

func TestPayloadRegistry_UnregisteredValue(t *testing.T) {
	t.Parallel()

	r := NewPayloadRegistry()

	data, err := r.Marshal(map[string]any{"k": 1})
	require.NoError(t, err)

	value, err := r.Unmarshal(data)
	require.NoError(t, err)

	m, ok := value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), m["k"])
}

func TestPayloadRegistry_NilPayload(t *testing.T) {
	t.Parallel()

	r := NewPayloadRegistry()

	data, err := r.Marshal(nil)
	require.NoError(t, err)

	value, err := r.Unmarshal(data)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestPayloadRegistry_RejectsNonStruct(t *testing.T) {
	t.Parallel()

	r := NewPayloadRegistry()
	assert.Error(t, r.Register(42, "int"))
	assert.Error(t, r.Register("s", "string"))
	assert.Error(t, r.Register(nil, "nil"))
}

func TestPayloadRegistry_ConflictingName(t *testing.T) {
	t.Parallel()

	r := NewPayloadRegistry()
	require.NoError(t, r.Register(testState{}, "one"))
	assert.Error(t, r.Register(testState{}, "two"))
	// Re-registering under the same name is fine.
	assert.NoError(t, r.Register(testState{}, "one"))
}

func TestPayloadRegistry_UnknownTypeTag(t *testing.T) {
	t.Parallel()

	r := NewPayloadRegistry()
	data, err := json.Marshal(payloadEnvelope{Type: "ghost", Value: json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, err = r.Unmarshal(data)
	assert.ErrorContains(t, err, "unknown payload type")
}

func TestPayloadRegistry_CustomSerialization(t *testing.T) {
	t.Parallel()

	type secret struct {
		Value string
	}

	r := NewPayloadRegistry()
	err := r.RegisterWithSerialization(secret{}, "secret",
		func(v any) ([]byte, error) {
			s := v.(secret)
			return json.Marshal("wrapped:" + s.Value)
		},
		func(data []byte) (any, error) {
			var s string
			if err := json.Unmarshal(data, &s); err != nil {
				return nil, err
			}
			return secret{Value: s[len("wrapped:"):]}, nil
		},
	)
	require.NoError(t, err)

	data, err := r.Marshal(secret{Value: "v"})
	require.NoError(t, err)

	value, err := r.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, secret{Value: "v"}, value)
}

func TestJSONCodec_WrapsCodecError(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodecWithRegistry(NewPayloadRegistry())

	_, err := codec.Encode(func() {}) // functions do not marshal
	assert.ErrorIs(t, err, ErrCodec)

	_, err = codec.Decode([]byte("{not json"))
	assert.ErrorIs(t, err, ErrCodec)
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	r := NewPayloadRegistry()
	require.NoError(t, r.Register(testState{}, "codecState"))
	codec := NewJSONCodecWithRegistry(r)

	for i := 0; i < 3; i++ {
		in := testState{Name: fmt.Sprintf("n%d", i), Count: i}
		data, err := codec.Encode(in)
		require.NoError(t, err)
		out, err := codec.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}
