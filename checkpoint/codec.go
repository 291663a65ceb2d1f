package checkpoint

import (
	"fmt"
)

// Codec serializes checkpoint payloads and write values to the opaque byte
// form stored by the backend. The store never interprets payload contents.
type Codec interface {
	Encode(value any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// JSONCodec encodes payloads as JSON through a PayloadRegistry, so that
// registered struct types survive a round trip across processes.
type JSONCodec struct {
	registry *PayloadRegistry
}

// NewJSONCodec returns a JSONCodec backed by the default payload registry.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{registry: DefaultPayloadRegistry()}
}

// NewJSONCodecWithRegistry returns a JSONCodec backed by an explicit
// registry, for callers that avoid process-global state.
func NewJSONCodecWithRegistry(registry *PayloadRegistry) *JSONCodec {
	return &JSONCodec{registry: registry}
}

// Encode implements Codec.
func (c *JSONCodec) Encode(value any) ([]byte, error) {
	data, err := c.registry.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", ErrCodec, err)
	}
	return data, nil
}

// Decode implements Codec.
func (c *JSONCodec) Decode(data []byte) (any, error) {
	value, err := c.registry.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrCodec, err)
	}
	return value, nil
}
