package checkpoint

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// PayloadRegistry maps payload struct types to stable names so that encoded
// payloads round-trip to their concrete Go type on decode, possibly in a
// different process. Unregistered values still encode, but decode to the
// generic JSON representation (map[string]any, []any, float64, ...).
type PayloadRegistry struct {
	mu           sync.RWMutex
	nameToType   map[string]reflect.Type
	typeToName   map[reflect.Type]string
	marshalers   map[reflect.Type]func(any) ([]byte, error)
	unmarshalers map[reflect.Type]func([]byte) (any, error)
}

// NewPayloadRegistry returns an empty registry.
func NewPayloadRegistry() *PayloadRegistry {
	return &PayloadRegistry{
		nameToType:   make(map[string]reflect.Type),
		typeToName:   make(map[reflect.Type]string),
		marshalers:   make(map[reflect.Type]func(any) ([]byte, error)),
		unmarshalers: make(map[reflect.Type]func([]byte) (any, error)),
	}
}

var defaultRegistry = NewPayloadRegistry()

// DefaultPayloadRegistry returns the process-wide registry used by
// NewJSONCodec when no explicit registry is given.
func DefaultPayloadRegistry() *PayloadRegistry {
	return defaultRegistry
}

// RegisterPayload registers the type of value under name in the default
// registry.
//
//	var state OrderState
//	checkpoint.RegisterPayload(state, "OrderState")
func RegisterPayload(value any, name string) error {
	return defaultRegistry.Register(value, name)
}

// Register registers the type of value under name. Only structs and pointers
// to structs may be registered; registering the same type under a different
// name is an error.
func (r *PayloadRegistry) Register(value any, name string) error {
	t := reflect.TypeOf(value)
	if t == nil {
		return fmt.Errorf("cannot register nil payload type")
	}
	kind := t.Kind()
	if kind == reflect.Ptr {
		kind = t.Elem().Kind()
	}
	if kind != reflect.Struct {
		return fmt.Errorf("payload type %s must be a struct or pointer to struct", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.typeToName[t]; ok && existing != name {
		return fmt.Errorf("payload type %s already registered as %s", t, existing)
	}
	r.nameToType[name] = t
	r.typeToName[t] = name
	return nil
}

// RegisterWithSerialization registers a type along with custom marshal and
// unmarshal functions, for payloads whose JSON form is not the default one.
func (r *PayloadRegistry) RegisterWithSerialization(
	value any,
	name string,
	marshal func(any) ([]byte, error),
	unmarshal func([]byte) (any, error),
) error {
	if err := r.Register(value, name); err != nil {
		return err
	}
	t := reflect.TypeOf(value)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.marshalers[t] = marshal
	r.unmarshalers[t] = unmarshal
	return nil
}

func (r *PayloadRegistry) lookupName(t reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.typeToName[t]
	return name, ok
}

func (r *PayloadRegistry) lookupType(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.nameToType[name]
	return t, ok
}

// payloadEnvelope wraps an encoded payload with its registered type name.
type payloadEnvelope struct {
	Type  string          `json:"_type,omitempty"`
	Value json.RawMessage `json:"_value"`
}

// Marshal encodes value to JSON, tagging it with its registered type name
// when one exists.
func (r *PayloadRegistry) Marshal(value any) ([]byte, error) {
	if value == nil {
		return json.Marshal(payloadEnvelope{Value: json.RawMessage("null")})
	}

	t := reflect.TypeOf(value)
	name, registered := r.lookupName(t)

	r.mu.RLock()
	marshal, custom := r.marshalers[t]
	r.mu.RUnlock()

	var (
		raw []byte
		err error
	)
	if custom {
		raw, err = marshal(value)
	} else {
		raw, err = json.Marshal(value)
	}
	if err != nil {
		return nil, err
	}

	env := payloadEnvelope{Value: raw}
	if registered {
		env.Type = name
	}
	return json.Marshal(env)
}

// Unmarshal decodes data produced by Marshal. Payloads tagged with a
// registered type name decode to a new instance of that type; untagged
// payloads decode to the generic JSON representation.
func (r *PayloadRegistry) Unmarshal(data []byte) (any, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	if env.Type == "" {
		var value any
		if err := json.Unmarshal(env.Value, &value); err != nil {
			return nil, err
		}
		return value, nil
	}

	t, ok := r.lookupType(env.Type)
	if !ok {
		return nil, fmt.Errorf("unknown payload type %q", env.Type)
	}

	r.mu.RLock()
	unmarshal, custom := r.unmarshalers[t]
	r.mu.RUnlock()
	if custom {
		return unmarshal(env.Value)
	}

	base := t
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	instance := reflect.New(base)
	if err := json.Unmarshal(env.Value, instance.Interface()); err != nil {
		return nil, fmt.Errorf("decode payload as %s: %w", env.Type, err)
	}
	if t.Kind() == reflect.Ptr {
		return instance.Interface(), nil
	}
	return instance.Elem().Interface(), nil
}
