package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"
)

// checkpointRecord is the stored form of a checkpoint. The payload is the
// codec's opaque output; everything else is the record envelope, marshaled
// with plain JSON so any backend can hold it as a single value.
type checkpointRecord struct {
	CheckpointID       string         `json:"checkpoint_id"`
	ParentCheckpointID string         `json:"parent_checkpoint_id,omitempty"`
	Kind               string         `json:"kind,omitempty"`
	Payload            []byte         `json:"payload"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	OrderToken         string         `json:"order_token"`
}

type writeRecord struct {
	TaskID    string    `json:"task_id"`
	Sequence  int       `json:"sequence"`
	Channel   string    `json:"channel"`
	Kind      string    `json:"kind,omitempty"`
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

func encodeRecord(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode record: %v", ErrCodec, err)
	}
	return data, nil
}

func decodeRecord(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode record: %v", ErrCodec, err)
	}
	return nil
}
