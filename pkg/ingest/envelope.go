package ingest

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Record is the tagged payload of one event. Producers attach plenty of
// transport fields we never look at; keeping it a map lets us pick the
// ones we need and ignore the rest.
type Record map[string]interface{}

// Envelope mirrors the producer's message shape: everything of interest
// sits under payload.data.
type Envelope struct {
	Payload struct {
		Data Record `msgpack:"data" json:"data"`
	} `msgpack:"payload" json:"payload"`
}

func decodeBatch(payload []byte) ([]Envelope, error) {
	var batch []Envelope
	if err := msgpack.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode event batch: %w", err)
	}
	return batch, nil
}

// str extracts a required string field from a record.
func (r Record) str(key string) (string, error) {
	v, ok := r[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, nil
}

// num extracts a required numeric field. Msgpack encoders pick the
// narrowest integer type that fits, so accept them all.
func (r Record) num(key string) (float64, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("field %q: expected number, got %T", key, v)
	}
}

func (r Record) integer(key string) (int64, error) {
	n, err := r.num(key)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
