package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
)

// decodeJSON keeps numbers as json.Number so ids and amounts survive untouched.
func decodeJSON(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeList accepts the shapes the backend uses for list payloads: a bare
// array, an object holding the array under listKey, or an object with a
// single array field.
func decodeList(raw json.RawMessage, listKey string) ([]map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []map[string]any{}, nil
	}
	v, err := decodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode list payload: %w", err)
	}

	switch t := v.(type) {
	case nil:
		return []map[string]any{}, nil
	case []any:
		return objects(t), nil
	case map[string]any:
		if arr, ok := t[listKey].([]any); ok {
			return objects(arr), nil
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if arr, ok := t[k].([]any); ok {
				return objects(arr), nil
			}
		}
		return []map[string]any{}, nil
	default:
		return nil, fmt.Errorf("decode list payload: unexpected %T", v)
	}
}

func objects(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// decodeRecord extracts the saved record from a create/update payload. It
// returns nil when the backend sends no usable record.
func decodeRecord(sec *domain.Section, raw json.RawMessage) *domain.Record {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	v, err := decodeJSON(raw)
	if err != nil {
		return nil
	}

	var obj map[string]any
	switch t := v.(type) {
	case map[string]any:
		if inner, ok := t[sec.RecordKey].(map[string]any); ok {
			obj = inner
		} else if _, ok := t["id"]; ok {
			obj = t
		}
	case []any:
		if len(t) == 1 {
			obj, _ = t[0].(map[string]any)
		}
	}
	if obj == nil {
		return nil
	}
	rec := sec.RecordFromMap(obj)
	return &rec
}

// DecodeRecords turns a list payload into section records. A full envelope
// ({status, message, payload}) is unwrapped first, so saved backend responses
// can be fed in as they are.
func DecodeRecords(sec *domain.Section, raw []byte) ([]domain.Record, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Status != nil {
		if *env.Status != 1 {
			return nil, &domain.ErrApplication{Status: *env.Status, Message: env.Message}
		}
		raw = env.Payload
	}

	items, err := decodeList(raw, sec.ListKey)
	if err != nil {
		return nil, err
	}
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		records = append(records, sec.RecordFromMap(item))
	}
	return records, nil
}
