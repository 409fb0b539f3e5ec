package protocol

import (
	"encoding/json"
	"fmt"
)

// Result is one search hit. Only ID and IsSuggestion are interpreted;
// every other field is carried through untouched for the renderer.
type Result struct {
	ID           uint64
	IsSuggestion bool
	Fields       map[string]json.RawMessage
}

const (
	fieldID           = "id"
	fieldIsSuggestion = "is_suggestion"
)

// Text returns a string field, or "" if it is absent or not a string.
func (r Result) Text(key string) string {
	raw, ok := r.Fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Bool returns a boolean field, or false if it is absent or not a boolean.
func (r Result) Bool(key string) bool {
	raw, ok := r.Fields[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	id, err := json.Marshal(r.ID)
	if err != nil {
		return nil, err
	}
	sug, err := json.Marshal(r.IsSuggestion)
	if err != nil {
		return nil, err
	}
	out[fieldID] = id
	out[fieldIsSuggestion] = sug
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}

	var res Result
	if raw, ok := fields[fieldID]; ok {
		if err := json.Unmarshal(raw, &res.ID); err != nil {
			return fmt.Errorf("failed to decode result id: %w", err)
		}
		delete(fields, fieldID)
	}
	if raw, ok := fields[fieldIsSuggestion]; ok {
		if err := json.Unmarshal(raw, &res.IsSuggestion); err != nil {
			return fmt.Errorf("failed to decode result is_suggestion: %w", err)
		}
		delete(fields, fieldIsSuggestion)
	}
	res.Fields = fields

	*r = res
	return nil
}
