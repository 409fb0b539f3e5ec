// Package protocol defines the live-search wire format.
// Frames are JSON-encoded text; an empty frame is a handshake or keepalive.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidState is returned when a reply's state is not a session id.
var ErrInvalidState = errors.New("invalid state")

// Query is sent from the client to the search service.
type Query struct {
	Search string `json:"search"`
	// State carries the originating session id, string-encoded.
	State string `json:"state"`
}

// Reply is sent from the search service back to the client.
type Reply struct {
	State   string   `json:"state"`
	Results []Result `json:"results"`
}

// EmptyFrame returns the payload used for the handshake and for keepalives.
func EmptyFrame() []byte {
	return []byte{}
}

// IsEmptyFrame reports whether data is a handshake/keepalive frame.
func IsEmptyFrame(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}

// FormatState encodes a session id as a state string.
func FormatState(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// Encode encodes the query into a text frame.
func (q *Query) Encode() ([]byte, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	return data, nil
}

// Decode decodes a text frame into the query.
func (q *Query) Decode(data []byte) error {
	if err := json.Unmarshal(data, q); err != nil {
		return fmt.Errorf("failed to decode query: %w", err)
	}
	return nil
}

// Encode encodes the reply into a text frame.
func (r *Reply) Encode() ([]byte, error) {
	out := *r
	if out.Results == nil {
		out.Results = []Result{}
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reply: %w", err)
	}
	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler.
// A result that cannot be decoded is skipped; the rest of the reply is kept.
func (r *Reply) UnmarshalJSON(data []byte) error {
	var raw struct {
		State   string            `json:"state"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	results := make([]Result, 0, len(raw.Results))
	for _, item := range raw.Results {
		var res Result
		if err := json.Unmarshal(item, &res); err != nil {
			continue
		}
		results = append(results, res)
	}

	r.State = raw.State
	r.Results = results
	return nil
}

// Decode decodes a text frame into the reply.
func (r *Reply) Decode(data []byte) error {
	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}
	return nil
}

// SessionID parses the state back into a session id.
func (r *Reply) SessionID() (uint64, error) {
	id, err := strconv.ParseUint(r.State, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidState, r.State)
	}
	return id, nil
}
