package protocol_test

import (
	"errors"
	"testing"

	"github.com/omochice/live-search/pkg/protocol"
)

func TestQuery_Encode(t *testing.T) {
	tests := []struct {
		name  string
		query protocol.Query
		want  string
	}{
		{
			name:  "encode search with session state",
			query: protocol.Query{Search: "umfazi", State: "1"},
			want:  `{"search":"umfazi","state":"1"}`,
		},
		{
			name:  "encode empty search",
			query: protocol.Query{Search: "", State: "12"},
			want:  `{"search":"","state":"12"}`,
		},
		{
			name:  "encode non-ascii search",
			query: protocol.Query{Search: "ukúhamba", State: "3"},
			want:  `{"search":"ukúhamba","state":"3"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.query.Encode()
			if err != nil {
				t.Fatalf("Query.Encode() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Query.Encode() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestQuery_Decode(t *testing.T) {
	var q protocol.Query
	if err := q.Decode([]byte(`{"search":"umf","state":"7"}`)); err != nil {
		t.Fatalf("Query.Decode() error = %v", err)
	}
	if q.Search != "umf" || q.State != "7" {
		t.Errorf("Query.Decode() = %+v", q)
	}

	if err := q.Decode([]byte("umf")); err == nil {
		t.Error("Query.Decode() expected error for raw text")
	}
}

func TestReply_Decode(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantState   string
		wantResults int
		wantErr     bool
	}{
		{
			name:        "empty results",
			data:        `{"state":"1","results":[]}`,
			wantState:   "1",
			wantResults: 0,
		},
		{
			name:        "results with opaque fields",
			data:        `{"state":"2","results":[{"id":5,"is_suggestion":false,"english":"woman","xhosa":"umfazi"},{"id":6,"is_suggestion":true}]}`,
			wantState:   "2",
			wantResults: 2,
		},
		{
			name:    "bare results array",
			data:    `[{"id":5}]`,
			wantErr: true,
		},
		{
			name:    "not json",
			data:    `hello`,
			wantErr: true,
		},
		{
			name:        "result is not an object",
			data:        `{"state":"1","results":[5]}`,
			wantState:   "1",
			wantResults: 0,
		},
		{
			name:        "skip result with malformed id",
			data:        `{"state":"3","results":[{"id":1,"english":"man"},{"id":"x","english":"bad"},{"id":2.5},{"id":4,"english":"dog"}]}`,
			wantState:   "3",
			wantResults: 2,
		},
		{
			name:    "results is not an array",
			data:    `{"state":"1","results":{"id":1}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r protocol.Reply
			err := r.Decode([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Reply.Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if r.State != tt.wantState {
				t.Errorf("State = %q, want %q", r.State, tt.wantState)
			}
			if len(r.Results) != tt.wantResults {
				t.Errorf("len(Results) = %d, want %d", len(r.Results), tt.wantResults)
			}
		})
	}
}

func TestReply_DecodeKeepsGoodResults(t *testing.T) {
	var r protocol.Reply
	if err := r.Decode([]byte(`{"state":"3","results":[{"id":1},{"id":"x"},{"id":4,"is_suggestion":true}]}`)); err != nil {
		t.Fatalf("Reply.Decode() error = %v", err)
	}
	if len(r.Results) != 2 || r.Results[0].ID != 1 || r.Results[1].ID != 4 || !r.Results[1].IsSuggestion {
		t.Errorf("Reply.Decode() results = %+v", r.Results)
	}
}

func TestReply_EncodeNilResults(t *testing.T) {
	r := protocol.Reply{State: "4"}
	data, err := r.Encode()
	if err != nil {
		t.Fatalf("Reply.Encode() error = %v", err)
	}
	if string(data) != `{"state":"4","results":[]}` {
		t.Errorf("Reply.Encode() = %s", data)
	}
}

func TestReply_SessionID(t *testing.T) {
	tests := []struct {
		state   string
		want    uint64
		wantErr bool
	}{
		{state: "1", want: 1},
		{state: "42", want: 42},
		{state: "0", wantErr: true},
		{state: "", wantErr: true},
		{state: "-3", wantErr: true},
		{state: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			r := protocol.Reply{State: tt.state}
			got, err := r.SessionID()
			if (err != nil) != tt.wantErr {
				t.Fatalf("SessionID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, protocol.ErrInvalidState) {
				t.Errorf("SessionID() error = %v, want ErrInvalidState", err)
			}
			if got != tt.want {
				t.Errorf("SessionID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatState(t *testing.T) {
	if got := protocol.FormatState(17); got != "17" {
		t.Errorf("FormatState(17) = %q", got)
	}
}

func TestIsEmptyFrame(t *testing.T) {
	if !protocol.IsEmptyFrame(protocol.EmptyFrame()) {
		t.Error("EmptyFrame() should be an empty frame")
	}
	if !protocol.IsEmptyFrame([]byte(" \n")) {
		t.Error("whitespace should be an empty frame")
	}
	if protocol.IsEmptyFrame([]byte(`{}`)) {
		t.Error("{} is not an empty frame")
	}
}
