package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "valid request",
			body: `{"jsonrpc":"2.0","method":"tools/list","id":1}`,
			want: true,
		},
		{
			name: "missing jsonrpc",
			body: `{"method":"tools/list","id":1}`,
			want: false,
		},
		{
			name: "wrong version",
			body: `{"jsonrpc":"1.0","method":"tools/list","id":1}`,
			want: false,
		},
		{
			name: "numeric jsonrpc",
			body: `{"jsonrpc":2.0,"method":"tools/list","id":1}`,
			want: false,
		},
		{
			name: "numeric method",
			body: `{"jsonrpc":"2.0","method":42,"id":1}`,
			want: false,
		},
		{
			name: "missing method",
			body: `{"jsonrpc":"2.0","id":1}`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, req.Valid())
		})
	}
}

func TestResponseIDEcho(t *testing.T) {
	tests := []struct {
		name   string
		id     json.RawMessage
		wantID string
	}{
		{name: "numeric id", id: json.RawMessage(`7`), wantID: `"id":7`},
		{name: "string id", id: json.RawMessage(`"abc"`), wantID: `"id":"abc"`},
		{name: "explicit null id", id: json.RawMessage(`null`), wantID: `"id":null`},
		{name: "absent id marshals as null", id: nil, wantID: `"id":null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(NewError(tt.id, CodeParseError, "Parse error"))
			require.NoError(t, err)
			assert.Contains(t, string(out), tt.wantID)
		})
	}
}

func TestResponseExclusivity(t *testing.T) {
	success, err := json.Marshal(NewResult(json.RawMessage(`1`), map[string]any{"ok": true}))
	require.NoError(t, err)
	assert.NotContains(t, string(success), `"error"`)

	failure, err := json.Marshal(NewError(json.RawMessage(`1`), CodeMethodNotFound, "Method not found"))
	require.NoError(t, err)
	assert.NotContains(t, string(failure), `"result"`)
	assert.Contains(t, string(failure), `"code":-32601`)
}

func TestErrorWithData(t *testing.T) {
	resp := NewErrorWithData(json.RawMessage(`3`), CodeInternalError, "Insufficient subscription tier", map[string]any{
		"code":          "TIER_REQUIRED",
		"required_tier": "premium",
	})
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"TIER_REQUIRED"`)
	assert.Contains(t, string(out), `"required_tier":"premium"`)
}
