// Package common holds helpers shared by the tool packages.
package common

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// JSONResult marshals v and wraps it as a text tool result, the wire
// shape every tool here returns.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// DecodeResult unmarshals a JSONResult back into v. Test helper shared
// by the tool package tests.
func DecodeResult(result *mcp.CallToolResult, v any) error {
	if len(result.Content) == 0 {
		return fmt.Errorf("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return fmt.Errorf("tool result is not text content")
	}
	return json.Unmarshal([]byte(text.Text), v)
}
