package registry

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/tier"
)

func noopHandler(context.Context, *auth.UserContext, map[string]any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Definition{
		Tool:         mcp.NewTool("calendar.list_accounts", mcp.WithDescription("List linked accounts")),
		RequiredTier: tier.Free,
		Handler:      noopHandler,
	}))

	def, ok := r.Get("calendar.list_accounts")
	require.True(t, ok)
	assert.Equal(t, tier.Free, def.RequiredTier)

	_, ok = r.Get("calendar.nope")
	assert.False(t, ok)
}

func TestRegisterRejectsDuplicatesAndInvalid(t *testing.T) {
	r := New()
	def := Definition{
		Tool:         mcp.NewTool("calendar.list_events"),
		RequiredTier: tier.Free,
		Handler:      noopHandler,
	}
	require.NoError(t, r.Register(def))
	assert.Error(t, r.Register(def))

	assert.Error(t, r.Register(Definition{Tool: mcp.NewTool(""), Handler: noopHandler}))
	assert.Error(t, r.Register(Definition{Tool: mcp.NewTool("calendar.no_handler")}))
}

func TestToolsPreservesRegistrationOrder(t *testing.T) {
	r := New()
	names := []string{"calendar.b_tool", "calendar.a_tool", "calendar.c_tool"}
	for _, name := range names {
		require.NoError(t, r.Register(Definition{
			Tool:         mcp.NewTool(name),
			RequiredTier: tier.Free,
			Handler:      noopHandler,
		}))
	}

	tools := r.Tools()
	require.Len(t, tools, 3)
	for i, tool := range tools {
		assert.Equal(t, names[i], tool.Name)
	}
	assert.Equal(t, names, r.Names())
	assert.Equal(t, 3, r.Len())
}
