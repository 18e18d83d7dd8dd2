// Package policy_tools exposes the directed sharing-policy graph
// between linked accounts.
package policy_tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/registry"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/storage"
	"github.com/calbridge/calbridge/internal/tier"
	"github.com/calbridge/calbridge/internal/tools/common"
	"github.com/calbridge/calbridge/internal/validate"
)

// now is stubbed in tests.
var now = time.Now

// RegisterPolicyTools registers the policy tools on reg.
func RegisterPolicyTools(reg *registry.Registry, sc *server.ServerContext) error {
	listTool := mcp.NewTool("calendar.list_policies",
		mcp.WithDescription("List sharing-policy edges, optionally touching one account"),
		mcp.WithString("account_id",
			mcp.Description("Only edges where this account is an endpoint"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         listTool,
		RequiredTier: tier.Free,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleListPolicies(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	getTool := mcp.NewTool("calendar.get_policy_edge",
		mcp.WithDescription("Get the sharing policy for one directed account pair"),
		mcp.WithString("from_account",
			mcp.Required(),
			mcp.Description("Source account"),
		),
		mcp.WithString("to_account",
			mcp.Required(),
			mcp.Description("Destination account"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         getTool,
		RequiredTier: tier.Free,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleGetPolicyEdge(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	setTool := mcp.NewTool("calendar.set_policy_edge",
		mcp.WithDescription("Create or replace the sharing policy for a directed account pair"),
		mcp.WithString("from_account",
			mcp.Required(),
			mcp.Description("Source account"),
		),
		mcp.WithString("to_account",
			mcp.Required(),
			mcp.Description("Destination account, must differ from the source"),
		),
		mcp.WithString("detail_level",
			mcp.Required(),
			mcp.Description("How much event detail crosses the edge: full, title_only or busy_only"),
		),
		mcp.WithString("calendar_kind",
			mcp.Description("Calendar the edge applies to: primary, work or personal (default primary)"),
		),
		mcp.WithString("block_policy",
			mcp.Description("How mirrored blocks render: BUSY, FREE or OOO (default BUSY)"),
		),
	)
	return reg.Register(registry.Definition{
		Tool:         setTool,
		RequiredTier: tier.Premium,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleSetPolicyEdge(ctx, user, args, sc)
		},
	})
}

func handleListPolicies(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateListPoliciesParams(args)
	if err != nil {
		return nil, err
	}

	edges, err := sc.Store().ListPolicyEdges(ctx, user.UserID, params.AccountID)
	if err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{
		"policies": edges,
		"count":    len(edges),
	})
}

func handleGetPolicyEdge(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateGetPolicyEdgeParams(args)
	if err != nil {
		return nil, err
	}

	edge, err := sc.Store().GetPolicyEdge(ctx, user.UserID, params.FromAccount, params.ToAccount)
	if err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{"policy": edge})
}

func handleSetPolicyEdge(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateSetPolicyEdgeParams(args)
	if err != nil {
		return nil, err
	}

	// Both endpoints must be linked accounts of the caller.
	for _, accountID := range []string{params.FromAccount, params.ToAccount} {
		if _, err := sc.Store().GetAccount(ctx, user.UserID, accountID); err != nil {
			return nil, err
		}
	}

	edge := &storage.PolicyEdge{
		UserID:       user.UserID,
		FromAccount:  params.FromAccount,
		ToAccount:    params.ToAccount,
		DetailLevel:  params.DetailLevel,
		CalendarKind: params.CalendarKind,
		BlockPolicy:  params.BlockPolicy,
		UpdatedAt:    now().UnixMilli(),
	}
	if err := sc.Store().SetPolicyEdge(ctx, edge); err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{"policy": edge})
}
