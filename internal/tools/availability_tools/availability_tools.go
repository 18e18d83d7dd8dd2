// Package availability_tools exposes the free/busy slot query.
package availability_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/availability"
	"github.com/calbridge/calbridge/internal/registry"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/storage"
	"github.com/calbridge/calbridge/internal/tier"
	"github.com/calbridge/calbridge/internal/tools/common"
	"github.com/calbridge/calbridge/internal/validate"
)

// RegisterAvailabilityTools registers calendar.get_availability on reg.
func RegisterAvailabilityTools(reg *registry.Registry, sc *server.ServerContext) error {
	tool := mcp.NewTool("calendar.get_availability",
		mcp.WithDescription("Compute free/busy slots across accounts for a time range"),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Range start, RFC 3339"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Range end, RFC 3339, exclusive; at most 7 days after start"),
		),
		mcp.WithString("granularity",
			mcp.Description("Slot width: 15m, 30m or 1h (default 30m)"),
		),
		mcp.WithArray("accounts",
			mcp.Description("Account ids to include; all accounts when omitted"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
	return reg.Register(registry.Definition{
		Tool:         tool,
		RequiredTier: tier.Free,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleGetAvailability(ctx, user, args, sc)
		},
	})
}

func handleGetAvailability(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateGetAvailabilityParams(args)
	if err != nil {
		return nil, err
	}

	startMs := params.Start.UnixMilli()
	endMs := params.End.UnixMilli()

	events, err := sc.Store().ListEvents(ctx, user.UserID, storage.EventFilter{
		AccountIDs: params.Accounts,
		StartTs:    startMs,
		EndTs:      endMs,
	})
	if err != nil {
		return nil, err
	}

	views := make([]availability.Event, 0, len(events))
	for _, ev := range events {
		views = append(views, availability.Event{
			StartTs:   ev.StartTs,
			EndTs:     ev.EndTs,
			Status:    ev.Status,
			AccountID: ev.AccountID,
		})
	}

	slots := availability.ComputeAvailabilitySlots(
		availability.GenerateTimeSlots(startMs, endMs, params.GranularityMs),
		views,
	)
	return common.JSONResult(map[string]any{
		"slots": slots,
		"count": len(slots),
	})
}
