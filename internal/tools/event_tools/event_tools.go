// Package event_tools exposes event listing and the create, update and
// delete mutations. Mutations persist locally first, then notify the
// provider sync pipeline best-effort; a failed push is logged and never
// fails the call.
package event_tools

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/availability"
	"github.com/calbridge/calbridge/internal/logging"
	"github.com/calbridge/calbridge/internal/registry"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/storage"
	"github.com/calbridge/calbridge/internal/tier"
	"github.com/calbridge/calbridge/internal/tools/common"
	"github.com/calbridge/calbridge/internal/validate"
)

// now is stubbed in tests.
var now = time.Now

// SourceLocal marks events created through this server rather than
// pulled from a provider.
const SourceLocal = "local"

// RegisterEventTools registers the event tools on reg.
func RegisterEventTools(reg *registry.Registry, sc *server.ServerContext) error {
	listTool := mcp.NewTool("calendar.list_events",
		mcp.WithDescription("List events across linked accounts within a time range"),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Range start, RFC 3339"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Range end, RFC 3339, exclusive"),
		),
		mcp.WithString("account_id",
			mcp.Description("Limit to a single account"),
		),
		mcp.WithString("query",
			mcp.Description("Substring match on title and description"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of events to return"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         listTool,
		RequiredTier: tier.Free,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	createTool := mcp.NewTool("calendar.create_event",
		mcp.WithDescription("Create an event on a linked account"),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account to create the event on"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Event start, RFC 3339"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Event end, RFC 3339, exclusive"),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA timezone, defaults to UTC"),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         createTool,
		RequiredTier: tier.Premium,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	updateTool := mcp.NewTool("calendar.update_event",
		mcp.WithDescription("Patch an existing event; only supplied fields change"),
		mcp.WithString("event_id",
			mcp.Required(),
			mcp.Description("Event to update"),
		),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("start", mcp.Description("New start, RFC 3339")),
		mcp.WithString("end", mcp.Description("New end, RFC 3339")),
		mcp.WithString("timezone", mcp.Description("New IANA timezone")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("location", mcp.Description("New location")),
	)
	if err := reg.Register(registry.Definition{
		Tool:         updateTool,
		RequiredTier: tier.Premium,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleUpdateEvent(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	deleteTool := mcp.NewTool("calendar.delete_event",
		mcp.WithDescription("Delete an event"),
		mcp.WithString("event_id",
			mcp.Required(),
			mcp.Description("Event to delete"),
		),
	)
	return reg.Register(registry.Definition{
		Tool:         deleteTool,
		RequiredTier: tier.Premium,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleDeleteEvent(ctx, user, args, sc)
		},
	})
}

func handleListEvents(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateListEventsParams(args)
	if err != nil {
		return nil, err
	}

	filter := storage.EventFilter{
		StartTs: params.Start.UnixMilli(),
		EndTs:   params.End.UnixMilli(),
		Query:   params.Query,
		Limit:   params.Limit,
	}
	if params.AccountID != "" {
		filter.AccountIDs = []string{params.AccountID}
	}

	events, err := sc.Store().ListEvents(ctx, user.UserID, filter)
	if err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func handleCreateEvent(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateCreateEventParams(args)
	if err != nil {
		return nil, err
	}

	// Creating an event on an unknown account is a caller error, not an
	// internal one.
	if _, err := sc.Store().GetAccount(ctx, user.UserID, params.AccountID); err != nil {
		return nil, err
	}

	ts := now().UnixMilli()
	event := &storage.Event{
		EventID:     uuid.NewString(),
		UserID:      user.UserID,
		AccountID:   params.AccountID,
		Title:       params.Title,
		StartTs:     params.Start.UnixMilli(),
		EndTs:       params.End.UnixMilli(),
		Timezone:    params.Timezone,
		Description: params.Description,
		Location:    params.Location,
		Status:      availability.EventConfirmed,
		Source:      SourceLocal,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := sc.Store().CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	pushEvent(ctx, sc, event.AccountID, event.EventID)
	return common.JSONResult(map[string]any{"event": event})
}

func handleUpdateEvent(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateUpdateEventParams(args)
	if err != nil {
		return nil, err
	}

	event, err := sc.Store().GetEvent(ctx, user.UserID, params.EventID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		event.Title = *params.Title
	}
	if params.Start != nil {
		event.StartTs = params.Start.UnixMilli()
	}
	if params.End != nil {
		event.EndTs = params.End.UnixMilli()
	}
	if params.Timezone != nil {
		event.Timezone = *params.Timezone
	}
	if params.Description != nil {
		event.Description = *params.Description
	}
	if params.Location != nil {
		event.Location = *params.Location
	}
	if event.StartTs >= event.EndTs {
		return nil, &validate.InvalidParamsError{Message: "'start' must be before 'end'"}
	}
	event.UpdatedAt = now().UnixMilli()

	if err := sc.Store().UpdateEvent(ctx, event); err != nil {
		return nil, err
	}

	pushEvent(ctx, sc, event.AccountID, event.EventID)
	return common.JSONResult(map[string]any{"event": event})
}

func handleDeleteEvent(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateDeleteEventParams(args)
	if err != nil {
		return nil, err
	}

	event, err := sc.Store().GetEvent(ctx, user.UserID, params.EventID)
	if err != nil {
		return nil, err
	}
	if err := sc.Store().DeleteEvent(ctx, user.UserID, params.EventID); err != nil {
		return nil, err
	}

	if err := sc.Sync().PushDeletion(ctx, event.AccountID, event.EventID); err != nil {
		sc.Logger().Warn("sync push failed",
			logging.Account(event.AccountID),
			logging.Err(err),
		)
	}
	return common.JSONResult(map[string]any{
		"deleted":  true,
		"event_id": params.EventID,
	})
}

// pushEvent notifies the sync pipeline of a created or updated event.
func pushEvent(ctx context.Context, sc *server.ServerContext, accountID, eventID string) {
	if err := sc.Sync().PushEvent(ctx, accountID, eventID); err != nil {
		sc.Logger().Warn("sync push failed",
			logging.Account(accountID),
			logging.Err(err),
		)
	}
}
