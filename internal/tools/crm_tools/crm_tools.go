// Package crm_tools exposes relationship cadence tracking: adding
// contacts, reporting drift against their cadence, recording outcomes
// and suggesting reconnection slots.
package crm_tools

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
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

// now is stubbed in tests.
var now = time.Now

const dayMs = 24 * 60 * 60 * 1000

// driftEntry is one row of the drift report.
type driftEntry struct {
	Relationship storage.Relationship `json:"relationship"`
	DaysSince    int                  `json:"days_since_interaction"`
	DriftDays    int                  `json:"drift_days"`
}

// suggestion pairs a drifted relationship with a free slot.
type suggestion struct {
	Relationship storage.Relationship `json:"relationship"`
	DriftDays    int                  `json:"drift_days"`
	Slot         availability.Slot    `json:"slot"`
}

// RegisterCRMTools registers the relationship tools on reg.
func RegisterCRMTools(reg *registry.Registry, sc *server.ServerContext) error {
	addTool := mcp.NewTool("calendar.add_relationship",
		mcp.WithDescription("Track a contact with a desired interaction cadence"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Contact name"),
		),
		mcp.WithString("email",
			mcp.Description("Contact email"),
		),
		mcp.WithNumber("cadence_days",
			mcp.Description("Desired days between interactions, 1 to 365 (default 30)"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         addTool,
		RequiredTier: tier.Enterprise,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleAddRelationship(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	driftTool := mcp.NewTool("calendar.get_drift_report",
		mcp.WithDescription("List relationships whose time since last interaction exceeds their cadence, worst first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries to return"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         driftTool,
		RequiredTier: tier.Enterprise,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleDriftReport(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	outcomeTool := mcp.NewTool("calendar.mark_outcome",
		mcp.WithDescription("Record an interaction outcome against a relationship"),
		mcp.WithString("relationship_id",
			mcp.Required(),
			mcp.Description("Relationship the interaction belongs to"),
		),
		mcp.WithString("outcome",
			mcp.Required(),
			mcp.Description("What happened: met, skipped or rescheduled"),
		),
		mcp.WithString("note",
			mcp.Description("Free-form note"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         outcomeTool,
		RequiredTier: tier.Enterprise,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleMarkOutcome(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	reconnectTool := mcp.NewTool("calendar.get_reconnection_suggestions",
		mcp.WithDescription("Pair the most drifted relationships with upcoming free slots"),
		mcp.WithNumber("window_days",
			mcp.Description("How many days ahead to search for free time, 1 to 14 (default 7)"),
		),
		mcp.WithNumber("count",
			mcp.Description("Number of suggestions to return, 1 to 10 (default 3)"),
		),
	)
	return reg.Register(registry.Definition{
		Tool:         reconnectTool,
		RequiredTier: tier.Enterprise,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleReconnectionSuggestions(ctx, user, args, sc)
		},
	})
}

func handleAddRelationship(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateAddRelationshipParams(args)
	if err != nil {
		return nil, err
	}

	relationship := &storage.Relationship{
		RelationshipID: uuid.NewString(),
		UserID:         user.UserID,
		Name:           params.Name,
		Email:          params.Email,
		CadenceDays:    params.CadenceDays,
		CreatedAt:      now().UnixMilli(),
	}
	if err := sc.Store().CreateRelationship(ctx, relationship); err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{"relationship": relationship})
}

// driftReport computes drift for every relationship and returns the
// drifted ones, worst first. A relationship with no recorded
// interaction drifts from its creation time.
func driftReport(ctx context.Context, user *auth.UserContext, sc *server.ServerContext, at time.Time, limit int) ([]driftEntry, error) {
	relationships, err := sc.Store().ListRelationships(ctx, user.UserID, 0)
	if err != nil {
		return nil, err
	}

	nowMs := at.UnixMilli()
	entries := make([]driftEntry, 0, len(relationships))
	for _, r := range relationships {
		baseline := r.LastInteractionTs
		if baseline == 0 {
			baseline = r.CreatedAt
		}
		daysSince := int((nowMs - baseline) / dayMs)
		drift := daysSince - r.CadenceDays
		if drift <= 0 {
			continue
		}
		entries = append(entries, driftEntry{
			Relationship: r,
			DaysSince:    daysSince,
			DriftDays:    drift,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DriftDays > entries[j].DriftDays
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func handleDriftReport(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateDriftReportParams(args)
	if err != nil {
		return nil, err
	}

	entries, err := driftReport(ctx, user, sc, now(), params.Limit)
	if err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{
		"drifted": entries,
		"count":   len(entries),
	})
}

func handleMarkOutcome(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateMarkOutcomeParams(args)
	if err != nil {
		return nil, err
	}

	interaction := &storage.Interaction{
		InteractionID:  uuid.NewString(),
		RelationshipID: params.RelationshipID,
		Outcome:        params.Outcome,
		Note:           params.Note,
		OccurredAt:     now().UnixMilli(),
	}
	if err := sc.Store().RecordInteraction(ctx, user.UserID, interaction); err != nil {
		return nil, err
	}

	relationship, err := sc.Store().GetRelationship(ctx, user.UserID, params.RelationshipID)
	if err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{
		"interaction":  interaction,
		"relationship": relationship,
	})
}

func handleReconnectionSuggestions(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateReconnectionParams(args)
	if err != nil {
		return nil, err
	}

	at := now()
	drifted, err := driftReport(ctx, user, sc, at, params.Count)
	if err != nil {
		return nil, err
	}
	if len(drifted) == 0 {
		return common.JSONResult(map[string]any{
			"suggestions": []suggestion{},
			"count":       0,
		})
	}

	startMs := at.UnixMilli()
	endMs := startMs + int64(params.WindowDays)*dayMs
	events, err := sc.Store().ListEvents(ctx, user.UserID, storage.EventFilter{
		StartTs: startMs,
		EndTs:   endMs,
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
		availability.GenerateTimeSlots(startMs, endMs, availability.Granularity1h),
		views,
	)
	free := make([]availability.Slot, 0, len(slots))
	for _, s := range slots {
		if s.Status == availability.StatusFree {
			free = append(free, s)
		}
	}

	// Worst-drifted relationship gets the earliest free slot.
	suggestions := make([]suggestion, 0, params.Count)
	for i, entry := range drifted {
		if i >= len(free) || len(suggestions) >= params.Count {
			break
		}
		suggestions = append(suggestions, suggestion{
			Relationship: entry.Relationship,
			DriftDays:    entry.DriftDays,
			Slot:         free[i],
		})
	}
	return common.JSONResult(map[string]any{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}
