// Package scheduling_tools exposes constraint management, trip blocks
// and the propose/commit scheduling flow.
package scheduling_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/availability"
	"github.com/calbridge/calbridge/internal/bindings"
	"github.com/calbridge/calbridge/internal/logging"
	"github.com/calbridge/calbridge/internal/registry"
	"github.com/calbridge/calbridge/internal/scheduling"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/storage"
	"github.com/calbridge/calbridge/internal/tier"
	"github.com/calbridge/calbridge/internal/tools/common"
	"github.com/calbridge/calbridge/internal/validate"
)

// now is stubbed in tests.
var now = time.Now

// Sources of auto-materialized events.
const (
	SourceTrip   = "trip"
	SourceCommit = "commitment"
)

// constraintPayload is the kind-specific constraint body persisted as
// JSON. Unused fields for a kind stay at their zero values and are
// omitted from the stored document.
type constraintPayload struct {
	StartHour     int    `json:"start_hour,omitempty"`
	EndHour       int    `json:"end_hour,omitempty"`
	StartTs       int64  `json:"start_ts,omitempty"`
	EndTs         int64  `json:"end_ts,omitempty"`
	BufferMinutes int    `json:"buffer_minutes,omitempty"`
	Note          string `json:"note,omitempty"`
}

// RegisterSchedulingTools registers the constraint, trip and scheduling
// tools on reg.
func RegisterSchedulingTools(reg *registry.Registry, sc *server.ServerContext) error {
	listConstraintsTool := mcp.NewTool("calendar.list_constraints",
		mcp.WithDescription("List scheduling constraints, optionally for one account"),
		mcp.WithString("account_id",
			mcp.Description("Only constraints scoped to this account"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         listConstraintsTool,
		RequiredTier: tier.Free,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleListConstraints(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	addConstraintTool := mcp.NewTool("calendar.add_constraint",
		mcp.WithDescription("Add a scheduling constraint: working_hours, blackout or buffer"),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Constraint kind: working_hours, blackout or buffer"),
		),
		mcp.WithString("account_id",
			mcp.Description("Account the constraint is scoped to; global when omitted"),
		),
		mcp.WithNumber("start_hour",
			mcp.Description("First allowed UTC hour, for working_hours"),
		),
		mcp.WithNumber("end_hour",
			mcp.Description("Last allowed UTC hour, exclusive, for working_hours"),
		),
		mcp.WithString("start",
			mcp.Description("Blackout start, RFC 3339, for blackout"),
		),
		mcp.WithString("end",
			mcp.Description("Blackout end, RFC 3339, for blackout"),
		),
		mcp.WithNumber("buffer_minutes",
			mcp.Description("Minutes of padding around busy time, for buffer"),
		),
		mcp.WithString("note",
			mcp.Description("Free-form note"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         addConstraintTool,
		RequiredTier: tier.Premium,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleAddConstraint(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	addTripTool := mcp.NewTool("calendar.add_trip",
		mcp.WithDescription("Record a trip, materializing a blocking event unless block_policy is FREE"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Trip title"),
		),
		mcp.WithString("destination",
			mcp.Required(),
			mcp.Description("Where the trip goes"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Trip start, RFC 3339"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Trip end, RFC 3339"),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA timezone, defaults to UTC"),
		),
		mcp.WithString("block_policy",
			mcp.Description("How the trip blocks calendars: BUSY, FREE or OOO (default BUSY)"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         addTripTool,
		RequiredTier: tier.Premium,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleAddTrip(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	proposeTool := mcp.NewTool("calendar.propose_times",
		mcp.WithDescription("Propose ranked meeting slots inside a window, honoring events and constraints"),
		mcp.WithNumber("duration_minutes",
			mcp.Required(),
			mcp.Description("Meeting length in minutes, 5 to 480"),
		),
		mcp.WithString("window_start",
			mcp.Required(),
			mcp.Description("Search window start, RFC 3339"),
		),
		mcp.WithString("window_end",
			mcp.Required(),
			mcp.Description("Search window end, RFC 3339; at most 7 days after the start"),
		),
		mcp.WithArray("accounts",
			mcp.Description("Account ids whose events count as busy; all accounts when omitted"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("count",
			mcp.Description("Number of candidates to return, 1 to 10 (default 3)"),
		),
		mcp.WithString("granularity",
			mcp.Description("Candidate start alignment: 15m, 30m or 1h (default 30m)"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         proposeTool,
		RequiredTier: tier.Premium,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleProposeTimes(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	commitTool := mcp.NewTool("calendar.commit_candidate",
		mcp.WithDescription("Commit one proposed candidate, creating a confirmed event"),
		mcp.WithString("proposal_id",
			mcp.Required(),
			mcp.Description("Proposal holding the candidate"),
		),
		mcp.WithString("candidate_id",
			mcp.Required(),
			mcp.Description("Candidate slot to commit"),
		),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("Account to create the event on"),
		),
		mcp.WithString("title",
			mcp.Description("Event title (default \"Scheduled meeting\")"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         commitTool,
		RequiredTier: tier.Premium,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleCommitCandidate(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	statusTool := mcp.NewTool("calendar.get_commitment_status",
		mcp.WithDescription("Get a commitment and its backing event"),
		mcp.WithString("commitment_id",
			mcp.Required(),
			mcp.Description("Commitment to look up"),
		),
	)
	if err := reg.Register(registry.Definition{
		Tool:         statusTool,
		RequiredTier: tier.Premium,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleCommitmentStatus(ctx, user, args, sc)
		},
	}); err != nil {
		return err
	}

	exportTool := mcp.NewTool("calendar.export_commitment_proof",
		mcp.WithDescription("Export a signed proof of a commitment"),
		mcp.WithString("commitment_id",
			mcp.Required(),
			mcp.Description("Commitment to export"),
		),
		mcp.WithString("format",
			mcp.Description("Proof format: json or text (default json)"),
		),
	)
	return reg.Register(registry.Definition{
		Tool:         exportTool,
		RequiredTier: tier.Premium,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleExportProof(ctx, user, args, sc)
		},
	})
}

func handleListConstraints(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateListConstraintsParams(args)
	if err != nil {
		return nil, err
	}

	constraints, err := sc.Store().ListConstraints(ctx, user.UserID, params.AccountID)
	if err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{
		"constraints": constraints,
		"count":       len(constraints),
	})
}

func handleAddConstraint(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateAddConstraintParams(args)
	if err != nil {
		return nil, err
	}
	if params.AccountID != "" {
		if _, err := sc.Store().GetAccount(ctx, user.UserID, params.AccountID); err != nil {
			return nil, err
		}
	}

	payload := constraintPayload{Note: params.Note}
	switch params.Kind {
	case scheduling.KindWorkingHours:
		payload.StartHour = params.StartHour
		payload.EndHour = params.EndHour
	case scheduling.KindBlackout:
		payload.StartTs = params.Start.UnixMilli()
		payload.EndTs = params.End.UnixMilli()
	case scheduling.KindBuffer:
		payload.BufferMinutes = params.BufferMinutes
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	constraint := &storage.Constraint{
		ConstraintID: uuid.NewString(),
		UserID:       user.UserID,
		AccountID:    params.AccountID,
		Kind:         params.Kind,
		Payload:      string(raw),
		CreatedAt:    now().UnixMilli(),
	}
	if err := sc.Store().CreateConstraint(ctx, constraint); err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{"constraint": constraint})
}

func handleAddTrip(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateAddTripParams(args)
	if err != nil {
		return nil, err
	}

	ts := now().UnixMilli()
	trip := &storage.Trip{
		TripID:      uuid.NewString(),
		UserID:      user.UserID,
		Title:       params.Title,
		Destination: params.Destination,
		StartTs:     params.Start.UnixMilli(),
		EndTs:       params.End.UnixMilli(),
		Timezone:    params.Timezone,
		BlockPolicy: params.BlockPolicy,
		CreatedAt:   ts,
	}

	// A FREE trip is informational only; anything else blocks time on
	// every linked account via one materialized event.
	if params.BlockPolicy != "FREE" {
		event := &storage.Event{
			EventID:     uuid.NewString(),
			UserID:      user.UserID,
			Title:       fmt.Sprintf("Trip: %s", params.Destination),
			StartTs:     trip.StartTs,
			EndTs:       trip.EndTs,
			Timezone:    params.Timezone,
			Description: params.Title,
			Location:    params.Destination,
			Status:      availability.EventConfirmed,
			Source:      SourceTrip,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if err := sc.Store().CreateEvent(ctx, event); err != nil {
			return nil, err
		}
		trip.EventID = event.EventID
	}

	if err := sc.Store().CreateTrip(ctx, trip); err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{"trip": trip})
}

func handleProposeTimes(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateProposeTimesParams(args)
	if err != nil {
		return nil, err
	}

	windowStartMs := params.WindowStart.UnixMilli()
	windowEndMs := params.WindowEnd.UnixMilli()

	events, err := sc.Store().ListEvents(ctx, user.UserID, storage.EventFilter{
		AccountIDs: params.Accounts,
		StartTs:    windowStartMs,
		EndTs:      windowEndMs,
	})
	if err != nil {
		return nil, err
	}
	busy := make([]scheduling.Busy, 0, len(events))
	for _, ev := range events {
		if ev.Status == availability.EventCancelled {
			continue
		}
		busy = append(busy, scheduling.Busy{StartMs: ev.StartTs, EndMs: ev.EndTs})
	}

	stored, err := sc.Store().ListConstraints(ctx, user.UserID, "")
	if err != nil {
		return nil, err
	}
	constraints := decodeConstraints(sc, stored)

	candidates := scheduling.ProposeCandidates(scheduling.Request{
		WindowStartMs: windowStartMs,
		WindowEndMs:   windowEndMs,
		DurationMs:    int64(params.DurationMinutes) * 60 * 1000,
		GranularityMs: params.GranularityMs,
		Count:         params.Count,
	}, busy, constraints)

	proposal := &storage.Proposal{
		ProposalID:      uuid.NewString(),
		UserID:          user.UserID,
		DurationMinutes: params.DurationMinutes,
		WindowStartTs:   windowStartMs,
		WindowEndTs:     windowEndMs,
		CreatedAt:       now().UnixMilli(),
	}
	rows := make([]storage.Candidate, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, storage.Candidate{
			CandidateID: fmt.Sprintf("cand-%d", c.Rank),
			ProposalID:  proposal.ProposalID,
			StartTs:     c.StartMs,
			EndTs:       c.EndMs,
			Score:       c.Score,
			Rank:        c.Rank,
		})
	}
	if err := sc.Store().CreateProposal(ctx, proposal, rows); err != nil {
		return nil, err
	}

	return common.JSONResult(map[string]any{
		"proposal":   proposal,
		"candidates": rows,
	})
}

// decodeConstraints turns stored constraint rows into engine
// constraints. A row whose payload does not decode is skipped and
// logged rather than failing the whole proposal.
func decodeConstraints(sc *server.ServerContext, stored []storage.Constraint) []scheduling.Constraint {
	constraints := make([]scheduling.Constraint, 0, len(stored))
	for _, row := range stored {
		var payload constraintPayload
		if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
			sc.Logger().Warn("skipping undecodable constraint",
				logging.Err(err),
				logging.Operation("propose_times"),
			)
			continue
		}
		constraints = append(constraints, scheduling.Constraint{
			Kind:          row.Kind,
			StartHour:     payload.StartHour,
			EndHour:       payload.EndHour,
			StartMs:       payload.StartTs,
			EndMs:         payload.EndTs,
			BufferMinutes: payload.BufferMinutes,
		})
	}
	return constraints
}

func handleCommitCandidate(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateCommitCandidateParams(args)
	if err != nil {
		return nil, err
	}

	proposal, err := sc.Store().GetProposal(ctx, user.UserID, params.ProposalID)
	if err != nil {
		return nil, err
	}
	if _, err := sc.Store().GetCommitmentByProposal(ctx, user.UserID, proposal.ProposalID); err == nil {
		return nil, &storage.InvalidStateError{Message: "proposal already committed"}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	candidate, err := sc.Store().GetCandidate(ctx, proposal.ProposalID, params.CandidateID)
	if err != nil {
		return nil, err
	}
	if _, err := sc.Store().GetAccount(ctx, user.UserID, params.AccountID); err != nil {
		return nil, err
	}

	ts := now().UnixMilli()
	event := &storage.Event{
		EventID:   uuid.NewString(),
		UserID:    user.UserID,
		AccountID: params.AccountID,
		Title:     params.Title,
		StartTs:   candidate.StartTs,
		EndTs:     candidate.EndTs,
		Timezone:  validate.DefaultTimezone,
		Status:    availability.EventConfirmed,
		Source:    SourceCommit,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := sc.Store().CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	commitment := &storage.Commitment{
		CommitmentID: uuid.NewString(),
		UserID:       user.UserID,
		ProposalID:   proposal.ProposalID,
		CandidateID:  candidate.CandidateID,
		EventID:      event.EventID,
		Status:       storage.CommitmentConfirmed,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := sc.Store().CreateCommitment(ctx, commitment); err != nil {
		return nil, err
	}

	if err := sc.Sync().PushEvent(ctx, event.AccountID, event.EventID); err != nil {
		sc.Logger().Warn("sync push failed",
			logging.Account(event.AccountID),
			logging.Err(err),
		)
	}
	return common.JSONResult(map[string]any{
		"commitment": commitment,
		"event":      event,
	})
}

func handleCommitmentStatus(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateCommitmentStatusParams(args)
	if err != nil {
		return nil, err
	}

	commitment, err := sc.Store().GetCommitment(ctx, user.UserID, params.CommitmentID)
	if err != nil {
		return nil, err
	}
	event, err := sc.Store().GetEvent(ctx, user.UserID, commitment.EventID)
	if err != nil {
		return nil, err
	}
	return common.JSONResult(map[string]any{
		"commitment": commitment,
		"event":      event,
	})
}

func handleExportProof(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateExportProofParams(args)
	if err != nil {
		return nil, err
	}

	// Resolve the commitment first so an unknown id surfaces as a
	// caller error, not a binding failure.
	if _, err := sc.Store().GetCommitment(ctx, user.UserID, params.CommitmentID); err != nil {
		return nil, err
	}

	proof, err := sc.Exporter().Export(bindings.WithUserID(ctx, user.UserID), params.CommitmentID, params.Format)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(proof), nil
}
