package validate

import (
	"strings"
	"time"

	"github.com/calbridge/calbridge/internal/availability"
)

// Closed enum sets shared between validators and tool schemas.
var (
	Granularities = []string{"15m", "30m", "1h"}
	DetailLevels  = []string{"full", "title_only", "busy_only"}
	CalendarKinds = []string{"primary", "work", "personal"}
	BlockPolicies = []string{"BUSY", "FREE", "OOO"}
	Outcomes      = []string{"met", "skipped", "rescheduled"}
	ProofFormats  = []string{"json", "text"}
	Constraints   = []string{"working_hours", "blackout", "buffer"}
)

// granularityMillis maps the granularity enum to slot width.
func granularityMillis(g string) int64 {
	switch g {
	case "15m":
		return availability.Granularity15m
	case "1h":
		return availability.Granularity1h
	default:
		return availability.Granularity30m
	}
}

// SyncStatusParams are the normalized arguments of calendar.get_sync_status.
type SyncStatusParams struct {
	AccountID string
}

// ValidateSyncStatusParams validates calendar.get_sync_status arguments.
func ValidateSyncStatusParams(args map[string]any) (*SyncStatusParams, error) {
	accountID, _, err := optionalString(args, "account_id")
	if err != nil {
		return nil, err
	}
	return &SyncStatusParams{AccountID: accountID}, nil
}

// ListEventsParams are the normalized arguments of calendar.list_events.
type ListEventsParams struct {
	AccountID string
	Start     time.Time
	End       time.Time
	Query     string
	Limit     int
}

func ValidateListEventsParams(args map[string]any) (*ListEventsParams, error) {
	start, end, err := requireRange(args, "start", "end")
	if err != nil {
		return nil, err
	}
	accountID, _, err := optionalString(args, "account_id")
	if err != nil {
		return nil, err
	}
	query, _, err := optionalString(args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := optionalInt(args, "limit", DefaultLimit, 1, MaxLimit)
	if err != nil {
		return nil, err
	}
	return &ListEventsParams{AccountID: accountID, Start: start, End: end, Query: query, Limit: limit}, nil
}

// CreateEventParams are the normalized arguments of calendar.create_event.
type CreateEventParams struct {
	AccountID   string
	Title       string
	Start       time.Time
	End         time.Time
	Timezone    string
	Description string
	Location    string
}

func ValidateCreateEventParams(args map[string]any) (*CreateEventParams, error) {
	accountID, err := requireString(args, "account_id")
	if err != nil {
		return nil, err
	}
	title, err := requireString(args, "title")
	if err != nil {
		return nil, err
	}
	start, end, err := requireRange(args, "start", "end")
	if err != nil {
		return nil, err
	}
	timezone, present, err := optionalString(args, "timezone")
	if err != nil {
		return nil, err
	}
	if !present {
		timezone = DefaultTimezone
	}
	description, _, err := optionalString(args, "description")
	if err != nil {
		return nil, err
	}
	location, _, err := optionalString(args, "location")
	if err != nil {
		return nil, err
	}
	return &CreateEventParams{
		AccountID:   accountID,
		Title:       title,
		Start:       start,
		End:         end,
		Timezone:    timezone,
		Description: description,
		Location:    location,
	}, nil
}

// UpdateEventParams are the normalized arguments of calendar.update_event.
// Pointer fields are nil when the patch leaves them untouched.
type UpdateEventParams struct {
	EventID     string
	Title       *string
	Start       *time.Time
	End         *time.Time
	Timezone    *string
	Description *string
	Location    *string
}

func ValidateUpdateEventParams(args map[string]any) (*UpdateEventParams, error) {
	eventID, err := requireString(args, "event_id")
	if err != nil {
		return nil, err
	}

	p := &UpdateEventParams{EventID: eventID}
	patched := false

	if title, present, err := optionalString(args, "title"); err != nil {
		return nil, err
	} else if present {
		p.Title = &title
		patched = true
	}
	if start, present, err := optionalTime(args, "start"); err != nil {
		return nil, err
	} else if present {
		p.Start = &start
		patched = true
	}
	if end, present, err := optionalTime(args, "end"); err != nil {
		return nil, err
	} else if present {
		p.End = &end
		patched = true
	}
	if tz, present, err := optionalString(args, "timezone"); err != nil {
		return nil, err
	} else if present {
		p.Timezone = &tz
		patched = true
	}
	if desc, present, err := optionalString(args, "description"); err != nil {
		return nil, err
	} else if present {
		p.Description = &desc
		patched = true
	}
	if loc, present, err := optionalString(args, "location"); err != nil {
		return nil, err
	} else if present {
		p.Location = &loc
		patched = true
	}

	if !patched {
		return nil, errf("provide at least one field to update")
	}
	if p.Start != nil && p.End != nil && !p.Start.Before(*p.End) {
		return nil, errf("'start' must be before 'end'")
	}
	return p, nil
}

// DeleteEventParams are the normalized arguments of calendar.delete_event.
type DeleteEventParams struct {
	EventID string
}

func ValidateDeleteEventParams(args map[string]any) (*DeleteEventParams, error) {
	eventID, err := requireString(args, "event_id")
	if err != nil {
		return nil, err
	}
	return &DeleteEventParams{EventID: eventID}, nil
}

// GetAvailabilityParams are the normalized arguments of
// calendar.get_availability.
type GetAvailabilityParams struct {
	Start         time.Time
	End           time.Time
	GranularityMs int64
	Accounts      []string
}

func ValidateGetAvailabilityParams(args map[string]any) (*GetAvailabilityParams, error) {
	start, end, err := requireRange(args, "start", "end")
	if err != nil {
		return nil, err
	}
	if end.Sub(start) > MaxRangeDays*24*time.Hour {
		return nil, errf("time range must not exceed %d days", MaxRangeDays)
	}
	granularity, err := enumField(args, "granularity", "30m", Granularities...)
	if err != nil {
		return nil, err
	}
	accounts, err := accountsFilter(args)
	if err != nil {
		return nil, err
	}
	return &GetAvailabilityParams{
		Start:         start,
		End:           end,
		GranularityMs: granularityMillis(granularity),
		Accounts:      accounts,
	}, nil
}

// ListPoliciesParams are the normalized arguments of calendar.list_policies.
type ListPoliciesParams struct {
	AccountID string
}

func ValidateListPoliciesParams(args map[string]any) (*ListPoliciesParams, error) {
	accountID, _, err := optionalString(args, "account_id")
	if err != nil {
		return nil, err
	}
	return &ListPoliciesParams{AccountID: accountID}, nil
}

// PolicyEdgeRefParams name a policy edge by its endpoints.
type PolicyEdgeRefParams struct {
	FromAccount string
	ToAccount   string
}

func ValidateGetPolicyEdgeParams(args map[string]any) (*PolicyEdgeRefParams, error) {
	from, err := requireString(args, "from_account")
	if err != nil {
		return nil, err
	}
	to, err := requireString(args, "to_account")
	if err != nil {
		return nil, err
	}
	return &PolicyEdgeRefParams{FromAccount: from, ToAccount: to}, nil
}

// SetPolicyEdgeParams are the normalized arguments of
// calendar.set_policy_edge.
type SetPolicyEdgeParams struct {
	FromAccount  string
	ToAccount    string
	DetailLevel  string
	CalendarKind string
	BlockPolicy  string
}

func ValidateSetPolicyEdgeParams(args map[string]any) (*SetPolicyEdgeParams, error) {
	ref, err := ValidateGetPolicyEdgeParams(args)
	if err != nil {
		return nil, err
	}
	if ref.FromAccount == ref.ToAccount {
		return nil, errf("'from_account' and 'to_account' must differ")
	}
	detailLevel, err := requireEnum(args, "detail_level", DetailLevels...)
	if err != nil {
		return nil, err
	}
	calendarKind, err := enumField(args, "calendar_kind", "primary", CalendarKinds...)
	if err != nil {
		return nil, err
	}
	blockPolicy, err := enumField(args, "block_policy", "BUSY", BlockPolicies...)
	if err != nil {
		return nil, err
	}
	return &SetPolicyEdgeParams{
		FromAccount:  ref.FromAccount,
		ToAccount:    ref.ToAccount,
		DetailLevel:  detailLevel,
		CalendarKind: calendarKind,
		BlockPolicy:  blockPolicy,
	}, nil
}

// ListConstraintsParams are the normalized arguments of
// calendar.list_constraints.
type ListConstraintsParams struct {
	AccountID string
}

func ValidateListConstraintsParams(args map[string]any) (*ListConstraintsParams, error) {
	accountID, _, err := optionalString(args, "account_id")
	if err != nil {
		return nil, err
	}
	return &ListConstraintsParams{AccountID: accountID}, nil
}

// AddConstraintParams are the normalized arguments of
// calendar.add_constraint. The kind decides which of the remaining
// fields are meaningful.
type AddConstraintParams struct {
	AccountID     string
	Kind          string
	StartHour     int
	EndHour       int
	Start         time.Time
	End           time.Time
	BufferMinutes int
	Note          string
}

func ValidateAddConstraintParams(args map[string]any) (*AddConstraintParams, error) {
	kind, err := requireEnum(args, "kind", Constraints...)
	if err != nil {
		return nil, err
	}
	accountID, _, err := optionalString(args, "account_id")
	if err != nil {
		return nil, err
	}
	note, _, err := optionalString(args, "note")
	if err != nil {
		return nil, err
	}

	p := &AddConstraintParams{AccountID: accountID, Kind: kind, Note: note}
	switch kind {
	case "working_hours":
		p.StartHour, err = requireInt(args, "start_hour", 0, 23)
		if err != nil {
			return nil, err
		}
		p.EndHour, err = requireInt(args, "end_hour", 0, 23)
		if err != nil {
			return nil, err
		}
		if p.StartHour >= p.EndHour {
			return nil, errf("'start_hour' must be before 'end_hour'")
		}
	case "blackout":
		p.Start, p.End, err = requireRange(args, "start", "end")
		if err != nil {
			return nil, err
		}
	case "buffer":
		p.BufferMinutes, err = requireInt(args, "buffer_minutes", 1, 240)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AddTripParams are the normalized arguments of calendar.add_trip.
type AddTripParams struct {
	Title       string
	Destination string
	Start       time.Time
	End         time.Time
	Timezone    string
	BlockPolicy string
}

func ValidateAddTripParams(args map[string]any) (*AddTripParams, error) {
	title, err := requireString(args, "title")
	if err != nil {
		return nil, err
	}
	destination, err := requireString(args, "destination")
	if err != nil {
		return nil, err
	}
	start, end, err := requireRange(args, "start", "end")
	if err != nil {
		return nil, err
	}
	timezone, present, err := optionalString(args, "timezone")
	if err != nil {
		return nil, err
	}
	if !present {
		timezone = DefaultTimezone
	}
	blockPolicy, err := enumField(args, "block_policy", "BUSY", BlockPolicies...)
	if err != nil {
		return nil, err
	}
	return &AddTripParams{
		Title:       title,
		Destination: destination,
		Start:       start,
		End:         end,
		Timezone:    timezone,
		BlockPolicy: blockPolicy,
	}, nil
}

// ProposeTimesParams are the normalized arguments of calendar.propose_times.
type ProposeTimesParams struct {
	DurationMinutes int
	WindowStart     time.Time
	WindowEnd       time.Time
	Accounts        []string
	Count           int
	GranularityMs   int64
}

func ValidateProposeTimesParams(args map[string]any) (*ProposeTimesParams, error) {
	duration, err := requireInt(args, "duration_minutes", 5, 480)
	if err != nil {
		return nil, err
	}
	start, end, err := requireRange(args, "window_start", "window_end")
	if err != nil {
		return nil, err
	}
	if end.Sub(start) > MaxRangeDays*24*time.Hour {
		return nil, errf("time range must not exceed %d days", MaxRangeDays)
	}
	accounts, err := accountsFilter(args)
	if err != nil {
		return nil, err
	}
	count, err := optionalInt(args, "count", 3, 1, 10)
	if err != nil {
		return nil, err
	}
	granularity, err := enumField(args, "granularity", "30m", Granularities...)
	if err != nil {
		return nil, err
	}
	return &ProposeTimesParams{
		DurationMinutes: duration,
		WindowStart:     start,
		WindowEnd:       end,
		Accounts:        accounts,
		Count:           count,
		GranularityMs:   granularityMillis(granularity),
	}, nil
}

// CommitCandidateParams are the normalized arguments of
// calendar.commit_candidate.
type CommitCandidateParams struct {
	ProposalID  string
	CandidateID string
	AccountID   string
	Title       string
}

func ValidateCommitCandidateParams(args map[string]any) (*CommitCandidateParams, error) {
	proposalID, err := requireString(args, "proposal_id")
	if err != nil {
		return nil, err
	}
	candidateID, err := requireString(args, "candidate_id")
	if err != nil {
		return nil, err
	}
	accountID, err := requireString(args, "account_id")
	if err != nil {
		return nil, err
	}
	title, present, err := optionalString(args, "title")
	if err != nil {
		return nil, err
	}
	if !present {
		title = "Scheduled meeting"
	}
	return &CommitCandidateParams{
		ProposalID:  proposalID,
		CandidateID: candidateID,
		AccountID:   accountID,
		Title:       title,
	}, nil
}

// CommitmentRefParams name a commitment by id.
type CommitmentRefParams struct {
	CommitmentID string
}

func ValidateCommitmentStatusParams(args map[string]any) (*CommitmentRefParams, error) {
	commitmentID, err := requireString(args, "commitment_id")
	if err != nil {
		return nil, err
	}
	return &CommitmentRefParams{CommitmentID: commitmentID}, nil
}

// ExportProofParams are the normalized arguments of
// calendar.export_commitment_proof.
type ExportProofParams struct {
	CommitmentID string
	Format       string
}

func ValidateExportProofParams(args map[string]any) (*ExportProofParams, error) {
	commitmentID, err := requireString(args, "commitment_id")
	if err != nil {
		return nil, err
	}
	format, err := enumField(args, "format", "json", ProofFormats...)
	if err != nil {
		return nil, err
	}
	return &ExportProofParams{CommitmentID: commitmentID, Format: format}, nil
}

// AddRelationshipParams are the normalized arguments of
// calendar.add_relationship.
type AddRelationshipParams struct {
	Name        string
	Email       string
	CadenceDays int
}

func ValidateAddRelationshipParams(args map[string]any) (*AddRelationshipParams, error) {
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	email, present, err := optionalString(args, "email")
	if err != nil {
		return nil, err
	}
	if present && !strings.Contains(email, "@") {
		return nil, errf("'email' must be a valid email address")
	}
	cadence, err := optionalInt(args, "cadence_days", 30, 1, 365)
	if err != nil {
		return nil, err
	}
	return &AddRelationshipParams{Name: name, Email: email, CadenceDays: cadence}, nil
}

// DriftReportParams are the normalized arguments of
// calendar.get_drift_report.
type DriftReportParams struct {
	Limit int
}

func ValidateDriftReportParams(args map[string]any) (*DriftReportParams, error) {
	limit, err := optionalInt(args, "limit", DefaultLimit, 1, MaxLimit)
	if err != nil {
		return nil, err
	}
	return &DriftReportParams{Limit: limit}, nil
}

// MarkOutcomeParams are the normalized arguments of calendar.mark_outcome.
type MarkOutcomeParams struct {
	RelationshipID string
	Outcome        string
	Note           string
}

func ValidateMarkOutcomeParams(args map[string]any) (*MarkOutcomeParams, error) {
	relationshipID, err := requireString(args, "relationship_id")
	if err != nil {
		return nil, err
	}
	outcome, err := requireEnum(args, "outcome", Outcomes...)
	if err != nil {
		return nil, err
	}
	note, _, err := optionalString(args, "note")
	if err != nil {
		return nil, err
	}
	return &MarkOutcomeParams{RelationshipID: relationshipID, Outcome: outcome, Note: note}, nil
}

// ReconnectionParams are the normalized arguments of
// calendar.get_reconnection_suggestions.
type ReconnectionParams struct {
	WindowDays int
	Count      int
}

func ValidateReconnectionParams(args map[string]any) (*ReconnectionParams, error) {
	windowDays, err := optionalInt(args, "window_days", 7, 1, 14)
	if err != nil {
		return nil, err
	}
	count, err := optionalInt(args, "count", 3, 1, 10)
	if err != nil {
		return nil, err
	}
	return &ReconnectionParams{WindowDays: windowDays, Count: count}, nil
}
