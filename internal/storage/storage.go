// Package storage defines the persistence boundary for the tool
// handlers: row types shaped on the calendar schema, a Store interface,
// and the sqlite implementation used in production. All timestamps on
// event-like rows are Unix milliseconds; sync and channel timestamps are
// RFC 3339 strings as delivered by the provider sync pipeline.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel wrapped by every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports that a referenced entity does not exist. The
// dispatcher maps it to JSON-RPC code -32602.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InvalidStateError reports a request that is well-formed but conflicts
// with current state (e.g. committing a proposal twice). Mapped to
// JSON-RPC code -32602 alongside validation failures.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}

// Account is a linked calendar account.
type Account struct {
	AccountID     string `json:"account_id"`
	UserID        string `json:"-"`
	Provider      string `json:"provider"`
	Email         string `json:"email"`
	Status        string `json:"status"`
	ChannelID     string `json:"channel_id,omitempty"`
	ChannelExpiry string `json:"channel_expiry_ts,omitempty"`
	LastSync      string `json:"last_sync_ts,omitempty"`
	ErrorCount    int    `json:"error_count"`
}

// Event is a calendar event row. StartTs/EndTs are Unix milliseconds of
// a half-open interval.
type Event struct {
	EventID     string `json:"event_id"`
	UserID      string `json:"-"`
	AccountID   string `json:"account_id"`
	Title       string `json:"title"`
	StartTs     int64  `json:"start_ts"`
	EndTs       int64  `json:"end_ts"`
	Timezone    string `json:"timezone"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Status      string `json:"status"`
	Source      string `json:"source"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// EventFilter narrows ListEvents. Zero values mean "no constraint";
// AccountIDs nil means all accounts.
type EventFilter struct {
	AccountIDs []string
	StartTs    int64
	EndTs      int64
	Query      string
	Limit      int
}

// PolicyEdge is a directed sharing policy between two accounts.
type PolicyEdge struct {
	UserID       string `json:"-"`
	FromAccount  string `json:"from_account"`
	ToAccount    string `json:"to_account"`
	DetailLevel  string `json:"detail_level"`
	CalendarKind string `json:"calendar_kind"`
	BlockPolicy  string `json:"block_policy"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Constraint is a scheduling constraint; Payload holds the kind-specific
// fields as JSON.
type Constraint struct {
	ConstraintID string `json:"constraint_id"`
	UserID       string `json:"-"`
	AccountID    string `json:"account_id,omitempty"`
	Kind         string `json:"kind"`
	Payload      string `json:"payload"`
	CreatedAt    int64  `json:"created_at"`
}

// Trip is a travel block; EventID references the blocking calendar event
// materialized for it ("" when the trip does not block).
type Trip struct {
	TripID      string `json:"trip_id"`
	UserID      string `json:"-"`
	Title       string `json:"title"`
	Destination string `json:"destination"`
	StartTs     int64  `json:"start_ts"`
	EndTs       int64  `json:"end_ts"`
	Timezone    string `json:"timezone"`
	BlockPolicy string `json:"block_policy"`
	EventID     string `json:"event_id,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// Proposal is a persisted scheduling proposal with its candidate slots.
type Proposal struct {
	ProposalID      string `json:"proposal_id"`
	UserID          string `json:"-"`
	DurationMinutes int    `json:"duration_minutes"`
	WindowStartTs   int64  `json:"window_start_ts"`
	WindowEndTs     int64  `json:"window_end_ts"`
	CreatedAt       int64  `json:"created_at"`
}

// Candidate is one proposed slot within a proposal.
type Candidate struct {
	CandidateID string  `json:"candidate_id"`
	ProposalID  string  `json:"-"`
	StartTs     int64   `json:"start_ts"`
	EndTs       int64   `json:"end_ts"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
}

// Commitment statuses.
const (
	CommitmentConfirmed = "confirmed"
	CommitmentCancelled = "cancelled"
)

// Commitment records that a proposal candidate was committed to an event.
type Commitment struct {
	CommitmentID string `json:"commitment_id"`
	UserID       string `json:"-"`
	ProposalID   string `json:"proposal_id"`
	CandidateID  string `json:"candidate_id"`
	EventID      string `json:"event_id"`
	Status       string `json:"status"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Relationship is a CRM contact with a desired interaction cadence.
type Relationship struct {
	RelationshipID    string `json:"relationship_id"`
	UserID            string `json:"-"`
	Name              string `json:"name"`
	Email             string `json:"email,omitempty"`
	CadenceDays       int    `json:"cadence_days"`
	LastInteractionTs int64  `json:"last_interaction_ts,omitempty"`
	CreatedAt         int64  `json:"created_at"`
}

// Interaction is one recorded outcome against a relationship.
type Interaction struct {
	InteractionID  string `json:"interaction_id"`
	RelationshipID string `json:"relationship_id"`
	Outcome        string `json:"outcome"`
	Note           string `json:"note,omitempty"`
	OccurredAt     int64  `json:"occurred_at"`
}

// Store is the persistence interface consumed by the tool handlers. All
// reads and writes are scoped by user id; implementations must use
// parameterized queries exclusively.
type Store interface {
	ListAccounts(ctx context.Context, userID string) ([]Account, error)
	GetAccount(ctx context.Context, userID, accountID string) (*Account, error)

	ListEvents(ctx context.Context, userID string, f EventFilter) ([]Event, error)
	GetEvent(ctx context.Context, userID, eventID string) (*Event, error)
	CreateEvent(ctx context.Context, ev *Event) error
	UpdateEvent(ctx context.Context, ev *Event) error
	DeleteEvent(ctx context.Context, userID, eventID string) error

	ListPolicyEdges(ctx context.Context, userID, accountID string) ([]PolicyEdge, error)
	GetPolicyEdge(ctx context.Context, userID, fromAccount, toAccount string) (*PolicyEdge, error)
	SetPolicyEdge(ctx context.Context, edge *PolicyEdge) error

	ListConstraints(ctx context.Context, userID, accountID string) ([]Constraint, error)
	CreateConstraint(ctx context.Context, c *Constraint) error

	CreateTrip(ctx context.Context, t *Trip) error

	CreateProposal(ctx context.Context, p *Proposal, candidates []Candidate) error
	GetProposal(ctx context.Context, userID, proposalID string) (*Proposal, error)
	GetCandidate(ctx context.Context, proposalID, candidateID string) (*Candidate, error)

	CreateCommitment(ctx context.Context, c *Commitment) error
	GetCommitment(ctx context.Context, userID, commitmentID string) (*Commitment, error)
	GetCommitmentByProposal(ctx context.Context, userID, proposalID string) (*Commitment, error)

	CreateRelationship(ctx context.Context, r *Relationship) error
	ListRelationships(ctx context.Context, userID string, limit int) ([]Relationship, error)
	GetRelationship(ctx context.Context, userID, relationshipID string) (*Relationship, error)
	RecordInteraction(ctx context.Context, userID string, in *Interaction) error
}
