package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	account_id        TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	provider          TEXT NOT NULL,
	email             TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'active',
	channel_id        TEXT NOT NULL DEFAULT '',
	channel_expiry_ts TEXT NOT NULL DEFAULT '',
	last_sync_ts      TEXT NOT NULL DEFAULT '',
	error_count       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);

CREATE TABLE IF NOT EXISTS events (
	event_id    TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	account_id  TEXT NOT NULL,
	title       TEXT NOT NULL,
	start_ts    INTEGER NOT NULL,
	end_ts      INTEGER NOT NULL,
	timezone    TEXT NOT NULL DEFAULT 'UTC',
	description TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'confirmed',
	source      TEXT NOT NULL DEFAULT 'mcp',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_user_range ON events(user_id, start_ts, end_ts);

CREATE TABLE IF NOT EXISTS policy_edges (
	user_id       TEXT NOT NULL,
	from_account  TEXT NOT NULL,
	to_account    TEXT NOT NULL,
	detail_level  TEXT NOT NULL,
	calendar_kind TEXT NOT NULL,
	block_policy  TEXT NOT NULL,
	updated_at    INTEGER NOT NULL,
	PRIMARY KEY (user_id, from_account, to_account)
);

CREATE TABLE IF NOT EXISTS constraints (
	constraint_id TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	account_id    TEXT NOT NULL DEFAULT '',
	kind          TEXT NOT NULL,
	payload       TEXT NOT NULL DEFAULT '{}',
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trips (
	trip_id      TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	destination  TEXT NOT NULL,
	start_ts     INTEGER NOT NULL,
	end_ts       INTEGER NOT NULL,
	timezone     TEXT NOT NULL DEFAULT 'UTC',
	block_policy TEXT NOT NULL DEFAULT 'BUSY',
	event_id     TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS proposals (
	proposal_id      TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL,
	window_start_ts  INTEGER NOT NULL,
	window_end_ts    INTEGER NOT NULL,
	created_at       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS candidates (
	candidate_id TEXT NOT NULL,
	proposal_id  TEXT NOT NULL,
	start_ts     INTEGER NOT NULL,
	end_ts       INTEGER NOT NULL,
	score        REAL NOT NULL DEFAULT 0,
	rank         INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (proposal_id, candidate_id)
);

CREATE TABLE IF NOT EXISTS commitments (
	commitment_id TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	proposal_id   TEXT NOT NULL,
	candidate_id  TEXT NOT NULL,
	event_id      TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'confirmed',
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_commitments_proposal ON commitments(user_id, proposal_id);

CREATE TABLE IF NOT EXISTS relationships (
	relationship_id     TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL,
	name                TEXT NOT NULL,
	email               TEXT NOT NULL DEFAULT '',
	cadence_days        INTEGER NOT NULL DEFAULT 30,
	last_interaction_ts INTEGER NOT NULL DEFAULT 0,
	created_at          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS interactions (
	interaction_id  TEXT PRIMARY KEY,
	relationship_id TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	note            TEXT NOT NULL DEFAULT '',
	occurred_at     INTEGER NOT NULL
);
`

// SQLiteStore implements Store on a sqlite database via the pure-Go
// modernc driver.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (and if necessary initializes) the database at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListAccounts(ctx context.Context, userID string) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, user_id, provider, email, status, channel_id, channel_expiry_ts, last_sync_ts, error_count
		 FROM accounts WHERE user_id = ? ORDER BY account_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.AccountID, &a.UserID, &a.Provider, &a.Email, &a.Status,
			&a.ChannelID, &a.ChannelExpiry, &a.LastSync, &a.ErrorCount); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) GetAccount(ctx context.Context, userID, accountID string) (*Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id, user_id, provider, email, status, channel_id, channel_expiry_ts, last_sync_ts, error_count
		 FROM accounts WHERE user_id = ? AND account_id = ?`, userID, accountID).
		Scan(&a.AccountID, &a.UserID, &a.Provider, &a.Email, &a.Status,
			&a.ChannelID, &a.ChannelExpiry, &a.LastSync, &a.ErrorCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "account", ID: accountID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// UpsertAccount inserts or replaces an account row. Used by the account
// linking flow and by tests to seed fixtures.
func (s *SQLiteStore) UpsertAccount(ctx context.Context, a *Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO accounts
		 (account_id, user_id, provider, email, status, channel_id, channel_expiry_ts, last_sync_ts, error_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.AccountID, a.UserID, a.Provider, a.Email, a.Status,
		a.ChannelID, a.ChannelExpiry, a.LastSync, a.ErrorCount)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

const eventColumns = `event_id, user_id, account_id, title, start_ts, end_ts, timezone, description, location, status, source, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*Event, error) {
	var e Event
	err := row.Scan(&e.EventID, &e.UserID, &e.AccountID, &e.Title, &e.StartTs, &e.EndTs,
		&e.Timezone, &e.Description, &e.Location, &e.Status, &e.Source, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, userID string, f EventFilter) ([]Event, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if len(f.AccountIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.AccountIDs)), ",")
		where = append(where, fmt.Sprintf("account_id IN (%s)", placeholders))
		for _, id := range f.AccountIDs {
			args = append(args, id)
		}
	}
	if f.EndTs > 0 {
		// Half-open interval overlap with [StartTs, EndTs).
		where = append(where, "start_ts < ? AND end_ts > ?")
		args = append(args, f.EndTs, f.StartTs)
	}
	if f.Query != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + f.Query + "%"
		args = append(args, pattern, pattern)
	}

	query := fmt.Sprintf("SELECT %s FROM events WHERE %s ORDER BY start_ts", eventColumns, strings.Join(where, " AND "))
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) GetEvent(ctx context.Context, userID, eventID string) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM events WHERE user_id = ? AND event_id = ?", eventColumns),
		userID, eventID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "event", ID: eventID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) CreateEvent(ctx context.Context, ev *Event) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO events (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", eventColumns),
		ev.EventID, ev.UserID, ev.AccountID, ev.Title, ev.StartTs, ev.EndTs,
		ev.Timezone, ev.Description, ev.Location, ev.Status, ev.Source, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateEvent(ctx context.Context, ev *Event) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET title = ?, start_ts = ?, end_ts = ?, timezone = ?, description = ?, location = ?, status = ?, updated_at = ?
		 WHERE user_id = ? AND event_id = ?`,
		ev.Title, ev.StartTs, ev.EndTs, ev.Timezone, ev.Description, ev.Location, ev.Status, ev.UpdatedAt,
		ev.UserID, ev.EventID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "event", ID: ev.EventID}
	}
	return nil
}

func (s *SQLiteStore) DeleteEvent(ctx context.Context, userID, eventID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE user_id = ? AND event_id = ?`, userID, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "event", ID: eventID}
	}
	return nil
}

func (s *SQLiteStore) ListPolicyEdges(ctx context.Context, userID, accountID string) ([]PolicyEdge, error) {
	query := `SELECT user_id, from_account, to_account, detail_level, calendar_kind, block_policy, updated_at
	          FROM policy_edges WHERE user_id = ?`
	args := []any{userID}
	if accountID != "" {
		query += " AND (from_account = ? OR to_account = ?)"
		args = append(args, accountID, accountID)
	}
	query += " ORDER BY from_account, to_account"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list policy edges: %w", err)
	}
	defer rows.Close()

	var edges []PolicyEdge
	for rows.Next() {
		var e PolicyEdge
		if err := rows.Scan(&e.UserID, &e.FromAccount, &e.ToAccount, &e.DetailLevel,
			&e.CalendarKind, &e.BlockPolicy, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan policy edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *SQLiteStore) GetPolicyEdge(ctx context.Context, userID, fromAccount, toAccount string) (*PolicyEdge, error) {
	var e PolicyEdge
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, from_account, to_account, detail_level, calendar_kind, block_policy, updated_at
		 FROM policy_edges WHERE user_id = ? AND from_account = ? AND to_account = ?`,
		userID, fromAccount, toAccount).
		Scan(&e.UserID, &e.FromAccount, &e.ToAccount, &e.DetailLevel, &e.CalendarKind, &e.BlockPolicy, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "policy edge", ID: fromAccount + "->" + toAccount}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy edge: %w", err)
	}
	return &e, nil
}

func (s *SQLiteStore) SetPolicyEdge(ctx context.Context, edge *PolicyEdge) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO policy_edges
		 (user_id, from_account, to_account, detail_level, calendar_kind, block_policy, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		edge.UserID, edge.FromAccount, edge.ToAccount, edge.DetailLevel,
		edge.CalendarKind, edge.BlockPolicy, edge.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to set policy edge: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListConstraints(ctx context.Context, userID, accountID string) ([]Constraint, error) {
	query := `SELECT constraint_id, user_id, account_id, kind, payload, created_at
	          FROM constraints WHERE user_id = ?`
	args := []any{userID}
	if accountID != "" {
		query += " AND account_id = ?"
		args = append(args, accountID)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list constraints: %w", err)
	}
	defer rows.Close()

	var constraints []Constraint
	for rows.Next() {
		var c Constraint
		if err := rows.Scan(&c.ConstraintID, &c.UserID, &c.AccountID, &c.Kind, &c.Payload, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan constraint: %w", err)
		}
		constraints = append(constraints, c)
	}
	return constraints, rows.Err()
}

func (s *SQLiteStore) CreateConstraint(ctx context.Context, c *Constraint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO constraints (constraint_id, user_id, account_id, kind, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ConstraintID, c.UserID, c.AccountID, c.Kind, c.Payload, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create constraint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateTrip(ctx context.Context, t *Trip) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trips (trip_id, user_id, title, destination, start_ts, end_ts, timezone, block_policy, event_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TripID, t.UserID, t.Title, t.Destination, t.StartTs, t.EndTs,
		t.Timezone, t.BlockPolicy, t.EventID, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateProposal(ctx context.Context, p *Proposal, candidates []Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO proposals (proposal_id, user_id, duration_minutes, window_start_ts, window_end_ts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ProposalID, p.UserID, p.DurationMinutes, p.WindowStartTs, p.WindowEndTs, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	for _, c := range candidates {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO candidates (candidate_id, proposal_id, start_ts, end_ts, score, rank)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.CandidateID, p.ProposalID, c.StartTs, c.EndTs, c.Score, c.Rank)
		if err != nil {
			return fmt.Errorf("failed to create candidate: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetProposal(ctx context.Context, userID, proposalID string) (*Proposal, error) {
	var p Proposal
	err := s.db.QueryRowContext(ctx,
		`SELECT proposal_id, user_id, duration_minutes, window_start_ts, window_end_ts, created_at
		 FROM proposals WHERE user_id = ? AND proposal_id = ?`, userID, proposalID).
		Scan(&p.ProposalID, &p.UserID, &p.DurationMinutes, &p.WindowStartTs, &p.WindowEndTs, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "proposal", ID: proposalID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) GetCandidate(ctx context.Context, proposalID, candidateID string) (*Candidate, error) {
	var c Candidate
	err := s.db.QueryRowContext(ctx,
		`SELECT candidate_id, proposal_id, start_ts, end_ts, score, rank
		 FROM candidates WHERE proposal_id = ? AND candidate_id = ?`, proposalID, candidateID).
		Scan(&c.CandidateID, &c.ProposalID, &c.StartTs, &c.EndTs, &c.Score, &c.Rank)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "candidate", ID: candidateID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) CreateCommitment(ctx context.Context, c *Commitment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commitments (commitment_id, user_id, proposal_id, candidate_id, event_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CommitmentID, c.UserID, c.ProposalID, c.CandidateID, c.EventID, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create commitment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCommitment(ctx context.Context, userID, commitmentID string) (*Commitment, error) {
	var c Commitment
	err := s.db.QueryRowContext(ctx,
		`SELECT commitment_id, user_id, proposal_id, candidate_id, event_id, status, created_at, updated_at
		 FROM commitments WHERE user_id = ? AND commitment_id = ?`, userID, commitmentID).
		Scan(&c.CommitmentID, &c.UserID, &c.ProposalID, &c.CandidateID, &c.EventID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "commitment", ID: commitmentID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commitment: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) GetCommitmentByProposal(ctx context.Context, userID, proposalID string) (*Commitment, error) {
	var c Commitment
	err := s.db.QueryRowContext(ctx,
		`SELECT commitment_id, user_id, proposal_id, candidate_id, event_id, status, created_at, updated_at
		 FROM commitments WHERE user_id = ? AND proposal_id = ? LIMIT 1`, userID, proposalID).
		Scan(&c.CommitmentID, &c.UserID, &c.ProposalID, &c.CandidateID, &c.EventID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "commitment", ID: proposalID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commitment by proposal: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) CreateRelationship(ctx context.Context, r *Relationship) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relationships (relationship_id, user_id, name, email, cadence_days, last_interaction_ts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RelationshipID, r.UserID, r.Name, r.Email, r.CadenceDays, r.LastInteractionTs, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListRelationships(ctx context.Context, userID string, limit int) ([]Relationship, error) {
	query := `SELECT relationship_id, user_id, name, email, cadence_days, last_interaction_ts, created_at
	          FROM relationships WHERE user_id = ? ORDER BY last_interaction_ts`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	var relationships []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.RelationshipID, &r.UserID, &r.Name, &r.Email,
			&r.CadenceDays, &r.LastInteractionTs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		relationships = append(relationships, r)
	}
	return relationships, rows.Err()
}

func (s *SQLiteStore) GetRelationship(ctx context.Context, userID, relationshipID string) (*Relationship, error) {
	var r Relationship
	err := s.db.QueryRowContext(ctx,
		`SELECT relationship_id, user_id, name, email, cadence_days, last_interaction_ts, created_at
		 FROM relationships WHERE user_id = ? AND relationship_id = ?`, userID, relationshipID).
		Scan(&r.RelationshipID, &r.UserID, &r.Name, &r.Email, &r.CadenceDays, &r.LastInteractionTs, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Kind: "relationship", ID: relationshipID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return &r, nil
}

func (s *SQLiteStore) RecordInteraction(ctx context.Context, userID string, in *Interaction) error {
	if _, err := s.GetRelationship(ctx, userID, in.RelationshipID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO interactions (interaction_id, relationship_id, outcome, note, occurred_at)
		 VALUES (?, ?, ?, ?, ?)`,
		in.InteractionID, in.RelationshipID, in.Outcome, in.Note, in.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}

	// Only a completed meeting resets the drift clock.
	if in.Outcome == "met" {
		_, err = tx.ExecContext(ctx,
			`UPDATE relationships SET last_interaction_ts = ? WHERE user_id = ? AND relationship_id = ?`,
			in.OccurredAt, userID, in.RelationshipID)
		if err != nil {
			return fmt.Errorf("failed to update relationship: %w", err)
		}
	}
	return tx.Commit()
}
