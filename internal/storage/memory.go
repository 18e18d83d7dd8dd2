package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store used in tests and for running the
// server without a database file. It applies the same scoping and
// not-found semantics as the sqlite implementation.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[string]Account
	events        map[string]Event
	policyEdges   map[string]PolicyEdge
	constraints   map[string]Constraint
	trips         map[string]Trip
	proposals     map[string]Proposal
	candidates    map[string][]Candidate
	commitments   map[string]Commitment
	relationships map[string]Relationship
	interactions  []Interaction
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:      make(map[string]Account),
		events:        make(map[string]Event),
		policyEdges:   make(map[string]PolicyEdge),
		constraints:   make(map[string]Constraint),
		trips:         make(map[string]Trip),
		proposals:     make(map[string]Proposal),
		candidates:    make(map[string][]Candidate),
		commitments:   make(map[string]Commitment),
		relationships: make(map[string]Relationship),
	}
}

func (m *MemoryStore) ListAccounts(_ context.Context, userID string) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].AccountID < accounts[j].AccountID })
	return accounts, nil
}

func (m *MemoryStore) GetAccount(_ context.Context, userID, accountID string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return nil, &NotFoundError{Kind: "account", ID: accountID}
	}
	return &a, nil
}

// UpsertAccount inserts or replaces an account. Mirrors the sqlite
// implementation so tests can seed fixtures through the same call.
func (m *MemoryStore) UpsertAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.AccountID] = *a
	return nil
}

func (m *MemoryStore) ListEvents(_ context.Context, userID string, f EventFilter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	accountSet := make(map[string]bool, len(f.AccountIDs))
	for _, id := range f.AccountIDs {
		accountSet[id] = true
	}

	var events []Event
	for _, e := range m.events {
		if e.UserID != userID {
			continue
		}
		if len(accountSet) > 0 && !accountSet[e.AccountID] {
			continue
		}
		if f.EndTs > 0 && !(e.StartTs < f.EndTs && e.EndTs > f.StartTs) {
			continue
		}
		if f.Query != "" {
			q := strings.ToLower(f.Query)
			if !strings.Contains(strings.ToLower(e.Title), q) &&
				!strings.Contains(strings.ToLower(e.Description), q) {
				continue
			}
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartTs < events[j].StartTs })
	if f.Limit > 0 && len(events) > f.Limit {
		events = events[:f.Limit]
	}
	return events, nil
}

func (m *MemoryStore) GetEvent(_ context.Context, userID, eventID string) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[eventID]
	if !ok || e.UserID != userID {
		return nil, &NotFoundError{Kind: "event", ID: eventID}
	}
	return &e, nil
}

func (m *MemoryStore) CreateEvent(_ context.Context, ev *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.EventID] = *ev
	return nil
}

func (m *MemoryStore) UpdateEvent(_ context.Context, ev *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.events[ev.EventID]
	if !ok || existing.UserID != ev.UserID {
		return &NotFoundError{Kind: "event", ID: ev.EventID}
	}
	m.events[ev.EventID] = *ev
	return nil
}

func (m *MemoryStore) DeleteEvent(_ context.Context, userID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok || e.UserID != userID {
		return &NotFoundError{Kind: "event", ID: eventID}
	}
	delete(m.events, eventID)
	return nil
}

func edgeKey(userID, from, to string) string {
	return userID + "\x00" + from + "\x00" + to
}

func (m *MemoryStore) ListPolicyEdges(_ context.Context, userID, accountID string) ([]PolicyEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var edges []PolicyEdge
	for _, e := range m.policyEdges {
		if e.UserID != userID {
			continue
		}
		if accountID != "" && e.FromAccount != accountID && e.ToAccount != accountID {
			continue
		}
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromAccount != edges[j].FromAccount {
			return edges[i].FromAccount < edges[j].FromAccount
		}
		return edges[i].ToAccount < edges[j].ToAccount
	})
	return edges, nil
}

func (m *MemoryStore) GetPolicyEdge(_ context.Context, userID, fromAccount, toAccount string) (*PolicyEdge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.policyEdges[edgeKey(userID, fromAccount, toAccount)]
	if !ok {
		return nil, &NotFoundError{Kind: "policy edge", ID: fromAccount + "->" + toAccount}
	}
	return &e, nil
}

func (m *MemoryStore) SetPolicyEdge(_ context.Context, edge *PolicyEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policyEdges[edgeKey(edge.UserID, edge.FromAccount, edge.ToAccount)] = *edge
	return nil
}

func (m *MemoryStore) ListConstraints(_ context.Context, userID, accountID string) ([]Constraint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var constraints []Constraint
	for _, c := range m.constraints {
		if c.UserID != userID {
			continue
		}
		if accountID != "" && c.AccountID != accountID {
			continue
		}
		constraints = append(constraints, c)
	}
	sort.Slice(constraints, func(i, j int) bool { return constraints[i].CreatedAt < constraints[j].CreatedAt })
	return constraints, nil
}

func (m *MemoryStore) CreateConstraint(_ context.Context, c *Constraint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints[c.ConstraintID] = *c
	return nil
}

func (m *MemoryStore) CreateTrip(_ context.Context, t *Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[t.TripID] = *t
	return nil
}

func (m *MemoryStore) CreateProposal(_ context.Context, p *Proposal, candidates []Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[p.ProposalID] = *p
	m.candidates[p.ProposalID] = append([]Candidate(nil), candidates...)
	return nil
}

func (m *MemoryStore) GetProposal(_ context.Context, userID, proposalID string) (*Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.proposals[proposalID]
	if !ok || p.UserID != userID {
		return nil, &NotFoundError{Kind: "proposal", ID: proposalID}
	}
	return &p, nil
}

func (m *MemoryStore) GetCandidate(_ context.Context, proposalID, candidateID string) (*Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.candidates[proposalID] {
		if c.CandidateID == candidateID {
			c := c
			return &c, nil
		}
	}
	return nil, &NotFoundError{Kind: "candidate", ID: candidateID}
}

func (m *MemoryStore) CreateCommitment(_ context.Context, c *Commitment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitments[c.CommitmentID] = *c
	return nil
}

func (m *MemoryStore) GetCommitment(_ context.Context, userID, commitmentID string) (*Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commitments[commitmentID]
	if !ok || c.UserID != userID {
		return nil, &NotFoundError{Kind: "commitment", ID: commitmentID}
	}
	return &c, nil
}

func (m *MemoryStore) GetCommitmentByProposal(_ context.Context, userID, proposalID string) (*Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.commitments {
		if c.UserID == userID && c.ProposalID == proposalID {
			c := c
			return &c, nil
		}
	}
	return nil, &NotFoundError{Kind: "commitment", ID: proposalID}
}

func (m *MemoryStore) CreateRelationship(_ context.Context, r *Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relationships[r.RelationshipID] = *r
	return nil
}

func (m *MemoryStore) ListRelationships(_ context.Context, userID string, limit int) ([]Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var relationships []Relationship
	for _, r := range m.relationships {
		if r.UserID == userID {
			relationships = append(relationships, r)
		}
	}
	sort.Slice(relationships, func(i, j int) bool {
		return relationships[i].LastInteractionTs < relationships[j].LastInteractionTs
	})
	if limit > 0 && len(relationships) > limit {
		relationships = relationships[:limit]
	}
	return relationships, nil
}

func (m *MemoryStore) GetRelationship(_ context.Context, userID, relationshipID string) (*Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.relationships[relationshipID]
	if !ok || r.UserID != userID {
		return nil, &NotFoundError{Kind: "relationship", ID: relationshipID}
	}
	return &r, nil
}

func (m *MemoryStore) RecordInteraction(_ context.Context, userID string, in *Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.relationships[in.RelationshipID]
	if !ok || r.UserID != userID {
		return &NotFoundError{Kind: "relationship", ID: in.RelationshipID}
	}
	m.interactions = append(m.interactions, *in)
	if in.Outcome == "met" {
		r.LastInteractionTs = in.OccurredAt
		m.relationships[in.RelationshipID] = r
	}
	return nil
}
