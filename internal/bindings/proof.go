package bindings

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calbridge/calbridge/internal/storage"
)

// LocalExporter renders commitment proofs from local state, signed with
// an HMAC so a recipient holding the shared secret can verify them. It
// is the ProofExporter used when no external export service is wired.
type LocalExporter struct {
	store  proofStore
	secret []byte
}

// proofStore is the slice of storage.Store the exporter needs.
type proofStore interface {
	GetCommitment(ctx context.Context, userID, commitmentID string) (*storage.Commitment, error)
	GetEvent(ctx context.Context, userID, eventID string) (*storage.Event, error)
}

// NewLocalExporter returns an exporter reading from store and signing
// with secret.
func NewLocalExporter(store proofStore, secret []byte) *LocalExporter {
	return &LocalExporter{store: store, secret: secret}
}

type proofDocument struct {
	CommitmentID string `json:"commitment_id"`
	ProposalID   string `json:"proposal_id"`
	EventID      string `json:"event_id"`
	Title        string `json:"title"`
	StartTs      int64  `json:"start_ts"`
	EndTs        int64  `json:"end_ts"`
	Status       string `json:"status"`
	ExportedAt   string `json:"exported_at"`
	Signature    string `json:"signature"`
}

// Export renders the proof for commitmentID. The user scope travels in
// ctx via WithUserID; an unscoped context cannot resolve any commitment.
func (e *LocalExporter) Export(ctx context.Context, commitmentID, format string) (string, error) {
	userID, ok := userIDFrom(ctx)
	if !ok {
		return "", ErrUnavailable
	}
	c, err := e.store.GetCommitment(ctx, userID, commitmentID)
	if err != nil {
		return "", err
	}
	ev, err := e.store.GetEvent(ctx, userID, c.EventID)
	if err != nil {
		return "", err
	}

	doc := proofDocument{
		CommitmentID: c.CommitmentID,
		ProposalID:   c.ProposalID,
		EventID:      ev.EventID,
		Title:        ev.Title,
		StartTs:      ev.StartTs,
		EndTs:        ev.EndTs,
		Status:       c.Status,
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	doc.Signature = e.sign(doc)

	switch format {
	case "text":
		return fmt.Sprintf("commitment %s: %q from %d to %d (%s)\nsignature: %s",
			doc.CommitmentID, doc.Title, doc.StartTs, doc.EndTs, doc.Status, doc.Signature), nil
	default:
		out, err := json.Marshal(doc)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func (e *LocalExporter) sign(doc proofDocument) string {
	mac := hmac.New(sha256.New, e.secret)
	fmt.Fprintf(mac, "%s|%s|%s|%d|%d|%s",
		doc.CommitmentID, doc.ProposalID, doc.EventID, doc.StartTs, doc.EndTs, doc.Status)
	return hex.EncodeToString(mac.Sum(nil))
}

type userIDKey struct{}

// WithUserID scopes ctx to a user for binding calls.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func userIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}
