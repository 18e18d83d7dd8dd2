// Package bindings holds the seams to external systems that the tool
// handlers call but this server does not implement itself: the provider
// sync pipeline and the commitment proof exporter. Handlers treat these
// as best-effort; a handler decides per call whether ErrUnavailable is
// fatal or merely logged.
package bindings

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by a binding that has no live backend
// wired. The dispatcher maps a fatal occurrence to a generic internal
// error without leaking binding details.
var ErrUnavailable = errors.New("binding unavailable")

// SyncService pushes local calendar mutations out to the provider sync
// pipeline.
type SyncService interface {
	PushEvent(ctx context.Context, accountID, eventID string) error
	PushDeletion(ctx context.Context, accountID, eventID string) error
}

// ProofExporter renders a signed commitment proof in the requested
// format ("json" or "text").
type ProofExporter interface {
	Export(ctx context.Context, commitmentID, format string) (string, error)
}

// UnavailableSync is the default SyncService when no pipeline is
// configured. Mutations still persist locally; pushes report
// ErrUnavailable and callers log and continue.
type UnavailableSync struct{}

func (UnavailableSync) PushEvent(context.Context, string, string) error {
	return ErrUnavailable
}

func (UnavailableSync) PushDeletion(context.Context, string, string) error {
	return ErrUnavailable
}

// UnavailableExporter is the default ProofExporter when no exporter is
// configured.
type UnavailableExporter struct{}

func (UnavailableExporter) Export(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}
