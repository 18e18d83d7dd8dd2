package crm_tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/availability"
	"github.com/calbridge/calbridge/internal/registry"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/storage"
	"github.com/calbridge/calbridge/internal/tier"
	"github.com/calbridge/calbridge/internal/tools/common"
	"github.com/calbridge/calbridge/internal/validate"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixture(t *testing.T) (*registry.Registry, *storage.MemoryStore) {
	t.Helper()

	prev := now
	now = func() time.Time { return testNow }
	t.Cleanup(func() { now = prev })

	store := storage.NewMemoryStore()
	sc := server.NewServerContext(context.Background(), server.ServerContextConfig{Store: store})
	reg := registry.New()
	require.NoError(t, RegisterCRMTools(reg, sc))
	return reg, store
}

func call(t *testing.T, reg *registry.Registry, name string, args map[string]any, out any) error {
	t.Helper()

	def, ok := reg.Get(name)
	require.True(t, ok, "tool %s not registered", name)

	user := &auth.UserContext{UserID: "u-1", Tier: tier.Enterprise}
	res, err := def.Handler(context.Background(), user, args)
	if err != nil {
		return err
	}
	require.NoError(t, common.DecodeResult(res, out))
	return nil
}

func seedRelationship(t *testing.T, store *storage.MemoryStore, name string, cadenceDays int, lastInteraction time.Time) string {
	t.Helper()

	r := &storage.Relationship{
		RelationshipID: "rel-" + name,
		UserID:         "u-1",
		Name:           name,
		CadenceDays:    cadenceDays,
		CreatedAt:      testNow.AddDate(-1, 0, 0).UnixMilli(),
	}
	if !lastInteraction.IsZero() {
		r.LastInteractionTs = lastInteraction.UnixMilli()
	}
	require.NoError(t, store.CreateRelationship(context.Background(), r))
	return r.RelationshipID
}

func TestAddRelationshipDefaults(t *testing.T) {
	reg, store := fixture(t)

	var got struct {
		Relationship storage.Relationship `json:"relationship"`
	}
	require.NoError(t, call(t, reg, "calendar.add_relationship", map[string]any{
		"name":  "Alex",
		"email": "alex@example.com",
	}, &got))
	assert.Equal(t, 30, got.Relationship.CadenceDays)
	assert.Equal(t, testNow.UnixMilli(), got.Relationship.CreatedAt)

	stored, err := store.GetRelationship(context.Background(), "u-1", got.Relationship.RelationshipID)
	require.NoError(t, err)
	assert.Equal(t, "Alex", stored.Name)

	err = call(t, reg, "calendar.add_relationship", map[string]any{
		"name":  "Bad",
		"email": "not-an-email",
	}, &got)
	var ipe *validate.InvalidParamsError
	require.ErrorAs(t, err, &ipe)
}

func TestDriftReportWorstFirst(t *testing.T) {
	reg, store := fixture(t)

	// 30-day cadence, 40 days since: 10 days of drift.
	seedRelationship(t, store, "mild", 30, testNow.AddDate(0, 0, -40))
	// 7-day cadence, 60 days since: 53 days of drift.
	seedRelationship(t, store, "severe", 7, testNow.AddDate(0, 0, -60))
	// Within cadence, not in the report.
	seedRelationship(t, store, "fresh", 30, testNow.AddDate(0, 0, -5))

	var got struct {
		Drifted []struct {
			Relationship storage.Relationship `json:"relationship"`
			DaysSince    int                  `json:"days_since_interaction"`
			DriftDays    int                  `json:"drift_days"`
		} `json:"drifted"`
		Count int `json:"count"`
	}
	require.NoError(t, call(t, reg, "calendar.get_drift_report", nil, &got))

	require.Equal(t, 2, got.Count)
	assert.Equal(t, "severe", got.Drifted[0].Relationship.Name)
	assert.Equal(t, 53, got.Drifted[0].DriftDays)
	assert.Equal(t, 60, got.Drifted[0].DaysSince)
	assert.Equal(t, "mild", got.Drifted[1].Relationship.Name)
	assert.Equal(t, 10, got.Drifted[1].DriftDays)

	// A relationship with no interactions drifts from creation.
	seedRelationship(t, store, "never", 30, time.Time{})
	require.NoError(t, call(t, reg, "calendar.get_drift_report", nil, &got))
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, "never", got.Drifted[0].Relationship.Name)

	require.NoError(t, call(t, reg, "calendar.get_drift_report", map[string]any{
		"limit": float64(1),
	}, &got))
	assert.Equal(t, 1, got.Count)
}

func TestMarkOutcomeResetsDriftOnMet(t *testing.T) {
	reg, store := fixture(t)
	id := seedRelationship(t, store, "alex", 7, testNow.AddDate(0, 0, -30))

	var got struct {
		Interaction  storage.Interaction  `json:"interaction"`
		Relationship storage.Relationship `json:"relationship"`
	}
	require.NoError(t, call(t, reg, "calendar.mark_outcome", map[string]any{
		"relationship_id": id,
		"outcome":         "skipped",
		"note":            "out sick",
	}, &got))
	// A skipped interaction is recorded but does not reset the clock.
	assert.Equal(t, testNow.AddDate(0, 0, -30).UnixMilli(), got.Relationship.LastInteractionTs)

	require.NoError(t, call(t, reg, "calendar.mark_outcome", map[string]any{
		"relationship_id": id,
		"outcome":         "met",
	}, &got))
	assert.Equal(t, testNow.UnixMilli(), got.Relationship.LastInteractionTs)

	err := call(t, reg, "calendar.mark_outcome", map[string]any{
		"relationship_id": "rel-missing",
		"outcome":         "met",
	}, &got)
	var nf *storage.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestReconnectionSuggestionsPairDriftWithFreeSlots(t *testing.T) {
	reg, store := fixture(t)
	seedRelationship(t, store, "severe", 7, testNow.AddDate(0, 0, -60))
	seedRelationship(t, store, "mild", 30, testNow.AddDate(0, 0, -40))

	// The first hour after "now" is busy, so the earliest suggested
	// slot starts an hour in.
	require.NoError(t, store.CreateEvent(context.Background(), &storage.Event{
		EventID:   "ev-1",
		UserID:    "u-1",
		AccountID: "acct-1",
		Title:     "busy",
		StartTs:   testNow.UnixMilli(),
		EndTs:     testNow.Add(time.Hour).UnixMilli(),
		Status:    availability.EventConfirmed,
	}))

	var got struct {
		Suggestions []struct {
			Relationship storage.Relationship `json:"relationship"`
			DriftDays    int                  `json:"drift_days"`
			Slot         availability.Slot    `json:"slot"`
		} `json:"suggestions"`
		Count int `json:"count"`
	}
	require.NoError(t, call(t, reg, "calendar.get_reconnection_suggestions", map[string]any{
		"count": float64(2),
	}, &got))

	require.Equal(t, 2, got.Count)
	assert.Equal(t, "severe", got.Suggestions[0].Relationship.Name)
	assert.Equal(t, "2024-06-01T13:00:00.000Z", got.Suggestions[0].Slot.Start)
	assert.Equal(t, "free", got.Suggestions[0].Slot.Status)
	assert.Equal(t, "mild", got.Suggestions[1].Relationship.Name)
	assert.Equal(t, "2024-06-01T14:00:00.000Z", got.Suggestions[1].Slot.Start)
}

func TestReconnectionSuggestionsEmptyWhenNoDrift(t *testing.T) {
	reg, store := fixture(t)
	seedRelationship(t, store, "fresh", 30, testNow.AddDate(0, 0, -1))

	var got struct {
		Count int `json:"count"`
	}
	require.NoError(t, call(t, reg, "calendar.get_reconnection_suggestions", nil, &got))
	assert.Equal(t, 0, got.Count)
}
