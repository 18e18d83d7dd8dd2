package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calbridge/calbridge/internal/availability"
)

func TestValidateListEventsParams(t *testing.T) {
	args := map[string]any{
		"start": "2026-03-15T09:00:00Z",
		"end":   "2026-03-15T17:00:00Z",
	}

	p, err := ValidateListEventsParams(args)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.True(t, p.Start.Before(p.End))
	assert.Empty(t, p.AccountID)
}

func TestValidateListEventsParamsErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		wantMsg string
	}{
		{
			name:    "missing start",
			args:    map[string]any{"end": "2026-03-15T17:00:00Z"},
			wantMsg: "'start' is required",
		},
		{
			name:    "whitespace start",
			args:    map[string]any{"start": "   ", "end": "2026-03-15T17:00:00Z"},
			wantMsg: "'start' is required",
		},
		{
			name:    "non-string start",
			args:    map[string]any{"start": 12345, "end": "2026-03-15T17:00:00Z"},
			wantMsg: "'start' is required",
		},
		{
			name:    "unparseable end",
			args:    map[string]any{"start": "2026-03-15T09:00:00Z", "end": "next tuesday"},
			wantMsg: "'end' must be a valid ISO-8601 datetime",
		},
		{
			name: "start equals end",
			args: map[string]any{
				"start": "2026-03-15T09:00:00Z",
				"end":   "2026-03-15T09:00:00Z",
			},
			wantMsg: "'start' must be before 'end'",
		},
		{
			name: "non-numeric limit",
			args: map[string]any{
				"start": "2026-03-15T09:00:00Z",
				"end":   "2026-03-15T17:00:00Z",
				"limit": "fifty",
			},
			wantMsg: "'limit' must be a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateListEventsParams(tt.args)
			require.Error(t, err)
			var ipe *InvalidParamsError
			require.ErrorAs(t, err, &ipe)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLimitClamping(t *testing.T) {
	args := map[string]any{
		"start": "2026-03-15T09:00:00Z",
		"end":   "2026-03-15T17:00:00Z",
		"limit": float64(9000),
	}
	p, err := ValidateListEventsParams(args)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, p.Limit)
}

func TestValidateCreateEventParams(t *testing.T) {
	args := map[string]any{
		"account_id": "acc-1",
		"title":      "Standup",
		"start":      "2026-03-15T09:00:00Z",
		"end":        "2026-03-15T09:15:00Z",
	}

	p, err := ValidateCreateEventParams(args)
	require.NoError(t, err)
	assert.Equal(t, "UTC", p.Timezone, "timezone defaults to UTC")
	assert.Equal(t, "Standup", p.Title)

	args["timezone"] = "Europe/Berlin"
	p, err = ValidateCreateEventParams(args)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", p.Timezone)

	delete(args, "title")
	_, err = ValidateCreateEventParams(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'title' is required")
}

func TestValidateUpdateEventParams(t *testing.T) {
	t.Run("empty patch rejected", func(t *testing.T) {
		_, err := ValidateUpdateEventParams(map[string]any{"event_id": "evt-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one field to update")
	})

	t.Run("missing event id", func(t *testing.T) {
		_, err := ValidateUpdateEventParams(map[string]any{"title": "New"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'event_id' is required")
	})

	t.Run("single field patch", func(t *testing.T) {
		p, err := ValidateUpdateEventParams(map[string]any{"event_id": "evt-1", "title": "New"})
		require.NoError(t, err)
		require.NotNil(t, p.Title)
		assert.Equal(t, "New", *p.Title)
		assert.Nil(t, p.Start)
	})

	t.Run("inverted range in patch", func(t *testing.T) {
		_, err := ValidateUpdateEventParams(map[string]any{
			"event_id": "evt-1",
			"start":    "2026-03-15T10:00:00Z",
			"end":      "2026-03-15T09:00:00Z",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'start' must be before 'end'")
	})

	t.Run("bad datetime in patch", func(t *testing.T) {
		_, err := ValidateUpdateEventParams(map[string]any{"event_id": "evt-1", "start": "soon"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'start' must be a valid ISO-8601 datetime")
	})
}

func TestValidateGetAvailabilityParams(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"start": "2026-03-15T09:00:00Z",
			"end":   "2026-03-15T11:00:00Z",
		}
	}

	t.Run("defaults", func(t *testing.T) {
		p, err := ValidateGetAvailabilityParams(base())
		require.NoError(t, err)
		assert.Equal(t, int64(availability.Granularity30m), p.GranularityMs)
		assert.Nil(t, p.Accounts)
	})

	t.Run("granularity enum", func(t *testing.T) {
		args := base()
		args["granularity"] = "15m"
		p, err := ValidateGetAvailabilityParams(args)
		require.NoError(t, err)
		assert.Equal(t, int64(availability.Granularity15m), p.GranularityMs)

		args["granularity"] = "45m"
		_, err = ValidateGetAvailabilityParams(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'granularity' must be one of: 15m, 30m, 1h")

		args["granularity"] = 30
		_, err = ValidateGetAvailabilityParams(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be one of")
	})

	t.Run("range cap", func(t *testing.T) {
		args := base()
		args["end"] = "2026-03-23T09:00:00Z" // eight days
		_, err := ValidateGetAvailabilityParams(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not exceed 7 days")

		args["end"] = "2026-03-22T09:00:00Z" // exactly seven days is fine
		_, err = ValidateGetAvailabilityParams(args)
		require.NoError(t, err)
	})

	t.Run("accounts filter", func(t *testing.T) {
		args := base()
		args["accounts"] = []any{"acc-1", "acc-2"}
		p, err := ValidateGetAvailabilityParams(args)
		require.NoError(t, err)
		assert.Equal(t, []string{"acc-1", "acc-2"}, p.Accounts)

		args["accounts"] = []any{}
		p, err = ValidateGetAvailabilityParams(args)
		require.NoError(t, err)
		assert.Nil(t, p.Accounts, "empty array normalizes to no filter")

		args["accounts"] = []any{"acc-1", ""}
		_, err = ValidateGetAvailabilityParams(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-empty strings")

		args["accounts"] = "acc-1"
		_, err = ValidateGetAvailabilityParams(args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'accounts' must be an array")
	})
}

func TestValidateSetPolicyEdgeParams(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"from_account": "acc-1",
			"to_account":   "acc-2",
			"detail_level": "busy_only",
		}
	}

	p, err := ValidateSetPolicyEdgeParams(base())
	require.NoError(t, err)
	assert.Equal(t, "primary", p.CalendarKind)
	assert.Equal(t, "BUSY", p.BlockPolicy)
	assert.Equal(t, "busy_only", p.DetailLevel)

	args := base()
	args["detail_level"] = "everything"
	_, err = ValidateSetPolicyEdgeParams(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'detail_level' must be one of: full, title_only, busy_only")

	args = base()
	delete(args, "detail_level")
	_, err = ValidateSetPolicyEdgeParams(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'detail_level' is required")

	args = base()
	args["to_account"] = "acc-1"
	_, err = ValidateSetPolicyEdgeParams(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestValidateAddConstraintParams(t *testing.T) {
	t.Run("working hours", func(t *testing.T) {
		p, err := ValidateAddConstraintParams(map[string]any{
			"kind":       "working_hours",
			"start_hour": float64(9),
			"end_hour":   float64(17),
		})
		require.NoError(t, err)
		assert.Equal(t, 9, p.StartHour)
		assert.Equal(t, 17, p.EndHour)

		_, err = ValidateAddConstraintParams(map[string]any{
			"kind":       "working_hours",
			"start_hour": float64(17),
			"end_hour":   float64(9),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'start_hour' must be before 'end_hour'")
	})

	t.Run("blackout", func(t *testing.T) {
		_, err := ValidateAddConstraintParams(map[string]any{"kind": "blackout"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'start' is required")
	})

	t.Run("buffer", func(t *testing.T) {
		_, err := ValidateAddConstraintParams(map[string]any{
			"kind":           "buffer",
			"buffer_minutes": float64(500),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'buffer_minutes' must be between 1 and 240")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := ValidateAddConstraintParams(map[string]any{"kind": "naps"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'kind' must be one of: working_hours, blackout, buffer")
	})
}

func TestValidateProposeTimesParams(t *testing.T) {
	args := map[string]any{
		"duration_minutes": float64(30),
		"window_start":     "2026-03-15T09:00:00Z",
		"window_end":       "2026-03-16T09:00:00Z",
	}

	p, err := ValidateProposeTimesParams(args)
	require.NoError(t, err)
	assert.Equal(t, 30, p.DurationMinutes)
	assert.Equal(t, 3, p.Count)

	args["duration_minutes"] = float64(3)
	_, err = ValidateProposeTimesParams(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'duration_minutes' must be between 5 and 480")

	args["duration_minutes"] = float64(30)
	args["count"] = float64(99)
	p, err = ValidateProposeTimesParams(args)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Count, "count clamps to ceiling")
}

func TestValidateExportProofParams(t *testing.T) {
	p, err := ValidateExportProofParams(map[string]any{"commitment_id": "cmt-1"})
	require.NoError(t, err)
	assert.Equal(t, "json", p.Format)

	_, err = ValidateExportProofParams(map[string]any{"commitment_id": "cmt-1", "format": "pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'format' must be one of: json, text")
}

func TestValidateAddRelationshipParams(t *testing.T) {
	p, err := ValidateAddRelationshipParams(map[string]any{"name": "Sam"})
	require.NoError(t, err)
	assert.Equal(t, 30, p.CadenceDays)

	_, err = ValidateAddRelationshipParams(map[string]any{"name": "Sam", "email": "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'email' must be a valid email address")

	p, err = ValidateAddRelationshipParams(map[string]any{"name": "Sam", "cadence_days": float64(999)})
	require.NoError(t, err)
	assert.Equal(t, 365, p.CadenceDays)
}

func TestValidateMarkOutcomeParams(t *testing.T) {
	p, err := ValidateMarkOutcomeParams(map[string]any{
		"relationship_id": "rel-1",
		"outcome":         "met",
	})
	require.NoError(t, err)
	assert.Equal(t, "met", p.Outcome)

	_, err = ValidateMarkOutcomeParams(map[string]any{
		"relationship_id": "rel-1",
		"outcome":         "ghosted",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'outcome' must be one of: met, skipped, rescheduled")
}

func TestValidateReconnectionParams(t *testing.T) {
	p, err := ValidateReconnectionParams(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 7, p.WindowDays)
	assert.Equal(t, 3, p.Count)
}

func TestFractionalNumbersRejected(t *testing.T) {
	_, err := ValidateProposeTimesParams(map[string]any{
		"duration_minutes": 30.5,
		"window_start":     "2026-03-15T09:00:00Z",
		"window_end":       "2026-03-16T09:00:00Z",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'duration_minutes' must be an integer")
}

func TestValidateAddTripParams(t *testing.T) {
	args := map[string]any{
		"title":       "Berlin offsite",
		"destination": "Berlin",
		"start":       "2026-05-01T00:00:00Z",
		"end":         "2026-05-05T00:00:00Z",
	}
	p, err := ValidateAddTripParams(args)
	require.NoError(t, err)
	assert.Equal(t, "BUSY", p.BlockPolicy)
	assert.Equal(t, "UTC", p.Timezone)
	assert.Equal(t, 4*24*time.Hour, p.End.Sub(p.Start))

	args["block_policy"] = "AWAY"
	_, err = ValidateAddTripParams(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'block_policy' must be one of: BUSY, FREE, OOO")
}
