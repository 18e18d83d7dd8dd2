// Package synchealth grades calendar-account sync freshness.
//
// Health grades form a fixed severity order (healthy < degraded < stale <
// unhealthy < error, best first). Aggregate health across accounts is the
// worst grade present. All functions are pure; the caller supplies "now".
package synchealth

import "time"

// Status is a sync-health grade.
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Stale     Status = "stale"
	Unhealthy Status = "unhealthy"
	Error     Status = "error"
)

// Webhook channel liveness states.
type ChannelStatus string

const (
	ChannelActive  ChannelStatus = "active"
	ChannelExpired ChannelStatus = "expired"
	ChannelNone    ChannelStatus = "none"
)

// severity ranks a grade for worst-of aggregation; higher is worse.
func severity(s Status) int {
	switch s {
	case Healthy:
		return 0
	case Degraded:
		return 1
	case Stale:
		return 2
	case Unhealthy:
		return 3
	case Error:
		return 4
	default:
		return 0
	}
}

// Age thresholds for grading last-sync freshness. Boundaries are
// inclusive: an account synced exactly one hour ago is still healthy.
const (
	healthyMaxAge  = time.Hour
	degradedMaxAge = 6 * time.Hour
	staleMaxAge    = 24 * time.Hour
)

// ComputeHealthStatus grades a single account. A stored status of "error"
// always grades error regardless of sync recency. A missing or
// unparseable last-sync timestamp grades unhealthy. Otherwise the grade
// follows the age of the last sync.
func ComputeHealthStatus(accountStatus, lastSyncISO string, now time.Time) Status {
	if accountStatus == "error" {
		return Error
	}

	if lastSyncISO == "" {
		return Unhealthy
	}
	lastSync, err := time.Parse(time.RFC3339, lastSyncISO)
	if err != nil {
		return Unhealthy
	}

	age := now.Sub(lastSync)
	switch {
	case age <= healthyMaxAge:
		return Healthy
	case age <= degradedMaxAge:
		return Degraded
	case age <= staleMaxAge:
		return Stale
	default:
		return Unhealthy
	}
}

// ComputeOverallHealth reduces per-account grades to the single worst
// grade present. An empty input is healthy. The reduction is commutative,
// so input order never matters.
func ComputeOverallHealth(statuses []Status) Status {
	overall := Healthy
	for _, s := range statuses {
		if severity(s) > severity(overall) {
			overall = s
		}
	}
	return overall
}

// ComputeChannelStatus classifies a webhook channel. No channel id means
// none. A channel with no expiry, or an expiry that does not parse, is
// treated as active (fail open); expired only when the expiry is
// parseable and at or before now.
func ComputeChannelStatus(channelID, expiryISO string, now time.Time) ChannelStatus {
	if channelID == "" {
		return ChannelNone
	}
	if expiryISO == "" {
		return ChannelActive
	}
	expiry, err := time.Parse(time.RFC3339, expiryISO)
	if err != nil {
		return ChannelActive
	}
	if !expiry.After(now) {
		return ChannelExpired
	}
	return ChannelActive
}
