package synchealth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func iso(d time.Duration) string {
	return now.Add(-d).Format(time.RFC3339)
}

func TestComputeHealthStatus(t *testing.T) {
	tests := []struct {
		name          string
		accountStatus string
		lastSync      string
		want          Status
	}{
		{"error status wins over fresh sync", "error", iso(time.Minute), Error},
		{"error status wins over missing sync", "error", "", Error},
		{"never synced", "active", "", Unhealthy},
		{"unparseable timestamp", "active", "not-a-date", Unhealthy},
		{"synced just now", "active", iso(0), Healthy},
		{"exactly one hour is still healthy", "active", iso(time.Hour), Healthy},
		{"just over one hour", "active", iso(time.Hour + time.Second), Degraded},
		{"exactly six hours is still degraded", "active", iso(6 * time.Hour), Degraded},
		{"twelve hours", "active", iso(12 * time.Hour), Stale},
		{"exactly 24 hours is still stale", "active", iso(24 * time.Hour), Stale},
		{"over 24 hours", "active", iso(25 * time.Hour), Unhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeHealthStatus(tt.accountStatus, tt.lastSync, now))
		})
	}
}

func TestComputeOverallHealth(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty is healthy", nil, Healthy},
		{"all healthy", []Status{Healthy, Healthy}, Healthy},
		{"worst of mixed", []Status{Healthy, Stale, Degraded}, Stale},
		{"error anywhere forces error", []Status{Healthy, Error, Degraded}, Error},
		{"single unhealthy", []Status{Unhealthy}, Unhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeOverallHealth(tt.statuses))
		})
	}
}

func TestComputeOverallHealthOrderInvariant(t *testing.T) {
	a := []Status{Healthy, Degraded, Error, Stale, Unhealthy}
	b := []Status{Unhealthy, Stale, Error, Degraded, Healthy}
	assert.Equal(t, ComputeOverallHealth(a), ComputeOverallHealth(b))
}

func TestComputeChannelStatus(t *testing.T) {
	tests := []struct {
		name      string
		channelID string
		expiry    string
		want      ChannelStatus
	}{
		{"no channel", "", "", ChannelNone},
		{"no channel ignores expiry", "", iso(-time.Hour), ChannelNone},
		{"channel without expiry is active", "chan-1", "", ChannelActive},
		{"unparseable expiry fails open", "chan-1", "garbage", ChannelActive},
		{"future expiry", "chan-1", now.Add(time.Hour).Format(time.RFC3339), ChannelActive},
		{"expiry exactly now is expired", "chan-1", now.Format(time.RFC3339), ChannelExpired},
		{"past expiry", "chan-1", iso(time.Hour), ChannelExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeChannelStatus(tt.channelID, tt.expiry, now))
		})
	}
}
