package account_tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/registry"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/storage"
	"github.com/calbridge/calbridge/internal/tier"
	"github.com/calbridge/calbridge/internal/tools/common"
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
	require.NoError(t, RegisterAccountTools(reg, sc))
	return reg, store
}

func call(t *testing.T, reg *registry.Registry, name string, args map[string]any, out any) error {
	t.Helper()

	def, ok := reg.Get(name)
	require.True(t, ok, "tool %s not registered", name)

	user := &auth.UserContext{UserID: "u-1", Email: "u1@example.com", Tier: tier.Free}
	res, err := def.Handler(context.Background(), user, args)
	if err != nil {
		return err
	}
	require.NoError(t, common.DecodeResult(res, out))
	return nil
}

func seedAccount(t *testing.T, store *storage.MemoryStore, a storage.Account) {
	t.Helper()
	require.NoError(t, store.UpsertAccount(context.Background(), &a))
}

func TestListAccountsComputesHealth(t *testing.T) {
	reg, store := fixture(t)

	seedAccount(t, store, storage.Account{
		UserID:    "u-1",
		AccountID: "acct-fresh",
		Provider:  "google",
		Email:     "fresh@example.com",
		Status:    "active",
		LastSync:  testNow.Add(-30 * time.Minute).Format(time.RFC3339),
		ChannelID: "chan-1",
	})
	seedAccount(t, store, storage.Account{
		UserID:        "u-1",
		AccountID:     "acct-old",
		Provider:      "google",
		Email:         "old@example.com",
		Status:        "active",
		LastSync:      testNow.Add(-10 * time.Hour).Format(time.RFC3339),
		ChannelID:     "chan-2",
		ChannelExpiry: testNow.Add(-time.Hour).Format(time.RFC3339),
	})
	seedAccount(t, store, storage.Account{
		UserID:    "u-2",
		AccountID: "acct-other",
		Provider:  "google",
		Email:     "other@example.com",
		Status:    "active",
	})

	var got struct {
		Accounts []struct {
			AccountID     string `json:"account_id"`
			SyncStatus    string `json:"sync_status"`
			ChannelStatus string `json:"channel_status"`
		} `json:"accounts"`
	}
	require.NoError(t, call(t, reg, "calendar.list_accounts", nil, &got))

	require.Len(t, got.Accounts, 2)
	byID := map[string]string{}
	channels := map[string]string{}
	for _, a := range got.Accounts {
		byID[a.AccountID] = a.SyncStatus
		channels[a.AccountID] = a.ChannelStatus
	}
	assert.Equal(t, "healthy", byID["acct-fresh"])
	assert.Equal(t, "active", channels["acct-fresh"])
	assert.Equal(t, "stale", byID["acct-old"])
	assert.Equal(t, "expired", channels["acct-old"])
}

func TestGetSyncStatusAggregatesWorst(t *testing.T) {
	reg, store := fixture(t)

	seedAccount(t, store, storage.Account{
		UserID:    "u-1",
		AccountID: "acct-ok",
		Status:    "active",
		LastSync:  testNow.Add(-10 * time.Minute).Format(time.RFC3339),
	})
	seedAccount(t, store, storage.Account{
		UserID:    "u-1",
		AccountID: "acct-err",
		Status:    "error",
		LastSync:  testNow.Add(-5 * time.Minute).Format(time.RFC3339),
	})

	var got struct {
		Accounts []struct {
			AccountID  string `json:"account_id"`
			SyncStatus string `json:"sync_status"`
		} `json:"accounts"`
		OverallHealth string `json:"overall_health"`
	}
	require.NoError(t, call(t, reg, "calendar.get_sync_status", map[string]any{}, &got))

	assert.Len(t, got.Accounts, 2)
	assert.Equal(t, "error", got.OverallHealth)
}

func TestGetSyncStatusSingleAccount(t *testing.T) {
	reg, store := fixture(t)

	seedAccount(t, store, storage.Account{
		UserID:    "u-1",
		AccountID: "acct-1",
		Status:    "active",
	})

	var got struct {
		Accounts []struct {
			AccountID  string `json:"account_id"`
			SyncStatus string `json:"sync_status"`
		} `json:"accounts"`
		OverallHealth string `json:"overall_health"`
	}
	require.NoError(t, call(t, reg, "calendar.get_sync_status", map[string]any{"account_id": "acct-1"}, &got))

	require.Len(t, got.Accounts, 1)
	assert.Equal(t, "unhealthy", got.Accounts[0].SyncStatus)
	assert.Equal(t, "unhealthy", got.OverallHealth)

	err := call(t, reg, "calendar.get_sync_status", map[string]any{"account_id": "acct-missing"}, &got)
	require.Error(t, err)
	var nf *storage.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
