package policy_tools

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
	"github.com/calbridge/calbridge/internal/validate"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixture(t *testing.T) (*registry.Registry, *storage.MemoryStore) {
	t.Helper()

	prev := now
	now = func() time.Time { return testNow }
	t.Cleanup(func() { now = prev })

	store := storage.NewMemoryStore()
	for _, id := range []string{"acct-work", "acct-personal"} {
		require.NoError(t, store.UpsertAccount(context.Background(), &storage.Account{
			UserID:    "u-1",
			AccountID: id,
			Provider:  "google",
			Status:    "active",
		}))
	}

	sc := server.NewServerContext(context.Background(), server.ServerContextConfig{Store: store})
	reg := registry.New()
	require.NoError(t, RegisterPolicyTools(reg, sc))
	return reg, store
}

func call(t *testing.T, reg *registry.Registry, name string, args map[string]any, out any) error {
	t.Helper()

	def, ok := reg.Get(name)
	require.True(t, ok, "tool %s not registered", name)

	user := &auth.UserContext{UserID: "u-1", Tier: tier.Premium}
	res, err := def.Handler(context.Background(), user, args)
	if err != nil {
		return err
	}
	require.NoError(t, common.DecodeResult(res, out))
	return nil
}

type policyResult struct {
	Policy storage.PolicyEdge `json:"policy"`
}

func TestSetPolicyEdgeDefaultsAndUpsert(t *testing.T) {
	reg, _ := fixture(t)

	var got policyResult
	require.NoError(t, call(t, reg, "calendar.set_policy_edge", map[string]any{
		"from_account": "acct-work",
		"to_account":   "acct-personal",
		"detail_level": "busy_only",
	}, &got))
	assert.Equal(t, "primary", got.Policy.CalendarKind)
	assert.Equal(t, "BUSY", got.Policy.BlockPolicy)
	assert.Equal(t, testNow.UnixMilli(), got.Policy.UpdatedAt)

	// Setting the same directed pair again replaces the edge.
	require.NoError(t, call(t, reg, "calendar.set_policy_edge", map[string]any{
		"from_account": "acct-work",
		"to_account":   "acct-personal",
		"detail_level": "full",
		"block_policy": "OOO",
	}, &got))
	assert.Equal(t, "full", got.Policy.DetailLevel)

	var list struct {
		Policies []storage.PolicyEdge `json:"policies"`
		Count    int                  `json:"count"`
	}
	require.NoError(t, call(t, reg, "calendar.list_policies", nil, &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "OOO", list.Policies[0].BlockPolicy)
}

func TestSetPolicyEdgeRejectsSelfAndUnknownAccounts(t *testing.T) {
	reg, _ := fixture(t)

	err := call(t, reg, "calendar.set_policy_edge", map[string]any{
		"from_account": "acct-work",
		"to_account":   "acct-work",
		"detail_level": "full",
	}, &policyResult{})
	var ipe *validate.InvalidParamsError
	require.ErrorAs(t, err, &ipe)

	err = call(t, reg, "calendar.set_policy_edge", map[string]any{
		"from_account": "acct-work",
		"to_account":   "acct-missing",
		"detail_level": "full",
	}, &policyResult{})
	var nf *storage.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestGetPolicyEdgeDirectional(t *testing.T) {
	reg, _ := fixture(t)

	require.NoError(t, call(t, reg, "calendar.set_policy_edge", map[string]any{
		"from_account": "acct-work",
		"to_account":   "acct-personal",
		"detail_level": "title_only",
	}, &policyResult{}))

	var got policyResult
	require.NoError(t, call(t, reg, "calendar.get_policy_edge", map[string]any{
		"from_account": "acct-work",
		"to_account":   "acct-personal",
	}, &got))
	assert.Equal(t, "title_only", got.Policy.DetailLevel)

	// The reverse direction is a distinct edge and does not exist.
	err := call(t, reg, "calendar.get_policy_edge", map[string]any{
		"from_account": "acct-personal",
		"to_account":   "acct-work",
	}, &got)
	var nf *storage.NotFoundError
	require.ErrorAs(t, err, &nf)
}
