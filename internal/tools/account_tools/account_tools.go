// Package account_tools exposes linked-account listing and sync health.
package account_tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/registry"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/storage"
	"github.com/calbridge/calbridge/internal/synchealth"
	"github.com/calbridge/calbridge/internal/tier"
	"github.com/calbridge/calbridge/internal/tools/common"
	"github.com/calbridge/calbridge/internal/validate"
)

// now is stubbed in tests.
var now = time.Now

// accountView is one account as returned to callers, with computed
// health fields alongside the stored row.
type accountView struct {
	storage.Account
	SyncStatus    synchealth.Status        `json:"sync_status"`
	ChannelStatus synchealth.ChannelStatus `json:"channel_status"`
}

func view(a storage.Account, at time.Time) accountView {
	return accountView{
		Account:       a,
		SyncStatus:    synchealth.ComputeHealthStatus(a.Status, a.LastSync, at),
		ChannelStatus: synchealth.ComputeChannelStatus(a.ChannelID, a.ChannelExpiry, at),
	}
}

// RegisterAccountTools registers the account tools on reg.
func RegisterAccountTools(reg *registry.Registry, sc *server.ServerContext) error {
	listAccountsTool := mcp.NewTool("calendar.list_accounts",
		mcp.WithDescription("List linked calendar accounts with sync status"),
	)
	if err := reg.Register(registry.Definition{
		Tool:         listAccountsTool,
		RequiredTier: tier.Free,
		Handler: func(ctx context.Context, user *auth.UserContext, _ map[string]any) (*mcp.CallToolResult, error) {
			return handleListAccounts(ctx, user, sc)
		},
	}); err != nil {
		return err
	}

	syncStatusTool := mcp.NewTool("calendar.get_sync_status",
		mcp.WithDescription("Get sync health for one account or all accounts, including the aggregate grade"),
		mcp.WithString("account_id",
			mcp.Description("Limit the report to a single account"),
		),
	)
	return reg.Register(registry.Definition{
		Tool:         syncStatusTool,
		RequiredTier: tier.Free,
		Handler: func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error) {
			return handleGetSyncStatus(ctx, user, args, sc)
		},
	})
}

func handleListAccounts(ctx context.Context, user *auth.UserContext, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	accounts, err := sc.Store().ListAccounts(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	at := now()
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, view(a, at))
	}
	return common.JSONResult(map[string]any{"accounts": views})
}

func handleGetSyncStatus(ctx context.Context, user *auth.UserContext, args map[string]any, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params, err := validate.ValidateSyncStatusParams(args)
	if err != nil {
		return nil, err
	}

	var accounts []storage.Account
	if params.AccountID != "" {
		a, err := sc.Store().GetAccount(ctx, user.UserID, params.AccountID)
		if err != nil {
			return nil, err
		}
		accounts = []storage.Account{*a}
	} else {
		accounts, err = sc.Store().ListAccounts(ctx, user.UserID)
		if err != nil {
			return nil, err
		}
	}

	at := now()
	views := make([]accountView, 0, len(accounts))
	statuses := make([]synchealth.Status, 0, len(accounts))
	for _, a := range accounts {
		v := view(a, at)
		views = append(views, v)
		statuses = append(statuses, v.SyncStatus)
	}

	return common.JSONResult(map[string]any{
		"accounts":       views,
		"overall_health": synchealth.ComputeOverallHealth(statuses),
	})
}
