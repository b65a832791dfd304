package storage

import (
	"context"

	"solana-mint-campaign/internal/domain"
)

// CampaignStore provides access to campaigns storage.
type CampaignStore interface {
	// Insert adds a new campaign. Returns ErrDuplicateKey if address exists.
	Insert(ctx context.Context, c *domain.Campaign) error

	// GetByAddress retrieves a campaign with its groups. Returns ErrNotFound
	// if not exists or soft-deleted.
	GetByAddress(ctx context.Context, address string) (*domain.Campaign, error)

	// UpdateCounters overwrites the mirrored counters for a campaign.
	// Returns ErrNotFound if not exists.
	UpdateCounters(ctx context.Context, address string, itemsLoaded, itemsMinted int, fullyLoaded bool) error

	// IncrementCounters atomically adds deltas to the mirrored counters.
	// ItemsLoaded is clamped to ItemsAvailable and the fully-loaded flag is
	// derived from the result. Returns ErrNotFound if not exists.
	IncrementCounters(ctx context.Context, address string, loadedDelta, mintedDelta int) error

	// SoftDelete marks a campaign deleted at the given timestamp (ms).
	SoftDelete(ctx context.Context, address string, deletedAt int64) error

	// PurgeExpired permanently removes campaigns soft-deleted before
	// threshold (ms). Returns the number of campaigns purged.
	PurgeExpired(ctx context.Context, threshold int64) (int, error)
}

// GroupStore provides access to campaign_groups storage.
type GroupStore interface {
	// Insert registers a new group. Returns ErrDuplicateKey if
	// (campaign_address, label) exists.
	Insert(ctx context.Context, g *domain.Group) error

	// GetByLabel retrieves a group. Returns ErrNotFound if not exists.
	GetByLabel(ctx context.Context, campaignAddress, label string) (*domain.Group, error)

	// GetByCampaign retrieves all groups for a campaign in creation order.
	GetByCampaign(ctx context.Context, campaignAddress string) ([]*domain.Group, error)
}

// AllowListStore provides access to allow_list_entries storage.
type AllowListStore interface {
	// Replace atomically replaces the membership set for a group.
	// Duplicate wallets in the input collapse.
	Replace(ctx context.Context, campaignAddress, label string, wallets []string) error

	// IsMember reports whether a wallet is in a group's allow-list.
	IsMember(ctx context.Context, campaignAddress, label, wallet string) (bool, error)

	// GetMembers retrieves all wallets for a group, sorted ascending.
	// Returns an empty slice if the group has no allow-list.
	GetMembers(ctx context.Context, campaignAddress, label string) ([]string, error)
}

// ReceiptStore provides read/append access to mint_receipts storage.
// Receipts are append-only: no update or delete is exposed.
type ReceiptStore interface {
	// Insert appends a new receipt. Returns ErrDuplicateKey if receipt_id exists.
	Insert(ctx context.Context, r *domain.Receipt) error

	// CountByGroup returns the number of receipts for a campaign group.
	CountByGroup(ctx context.Context, campaignAddress, label string) (int, error)

	// CountByWallet returns the number of receipts for a wallet within a
	// campaign group.
	CountByWallet(ctx context.Context, campaignAddress, label, wallet string) (int, error)

	// List retrieves receipts for a campaign ordered by timestamp DESC,
	// filtered and paginated.
	List(ctx context.Context, campaignAddress string, filter domain.ReceiptFilter, limit, offset int) ([]*domain.Receipt, error)
}

// FreezeStateStore provides access to asset_freeze_states storage.
type FreezeStateStore interface {
	// Insert adds a new freeze state. Returns ErrDuplicateKey if the asset
	// already has one.
	Insert(ctx context.Context, s *domain.AssetFreezeState) error

	// GetByAsset retrieves the freeze state for an asset. Returns
	// ErrNotFound if not exists.
	GetByAsset(ctx context.Context, assetAddress string) (*domain.AssetFreezeState, error)

	// GetByCampaign retrieves all freeze states for a campaign.
	GetByCampaign(ctx context.Context, campaignAddress string) ([]*domain.AssetFreezeState, error)

	// MarkUnlocked transitions an asset to UNLOCKED. Returns ErrNotFound if
	// the asset has no freeze state, ErrAlreadyUnlocked if already unlocked.
	MarkUnlocked(ctx context.Context, assetAddress string) error
}

// MintActivityStore provides access to mint_activity analytics storage.
type MintActivityStore interface {
	// InsertBulk adds multiple activity points.
	InsertBulk(ctx context.Context, points []*domain.MintActivityPoint) error

	// GetByCampaignTimeRange retrieves points for a campaign within
	// [start, end) ordered by timestamp ASC.
	GetByCampaignTimeRange(ctx context.Context, campaignAddress string, start, end int64) ([]*domain.MintActivityPoint, error)
}
