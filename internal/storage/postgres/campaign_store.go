package postgres

import (
	"context"
	"fmt"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

// CampaignStore implements storage.CampaignStore using PostgreSQL.
type CampaignStore struct {
	pool   *Pool
	groups *GroupStore
}

// NewCampaignStore creates a new CampaignStore. Groups are hydrated through
// the group store on read.
func NewCampaignStore(pool *Pool, groups *GroupStore) *CampaignStore {
	return &CampaignStore{pool: pool, groups: groups}
}

// Compile-time interface check.
var _ storage.CampaignStore = (*CampaignStore)(nil)

// Insert adds a new campaign and its initial groups in one transaction.
// Returns ErrDuplicateKey if address exists.
func (s *CampaignStore) Insert(ctx context.Context, c *domain.Campaign) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO campaigns (
			address, authority, items_available, items_loaded, items_minted,
			is_fully_loaded, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.Exec(ctx, query,
		c.Address,
		c.Authority,
		c.ItemsAvailable,
		c.ItemsLoaded,
		c.ItemsMinted,
		c.IsFullyLoaded,
		c.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert campaign: %w", err)
	}

	for i := range c.Groups {
		g := &c.Groups[i]
		if err := insertGroup(ctx, tx, g); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByAddress retrieves a campaign with its groups. Returns ErrNotFound if
// not exists or soft-deleted.
func (s *CampaignStore) GetByAddress(ctx context.Context, address string) (*domain.Campaign, error) {
	query := `
		SELECT address, authority, items_available, items_loaded, items_minted,
		       is_fully_loaded, created_at, deleted_at
		FROM campaigns
		WHERE address = $1 AND deleted_at IS NULL
	`

	var c domain.Campaign
	err := s.pool.QueryRow(ctx, query, address).Scan(
		&c.Address,
		&c.Authority,
		&c.ItemsAvailable,
		&c.ItemsLoaded,
		&c.ItemsMinted,
		&c.IsFullyLoaded,
		&c.CreatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get campaign by address: %w", err)
	}

	groups, err := s.groups.GetByCampaign(ctx, address)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		c.Groups = append(c.Groups, *g)
	}

	return &c, nil
}

// UpdateCounters overwrites the mirrored counters for a campaign.
func (s *CampaignStore) UpdateCounters(ctx context.Context, address string, itemsLoaded, itemsMinted int, fullyLoaded bool) error {
	query := `
		UPDATE campaigns
		SET items_loaded = $2, items_minted = $3, is_fully_loaded = $4
		WHERE address = $1
	`

	tag, err := s.pool.Exec(ctx, query, address, itemsLoaded, itemsMinted, fullyLoaded)
	if err != nil {
		return fmt.Errorf("update campaign counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// IncrementCounters atomically adds deltas to the mirrored counters in a
// single statement, so concurrent mint confirmations never lose updates.
func (s *CampaignStore) IncrementCounters(ctx context.Context, address string, loadedDelta, mintedDelta int) error {
	query := `
		UPDATE campaigns
		SET items_loaded = LEAST(items_loaded + $2, items_available),
		    items_minted = items_minted + $3,
		    is_fully_loaded = items_loaded + $2 >= items_available
		WHERE address = $1
	`

	tag, err := s.pool.Exec(ctx, query, address, loadedDelta, mintedDelta)
	if err != nil {
		return fmt.Errorf("increment campaign counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SoftDelete marks a campaign deleted at the given timestamp (ms).
func (s *CampaignStore) SoftDelete(ctx context.Context, address string, deletedAt int64) error {
	query := `
		UPDATE campaigns SET deleted_at = $2
		WHERE address = $1 AND deleted_at IS NULL
	`

	tag, err := s.pool.Exec(ctx, query, address, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PurgeExpired permanently removes campaigns soft-deleted before threshold.
func (s *CampaignStore) PurgeExpired(ctx context.Context, threshold int64) (int, error) {
	query := `
		DELETE FROM campaigns
		WHERE deleted_at IS NOT NULL AND deleted_at < $1
	`

	tag, err := s.pool.Exec(ctx, query, threshold)
	if err != nil {
		return 0, fmt.Errorf("purge expired campaigns: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
