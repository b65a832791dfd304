package postgres

import (
	"context"
	"fmt"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

// FreezeStateStore implements storage.FreezeStateStore using PostgreSQL.
type FreezeStateStore struct {
	pool *Pool
}

// NewFreezeStateStore creates a new FreezeStateStore.
func NewFreezeStateStore(pool *Pool) *FreezeStateStore {
	return &FreezeStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FreezeStateStore = (*FreezeStateStore)(nil)

// Insert adds a new freeze state. Returns ErrDuplicateKey if the asset
// already has one.
func (s *FreezeStateStore) Insert(ctx context.Context, state *domain.AssetFreezeState) error {
	if !state.State.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO asset_freeze_states (
			asset_address, campaign_address, group_label, owner_address,
			state, freeze_expiry, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		state.AssetAddress,
		state.CampaignAddress,
		state.GroupLabel,
		state.OwnerAddress,
		string(state.State),
		state.FreezeExpiry,
		state.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert freeze state: %w", err)
	}
	return nil
}

// GetByAsset retrieves the freeze state for an asset.
func (s *FreezeStateStore) GetByAsset(ctx context.Context, assetAddress string) (*domain.AssetFreezeState, error) {
	query := `
		SELECT asset_address, campaign_address, group_label, owner_address,
		       state, freeze_expiry, created_at
		FROM asset_freeze_states
		WHERE asset_address = $1
	`

	var state domain.AssetFreezeState
	var stateStr string
	err := s.pool.QueryRow(ctx, query, assetAddress).Scan(
		&state.AssetAddress,
		&state.CampaignAddress,
		&state.GroupLabel,
		&state.OwnerAddress,
		&stateStr,
		&state.FreezeExpiry,
		&state.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get freeze state by asset: %w", err)
	}
	state.State = domain.FreezeState(stateStr)

	return &state, nil
}

// GetByCampaign retrieves all freeze states for a campaign.
func (s *FreezeStateStore) GetByCampaign(ctx context.Context, campaignAddress string) ([]*domain.AssetFreezeState, error) {
	query := `
		SELECT asset_address, campaign_address, group_label, owner_address,
		       state, freeze_expiry, created_at
		FROM asset_freeze_states
		WHERE campaign_address = $1
		ORDER BY created_at ASC, asset_address ASC
	`

	rows, err := s.pool.Query(ctx, query, campaignAddress)
	if err != nil {
		return nil, fmt.Errorf("get freeze states by campaign: %w", err)
	}
	defer rows.Close()

	var states []*domain.AssetFreezeState
	for rows.Next() {
		var state domain.AssetFreezeState
		var stateStr string

		err := rows.Scan(
			&state.AssetAddress,
			&state.CampaignAddress,
			&state.GroupLabel,
			&state.OwnerAddress,
			&stateStr,
			&state.FreezeExpiry,
			&state.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan freeze state row: %w", err)
		}
		state.State = domain.FreezeState(stateStr)

		states = append(states, &state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate freeze state rows: %w", err)
	}

	return states, nil
}

// MarkUnlocked transitions an asset to UNLOCKED. The transition is one-way:
// an already-unlocked asset returns ErrAlreadyUnlocked.
func (s *FreezeStateStore) MarkUnlocked(ctx context.Context, assetAddress string) error {
	query := `
		UPDATE asset_freeze_states
		SET state = $2
		WHERE asset_address = $1 AND state = $3
	`

	tag, err := s.pool.Exec(ctx, query, assetAddress,
		string(domain.FreezeStateUnlocked), string(domain.FreezeStateFrozen))
	if err != nil {
		return fmt.Errorf("mark asset unlocked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing asset from a repeated transition.
		if _, err := s.GetByAsset(ctx, assetAddress); err != nil {
			return err
		}
		return storage.ErrAlreadyUnlocked
	}
	return nil
}
