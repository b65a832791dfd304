package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

// GroupStore implements storage.GroupStore using PostgreSQL.
type GroupStore struct {
	pool *Pool
}

// NewGroupStore creates a new GroupStore.
func NewGroupStore(pool *Pool) *GroupStore {
	return &GroupStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GroupStore = (*GroupStore)(nil)

const groupInsertQuery = `
	INSERT INTO campaign_groups (
		campaign_address, label, display_label, start_date, end_date,
		price, mint_limit, supply, spl_token, restricted, freeze_period, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// insertGroup inserts a group inside an open transaction.
func insertGroup(ctx context.Context, tx pgx.Tx, g *domain.Group) error {
	_, err := tx.Exec(ctx, groupInsertQuery,
		g.CampaignAddress,
		g.Label,
		g.DisplayLabel,
		g.StartDate,
		g.EndDate,
		g.Price,
		g.MintLimit,
		g.Supply,
		g.SplToken,
		g.Restricted,
		g.FreezePeriod,
		g.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// Insert registers a new group. Returns ErrDuplicateKey if
// (campaign_address, label) exists.
func (s *GroupStore) Insert(ctx context.Context, g *domain.Group) error {
	_, err := s.pool.Exec(ctx, groupInsertQuery,
		g.CampaignAddress,
		g.Label,
		g.DisplayLabel,
		g.StartDate,
		g.EndDate,
		g.Price,
		g.MintLimit,
		g.Supply,
		g.SplToken,
		g.Restricted,
		g.FreezePeriod,
		g.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// GetByLabel retrieves a group. Returns ErrNotFound if not exists.
func (s *GroupStore) GetByLabel(ctx context.Context, campaignAddress, label string) (*domain.Group, error) {
	query := `
		SELECT campaign_address, label, display_label, start_date, end_date,
		       price, mint_limit, supply, spl_token, restricted, freeze_period, created_at
		FROM campaign_groups
		WHERE campaign_address = $1 AND label = $2
	`

	var g domain.Group
	err := s.pool.QueryRow(ctx, query, campaignAddress, label).Scan(
		&g.CampaignAddress,
		&g.Label,
		&g.DisplayLabel,
		&g.StartDate,
		&g.EndDate,
		&g.Price,
		&g.MintLimit,
		&g.Supply,
		&g.SplToken,
		&g.Restricted,
		&g.FreezePeriod,
		&g.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get group by label: %w", err)
	}

	return &g, nil
}

// GetByCampaign retrieves all groups for a campaign in creation order.
func (s *GroupStore) GetByCampaign(ctx context.Context, campaignAddress string) ([]*domain.Group, error) {
	query := `
		SELECT campaign_address, label, display_label, start_date, end_date,
		       price, mint_limit, supply, spl_token, restricted, freeze_period, created_at
		FROM campaign_groups
		WHERE campaign_address = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, campaignAddress)
	if err != nil {
		return nil, fmt.Errorf("get groups by campaign: %w", err)
	}
	defer rows.Close()

	return scanGroups(rows)
}

// scanGroups scans multiple rows into a slice of Group.
func scanGroups(rows pgx.Rows) ([]*domain.Group, error) {
	var groups []*domain.Group

	for rows.Next() {
		var g domain.Group

		err := rows.Scan(
			&g.CampaignAddress,
			&g.Label,
			&g.DisplayLabel,
			&g.StartDate,
			&g.EndDate,
			&g.Price,
			&g.MintLimit,
			&g.Supply,
			&g.SplToken,
			&g.Restricted,
			&g.FreezePeriod,
			&g.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}

		groups = append(groups, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group rows: %w", err)
	}

	return groups, nil
}
