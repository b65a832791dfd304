package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-mint-campaign/internal/storage"
)

// AllowListStore implements storage.AllowListStore using PostgreSQL.
type AllowListStore struct {
	pool *Pool
}

// NewAllowListStore creates a new AllowListStore.
func NewAllowListStore(pool *Pool) *AllowListStore {
	return &AllowListStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AllowListStore = (*AllowListStore)(nil)

// Replace atomically replaces the membership set for a group. Duplicate
// wallets in the input collapse via ON CONFLICT DO NOTHING.
func (s *AllowListStore) Replace(ctx context.Context, campaignAddress, label string, wallets []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM allow_list_entries
		WHERE campaign_address = $1 AND group_label = $2
	`, campaignAddress, label)
	if err != nil {
		return fmt.Errorf("clear allow list: %w", err)
	}

	now := time.Now().UnixMilli()
	query := `
		INSERT INTO allow_list_entries (campaign_address, group_label, wallet_address, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`
	for _, w := range wallets {
		if w == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, query, campaignAddress, label, w, now); err != nil {
			return fmt.Errorf("insert allow list entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// IsMember reports whether a wallet is in a group's allow-list.
func (s *AllowListStore) IsMember(ctx context.Context, campaignAddress, label, wallet string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM allow_list_entries
			WHERE campaign_address = $1 AND group_label = $2 AND wallet_address = $3
		)
	`

	var member bool
	if err := s.pool.QueryRow(ctx, query, campaignAddress, label, wallet).Scan(&member); err != nil {
		return false, fmt.Errorf("check allow list membership: %w", err)
	}
	return member, nil
}

// GetMembers retrieves all wallets for a group, sorted ascending.
func (s *AllowListStore) GetMembers(ctx context.Context, campaignAddress, label string) ([]string, error) {
	query := `
		SELECT wallet_address FROM allow_list_entries
		WHERE campaign_address = $1 AND group_label = $2
		ORDER BY wallet_address ASC
	`

	rows, err := s.pool.Query(ctx, query, campaignAddress, label)
	if err != nil {
		return nil, fmt.Errorf("get allow list members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		members = append(members, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}

	return members, nil
}
