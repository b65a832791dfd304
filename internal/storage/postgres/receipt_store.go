package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

// ReceiptStore implements storage.ReceiptStore using PostgreSQL.
// Receipts are append-only: only inserts and reads are exposed.
type ReceiptStore struct {
	pool *Pool
}

// NewReceiptStore creates a new ReceiptStore.
func NewReceiptStore(pool *Pool) *ReceiptStore {
	return &ReceiptStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReceiptStore = (*ReceiptStore)(nil)

// Insert appends a new receipt. Returns ErrDuplicateKey if receipt_id exists.
func (s *ReceiptStore) Insert(ctx context.Context, r *domain.Receipt) error {
	query := `
		INSERT INTO mint_receipts (
			receipt_id, campaign_address, group_label, buyer_address,
			asset_address, tx_signature, slot, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ReceiptID,
		r.CampaignAddress,
		r.GroupLabel,
		r.BuyerAddress,
		r.AssetAddress,
		r.TxSignature,
		r.Slot,
		r.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// CountByGroup returns the number of receipts for a campaign group.
func (s *ReceiptStore) CountByGroup(ctx context.Context, campaignAddress, label string) (int, error) {
	query := `
		SELECT COUNT(*) FROM mint_receipts
		WHERE campaign_address = $1 AND group_label = $2
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, campaignAddress, label).Scan(&count); err != nil {
		return 0, fmt.Errorf("count receipts by group: %w", err)
	}
	return count, nil
}

// CountByWallet returns the number of receipts for a wallet within a group.
func (s *ReceiptStore) CountByWallet(ctx context.Context, campaignAddress, label, wallet string) (int, error) {
	query := `
		SELECT COUNT(*) FROM mint_receipts
		WHERE campaign_address = $1 AND group_label = $2 AND buyer_address = $3
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, campaignAddress, label, wallet).Scan(&count); err != nil {
		return 0, fmt.Errorf("count receipts by wallet: %w", err)
	}
	return count, nil
}

// List retrieves receipts for a campaign ordered by timestamp DESC.
func (s *ReceiptStore) List(ctx context.Context, campaignAddress string, filter domain.ReceiptFilter, limit, offset int) ([]*domain.Receipt, error) {
	query := `
		SELECT receipt_id, campaign_address, group_label, buyer_address,
		       asset_address, tx_signature, slot, timestamp
		FROM mint_receipts
		WHERE campaign_address = $1
		  AND ($2 = '' OR group_label = $2)
		  AND ($3 = '' OR buyer_address = $3)
		ORDER BY timestamp DESC, receipt_id DESC
		LIMIT CASE WHEN $4 > 0 THEN $4 ELSE NULL END OFFSET $5
	`

	rows, err := s.pool.Query(ctx, query,
		campaignAddress, filter.GroupLabel, filter.BuyerAddress, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

// scanReceipts scans multiple rows into a slice of Receipt.
func scanReceipts(rows pgx.Rows) ([]*domain.Receipt, error) {
	var receipts []*domain.Receipt

	for rows.Next() {
		var r domain.Receipt

		err := rows.Scan(
			&r.ReceiptID,
			&r.CampaignAddress,
			&r.GroupLabel,
			&r.BuyerAddress,
			&r.AssetAddress,
			&r.TxSignature,
			&r.Slot,
			&r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan receipt row: %w", err)
		}

		receipts = append(receipts, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipt rows: %w", err)
	}

	return receipts, nil
}
