package clickhouse

import (
	"context"
	"fmt"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

// MintActivityStore implements storage.MintActivityStore using ClickHouse.
// Activity points are analytics samples; the receipt store remains the
// accounting source of truth.
type MintActivityStore struct {
	conn *Conn
}

// NewMintActivityStore creates a new MintActivityStore.
func NewMintActivityStore(conn *Conn) *MintActivityStore {
	return &MintActivityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MintActivityStore = (*MintActivityStore)(nil)

// InsertBulk adds multiple activity points.
func (s *MintActivityStore) InsertBulk(ctx context.Context, points []*domain.MintActivityPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO mint_activity (
			campaign_address, group_label, timestamp_ms, slot, lamports, mint_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.CampaignAddress, p.GroupLabel, uint64(p.TimestampMs),
			uint64(p.Slot), p.Lamports, uint32(p.MintCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCampaignTimeRange retrieves points for a campaign within [start, end)
// ordered by timestamp ASC.
func (s *MintActivityStore) GetByCampaignTimeRange(ctx context.Context, campaignAddress string, start, end int64) ([]*domain.MintActivityPoint, error) {
	query := `
		SELECT campaign_address, group_label, timestamp_ms, slot, lamports, mint_count
		FROM mint_activity
		WHERE campaign_address = ? AND timestamp_ms >= ? AND timestamp_ms < ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, campaignAddress, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("get mint activity by time range: %w", err)
	}
	defer rows.Close()

	var points []*domain.MintActivityPoint
	for rows.Next() {
		var p domain.MintActivityPoint
		var timestampMs, slot uint64
		var mintCount uint32

		err := rows.Scan(
			&p.CampaignAddress, &p.GroupLabel, &timestampMs,
			&slot, &p.Lamports, &mintCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan mint activity row: %w", err)
		}
		p.TimestampMs = int64(timestampMs)
		p.Slot = int64(slot)
		p.MintCount = int(mintCount)

		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint activity rows: %w", err)
	}

	return points, nil
}
