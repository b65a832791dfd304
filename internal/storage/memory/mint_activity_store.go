package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

// MintActivityStore is an in-memory implementation of storage.MintActivityStore.
type MintActivityStore struct {
	mu   sync.RWMutex
	data []*domain.MintActivityPoint
}

// NewMintActivityStore creates a new in-memory mint activity store.
func NewMintActivityStore() *MintActivityStore {
	return &MintActivityStore{}
}

// InsertBulk adds multiple activity points.
func (s *MintActivityStore) InsertBulk(_ context.Context, points []*domain.MintActivityPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.CampaignAddress == "" {
			return storage.ErrInvalidInput
		}
		cp := *p
		s.data = append(s.data, &cp)
	}
	return nil
}

// GetByCampaignTimeRange retrieves points for a campaign within [start, end).
func (s *MintActivityStore) GetByCampaignTimeRange(_ context.Context, campaignAddress string, start, end int64) ([]*domain.MintActivityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MintActivityPoint
	for _, p := range s.data {
		if p.CampaignAddress == campaignAddress && p.TimestampMs >= start && p.TimestampMs < end {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.MintActivityStore = (*MintActivityStore)(nil)
