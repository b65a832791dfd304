package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

// ReceiptStore is an in-memory implementation of storage.ReceiptStore.
// Receipts are append-only.
type ReceiptStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Receipt // keyed by receipt_id
}

// NewReceiptStore creates a new in-memory receipt store.
func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{
		data: make(map[string]*domain.Receipt),
	}
}

// Insert appends a new receipt. Returns ErrDuplicateKey if receipt_id exists.
func (s *ReceiptStore) Insert(_ context.Context, r *domain.Receipt) error {
	if r == nil || r.ReceiptID == "" || r.CampaignAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ReceiptID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.data[r.ReceiptID] = &cp
	return nil
}

// CountByGroup returns the number of receipts for a campaign group.
func (s *ReceiptStore) CountByGroup(_ context.Context, campaignAddress, label string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.data {
		if r.CampaignAddress == campaignAddress && r.GroupLabel == label {
			count++
		}
	}
	return count, nil
}

// CountByWallet returns the number of receipts for a wallet within a group.
func (s *ReceiptStore) CountByWallet(_ context.Context, campaignAddress, label, wallet string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.data {
		if r.CampaignAddress == campaignAddress && r.GroupLabel == label && r.BuyerAddress == wallet {
			count++
		}
	}
	return count, nil
}

// List retrieves receipts for a campaign ordered by timestamp DESC.
func (s *ReceiptStore) List(_ context.Context, campaignAddress string, filter domain.ReceiptFilter, limit, offset int) ([]*domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Receipt
	for _, r := range s.data {
		if r.CampaignAddress != campaignAddress {
			continue
		}
		if filter.GroupLabel != "" && r.GroupLabel != filter.GroupLabel {
			continue
		}
		if filter.BuyerAddress != "" && r.BuyerAddress != filter.BuyerAddress {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].ReceiptID > result[j].ReceiptID
	})

	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}

	return result, nil
}

var _ storage.ReceiptStore = (*ReceiptStore)(nil)
