package memory

import (
	"context"
	"sync"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

// FreezeStateStore is an in-memory implementation of storage.FreezeStateStore.
type FreezeStateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AssetFreezeState // keyed by asset address
}

// NewFreezeStateStore creates a new in-memory freeze state store.
func NewFreezeStateStore() *FreezeStateStore {
	return &FreezeStateStore{
		data: make(map[string]*domain.AssetFreezeState),
	}
}

// Insert adds a new freeze state. Returns ErrDuplicateKey if exists.
func (s *FreezeStateStore) Insert(_ context.Context, state *domain.AssetFreezeState) error {
	if state == nil || state.AssetAddress == "" || !state.State.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[state.AssetAddress]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *state
	s.data[state.AssetAddress] = &cp
	return nil
}

// GetByAsset retrieves the freeze state for an asset.
func (s *FreezeStateStore) GetByAsset(_ context.Context, assetAddress string) (*domain.AssetFreezeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.data[assetAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *state
	return &cp, nil
}

// GetByCampaign retrieves all freeze states for a campaign.
func (s *FreezeStateStore) GetByCampaign(_ context.Context, campaignAddress string) ([]*domain.AssetFreezeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AssetFreezeState
	for _, state := range s.data {
		if state.CampaignAddress == campaignAddress {
			cp := *state
			result = append(result, &cp)
		}
	}
	return result, nil
}

// MarkUnlocked transitions an asset to UNLOCKED. The transition is one-way.
func (s *FreezeStateStore) MarkUnlocked(_ context.Context, assetAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, exists := s.data[assetAddress]
	if !exists {
		return storage.ErrNotFound
	}
	if state.State == domain.FreezeStateUnlocked {
		return storage.ErrAlreadyUnlocked
	}

	state.State = domain.FreezeStateUnlocked
	return nil
}

var _ storage.FreezeStateStore = (*FreezeStateStore)(nil)
