package memory

import (
	"context"
	"sync"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

// CampaignStore is an in-memory implementation of storage.CampaignStore.
type CampaignStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Campaign // keyed by address

	groups *GroupStore // optional, for hydrating Groups on read
}

// NewCampaignStore creates a new in-memory campaign store. If groups is
// non-nil, GetByAddress hydrates the campaign's group list from it.
func NewCampaignStore(groups *GroupStore) *CampaignStore {
	return &CampaignStore{
		data:   make(map[string]*domain.Campaign),
		groups: groups,
	}
}

// Insert adds a new campaign. Returns ErrDuplicateKey if address exists.
func (s *CampaignStore) Insert(_ context.Context, c *domain.Campaign) error {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.Address]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *c
	cp.Groups = append([]domain.Group(nil), c.Groups...)
	s.data[c.Address] = &cp
	return nil
}

// GetByAddress retrieves a campaign. Returns ErrNotFound if not exists or
// soft-deleted.
func (s *CampaignStore) GetByAddress(ctx context.Context, address string) (*domain.Campaign, error) {
	s.mu.RLock()
	c, exists := s.data[address]
	if !exists || c.DeletedAt != nil {
		s.mu.RUnlock()
		return nil, storage.ErrNotFound
	}
	cp := *c
	cp.Groups = append([]domain.Group(nil), c.Groups...)
	s.mu.RUnlock()

	if s.groups != nil {
		gs, err := s.groups.GetByCampaign(ctx, address)
		if err != nil {
			return nil, err
		}
		cp.Groups = cp.Groups[:0]
		for _, g := range gs {
			cp.Groups = append(cp.Groups, *g)
		}
	}

	return &cp, nil
}

// UpdateCounters overwrites the mirrored counters for a campaign.
func (s *CampaignStore) UpdateCounters(_ context.Context, address string, itemsLoaded, itemsMinted int, fullyLoaded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[address]
	if !exists {
		return storage.ErrNotFound
	}

	c.ItemsLoaded = itemsLoaded
	c.ItemsMinted = itemsMinted
	c.IsFullyLoaded = fullyLoaded
	return nil
}

// IncrementCounters atomically adds deltas to the mirrored counters.
func (s *CampaignStore) IncrementCounters(_ context.Context, address string, loadedDelta, mintedDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[address]
	if !exists {
		return storage.ErrNotFound
	}

	c.ItemsLoaded += loadedDelta
	if c.ItemsLoaded > c.ItemsAvailable {
		c.ItemsLoaded = c.ItemsAvailable
	}
	c.ItemsMinted += mintedDelta
	c.IsFullyLoaded = c.ItemsLoaded == c.ItemsAvailable
	return nil
}

// SoftDelete marks a campaign deleted at the given timestamp (ms).
func (s *CampaignStore) SoftDelete(_ context.Context, address string, deletedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[address]
	if !exists || c.DeletedAt != nil {
		return storage.ErrNotFound
	}

	ts := deletedAt
	c.DeletedAt = &ts
	return nil
}

// PurgeExpired permanently removes campaigns soft-deleted before threshold.
func (s *CampaignStore) PurgeExpired(_ context.Context, threshold int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for addr, c := range s.data {
		if c.DeletedAt != nil && *c.DeletedAt < threshold {
			delete(s.data, addr)
			purged++
		}
	}
	return purged, nil
}

var _ storage.CampaignStore = (*CampaignStore)(nil)
