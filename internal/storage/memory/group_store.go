package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-mint-campaign/internal/domain"
	"solana-mint-campaign/internal/storage"
)

// GroupStore is an in-memory implementation of storage.GroupStore.
type GroupStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.Group // keyed by composite key
	order map[string]int           // insertion order per key
	next  int
}

// NewGroupStore creates a new in-memory group store.
func NewGroupStore() *GroupStore {
	return &GroupStore{
		data:  make(map[string]*domain.Group),
		order: make(map[string]int),
	}
}

// groupKey generates a unique key for a group.
func groupKey(campaignAddress, label string) string {
	return fmt.Sprintf("%s|%s", campaignAddress, label)
}

// Insert registers a new group. Returns ErrDuplicateKey if exists.
func (s *GroupStore) Insert(_ context.Context, g *domain.Group) error {
	if g == nil || g.CampaignAddress == "" || g.Label == "" {
		return storage.ErrInvalidInput
	}

	key := groupKey(g.CampaignAddress, g.Label)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *g
	s.data[key] = &cp
	s.order[key] = s.next
	s.next++
	return nil
}

// GetByLabel retrieves a group. Returns ErrNotFound if not exists.
func (s *GroupStore) GetByLabel(_ context.Context, campaignAddress, label string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, exists := s.data[groupKey(campaignAddress, label)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *g
	return &cp, nil
}

// GetByCampaign retrieves all groups for a campaign in creation order.
func (s *GroupStore) GetByCampaign(_ context.Context, campaignAddress string) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type ordered struct {
		g   *domain.Group
		ord int
	}

	var result []ordered
	for key, g := range s.data {
		if g.CampaignAddress == campaignAddress {
			cp := *g
			result = append(result, ordered{&cp, s.order[key]})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ord < result[j].ord
	})

	groups := make([]*domain.Group, len(result))
	for i, o := range result {
		groups[i] = o.g
	}
	return groups, nil
}

var _ storage.GroupStore = (*GroupStore)(nil)
